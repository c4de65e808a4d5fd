package eventstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"
	eventstoredb "github.com/nao1215/follower/internal/eventstore/db"
	"github.com/nao1215/follower/pkg/event"
)

// timeLayout はcreated_at列の保存形式。桁数を固定して文字列比較で時刻順になるようにする。
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// ErrVersionConflict は期待バージョンと最新バージョンが一致しないことを表す。
var ErrVersionConflict = errors.New("バージョンが競合しました")

// Store はイベントの追記と取得を行う。
type Store struct {
	db      *sql.DB
	queries *eventstoredb.Queries
	// now は現在時刻を返す。テストで差し替える。
	now func() time.Time
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		queries: eventstoredb.New(db),
		now:     time.Now,
	}
}

// Append はイベントを追記し、採番されたバージョンと位置を含むイベントを返す。
// ExpectedVersionが指定され最新バージョンと異なる場合はErrVersionConflictを返す。
func (s *Store) Append(ctx context.Context, req event.AppendRequest) (*event.Event, error) {
	if !json.Valid(req.Data) {
		return nil, errors.New("dataが正しいJSONではありません")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	latest, err := q.GetLatestVersion(ctx, req.AggregateID)
	if err != nil {
		return nil, fmt.Errorf("最新バージョンの取得に失敗: %w", err)
	}
	if req.ExpectedVersion != nil && *req.ExpectedVersion != latest {
		return nil, fmt.Errorf("%w: expected=%d, latest=%d", ErrVersionConflict, *req.ExpectedVersion, latest)
	}

	ev := &event.Event{
		ID:            uuid.New().String(),
		AggregateID:   req.AggregateID,
		AggregateType: req.AggregateType,
		EventType:     req.EventType,
		Data:          req.Data,
		Version:       latest + 1,
		CreatedAt:     s.now().UTC(),
	}
	position, err := q.InsertEvent(ctx, eventstoredb.InsertEventParams{
		ID:            ev.ID,
		AggregateID:   ev.AggregateID,
		AggregateType: string(ev.AggregateType),
		EventType:     string(ev.EventType),
		Data:          string(ev.Data),
		Version:       ev.Version,
		CreatedAt:     ev.CreatedAt.Format(timeLayout),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: version=%d", ErrVersionConflict, ev.Version)
		}
		return nil, fmt.Errorf("イベントの保存に失敗: %w", err)
	}
	ev.Position = position

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return ev, nil
}

// isUniqueViolation はSQLiteの一意制約違反であるかを返す。
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}

// List は位置afterより後のイベントを最大limit件返す。
func (s *Store) List(ctx context.Context, after, limit int64) ([]event.Event, error) {
	rows, err := s.queries.ListEvents(ctx, eventstoredb.ListEventsParams{After: after, Limit: limit})
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

// ListByAggregateID はAggregateのイベントをバージョン順に返す。
func (s *Store) ListByAggregateID(ctx context.Context, aggregateID string) ([]event.Event, error) {
	rows, err := s.queries.ListEventsByAggregateID(ctx, aggregateID)
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

// ListByType はイベントタイプが一致し、位置afterより後のイベントを最大limit件返す。
func (s *Store) ListByType(ctx context.Context, eventType event.Type, after, limit int64) ([]event.Event, error) {
	rows, err := s.queries.ListEventsByType(ctx, eventstoredb.ListEventsByTypeParams{
		EventType: string(eventType),
		After:     after,
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

// ListSince はsince以降に記録されたイベントを最大limit件返す。
func (s *Store) ListSince(ctx context.Context, since time.Time, limit int64) ([]event.Event, error) {
	rows, err := s.queries.ListEventsSince(ctx, eventstoredb.ListEventsSinceParams{
		CreatedAt: since.UTC().Format(timeLayout),
		Limit:     limit,
	})
	if err != nil {
		return nil, err
	}
	return toEvents(rows)
}

// LatestVersion はAggregateの最新バージョンを返す。イベントがなければ0。
func (s *Store) LatestVersion(ctx context.Context, aggregateID string) (int64, error) {
	return s.queries.GetLatestVersion(ctx, aggregateID)
}

// toEvent はDB行をイベントに変換する。
func toEvent(row eventstoredb.Event) (event.Event, error) {
	createdAt, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return event.Event{}, fmt.Errorf("created_atの解析に失敗: %w", err)
	}
	return event.Event{
		ID:            row.ID,
		Position:      row.Position,
		AggregateID:   row.AggregateID,
		AggregateType: event.AggregateType(row.AggregateType),
		EventType:     event.Type(row.EventType),
		Data:          json.RawMessage(row.Data),
		Version:       row.Version,
		CreatedAt:     createdAt,
	}, nil
}

// toEvents はDB行のスライスをイベントのスライスに変換する。結果はnilにならない。
func toEvents(rows []eventstoredb.Event) ([]event.Event, error) {
	events := make([]event.Event, 0, len(rows))
	for _, row := range rows {
		ev, err := toEvent(row)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, nil
}
