package follower

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/google/uuid"
	followerdb "github.com/nao1215/follower/internal/follower/db"
	"github.com/nao1215/follower/pkg/subscription"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

var (
	// ErrNotFound は対象の行が存在しないことを表す。
	ErrNotFound = errors.New("対象が見つかりません")
	// ErrDuplicate は一意制約に違反したことを表す。
	ErrDuplicate = errors.New("既に登録されています")
)

// Follower はドキュメントのフォロワー1件と購読サブタイプ。
type Follower struct {
	ID         string  `json:"id"`
	Model      string  `json:"model"`
	DocumentID int64   `json:"document_id"`
	PartyID    int64   `json:"party_id"`
	SubtypeIDs []int64 `json:"subtype_ids"`
	CreatedAt  string  `json:"created_at"`
}

// Change は既存フォロワーのサブタイプ差分。
type Change struct {
	FollowerID string  `json:"follower_id"`
	DocumentID int64   `json:"document_id"`
	PartyID    int64   `json:"party_id"`
	Added      []int64 `json:"added,omitempty"`
	Removed    []int64 `json:"removed,omitempty"`
}

// Outcome はSubscribeの結果。
type Outcome struct {
	// Plan は適用した計画。
	Plan *subscription.Plan
	// Created は新規作成したフォロワー。
	Created []Follower
	// Changed はサブタイプを変更したフォロワー。
	Changed []Change
	// Replaced はforceポリシーで削除したフォロワー。
	Replaced []Follower
}

// Store はフォロワーとサブタイプを永続化する。
type Store struct {
	db      *sql.DB
	queries *followerdb.Queries
	// newID はフォロワー行のIDを採番する。
	newID func() string
}

// NewStore は新しいStoreを生成する。
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:      db,
		queries: followerdb.New(db),
		newID:   func() string { return uuid.New().String() },
	}
}

// Subscribe は既存フォロワーの読み出し、差分計算、反映を1トランザクションで行う。
// ポリシーが不正な場合は*subscription.ConfigurationErrorを返し、何も変更しない。
func (s *Store) Subscribe(ctx context.Context, req subscription.Request) (*Outcome, error) {
	if err := req.Policy.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	existing, err := existingFollowers(ctx, q, req.Model, req.DocumentIDs, req.PartyIDs)
	if err != nil {
		return nil, fmt.Errorf("既存フォロワーの取得に失敗: %w", err)
	}

	plan, err := subscription.Resolve(req, existing)
	if err != nil {
		return nil, err
	}

	out, err := s.apply(ctx, q, req.Model, plan, existing)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return out, nil
}

// existingFollowers は対象ドキュメントと対象パーティの既存フォロワーを取得する。
func existingFollowers(ctx context.Context, q *followerdb.Queries, model string, docIDs, partyIDs []int64) ([]subscription.Existing, error) {
	if len(docIDs) == 0 || len(partyIDs) == 0 {
		return nil, nil
	}

	rows, err := q.ListFollowerSubtypesByDocuments(ctx, followerdb.ListFollowerSubtypesByDocumentsParams{
		ResModel: model,
		ResIds:   docIDs,
		PartyIds: partyIDs,
	})
	if err != nil {
		return nil, err
	}

	var existing []subscription.Existing
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(existing)
			index[row.ID] = i
			existing = append(existing, subscription.Existing{
				FollowerID: row.ID,
				DocumentID: row.ResID,
				PartyID:    row.PartyID,
				Subtypes:   subscription.NewSet(),
			})
		}
		if row.SubtypeID.Valid {
			existing[i].Subtypes.Add(row.SubtypeID.Int64)
		}
	}
	return existing, nil
}

// apply は計画を削除、挿入、更新の順に反映する。
func (s *Store) apply(ctx context.Context, q *followerdb.Queries, model string, plan *subscription.Plan, existing []subscription.Existing) (*Outcome, error) {
	out := &Outcome{Plan: plan}

	byID := make(map[string]subscription.Existing, len(existing))
	for _, e := range existing {
		byID[e.FollowerID] = e
	}

	for _, id := range plan.Deletes {
		if err := deleteFollower(ctx, q, id); err != nil {
			return nil, err
		}
		e := byID[id]
		out.Replaced = append(out.Replaced, Follower{
			ID:         id,
			Model:      model,
			DocumentID: e.DocumentID,
			PartyID:    e.PartyID,
			SubtypeIDs: sortedIDs(e.Subtypes),
		})
	}

	for _, docID := range slices.Sorted(maps.Keys(plan.Inserts)) {
		for _, ins := range plan.Inserts[docID] {
			f := Follower{
				ID:         s.newID(),
				Model:      model,
				DocumentID: docID,
				PartyID:    ins.PartyID,
				SubtypeIDs: sortedIDs(ins.Subtypes),
			}
			if err := q.CreateFollower(ctx, followerdb.CreateFollowerParams{
				ID:       f.ID,
				ResModel: model,
				ResID:    docID,
				PartyID:  ins.PartyID,
			}); err != nil {
				return nil, fmt.Errorf("フォロワーの作成に失敗 (document=%d, party=%d): %w", docID, ins.PartyID, err)
			}
			for _, sid := range f.SubtypeIDs {
				if err := q.AddFollowerSubtype(ctx, followerdb.AddFollowerSubtypeParams{FollowerID: f.ID, SubtypeID: sid}); err != nil {
					return nil, fmt.Errorf("サブタイプの登録に失敗: %w", err)
				}
			}
			out.Created = append(out.Created, f)
		}
	}

	for _, id := range slices.Sorted(maps.Keys(plan.Updates)) {
		upd := plan.Updates[id]
		ch := Change{FollowerID: id, DocumentID: upd.DocumentID, PartyID: upd.PartyID}
		for _, cmd := range upd.Commands {
			var err error
			switch cmd.Op {
			case subscription.OpAdd:
				err = q.AddFollowerSubtype(ctx, followerdb.AddFollowerSubtypeParams{FollowerID: id, SubtypeID: cmd.SubtypeID})
				ch.Added = append(ch.Added, cmd.SubtypeID)
			case subscription.OpRemove:
				err = q.RemoveFollowerSubtype(ctx, followerdb.RemoveFollowerSubtypeParams{FollowerID: id, SubtypeID: cmd.SubtypeID})
				ch.Removed = append(ch.Removed, cmd.SubtypeID)
			}
			if err != nil {
				return nil, fmt.Errorf("サブタイプの更新に失敗 (follower=%s): %w", id, err)
			}
		}
		out.Changed = append(out.Changed, ch)
	}

	return out, nil
}

// deleteFollower はフォロワー行と購読サブタイプを削除する。
func deleteFollower(ctx context.Context, q *followerdb.Queries, id string) error {
	if err := q.DeleteFollowerSubtypes(ctx, id); err != nil {
		return fmt.Errorf("サブタイプの削除に失敗 (follower=%s): %w", id, err)
	}
	if err := q.DeleteFollower(ctx, id); err != nil {
		return fmt.Errorf("フォロワーの削除に失敗 (follower=%s): %w", id, err)
	}
	return nil
}

// Followers はドキュメントのフォロワーをパーティID順に返す。
func (s *Store) Followers(ctx context.Context, model string, docID int64) ([]Follower, error) {
	rows, err := s.queries.ListFollowerSubtypesByDocument(ctx, followerdb.ListFollowerSubtypesByDocumentParams{
		ResModel: model,
		ResID:    docID,
	})
	if err != nil {
		return nil, err
	}

	followers := make([]Follower, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(followers)
			index[row.ID] = i
			followers = append(followers, Follower{
				ID:         row.ID,
				Model:      model,
				DocumentID: docID,
				PartyID:    row.PartyID,
				SubtypeIDs: []int64{},
				CreatedAt:  row.CreatedAt,
			})
		}
		if row.SubtypeID.Valid {
			followers[i].SubtypeIDs = append(followers[i].SubtypeIDs, row.SubtypeID.Int64)
		}
	}
	return followers, nil
}

// Followings はパーティがフォローしているドキュメントをモデル名、ドキュメントID順に返す。
func (s *Store) Followings(ctx context.Context, partyID int64) ([]Follower, error) {
	rows, err := s.queries.ListFollowerSubtypesByParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	followings := make([]Follower, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.ID]
		if !ok {
			i = len(followings)
			index[row.ID] = i
			followings = append(followings, Follower{
				ID:         row.ID,
				Model:      row.ResModel,
				DocumentID: row.ResID,
				PartyID:    partyID,
				SubtypeIDs: []int64{},
				CreatedAt:  row.CreatedAt,
			})
		}
		if row.SubtypeID.Valid {
			followings[i].SubtypeIDs = append(followings[i].SubtypeIDs, row.SubtypeID.Int64)
		}
	}
	return followings, nil
}

// Unfollow はパーティのドキュメントに対するフォローを解除する。
// フォローしていない場合はErrNotFoundを返す。
func (s *Store) Unfollow(ctx context.Context, model string, docID, partyID int64) (*Follower, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	row, err := q.GetFollowerByDocumentParty(ctx, followerdb.GetFollowerByDocumentPartyParams{
		ResModel: model,
		ResID:    docID,
		PartyID:  partyID,
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("フォロワーの取得に失敗: %w", err)
	}

	if err := deleteFollower(ctx, q, row.ID); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return &Follower{ID: row.ID, Model: model, DocumentID: docID, PartyID: partyID, CreatedAt: row.CreatedAt}, nil
}

// RemoveDocument はドキュメントのフォロワーをすべて削除し、削除したフォロワーを返す。
func (s *Store) RemoveDocument(ctx context.Context, model string, docID int64) ([]Follower, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	q := s.queries.WithTx(tx)
	rows, err := q.ListFollowersByDocument(ctx, followerdb.ListFollowersByDocumentParams{ResModel: model, ResID: docID})
	if err != nil {
		return nil, fmt.Errorf("フォロワーの取得に失敗: %w", err)
	}

	removed := make([]Follower, 0, len(rows))
	for _, row := range rows {
		if err := deleteFollower(ctx, q, row.ID); err != nil {
			return nil, err
		}
		removed = append(removed, Follower{ID: row.ID, Model: model, DocumentID: docID, PartyID: row.PartyID, CreatedAt: row.CreatedAt})
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return removed, nil
}

// CreateSubtype はサブタイプをカタログに登録する。
// 同じモデルに同名のサブタイプがある場合はErrDuplicateを返す。
func (s *Store) CreateSubtype(ctx context.Context, st subscription.Subtype) (subscription.Subtype, error) {
	row, err := s.queries.CreateSubtype(ctx, followerdb.CreateSubtypeParams{
		Name:      st.Name,
		ResModel:  st.Model,
		IsDefault: boolToInt(st.Default),
		Internal:  boolToInt(st.Internal),
	})
	if err != nil {
		if isConstraintViolation(err) {
			return subscription.Subtype{}, ErrDuplicate
		}
		return subscription.Subtype{}, err
	}
	return toSubtype(row), nil
}

// Subtype はIDでサブタイプを取得する。存在しない場合はErrNotFoundを返す。
func (s *Store) Subtype(ctx context.Context, id int64) (subscription.Subtype, error) {
	row, err := s.queries.GetSubtype(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return subscription.Subtype{}, ErrNotFound
	}
	if err != nil {
		return subscription.Subtype{}, err
	}
	return toSubtype(row), nil
}

// Subtypes はmodelに適用されるサブタイプを返す。modelが空文字列の場合は全件を返す。
func (s *Store) Subtypes(ctx context.Context, model string) ([]subscription.Subtype, error) {
	var (
		rows []followerdb.Subtype
		err  error
	)
	if model == "" {
		rows, err = s.queries.ListSubtypes(ctx)
	} else {
		rows, err = s.queries.ListSubtypesForModel(ctx, model)
	}
	if err != nil {
		return nil, err
	}

	subtypes := make([]subscription.Subtype, 0, len(rows))
	for _, row := range rows {
		subtypes = append(subtypes, toSubtype(row))
	}
	return subtypes, nil
}

// Offset はプロジェクターの購読位置を返す。未記録の場合は0。
func (s *Store) Offset(ctx context.Context, name string) (int64, error) {
	pos, err := s.queries.GetProjectorOffset(ctx, name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	return pos, err
}

// SetOffset はプロジェクターの購読位置を記録する。
func (s *Store) SetOffset(ctx context.Context, name string, position int64) error {
	return s.queries.UpsertProjectorOffset(ctx, followerdb.UpsertProjectorOffsetParams{Name: name, Position: position})
}

func toSubtype(row followerdb.Subtype) subscription.Subtype {
	return subscription.Subtype{
		ID:       row.ID,
		Name:     row.Name,
		Model:    row.ResModel,
		Default:  row.IsDefault != 0,
		Internal: row.Internal != 0,
	}
}

// sortedIDs は集合を昇順に並べる。空集合は空スライスを返す。
func sortedIDs(s subscription.Set) []int64 {
	if len(s) == 0 {
		return []int64{}
	}
	return s.Sorted()
}

func boolToInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}

// isConstraintViolation はSQLiteの制約違反であるかを返す。
func isConstraintViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}
