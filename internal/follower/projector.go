package follower

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/httpclient"
	"go.uber.org/zap"
)

// documentDeletedProjector はDocumentDeleted購読の位置を記録する名前。
const documentDeletedProjector = "document-deleted"

// Projector はEvent StoreのDocumentDeletedイベントをポーリングし、
// 削除されたドキュメントのフォロワーを削除するバックグラウンドプロセス。
// 購読位置はデータベースに記録するため、再起動しても続きから処理する。
type Projector struct {
	store     *Store
	client    *httpclient.Client
	publisher *Publisher
	metrics   *Metrics
	logger    *zap.Logger
	// interval はポーリング間隔。
	interval time.Duration
	// batchSize は1回のポーリングで取得する最大イベント数。
	batchSize int
	// cancel はStartで起動したゴルーチンを停止する。
	cancel context.CancelFunc
	// done はStartで起動したゴルーチンの終了を通知する。
	done chan struct{}
}

// NewProjector は新しいProjectorを生成する。
func NewProjector(store *Store, client *httpclient.Client, publisher *Publisher, metrics *Metrics, logger *zap.Logger, interval time.Duration, batchSize int) *Projector {
	return &Projector{
		store:     store,
		client:    client,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		batchSize: batchSize,
	}
}

// Run はctxがキャンセルされるまでポーリングを続ける。
// 取得件数がbatchSizeに達した場合は待たずに次を取得する。
func (p *Projector) Run(ctx context.Context) error {
	p.logger.Info("Event Storeのポーリングを開始します", zap.Duration("interval", p.interval))
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Event Storeのポーリングを停止しました")
			return nil
		case <-ticker.C:
			for {
				n, err := p.poll(ctx)
				if err != nil {
					if ctx.Err() == nil {
						p.logger.Warn("ポーリングに失敗", zap.Error(err))
					}
					break
				}
				if n < p.batchSize {
					break
				}
			}
		}
	}
}

// Start はバックグラウンドでRunを開始する。
func (p *Projector) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		_ = p.Run(ctx)
	}()
}

// Stop はStartで開始したポーリングを停止し、終了を待つ。
func (p *Projector) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// poll は記録済みの位置以降のDocumentDeletedイベントを取得して処理し、処理件数を返す。
// 解釈できないイベントは読み飛ばして位置を進める。
// フォロワーの削除に失敗した場合はその手前までの位置を記録し、次回そのイベントから再試行する。
func (p *Projector) poll(ctx context.Context) (int, error) {
	after, err := p.store.Offset(ctx, documentDeletedProjector)
	if err != nil {
		return 0, fmt.Errorf("購読位置の取得に失敗: %w", err)
	}

	q := url.Values{}
	q.Set("after", strconv.FormatInt(after, 10))
	q.Set("limit", strconv.Itoa(p.batchSize))
	path := fmt.Sprintf("/api/v1/events/type/%s?%s", event.TypeDocumentDeleted, q.Encode())

	var events []event.Event
	if err := p.client.GetJSON(ctx, path, &events); err != nil {
		return 0, fmt.Errorf("Event Storeからのイベント取得に失敗: %w", err)
	}

	for i := range events {
		ev := &events[i]
		model, docID, err := documentOf(ev)
		if err != nil {
			// 解釈できないイベントは位置だけ進めて読み飛ばす
			p.logger.Error("DocumentDeletedイベントを解釈できないため読み飛ばします",
				zap.String("event_id", ev.ID),
				zap.Int64("position", ev.Position),
				zap.String("aggregate_id", ev.AggregateID),
				zap.Error(err),
			)
			p.metrics.projectorSkipped.Inc()
		} else if err := p.removeDocument(ctx, model, docID); err != nil {
			return i, fmt.Errorf("イベント処理に失敗 (id=%s, position=%d): %w", ev.ID, ev.Position, err)
		}
		if err := p.store.SetOffset(ctx, documentDeletedProjector, ev.Position); err != nil {
			return i, fmt.Errorf("購読位置の記録に失敗: %w", err)
		}
	}

	if len(events) > 0 {
		p.logger.Debug("DocumentDeletedイベントを処理しました", zap.Int("count", len(events)))
	}
	return len(events), nil
}

// documentOf はDocumentDeletedイベントから対象ドキュメントのモデル名とIDを取り出す。
// データにモデル名がない場合はAggregateIDから復元する。
func documentOf(ev *event.Event) (string, int64, error) {
	data, err := event.DecodeData[event.DocumentDeletedData](ev)
	if err != nil {
		return "", 0, err
	}
	if data.Model != "" && data.DocumentID != 0 {
		return data.Model, data.DocumentID, nil
	}
	return event.ParseDocumentAggregateID(ev.AggregateID)
}

// removeDocument は削除されたドキュメントのフォロワーを削除する。
func (p *Projector) removeDocument(ctx context.Context, model string, docID int64) error {
	removed, err := p.store.RemoveDocument(ctx, model, docID)
	if err != nil {
		return err
	}
	p.metrics.cascadeRemoved.Add(float64(len(removed)))
	for _, f := range removed {
		p.publisher.publishRemoved(ctx, f, "document_deleted")
	}
	if len(removed) > 0 {
		p.logger.Info("削除されたドキュメントのフォロワーを削除しました",
			zap.String("model", model),
			zap.Int64("document_id", docID),
			zap.Int("count", len(removed)),
		)
	}
	return nil
}
