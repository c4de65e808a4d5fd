package follower

import (
	"context"

	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/httpclient"
	"go.uber.org/zap"
)

// Publisher はフォロワーの状態変更をEvent Storeに送信する。
// 送信に失敗してもフォロワーの変更は確定済みのため、ログに記録して処理を続ける。
type Publisher struct {
	client *httpclient.Client
	logger *zap.Logger
}

// NewPublisher は新しいPublisherを生成する。
func NewPublisher(client *httpclient.Client, logger *zap.Logger) *Publisher {
	return &Publisher{client: client, logger: logger}
}

// publish は1件のイベントを送信する。
func (p *Publisher) publish(ctx context.Context, aggregateID string, aggType event.AggregateType, evType event.Type, data any) {
	req, err := event.NewAppendRequest(aggregateID, aggType, evType, data)
	if err != nil {
		p.logger.Error("イベントの生成に失敗", zap.String("event_type", string(evType)), zap.Error(err))
		return
	}
	var created event.Event
	if err := p.client.PostJSON(ctx, "/api/v1/events", req, &created); err != nil {
		p.logger.Warn("イベントの送信に失敗",
			zap.String("aggregate_id", aggregateID),
			zap.String("event_type", string(evType)),
			zap.Error(err),
		)
	}
}

// PublishOutcome はSubscribeの結果をイベントとして送信する。
// forceで置き換えた行の削除、新規作成、サブタイプ変更の順に送る。
func (p *Publisher) PublishOutcome(ctx context.Context, out *Outcome) {
	for _, f := range out.Replaced {
		p.publishRemoved(ctx, f, "replaced")
	}
	for _, f := range out.Created {
		p.publish(ctx, f.ID, event.AggregateTypeFollower, event.TypeFollowerAdded, event.FollowerAddedData{
			FollowerID: f.ID,
			Model:      f.Model,
			DocumentID: f.DocumentID,
			PartyID:    f.PartyID,
			SubtypeIDs: f.SubtypeIDs,
		})
	}
	for _, ch := range out.Changed {
		p.publish(ctx, ch.FollowerID, event.AggregateTypeFollower, event.TypeFollowerSubtypesChanged, event.FollowerSubtypesChangedData{
			FollowerID: ch.FollowerID,
			Added:      ch.Added,
			Removed:    ch.Removed,
		})
	}
}

// publishRemoved はFollowerRemovedイベントを送信する。
func (p *Publisher) publishRemoved(ctx context.Context, f Follower, reason string) {
	p.publish(ctx, f.ID, event.AggregateTypeFollower, event.TypeFollowerRemoved, event.FollowerRemovedData{
		FollowerID: f.ID,
		Model:      f.Model,
		DocumentID: f.DocumentID,
		PartyID:    f.PartyID,
		Reason:     reason,
	})
}
