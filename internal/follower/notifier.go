package follower

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/nao1215/follower/pkg/httpclient"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Message は通知サービスに配信するメッセージ。
type Message struct {
	Model      string
	DocumentID int64
	SubtypeID  int64
	Title      string
	Body       string
}

// sendRequest は通知サービスの内部送信APIのリクエスト。
type sendRequest struct {
	PartyID    int64  `json:"party_id"`
	Model      string `json:"res_model"`
	DocumentID int64  `json:"res_id"`
	SubtypeID  int64  `json:"subtype_id,omitempty"`
	Title      string `json:"title"`
	Message    string `json:"message"`
}

// Delivery は配信結果。
type Delivery struct {
	// Sent は配信に成功したパーティID（昇順）。
	Sent []int64 `json:"sent"`
	// Failed は配信に失敗したパーティID（昇順）。
	Failed []int64 `json:"failed"`
}

// Notifier は通知先パーティへメッセージを並行配信する。
type Notifier struct {
	client  *httpclient.Client
	fanout  int
	metrics *Metrics
	logger  *zap.Logger
}

// NewNotifier は新しいNotifierを生成する。fanoutは同時に送信するリクエストの上限。
func NewNotifier(client *httpclient.Client, fanout int, metrics *Metrics, logger *zap.Logger) *Notifier {
	if fanout <= 0 {
		fanout = 1
	}
	return &Notifier{client: client, fanout: fanout, metrics: metrics, logger: logger}
}

// Deliver はpartyIDsそれぞれにメッセージを送信する。
// 一部のパーティへの送信が失敗しても残りの送信は続け、結果をDeliveryにまとめて返す。
func (n *Notifier) Deliver(ctx context.Context, msg Message, partyIDs []int64) Delivery {
	var (
		mu  sync.Mutex
		res = Delivery{Sent: []int64{}, Failed: []int64{}}
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(n.fanout)
	for _, pid := range partyIDs {
		g.Go(func() error {
			err := n.send(gctx, msg, pid)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				res.Failed = append(res.Failed, pid)
				n.logger.Warn("通知の配信に失敗",
					zap.Int64("party_id", pid),
					zap.String("model", msg.Model),
					zap.Int64("document_id", msg.DocumentID),
					zap.Error(err),
				)
				return nil
			}
			res.Sent = append(res.Sent, pid)
			return nil
		})
	}
	_ = g.Wait()

	slices.Sort(res.Sent)
	slices.Sort(res.Failed)
	return res
}

// send は1パーティへの送信を行い、メトリクスを記録する。
func (n *Notifier) send(ctx context.Context, msg Message, partyID int64) error {
	start := time.Now()
	err := n.client.PostJSON(ctx, "/api/v1/internal/send", sendRequest{
		PartyID:    partyID,
		Model:      msg.Model,
		DocumentID: msg.DocumentID,
		SubtypeID:  msg.SubtypeID,
		Title:      msg.Title,
		Message:    msg.Body,
	}, nil)
	n.metrics.deliveryDuration.Observe(time.Since(start).Seconds())

	status := "sent"
	if err != nil {
		status = "failed"
	}
	n.metrics.deliveries.WithLabelValues(status).Inc()
	return err
}
