package follower

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/httpclient"
	"github.com/nao1215/follower/pkg/subscription"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
	)
}

// fakeEventStore はDocumentDeletedイベントを返し、追記リクエストを記録するEvent Storeの模擬実装。
type fakeEventStore struct {
	mu       sync.Mutex
	events   []event.Event
	appended []event.AppendRequest
	// queries はGETで受け取ったafterの値。
	queries []int64
}

func (f *fakeEventStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodPost {
		var req event.AppendRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.appended = append(f.appended, req)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":"mock"}`))
		return
	}

	if r.URL.Path != "/api/v1/events/type/DocumentDeleted" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	f.queries = append(f.queries, after)

	out := make([]event.Event, 0)
	for _, ev := range f.events {
		if ev.Position > after && len(out) < limit {
			out = append(out, ev)
		}
	}
	_ = json.NewEncoder(w).Encode(out)
}

func (f *fakeEventStore) removedReasons() []string {
	f.mu.Lock()
	defer f.mu.Unlock()

	var reasons []string
	for _, req := range f.appended {
		if req.EventType != event.TypeFollowerRemoved {
			continue
		}
		var data event.FollowerRemovedData
		if err := json.Unmarshal(req.Data, &data); err == nil {
			reasons = append(reasons, data.Reason)
		}
	}
	return reasons
}

func documentDeleted(t *testing.T, position int64, aggregateID string, data any) event.Event {
	t.Helper()

	ev, err := event.New(aggregateID, event.AggregateTypeDocument, event.TypeDocumentDeleted, 1, data)
	require.NoError(t, err)
	ev.Position = position
	return *ev
}

// newTestProjector はインメモリSQLiteと模擬Event StoreでProjectorを構築する。
func newTestProjector(t *testing.T, es *fakeEventStore, interval time.Duration, batchSize int) (*Projector, *Store, *Metrics) {
	t.Helper()

	srv := httptest.NewServer(es)
	t.Cleanup(srv.Close)

	store := newTestStore(t)
	metrics := NewMetrics()
	client := httpclient.New(srv.URL)
	p := NewProjector(store, client, NewPublisher(client, zap.NewNop()), metrics, zap.NewNop(), interval, batchSize)
	return p, store, metrics
}

func subscribeParties(t *testing.T, s *Store, model string, docID int64, parties ...int64) {
	t.Helper()

	_, err := s.Subscribe(t.Context(), subscription.Request{
		Model:       model,
		DocumentIDs: []int64{docID},
		PartyIDs:    parties,
		Policy:      subscription.PolicySkip,
	})
	require.NoError(t, err)
}

func TestProjectorPoll(t *testing.T) {
	t.Parallel()

	es := &fakeEventStore{}
	es.events = []event.Event{
		documentDeleted(t, 3, event.DocumentAggregateID("crm.lead", 10), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 10}),
		// データにモデル名がない場合はAggregateIDから復元する
		documentDeleted(t, 5, event.DocumentAggregateID("sale.order", 7), map[string]any{}),
		documentDeleted(t, 8, event.DocumentAggregateID("crm.lead", 99), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 99}),
	}

	p, store, metrics := newTestProjector(t, es, time.Hour, 10)
	subscribeParties(t, store, "crm.lead", 10, 1, 2)
	subscribeParties(t, store, "crm.lead", 11, 1)
	subscribeParties(t, store, "sale.order", 7, 3)

	n, err := p.poll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	for _, doc := range []struct {
		model string
		id    int64
		want  int
	}{
		{model: "crm.lead", id: 10, want: 0},
		{model: "crm.lead", id: 11, want: 1},
		{model: "sale.order", id: 7, want: 0},
	} {
		followers, err := store.Followers(t.Context(), doc.model, doc.id)
		require.NoError(t, err)
		assert.Len(t, followers, doc.want, "%s/%d", doc.model, doc.id)
	}

	offset, err := store.Offset(t.Context(), documentDeletedProjector)
	require.NoError(t, err)
	assert.Equal(t, int64(8), offset)

	assert.Equal(t, []string{"document_deleted", "document_deleted", "document_deleted"}, es.removedReasons())
	assert.InDelta(t, 3, testutil.ToFloat64(metrics.cascadeRemoved), 0)

	// 2回目は記録済みの位置以降のみを取得する
	n, err = p.poll(t.Context())
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int64{0, 8}, es.queries)
}

func TestProjectorPollSkipsMalformedEvent(t *testing.T) {
	t.Parallel()

	es := &fakeEventStore{}
	es.events = []event.Event{
		// データがオブジェクトでない
		documentDeleted(t, 1, event.DocumentAggregateID("crm.lead", 1), "broken"),
		// データが空でAggregateIDからも復元できない
		documentDeleted(t, 2, "not-a-document", map[string]any{}),
		documentDeleted(t, 3, event.DocumentAggregateID("crm.lead", 3), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 3}),
	}

	p, store, metrics := newTestProjector(t, es, time.Hour, 10)
	core, logs := observer.New(zap.ErrorLevel)
	p.logger = zap.New(core)
	subscribeParties(t, store, "crm.lead", 1, 1)
	subscribeParties(t, store, "crm.lead", 3, 1)

	n, err := p.poll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	offset, err := store.Offset(t.Context(), documentDeletedProjector)
	require.NoError(t, err)
	assert.Equal(t, int64(3), offset)

	// 読み飛ばしたイベントより後の削除も反映される
	followers, err := store.Followers(t.Context(), "crm.lead", 3)
	require.NoError(t, err)
	assert.Empty(t, followers)
	followers, err = store.Followers(t.Context(), "crm.lead", 1)
	require.NoError(t, err)
	assert.Len(t, followers, 1)

	assert.InDelta(t, 2, testutil.ToFloat64(metrics.projectorSkipped), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.cascadeRemoved), 0)
	skipped := logs.FilterMessage("DocumentDeletedイベントを解釈できないため読み飛ばします").All()
	require.Len(t, skipped, 2)
	assert.Equal(t, int64(1), skipped[0].ContextMap()["position"])
	assert.Equal(t, int64(2), skipped[1].ContextMap()["position"])
}

func TestProjectorPollRetriesStoreFailure(t *testing.T) {
	t.Parallel()

	es := &fakeEventStore{}
	es.events = []event.Event{
		documentDeleted(t, 1, event.DocumentAggregateID("crm.lead", 1), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 1}),
		documentDeleted(t, 2, event.DocumentAggregateID("crm.lead", 2), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 2}),
	}

	p, store, metrics := newTestProjector(t, es, time.Hour, 10)
	subscribeParties(t, store, "crm.lead", 2, 1)

	// フォロワーテーブルを一時的に使えなくして削除を失敗させる
	_, err := store.db.ExecContext(t.Context(), "ALTER TABLE followers RENAME TO followers_unavailable")
	require.NoError(t, err)

	n, err := p.poll(t.Context())
	require.Error(t, err)
	assert.Zero(t, n)

	offset, err := store.Offset(t.Context(), documentDeletedProjector)
	require.NoError(t, err)
	assert.Zero(t, offset)
	assert.Zero(t, testutil.ToFloat64(metrics.projectorSkipped))

	_, err = store.db.ExecContext(t.Context(), "ALTER TABLE followers_unavailable RENAME TO followers")
	require.NoError(t, err)

	// 次回のポーリングで同じイベントから再試行する
	n, err = p.poll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	offset, err = store.Offset(t.Context(), documentDeletedProjector)
	require.NoError(t, err)
	assert.Equal(t, int64(2), offset)

	followers, err := store.Followers(t.Context(), "crm.lead", 2)
	require.NoError(t, err)
	assert.Empty(t, followers)
	assert.Equal(t, []int64{0, 0}, es.queries)
}

func TestProjectorStartStop(t *testing.T) {
	t.Parallel()

	es := &fakeEventStore{}
	es.events = []event.Event{
		documentDeleted(t, 1, event.DocumentAggregateID("crm.lead", 1), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 1}),
		documentDeleted(t, 2, event.DocumentAggregateID("crm.lead", 2), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 2}),
		documentDeleted(t, 3, event.DocumentAggregateID("crm.lead", 3), event.DocumentDeletedData{Model: "crm.lead", DocumentID: 3}),
	}

	// バッチサイズ2のため、1回のティックで2回続けて取得する
	p, store, _ := newTestProjector(t, es, 10*time.Millisecond, 2)
	subscribeParties(t, store, "crm.lead", 3, 1)

	p.Start(t.Context())
	require.Eventually(t, func() bool {
		offset, err := store.Offset(t.Context(), documentDeletedProjector)
		return err == nil && offset == 3
	}, 5*time.Second, 10*time.Millisecond)
	p.Stop()

	followers, err := store.Followers(t.Context(), "crm.lead", 3)
	require.NoError(t, err)
	assert.Empty(t, followers)

	// 停止済みのProjectorに対するStopは何もしない
	p.Stop()
}
