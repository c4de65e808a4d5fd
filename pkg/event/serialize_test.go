package event

import (
	"encoding/json"
	"testing"
	"time"
)

// TestNew はNew関数でイベントが正しく生成されることを検証する。
func TestNew(t *testing.T) {
	t.Parallel()

	t.Run("FollowerAddedDataでイベントを正常に生成できること", func(t *testing.T) {
		t.Parallel()

		data := FollowerAddedData{
			FollowerID: "follower-1",
			Model:      "crm.lead",
			DocumentID: 7,
			PartyID:    3,
			SubtypeIDs: []int64{1, 2},
		}

		before := time.Now().UTC()
		ev, err := New("follower-1", AggregateTypeFollower, TypeFollowerAdded, 1, data)
		after := time.Now().UTC()

		if err != nil {
			t.Fatalf("New()でエラーが発生: %v", err)
		}
		if ev.ID == "" {
			t.Error("IDが空文字列")
		}
		if ev.AggregateType != AggregateTypeFollower {
			t.Errorf("AggregateType = %q, want %q", ev.AggregateType, AggregateTypeFollower)
		}
		if ev.EventType != TypeFollowerAdded {
			t.Errorf("EventType = %q, want %q", ev.EventType, TypeFollowerAdded)
		}
		if ev.CreatedAt.Before(before) || ev.CreatedAt.After(after) {
			t.Errorf("CreatedAt = %v, 期待する範囲: [%v, %v]", ev.CreatedAt, before, after)
		}

		decoded, err := DecodeData[FollowerAddedData](ev)
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if decoded.PartyID != 3 || decoded.DocumentID != 7 || len(decoded.SubtypeIDs) != 2 {
			t.Errorf("デコード結果が不正: %+v", decoded)
		}
	})

	t.Run("連続して生成したイベントのIDが異なること", func(t *testing.T) {
		t.Parallel()

		data := DocumentDeletedData{Model: "crm.lead", DocumentID: 1}

		ev1, err := New("doc", AggregateTypeDocument, TypeDocumentDeleted, 1, data)
		if err != nil {
			t.Fatalf("1回目のNew()でエラーが発生: %v", err)
		}
		ev2, err := New("doc", AggregateTypeDocument, TypeDocumentDeleted, 2, data)
		if err != nil {
			t.Fatalf("2回目のNew()でエラーが発生: %v", err)
		}
		if ev1.ID == ev2.ID {
			t.Errorf("異なるイベントが同じIDを持っている: %q", ev1.ID)
		}
	})

	t.Run("シリアライズ不可能なデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ev, err := New("doc", AggregateTypeDocument, TypeDocumentDeleted, 1, make(chan int))
		if err == nil {
			t.Fatal("New()がエラーを返すべきだが、nilが返った")
		}
		if ev != nil {
			t.Error("エラー時にnilでないEventが返った")
		}
	})
}

// TestNewAppendRequest はNewAppendRequest関数を検証する。
func TestNewAppendRequest(t *testing.T) {
	t.Parallel()

	req, err := NewAppendRequest(DocumentAggregateID("sale.order", 5), AggregateTypeDocument, TypeDocumentDeleted,
		DocumentDeletedData{Model: "sale.order", DocumentID: 5})
	if err != nil {
		t.Fatalf("NewAppendRequest()でエラーが発生: %v", err)
	}
	if req.AggregateID != "document:sale.order:5" {
		t.Errorf("AggregateID = %q, want %q", req.AggregateID, "document:sale.order:5")
	}

	var data DocumentDeletedData
	if err := json.Unmarshal(req.Data, &data); err != nil {
		t.Fatalf("Dataのデシリアライズに失敗: %v", err)
	}
	if data.DocumentID != 5 {
		t.Errorf("DocumentID = %d, want 5", data.DocumentID)
	}

	if _, err := NewAppendRequest("x", AggregateTypeDocument, TypeDocumentDeleted, make(chan int)); err == nil {
		t.Error("シリアライズ不可能なデータでエラーが返るべき")
	}
}

// TestDecodeData はDecodeData関数の異常系を検証する。
func TestDecodeData(t *testing.T) {
	t.Parallel()

	t.Run("不正なJSONデータでエラーが返ること", func(t *testing.T) {
		t.Parallel()

		ev := &Event{Data: json.RawMessage(`{invalid json`)}
		decoded, err := DecodeData[DocumentDeletedData](ev)
		if err == nil {
			t.Fatal("DecodeData()がエラーを返すべきだが、nilが返った")
		}
		if decoded != nil {
			t.Error("エラー時にnilでないデータが返った")
		}
	})

	t.Run("空のJSONオブジェクトからゼロ値にデコードできること", func(t *testing.T) {
		t.Parallel()

		decoded, err := DecodeData[DocumentDeletedData](&Event{Data: json.RawMessage(`{}`)})
		if err != nil {
			t.Fatalf("DecodeData()でエラーが発生: %v", err)
		}
		if decoded.Model != "" || decoded.DocumentID != 0 {
			t.Errorf("ゼロ値でない: %+v", decoded)
		}
	})
}

// TestDocumentAggregateID はドキュメントAggregateIDの生成と解析を検証する。
func TestDocumentAggregateID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		in        string
		wantModel string
		wantID    int64
		wantErr   bool
	}{
		{name: "正常な形式", in: DocumentAggregateID("crm.lead", 42), wantModel: "crm.lead", wantID: 42},
		{name: "モデル名にコロンを含む", in: "document:x:y:3", wantModel: "x:y", wantID: 3},
		{name: "接頭辞がない", in: "follower-1", wantErr: true},
		{name: "IDがない", in: "document:crm.lead", wantErr: true},
		{name: "IDが数値でない", in: "document:crm.lead:abc", wantErr: true},
		{name: "モデル名が空", in: "document::1", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			model, id, err := ParseDocumentAggregateID(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDocumentAggregateID(%q)がエラーを返すべき", tt.in)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDocumentAggregateID(%q)でエラーが発生: %v", tt.in, err)
			}
			if model != tt.wantModel || id != tt.wantID {
				t.Errorf("got (%q, %d), want (%q, %d)", model, id, tt.wantModel, tt.wantID)
			}
		})
	}
}
