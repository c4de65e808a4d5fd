package event

import (
	"encoding/json"
	"time"
)

// AggregateType はイベントの対象となるエンティティの種類を表す。
type AggregateType string

const (
	// AggregateTypeDocument はフォロー対象のドキュメントを表す。
	AggregateTypeDocument AggregateType = "Document"
	// AggregateTypeFollower はフォロワー行を表す。
	AggregateTypeFollower AggregateType = "Follower"
	// AggregateTypeParty は通知を受け取るパーティを表す。
	AggregateTypeParty AggregateType = "Party"
)

// Type はイベントの種類を表す。
type Type string

const (
	// TypeFollowerAdded はパーティがドキュメントのフォロワーになったことを表す。
	TypeFollowerAdded Type = "FollowerAdded"
	// TypeFollowerSubtypesChanged はフォロワーの購読サブタイプが変更されたことを表す。
	TypeFollowerSubtypesChanged Type = "FollowerSubtypesChanged"
	// TypeFollowerRemoved はフォロワーが削除されたことを表す。
	TypeFollowerRemoved Type = "FollowerRemoved"

	// TypeDocumentDeleted はフォロー対象のドキュメントが削除されたことを表す。
	// フォロワーサービスはこのイベントを購読し、フォロワーを連鎖削除する。
	TypeDocumentDeleted Type = "DocumentDeleted"

	// TypeNotificationSent は通知が送信されたことを表す。
	TypeNotificationSent Type = "NotificationSent"
)

// MaxPageSize はEvent Storeの取得系APIが1回に返すイベント数の上限。
const MaxPageSize = 1000

// Event はEvent Sourcingにおける不変のイベントレコードを表す。
// すべての状態変更はこの構造体としてEvent Storeに永続化される。
type Event struct {
	// ID はイベントの一意識別子（UUID）。
	ID string `json:"id"`
	// Position はEvent Store全体での追記順序。購読側のカーソルに使用する。
	Position int64 `json:"position"`
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data"`
	// Version はAggregate内でのイベントの順序番号。楽観的排他制御に使用する。
	Version int64 `json:"version"`
	// CreatedAt はイベントが作成された日時。
	CreatedAt time.Time `json:"created_at"`
}

// AppendRequest はEvent Storeへのイベント追記リクエストのJSON構造。
type AppendRequest struct {
	// AggregateID は対象エンティティの識別子。
	AggregateID string `json:"aggregate_id" binding:"required"`
	// AggregateType は対象エンティティの種類。
	AggregateType AggregateType `json:"aggregate_type" binding:"required"`
	// EventType はイベントの種類。
	EventType Type `json:"event_type" binding:"required"`
	// Data はイベント固有のデータ（JSON形式）。
	Data json.RawMessage `json:"data" binding:"required"`
	// ExpectedVersion を指定した場合、現在の最新バージョンと一致しなければ追記を拒否する。
	ExpectedVersion *int64 `json:"expected_version,omitempty"`
}

// FollowerAddedData はFollowerAddedイベントのデータ。
type FollowerAddedData struct {
	// FollowerID はフォロワー行の識別子。
	FollowerID string `json:"follower_id"`
	// Model は対象ドキュメントのモデル名。
	Model string `json:"model"`
	// DocumentID は対象ドキュメントのID。
	DocumentID int64 `json:"document_id"`
	// PartyID はフォロワーとなったパーティのID。
	PartyID int64 `json:"party_id"`
	// SubtypeIDs は購読したサブタイプのID一覧。
	SubtypeIDs []int64 `json:"subtype_ids"`
}

// FollowerSubtypesChangedData はFollowerSubtypesChangedイベントのデータ。
type FollowerSubtypesChangedData struct {
	// FollowerID はフォロワー行の識別子。
	FollowerID string `json:"follower_id"`
	// Added は追加されたサブタイプのID一覧。
	Added []int64 `json:"added,omitempty"`
	// Removed は削除されたサブタイプのID一覧。
	Removed []int64 `json:"removed,omitempty"`
}

// FollowerRemovedData はFollowerRemovedイベントのデータ。
type FollowerRemovedData struct {
	// FollowerID はフォロワー行の識別子。
	FollowerID string `json:"follower_id"`
	// Model は対象ドキュメントのモデル名。
	Model string `json:"model"`
	// DocumentID は対象ドキュメントのID。
	DocumentID int64 `json:"document_id"`
	// PartyID はパーティのID。
	PartyID int64 `json:"party_id"`
	// Reason は削除理由（"unsubscribed", "replaced", "document_deleted"）。
	Reason string `json:"reason"`
}

// DocumentDeletedData はDocumentDeletedイベントのデータ。
type DocumentDeletedData struct {
	// Model は削除されたドキュメントのモデル名。
	Model string `json:"model"`
	// DocumentID は削除されたドキュメントのID。
	DocumentID int64 `json:"document_id"`
}

// NotificationSentData はNotificationSentイベントのデータ。
type NotificationSentData struct {
	// PartyID は通知先のパーティID。
	PartyID int64 `json:"party_id"`
	// Model は通知元ドキュメントのモデル名。
	Model string `json:"model,omitempty"`
	// DocumentID は通知元ドキュメントのID。
	DocumentID int64 `json:"document_id,omitempty"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
}
