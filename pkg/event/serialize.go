package event

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// New は新しいイベントを生成する。
// dataにはイベント固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(aggregateID string, aggregateType AggregateType, eventType Type, version int64, data any) (*Event, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}

	return &Event{
		ID:            uuid.New().String(),
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
		Version:       version,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

// NewAppendRequest はEvent Storeへ送信する追記リクエストを生成する。
func NewAppendRequest(aggregateID string, aggregateType AggregateType, eventType Type, data any) (*AppendRequest, error) {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("イベントデータのシリアライズに失敗: %w", err)
	}
	return &AppendRequest{
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		EventType:     eventType,
		Data:          jsonData,
	}, nil
}

// DecodeData はイベントのDataフィールドを指定された型にデシリアライズする。
func DecodeData[T any](e *Event) (*T, error) {
	var data T
	if err := json.Unmarshal(e.Data, &data); err != nil {
		return nil, fmt.Errorf("イベントデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}

// documentPrefix はドキュメントAggregateIDの接頭辞。
const documentPrefix = "document:"

// DocumentAggregateID はドキュメントのAggregateIDを生成する。
// 形式: "document:<model>:<id>"
func DocumentAggregateID(model string, documentID int64) string {
	return documentPrefix + model + ":" + strconv.FormatInt(documentID, 10)
}

// ParseDocumentAggregateID はDocumentAggregateIDで生成した識別子をモデル名とIDに分解する。
func ParseDocumentAggregateID(aggregateID string) (string, int64, error) {
	rest, ok := strings.CutPrefix(aggregateID, documentPrefix)
	if !ok {
		return "", 0, fmt.Errorf("ドキュメントのAggregateIDではありません: %q", aggregateID)
	}
	idx := strings.LastIndex(rest, ":")
	if idx <= 0 {
		return "", 0, fmt.Errorf("AggregateIDの形式が不正です: %q", aggregateID)
	}
	id, err := strconv.ParseInt(rest[idx+1:], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("ドキュメントIDの解析に失敗: %w", err)
	}
	return rest[:idx], id, nil
}
