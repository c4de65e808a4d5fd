// Package follower はフォロワーサービスの内部実装を提供する。
//
// パーティ（ユーザーや取引先）がドキュメントをフォローし、
// サブタイプ単位で通知を購読する関係を管理する。
// 複数ドキュメントへの一括登録では既存フォロワーとの突き合わせを
// subscriptionパッケージで行い、結果を1トランザクションで反映する。
//
// 主な機能:
//   - サブタイプカタログの管理
//   - フォロワーの一括登録（skip/force/replace/updateポリシー）
//   - フォロワー一覧、フォロー一覧、フォロー解除
//   - メッセージの通知先算出と通知サービスへの並行配信
//   - Event StoreのDocumentDeletedイベントに追従したフォロワー削除
package follower
