// Package eventstore はイベントストアサービスの内部実装を提供する。
//
// フォロワーの追加・購読変更・解除、ドキュメント削除、通知送信といった
// 状態変更をイベントとして追記のみで永続化する。
// 各イベントはAggregate内のバージョンと、ストア全体での位置（position）を持つ。
//
// 主な機能:
//   - イベントの追記（期待バージョンによる楽観的排他制御つき）
//   - AggregateIDによるイベント取得
//   - イベントタイプと位置カーソルによるイベント取得（プロジェクター購読用）
//   - 日時指定によるイベント取得
package eventstore
