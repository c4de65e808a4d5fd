// Package notification は通知サービスの内部実装を提供する。
//
// フォロワーサービスがメッセージの通知先に配信した通知をパーティごとの受信箱として保存する。
// 通知の一覧取得や既読管理を行い、配信のたびにNotificationSentイベントをEvent Storeに送信する。
package notification
