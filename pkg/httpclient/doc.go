// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// フォロワーサービスからEvent Storeへのイベント送信や通知サービスへの配信、
// CLIからフォロワーサービスへのAPI呼び出しなど、サービス間の通信パターンを統一する。
// 2xx以外の応答は*StatusErrorとして返すため、呼び出し側はステータスで分岐できる。
package httpclient
