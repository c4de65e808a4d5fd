// Package middleware はGinベースのHTTP APIで使用する共通ミドルウェアを提供する。
//
// JWT認証トークンの検証、構造化アクセスログ、パニックリカバリ、
// CORS設定、レート制限など、全サービスで共通して使用するミドルウェアを含む。
package middleware
