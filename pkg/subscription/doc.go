// Package subscription はドキュメントのフォロワー購読を統合する純粋なロジックを提供する。
//
// 新たに宣言されたフォロワーと既存のフォロワー行を突き合わせ、
// 重複なく挿入・更新・削除すべき行を計算する。永続化は呼び出し側の責務であり、
// このパッケージはI/Oを一切行わない。
//
// 主な機能:
//   - 既存フォロワーの扱い（skip / force / replace / update）に応じた差分計算（Resolve）
//   - サブタイプカタログからのデフォルトサブタイプ算出（Defaults, DefaultRequests）
//   - メッセージ投稿時の通知先パーティの決定（Recipients）
package subscription
