package subscription

import (
	"maps"
	"slices"
)

// Follower はドキュメントの現在のフォロワー。
type Follower struct {
	// PartyID はパーティのID。
	PartyID int64
	// Subtypes は購読しているサブタイプの集合。
	Subtypes Set
}

// RecipientQuery はメッセージの通知先を決定するための入力。
type RecipientQuery struct {
	// Followers は対象ドキュメントのフォロワー一覧。
	Followers []Follower
	// SubtypeID はメッセージのサブタイプ。0はサブタイプなしを表し、フォロワーには通知しない。
	SubtypeID int64
	// Internal はメッセージのサブタイプが社内向けかどうか。
	Internal bool
	// Explicit はメッセージで明示的に指定された宛先パーティ。
	Explicit []int64
	// AuthorID はメッセージの投稿者。0は投稿者なし。
	AuthorID int64
	// NotifyAuthor が真の場合、投稿者自身も通知先に含める。
	NotifyAuthor bool
	// Customers は社外パーティの集合。
	Customers Set
}

// Recipient は通知先の1パーティ。
type Recipient struct {
	// PartyID はパーティのID。
	PartyID int64 `json:"party_id"`
	// Follower はフォロー経由で通知対象になったかどうか。
	Follower bool `json:"follower"`
	// Explicit は明示的な宛先指定で通知対象になったかどうか。
	Explicit bool `json:"explicit"`
}

// Recipients はメッセージの通知先パーティを重複なくパーティID順で返す。
func Recipients(q RecipientQuery) []Recipient {
	found := make(map[int64]*Recipient)
	get := func(pid int64) *Recipient {
		r, ok := found[pid]
		if !ok {
			r = &Recipient{PartyID: pid}
			found[pid] = r
		}
		return r
	}

	if q.SubtypeID != 0 {
		for _, f := range q.Followers {
			if !f.Subtypes.Has(q.SubtypeID) {
				continue
			}
			if q.Internal && q.Customers.Has(f.PartyID) {
				continue
			}
			get(f.PartyID).Follower = true
		}
	}
	for _, pid := range q.Explicit {
		get(pid).Explicit = true
	}

	if q.AuthorID != 0 && !q.NotifyAuthor {
		delete(found, q.AuthorID)
	}

	out := make([]Recipient, 0, len(found))
	for _, pid := range slices.Sorted(maps.Keys(found)) {
		out = append(out, *found[pid])
	}
	return out
}
