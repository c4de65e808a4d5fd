package subscription

// Subtype はサブタイプカタログの1エントリ。
type Subtype struct {
	// ID はサブタイプの識別子。
	ID int64
	// Name はサブタイプの表示名。
	Name string
	// Model は適用対象のモデル名。空文字列の場合は全モデルに適用する。
	Model string
	// Default は新規フォロワーに自動で購読させるかどうか。
	Default bool
	// Internal は社内パーティのみに通知するかどうか。
	Internal bool
}

// DefaultSets はモデルに対するデフォルトサブタイプの分類。
type DefaultSets struct {
	// All はデフォルトサブタイプ全体。
	All Set
	// Internal はデフォルトのうち社内向けのもの。
	Internal Set
	// External はデフォルトのうち社外パーティにも通知されるもの。
	External Set
}

// Defaults はカタログからmodelに適用されるデフォルトサブタイプを抽出する。
func Defaults(catalog []Subtype, model string) DefaultSets {
	sets := DefaultSets{All: NewSet(), Internal: NewSet(), External: NewSet()}
	for _, st := range catalog {
		if !st.Default || (st.Model != "" && st.Model != model) {
			continue
		}
		sets.All.Add(st.ID)
		if st.Internal {
			sets.Internal.Add(st.ID)
		} else {
			sets.External.Add(st.ID)
		}
	}
	return sets
}

// DefaultRequests はサブタイプ指定のない購読要求に対して、パーティごとのサブタイプを補完する。
// customersに含まれるパーティには社外向けのサブタイプのみを割り当てる。
func DefaultRequests(partyIDs []int64, customers Set, defaults DefaultSets) []PartySubtypes {
	reqs := make([]PartySubtypes, 0, len(partyIDs))
	for _, pid := range uniqueIDs(partyIDs) {
		subtypes := defaults.All
		if customers.Has(pid) {
			subtypes = defaults.External
		}
		reqs = append(reqs, PartySubtypes{PartyID: pid, Subtypes: subtypes.Clone()})
	}
	return reqs
}
