package subscription

import (
	"fmt"
	"slices"
	"strings"
)

// Policy は既に購読済みのパーティに対する扱いを表す。
type Policy string

const (
	// PolicySkip は既存フォロワーに何もしない。
	PolicySkip Policy = "skip"
	// PolicyForce は既存フォロワーを削除した上で新規作成する。
	PolicyForce Policy = "force"
	// PolicyReplace は既存フォロワーのサブタイプを要求された集合に置き換える。
	PolicyReplace Policy = "replace"
	// PolicyUpdate は既存フォロワーに不足しているサブタイプのみ追加する。
	PolicyUpdate Policy = "update"
)

// ConfigurationError は解決処理に渡された設定値が不正であることを表す。
type ConfigurationError struct {
	// Field は不正な値を持つ項目名。
	Field string
	// Value は不正な値。
	Value string
}

// Error はerrorインターフェースを実装する。
func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("設定値が不正です: %s=%q", e.Field, e.Value)
}

// ParsePolicy は文字列をPolicyに変換する。大文字小文字と前後の空白は無視する。
func ParsePolicy(s string) (Policy, error) {
	p := Policy(strings.ToLower(strings.TrimSpace(s)))
	if err := p.Validate(); err != nil {
		return "", err
	}
	return p, nil
}

// Validate は既知のポリシーであるかを検証する。
func (p Policy) Validate() error {
	switch p {
	case PolicySkip, PolicyForce, PolicyReplace, PolicyUpdate:
		return nil
	default:
		return &ConfigurationError{Field: "policy", Value: string(p)}
	}
}

// PartySubtypes はあるパーティが購読したいサブタイプの集合。
type PartySubtypes struct {
	// PartyID はパーティの識別子。
	PartyID int64
	// Subtypes は購読したいサブタイプの集合。
	Subtypes Set
}

// Request はフォロワー統合の入力。
type Request struct {
	// Model は対象ドキュメントのモデル名。
	Model string
	// DocumentIDs は対象ドキュメントのID一覧。
	DocumentIDs []int64
	// PartyIDs は購読させるパーティのID一覧。重複は1件として扱う。
	PartyIDs []int64
	// Subtypes はパーティごとの希望サブタイプ。同じパーティが複数回現れた場合は後勝ち。
	Subtypes []PartySubtypes
	// Policy は既存フォロワーに対する扱い。
	Policy Policy
}

// Existing は永続化層から取得した既存のフォロワー行。
type Existing struct {
	// FollowerID はフォロワー行の識別子。
	FollowerID string
	// DocumentID は対象ドキュメントのID。
	DocumentID int64
	// PartyID はパーティのID。
	PartyID int64
	// Subtypes は現在購読しているサブタイプの集合。
	Subtypes Set
}

// Op はサブタイプ差分の操作種別。
type Op string

const (
	// OpAdd はサブタイプの追加。
	OpAdd Op = "add"
	// OpRemove はサブタイプの削除。
	OpRemove Op = "remove"
)

// Command はフォロワーのサブタイプ集合に対する1件の差分操作。
type Command struct {
	// Op は操作種別。
	Op Op
	// SubtypeID は対象のサブタイプID。
	SubtypeID int64
}

// Insert は新規作成すべきフォロワー行。
type Insert struct {
	// PartyID はパーティのID。
	PartyID int64
	// Subtypes は購読させるサブタイプの集合。
	Subtypes Set
}

// Update は既存フォロワー行に対する更新。
type Update struct {
	// FollowerID は更新対象のフォロワー行の識別子。
	FollowerID string
	// DocumentID は対象ドキュメントのID。
	DocumentID int64
	// PartyID はパーティのID。
	PartyID int64
	// Commands はサブタイプ集合に適用する差分操作。追加、削除の順に昇順で並ぶ。
	Commands []Command
}

// Apply はcurrentにCommandsを適用した結果の集合を返す。currentは変更しない。
func (u Update) Apply(current Set) Set {
	result := current.Clone()
	for _, cmd := range u.Commands {
		switch cmd.Op {
		case OpAdd:
			result.Add(cmd.SubtypeID)
		case OpRemove:
			delete(result, cmd.SubtypeID)
		}
	}
	return result
}

// Plan はフォロワー統合の結果。
type Plan struct {
	// Inserts はドキュメントIDごとの新規作成行。
	Inserts map[int64][]Insert
	// Updates はフォロワーIDごとの更新。
	Updates map[string]Update
	// Deletes は挿入前に削除すべきフォロワーID。forceポリシーの場合のみ設定される。
	// 同じ組に重複行がある場合はそのすべてを含む。
	Deletes []string
}

// Empty は計画に何も含まれていないかを返す。
func (p *Plan) Empty() bool {
	return len(p.Inserts) == 0 && len(p.Updates) == 0 && len(p.Deletes) == 0
}

// InsertCount は新規作成行の総数を返す。
func (p *Plan) InsertCount() int {
	n := 0
	for _, ins := range p.Inserts {
		n += len(ins)
	}
	return n
}

// Resolve は要求されたフォロワーと既存フォロワーを突き合わせ、永続化すべき差分を計算する。
//
// 既存フォロワーに含まれないドキュメントとパーティの組には挿入を出力する。
// 既存の組に対してはreq.Policyに従い、何もしない(skip)、削除して再挿入する(force)、
// サブタイプを要求どおりに置き換える(replace)、不足分のみ追加する(update)のいずれかを行う。
// 対象ドキュメントや対象パーティ以外の既存行は無視する。
func Resolve(req Request, existing []Existing) (*Plan, error) {
	if err := req.Policy.Validate(); err != nil {
		return nil, err
	}

	plan := &Plan{
		Inserts: make(map[int64][]Insert),
		Updates: make(map[string]Update),
	}
	if len(req.DocumentIDs) == 0 || len(req.PartyIDs) == 0 {
		return plan, nil
	}

	docs := uniqueIDs(req.DocumentIDs)
	parties := uniqueIDs(req.PartyIDs)

	// 同じパーティが複数回指定された場合は最後の指定を採用する
	desired := make(map[int64]Set, len(req.Subtypes))
	for _, ps := range req.Subtypes {
		desired[ps.PartyID] = ps.Subtypes
	}

	type pair struct {
		doc   int64
		party int64
	}
	docSet := NewSet(docs...)
	partySet := NewSet(parties...)
	current := make(map[pair]Existing, len(existing))
	// duplicates は一意制約に反して同じ組に存在する2行目以降のフォロワーID
	duplicates := make(map[pair][]string)
	for _, e := range existing {
		if !docSet.Has(e.DocumentID) || !partySet.Has(e.PartyID) {
			continue
		}
		key := pair{doc: e.DocumentID, party: e.PartyID}
		if _, dup := current[key]; dup {
			duplicates[key] = append(duplicates[key], e.FollowerID)
			continue
		}
		current[key] = e
	}

	for _, doc := range docs {
		for _, party := range parties {
			want := desired[party].Clone()
			key := pair{doc: doc, party: party}
			e, found := current[key]
			if found && req.Policy == PolicyForce {
				plan.Deletes = append(plan.Deletes, e.FollowerID)
				plan.Deletes = append(plan.Deletes, duplicates[key]...)
				found = false
			}
			if !found {
				plan.Inserts[doc] = append(plan.Inserts[doc], Insert{PartyID: party, Subtypes: want})
				continue
			}

			var cmds []Command
			switch req.Policy {
			case PolicyReplace:
				cmds = append(addCommands(want.Difference(e.Subtypes)), removeCommands(e.Subtypes.Difference(want))...)
			case PolicyUpdate:
				cmds = addCommands(want.Difference(e.Subtypes))
			}
			if len(cmds) > 0 {
				plan.Updates[e.FollowerID] = Update{
					FollowerID: e.FollowerID,
					DocumentID: doc,
					PartyID:    party,
					Commands:   cmds,
				}
			}
		}
	}

	return plan, nil
}

// addCommands は集合の各要素を追加操作に変換する。
func addCommands(s Set) []Command {
	cmds := make([]Command, 0, len(s))
	for _, id := range s.Sorted() {
		cmds = append(cmds, Command{Op: OpAdd, SubtypeID: id})
	}
	return cmds
}

// removeCommands は集合の各要素を削除操作に変換する。
func removeCommands(s Set) []Command {
	cmds := make([]Command, 0, len(s))
	for _, id := range s.Sorted() {
		cmds = append(cmds, Command{Op: OpRemove, SubtypeID: id})
	}
	return cmds
}

// uniqueIDs は出現順を保ったまま重複を取り除く。
func uniqueIDs(ids []int64) []int64 {
	seen := make(Set, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if seen.Has(id) {
			continue
		}
		seen.Add(id)
		out = append(out, id)
	}
	return slices.Clip(out)
}
