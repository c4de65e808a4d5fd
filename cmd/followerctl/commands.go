package main

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/nao1215/follower/pkg/middleware"
	"github.com/spf13/cobra"
)

// partySubtypes はsubscribeリクエストのパーティごとのサブタイプ指定。
type partySubtypes struct {
	PartyID    int64   `json:"party_id"`
	SubtypeIDs []int64 `json:"subtype_ids"`
}

// subscribeBody はsubscribeリクエストのボディ。
type subscribeBody struct {
	DocumentIDs []int64         `json:"document_ids"`
	PartyIDs    []int64         `json:"party_ids"`
	Subtypes    []partySubtypes `json:"subtypes,omitempty"`
	CustomerIDs []int64         `json:"customer_ids,omitempty"`
	Policy      string          `json:"policy,omitempty"`
}

// parsePartySubtypes は "パーティID=サブタイプID,サブタイプID" 形式の指定を解析する。
// サブタイプIDを省略した "3=" は空集合を表す。
func parsePartySubtypes(specs []string) ([]partySubtypes, error) {
	result := make([]partySubtypes, 0, len(specs))
	for _, spec := range specs {
		party, ids, ok := strings.Cut(spec, "=")
		if !ok {
			return nil, fmt.Errorf("サブタイプ指定の形式が不正です: %q (例: 3=1,2)", spec)
		}
		partyID, err := strconv.ParseInt(strings.TrimSpace(party), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("パーティIDが不正です: %q", party)
		}
		ps := partySubtypes{PartyID: partyID, SubtypeIDs: []int64{}}
		for id := range strings.SplitSeq(ids, ",") {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			n, err := strconv.ParseInt(id, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("サブタイプIDが不正です: %q", id)
			}
			ps.SubtypeIDs = append(ps.SubtypeIDs, n)
		}
		result = append(result, ps)
	}
	return result, nil
}

func parseID(s, name string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%sが不正です: %q", name, s)
	}
	return id, nil
}

func documentPath(model, id string, rest string) (string, error) {
	docID, err := parseID(id, "ドキュメントID")
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("/api/v1/documents/%s/%d%s", url.PathEscape(model), docID, rest), nil
}

func newSubscribeCmd(o *options) *cobra.Command {
	var (
		body  subscribeBody
		specs []string
	)
	cmd := &cobra.Command{
		Use:   "subscribe MODEL",
		Short: "複数ドキュメントに複数パーティを一括でフォローさせる",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			subtypes, err := parsePartySubtypes(specs)
			if err != nil {
				return err
			}
			body.Subtypes = subtypes

			var resp any
			path := fmt.Sprintf("/api/v1/models/%s/followers", url.PathEscape(args[0]))
			if err := o.client().PostJSON(cmd.Context(), path, body, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
	cmd.Flags().Int64SliceVar(&body.DocumentIDs, "doc", nil, "対象ドキュメントのID")
	cmd.Flags().Int64SliceVar(&body.PartyIDs, "party", nil, "フォローさせるパーティのID")
	cmd.Flags().StringArrayVar(&specs, "subtype", nil, "パーティごとのサブタイプ (例: --subtype 3=1,2)。省略時はデフォルトサブタイプ")
	cmd.Flags().Int64SliceVar(&body.CustomerIDs, "customer", nil, "社外パーティのID")
	cmd.Flags().StringVar(&body.Policy, "policy", "", "既存フォロワーの扱い (skip|force|replace|update)")
	_ = cmd.MarkFlagRequired("doc")
	_ = cmd.MarkFlagRequired("party")
	return cmd
}

func newFollowersCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "followers MODEL ID",
		Short: "ドキュメントのフォロワー一覧を表示する",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := documentPath(args[0], args[1], "/followers")
			if err != nil {
				return err
			}
			var resp any
			if err := o.client().GetJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
}

func newUnsubscribeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "unsubscribe MODEL ID PARTY_ID",
		Short: "パーティのフォローを解除する",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			partyID, err := parseID(args[2], "パーティID")
			if err != nil {
				return err
			}
			path, err := documentPath(args[0], args[1], fmt.Sprintf("/followers/%d", partyID))
			if err != nil {
				return err
			}
			var resp any
			if err := o.client().DeleteJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
}

func newFollowingsCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "followings [PARTY_ID]",
		Short: "パーティがフォローしているドキュメントを表示する。省略時はトークンのパーティ",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/v1/me/followings"
			if len(args) == 1 {
				partyID, err := parseID(args[0], "パーティID")
				if err != nil {
					return err
				}
				path = fmt.Sprintf("/api/v1/parties/%d/followings", partyID)
			}
			var resp any
			if err := o.client().GetJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
}

// recipientsBody はrecipientsリクエストのボディ。
type recipientsBody struct {
	SubtypeID        int64   `json:"subtype_id,omitempty"`
	ExplicitPartyIDs []int64 `json:"explicit_party_ids,omitempty"`
	AuthorID         int64   `json:"author_id,omitempty"`
	NotifyAuthor     bool    `json:"notify_author,omitempty"`
	CustomerIDs      []int64 `json:"customer_ids,omitempty"`
}

func newRecipientsCmd(o *options) *cobra.Command {
	var body recipientsBody
	cmd := &cobra.Command{
		Use:   "recipients MODEL ID",
		Short: "メッセージの通知先を算出する",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := documentPath(args[0], args[1], "/recipients")
			if err != nil {
				return err
			}
			var resp any
			if err := o.client().PostJSON(cmd.Context(), path, body, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
	cmd.Flags().Int64Var(&body.SubtypeID, "subtype", 0, "メッセージのサブタイプID")
	cmd.Flags().Int64SliceVar(&body.ExplicitPartyIDs, "explicit", nil, "明示的な宛先パーティのID")
	cmd.Flags().Int64Var(&body.AuthorID, "author", 0, "投稿者のパーティID")
	cmd.Flags().BoolVar(&body.NotifyAuthor, "notify-author", false, "投稿者にも通知する")
	cmd.Flags().Int64SliceVar(&body.CustomerIDs, "customer", nil, "社外パーティのID")
	return cmd
}

// subtypeBody はサブタイプ登録リクエストのボディ。
type subtypeBody struct {
	Name     string `json:"name"`
	Model    string `json:"model,omitempty"`
	Default  bool   `json:"default,omitempty"`
	Internal bool   `json:"internal,omitempty"`
}

func newSubtypesCmd(o *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "subtypes",
		Short: "サブタイプカタログを操作する",
	}

	var model string
	list := &cobra.Command{
		Use:   "list",
		Short: "サブタイプ一覧を表示する",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := "/api/v1/subtypes"
			if model != "" {
				path += "?" + url.Values{"model": {model}}.Encode()
			}
			var resp any
			if err := o.client().GetJSON(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
	list.Flags().StringVar(&model, "model", "", "適用対象のモデル名で絞り込む")

	var body subtypeBody
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "サブタイプを登録する",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body.Name = args[0]
			var resp any
			if err := o.client().PostJSON(cmd.Context(), "/api/v1/subtypes", body, &resp); err != nil {
				return err
			}
			return o.print(resp)
		},
	}
	create.Flags().StringVar(&body.Model, "model", "", "適用対象のモデル名。省略時は全モデル共通")
	create.Flags().BoolVar(&body.Default, "default", false, "新規フォロワーに自動で購読させる")
	create.Flags().BoolVar(&body.Internal, "internal", false, "社内パーティのみに通知する")

	cmd.AddCommand(list, create)
	return cmd
}

func newTokenCmd(o *options) *cobra.Command {
	var (
		secret string
		email  string
	)
	cmd := &cobra.Command{
		Use:   "token PARTY_ID",
		Short: "開発用のJWTを発行する",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			partyID, err := parseID(args[0], "パーティID")
			if err != nil {
				return err
			}
			token, err := middleware.GenerateJWT(secret, strconv.FormatInt(partyID, 10), email)
			if err != nil {
				return err
			}
			return o.print(map[string]string{"token": token})
		},
	}
	cmd.Flags().StringVar(&secret, "secret", envOr("JWT_SECRET", "dev-secret-key"), "署名に使う秘密鍵 (環境変数 JWT_SECRET)")
	cmd.Flags().StringVar(&email, "email", "", "トークンに含めるメールアドレス")
	return cmd
}
