package follower

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/follower/pkg/httpclient"
	"github.com/nao1215/follower/pkg/middleware"
	"github.com/nao1215/follower/pkg/subscription"
	"go.uber.org/zap"
)

// subtypeRequest はサブタイプ登録リクエストのJSON構造。
type subtypeRequest struct {
	Name     string `json:"name" binding:"required"`
	Model    string `json:"model"`
	Default  bool   `json:"default"`
	Internal bool   `json:"internal"`
}

// subtypeResponse はサブタイプのJSONレスポンス構造。
type subtypeResponse struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Model    string `json:"model"`
	Default  bool   `json:"default"`
	Internal bool   `json:"internal"`
}

func toSubtypeResponse(st subscription.Subtype) subtypeResponse {
	return subtypeResponse{ID: st.ID, Name: st.Name, Model: st.Model, Default: st.Default, Internal: st.Internal}
}

// partySubtypesRequest はパーティごとの希望サブタイプ。
type partySubtypesRequest struct {
	PartyID    int64   `json:"party_id" binding:"required"`
	SubtypeIDs []int64 `json:"subtype_ids"`
}

// subscribeRequest はフォロワー一括登録リクエストのJSON構造。
type subscribeRequest struct {
	// DocumentIDs は対象ドキュメントのID一覧。
	DocumentIDs []int64 `json:"document_ids"`
	// PartyIDs は購読させるパーティのID一覧。
	PartyIDs []int64 `json:"party_ids"`
	// Subtypes はパーティごとの希望サブタイプ。空の場合はモデルのデフォルトサブタイプを使う。
	Subtypes []partySubtypesRequest `json:"subtypes"`
	// CustomerIDs は社外パーティのID一覧。デフォルトサブタイプの補完で社外向けのみを割り当てる。
	CustomerIDs []int64 `json:"customer_ids"`
	// Policy は既存フォロワーの扱い。省略時はサービスのデフォルトポリシー。
	Policy string `json:"policy"`
}

// subscribeResponse はフォロワー一括登録のJSONレスポンス構造。
type subscribeResponse struct {
	Policy   string     `json:"policy"`
	Created  []Follower `json:"created"`
	Updated  []Change   `json:"updated"`
	Replaced []Follower `json:"replaced"`
}

// recipientsRequest は通知先算出リクエストのJSON構造。
type recipientsRequest struct {
	// SubtypeID はメッセージのサブタイプ。0の場合はフォロワーに通知しない。
	SubtypeID int64 `json:"subtype_id"`
	// ExplicitPartyIDs は明示的な宛先。
	ExplicitPartyIDs []int64 `json:"explicit_party_ids"`
	// AuthorID は投稿者。省略時は認証済みパーティ。
	AuthorID int64 `json:"author_id"`
	// NotifyAuthor が真の場合は投稿者にも通知する。
	NotifyAuthor bool `json:"notify_author"`
	// CustomerIDs は社外パーティのID一覧。
	CustomerIDs []int64 `json:"customer_ids"`
}

// messageRequest はメッセージ投稿リクエストのJSON構造。
type messageRequest struct {
	recipientsRequest
	Title   string `json:"title" binding:"required"`
	Message string `json:"message" binding:"required"`
}

// documentParams はパスパラメータのモデル名とドキュメントIDを解析する。
func documentParams(c *gin.Context) (string, int64, bool) {
	model := c.Param("model")
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "ドキュメントIDが不正です"})
		return "", 0, false
	}
	return model, id, true
}

// partyParam はパスパラメータのパーティIDを解析する。
func partyParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("party_id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "パーティIDが不正です"})
		return 0, false
	}
	return id, true
}

// handleCreateSubtype はサブタイプを登録するハンドラ。
func (s *Server) handleCreateSubtype() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subtypeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		st, err := s.store.CreateSubtype(c.Request.Context(), subscription.Subtype{
			Name:     req.Name,
			Model:    req.Model,
			Default:  req.Default,
			Internal: req.Internal,
		})
		if errors.Is(err, ErrDuplicate) {
			c.JSON(http.StatusConflict, gin.H{"error": "同じ名前のサブタイプが既に存在します"})
			return
		}
		if err != nil {
			s.logger.Error("サブタイプの登録に失敗", zap.String("name", req.Name), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブタイプの登録に失敗しました"})
			return
		}
		c.JSON(http.StatusCreated, toSubtypeResponse(st))
	}
}

// handleListSubtypes はサブタイプ一覧を返すハンドラ。
// modelを指定した場合はそのモデルに適用されるサブタイプのみを返す。
func (s *Server) handleListSubtypes() gin.HandlerFunc {
	return func(c *gin.Context) {
		subtypes, err := s.store.Subtypes(c.Request.Context(), c.Query("model"))
		if err != nil {
			s.logger.Error("サブタイプ一覧の取得に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブタイプ一覧の取得に失敗しました"})
			return
		}

		resp := make([]subtypeResponse, 0, len(subtypes))
		for _, st := range subtypes {
			resp = append(resp, toSubtypeResponse(st))
		}
		c.JSON(http.StatusOK, resp)
	}
}

// handleSubscribe は複数ドキュメントに複数パーティを一括でフォローさせるハンドラ。
func (s *Server) handleSubscribe() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req subscribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := c.Request.Context()
		model := c.Param("model")

		policy := s.defaultPolicy
		if req.Policy != "" {
			// 解釈できない値はそのまま渡し、Subscribeに設定エラーとして返させる
			parsed, err := subscription.ParsePolicy(req.Policy)
			if err != nil {
				parsed = subscription.Policy(req.Policy)
			}
			policy = parsed
		}

		partySubtypes, err := s.partySubtypes(c, model, req)
		if err != nil {
			s.logger.Error("デフォルトサブタイプの取得に失敗", zap.String("model", model), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "サブタイプの取得に失敗しました"})
			return
		}

		out, err := s.store.Subscribe(ctx, subscription.Request{
			Model:       model,
			DocumentIDs: req.DocumentIDs,
			PartyIDs:    req.PartyIDs,
			Subtypes:    partySubtypes,
			Policy:      policy,
		})
		s.metrics.observeOutcome(policy, out, err)

		var cfgErr *subscription.ConfigurationError
		if errors.As(err, &cfgErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": cfgErr.Error()})
			return
		}
		if err != nil {
			s.logger.Error("フォロワーの一括登録に失敗",
				zap.String("model", model),
				zap.Int64s("document_ids", req.DocumentIDs),
				zap.Int64s("party_ids", req.PartyIDs),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロワーの登録に失敗しました"})
			return
		}

		s.publisher.PublishOutcome(ctx, out)

		resp := subscribeResponse{
			Policy:   string(policy),
			Created:  out.Created,
			Updated:  out.Changed,
			Replaced: out.Replaced,
		}
		if resp.Created == nil {
			resp.Created = []Follower{}
		}
		if resp.Updated == nil {
			resp.Updated = []Change{}
		}
		if resp.Replaced == nil {
			resp.Replaced = []Follower{}
		}
		c.JSON(http.StatusOK, resp)
	}
}

// partySubtypes はリクエストからパーティごとの希望サブタイプを組み立てる。
// サブタイプ指定がない場合はモデルのデフォルトサブタイプで補完する。
func (s *Server) partySubtypes(c *gin.Context, model string, req subscribeRequest) ([]subscription.PartySubtypes, error) {
	if len(req.Subtypes) > 0 {
		result := make([]subscription.PartySubtypes, 0, len(req.Subtypes))
		for _, ps := range req.Subtypes {
			result = append(result, subscription.PartySubtypes{
				PartyID:  ps.PartyID,
				Subtypes: subscription.NewSet(ps.SubtypeIDs...),
			})
		}
		return result, nil
	}
	if len(req.PartyIDs) == 0 || len(req.DocumentIDs) == 0 {
		return nil, nil
	}

	catalog, err := s.store.Subtypes(c.Request.Context(), model)
	if err != nil {
		return nil, err
	}
	defaults := subscription.Defaults(catalog, model)
	return subscription.DefaultRequests(req.PartyIDs, subscription.NewSet(req.CustomerIDs...), defaults), nil
}

// handleListFollowers はドキュメントのフォロワー一覧を返すハンドラ。
func (s *Server) handleListFollowers() gin.HandlerFunc {
	return func(c *gin.Context) {
		model, docID, ok := documentParams(c)
		if !ok {
			return
		}

		followers, err := s.store.Followers(c.Request.Context(), model, docID)
		if err != nil {
			s.logger.Error("フォロワー一覧の取得に失敗", zap.String("model", model), zap.Int64("document_id", docID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロワー一覧の取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, followers)
	}
}

// handleUnfollow はパーティのフォローを解除するハンドラ。
func (s *Server) handleUnfollow() gin.HandlerFunc {
	return func(c *gin.Context) {
		model, docID, ok := documentParams(c)
		if !ok {
			return
		}
		partyID, ok := partyParam(c)
		if !ok {
			return
		}

		removed, err := s.store.Unfollow(c.Request.Context(), model, docID, partyID)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "フォロワーが見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("フォロー解除に失敗", zap.String("model", model), zap.Int64("document_id", docID), zap.Int64("party_id", partyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロー解除に失敗しました"})
			return
		}

		s.publisher.publishRemoved(c.Request.Context(), *removed, "unsubscribed")
		c.JSON(http.StatusOK, gin.H{"message": "フォローを解除しました", "id": removed.ID})
	}
}

// handleListFollowings はパーティがフォローしているドキュメント一覧を返すハンドラ。
func (s *Server) handleListFollowings() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := partyParam(c)
		if !ok {
			return
		}
		s.respondFollowings(c, partyID)
	}
}

// handleListMyFollowings は認証済みパーティ自身のフォロー一覧を返すハンドラ。
func (s *Server) handleListMyFollowings() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := middleware.GetPartyID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "パーティIDが取得できません"})
			return
		}
		s.respondFollowings(c, partyID)
	}
}

func (s *Server) respondFollowings(c *gin.Context, partyID int64) {
	followings, err := s.store.Followings(c.Request.Context(), partyID)
	if err != nil {
		s.logger.Error("フォロー一覧の取得に失敗", zap.Int64("party_id", partyID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "フォロー一覧の取得に失敗しました"})
		return
	}
	c.JSON(http.StatusOK, followings)
}

// recipients はドキュメントのフォロワーとリクエストから通知先を算出する。
// 存在しないサブタイプが指定された場合はErrNotFoundを返す。
func (s *Server) recipients(c *gin.Context, model string, docID int64, req recipientsRequest) ([]subscription.Recipient, error) {
	ctx := c.Request.Context()

	internal := false
	if req.SubtypeID != 0 {
		st, err := s.store.Subtype(ctx, req.SubtypeID)
		if err != nil {
			return nil, err
		}
		internal = st.Internal
	}

	followers, err := s.store.Followers(ctx, model, docID)
	if err != nil {
		return nil, err
	}
	subs := make([]subscription.Follower, 0, len(followers))
	for _, f := range followers {
		subs = append(subs, subscription.Follower{PartyID: f.PartyID, Subtypes: subscription.NewSet(f.SubtypeIDs...)})
	}

	author := req.AuthorID
	if author == 0 {
		author, _ = middleware.GetPartyID(c)
	}

	return subscription.Recipients(subscription.RecipientQuery{
		Followers:    subs,
		SubtypeID:    req.SubtypeID,
		Internal:     internal,
		Explicit:     req.ExplicitPartyIDs,
		AuthorID:     author,
		NotifyAuthor: req.NotifyAuthor,
		Customers:    subscription.NewSet(req.CustomerIDs...),
	}), nil
}

// handleRecipients はメッセージの通知先を算出して返すハンドラ。
func (s *Server) handleRecipients() gin.HandlerFunc {
	return func(c *gin.Context) {
		model, docID, ok := documentParams(c)
		if !ok {
			return
		}
		var req recipientsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		recipients, err := s.recipients(c, model, docID, req)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "サブタイプが存在しません"})
			return
		}
		if err != nil {
			s.logger.Error("通知先の算出に失敗", zap.String("model", model), zap.Int64("document_id", docID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知先の算出に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, recipients)
	}
}

// handlePostMessage はメッセージの通知先を算出し、通知サービスへ配信するハンドラ。
// 一部の配信に失敗しても200を返し、失敗したパーティをfailedに含める。
func (s *Server) handlePostMessage() gin.HandlerFunc {
	return func(c *gin.Context) {
		model, docID, ok := documentParams(c)
		if !ok {
			return
		}
		var req messageRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		recipients, err := s.recipients(c, model, docID, req.recipientsRequest)
		if errors.Is(err, ErrNotFound) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "サブタイプが存在しません"})
			return
		}
		if err != nil {
			s.logger.Error("通知先の算出に失敗", zap.String("model", model), zap.Int64("document_id", docID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知先の算出に失敗しました"})
			return
		}

		partyIDs := make([]int64, 0, len(recipients))
		for _, r := range recipients {
			partyIDs = append(partyIDs, r.PartyID)
		}
		ctx := c.Request.Context()
		if userID := middleware.GetUserID(c); userID != "" {
			ctx = httpclient.WithUserID(ctx, userID)
		}
		delivery := s.notifier.Deliver(ctx, Message{
			Model:      model,
			DocumentID: docID,
			SubtypeID:  req.SubtypeID,
			Title:      req.Title,
			Body:       req.Message,
		}, partyIDs)

		c.JSON(http.StatusOK, gin.H{
			"recipients": recipients,
			"sent":       delivery.Sent,
			"failed":     delivery.Failed,
		})
	}
}
