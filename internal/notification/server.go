package notification

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/nao1215/follower/internal/config"
	notificationdb "github.com/nao1215/follower/internal/notification/db"
	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/httpclient"
	"github.com/nao1215/follower/pkg/middleware"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// Server は通知サービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// queries はsqlcが生成したクエリ実行オブジェクト。
	queries *notificationdb.Queries
	// db はSQLiteデータベース接続。
	db *sql.DB
	// eventStoreClient はEvent Storeサービスへの通信クライアント。
	eventStoreClient *httpclient.Client
	logger           *zap.Logger
	// auth は/api/v1配下に適用する認証ミドルウェア。
	auth gin.HandlerFunc
}

// NewServer は新しい通知サーバーを生成する。
// SQLiteデータベースを開いてマイグレーションを適用する。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := initSchema(ctx, sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	s := &Server{
		router:           gin.New(),
		addr:             cfg.Addr(),
		queries:          notificationdb.New(sqlDB),
		db:               sqlDB,
		eventStoreClient: httpclient.New(cfg.EventStore.URL),
		logger:           logger,
		auth:             middleware.JWTAuth(cfg.Auth.JWTSecret),
	}
	s.router.Use(middleware.Recovery(logger))
	s.router.Use(middleware.Logger(logger))
	s.router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	s.setupRoutes()

	return s, nil
}

// Handler はHTTPハンドラを返す。
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr はリッスンアドレスを返す。
func (s *Server) Addr() string {
	return s.addr
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(s.auth)
	{
		notifications := api.Group("/notifications")
		{
			// 通知一覧取得
			notifications.GET("", s.handleList())
			// 未読通知一覧取得
			notifications.GET("/unread", s.handleListUnread())
			// 未読件数
			notifications.GET("/unread/count", s.handleCountUnread())
			// 通知を既読にする
			notifications.PUT("/:id/read", s.handleMarkAsRead())
			// 全通知を既読にする
			notifications.PUT("/read-all", s.handleMarkAllAsRead())
		}

		// 通知送信（内部API - フォロワーサービスの配信から呼び出される）
		internal := api.Group("/internal")
		{
			internal.POST("/send", s.handleSend())
		}
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": config.ServiceNotification})
	})
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	// ID は通知の一意識別子。
	ID string `json:"id"`
	// PartyID は通知先のパーティID。
	PartyID int64 `json:"party_id"`
	// Model は通知元ドキュメントのモデル名。
	Model string `json:"res_model,omitempty"`
	// DocumentID は通知元ドキュメントのID。
	DocumentID int64 `json:"res_id,omitempty"`
	// SubtypeID はメッセージのサブタイプ。
	SubtypeID int64 `json:"subtype_id,omitempty"`
	// Title は通知のタイトル。
	Title string `json:"title"`
	// Message は通知メッセージ。
	Message string `json:"message"`
	// IsRead は通知の既読状態。
	IsRead bool `json:"is_read"`
	// CreatedAt は通知の作成日時（RFC3339形式）。
	CreatedAt string `json:"created_at"`
}

// toNotificationResponse はDB行をJSONレスポンスに変換する。
func toNotificationResponse(n notificationdb.Notification) notificationResponse {
	return notificationResponse{
		ID:         n.ID,
		PartyID:    n.PartyID,
		Model:      n.ResModel,
		DocumentID: n.ResID,
		SubtypeID:  n.SubtypeID,
		Title:      n.Title,
		Message:    n.Message,
		IsRead:     n.IsRead != 0,
		CreatedAt:  n.CreatedAt,
	}
}

// toNotificationResponses はDB行のスライスをJSONレスポンスのスライスに変換する。
func toNotificationResponses(notifications []notificationdb.Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, toNotificationResponse(n))
	}
	return responses
}

// requireParty は認証済みパーティIDを取得する。取得できない場合は401を返す。
func requireParty(c *gin.Context) (int64, bool) {
	partyID, ok := middleware.GetPartyID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "パーティIDが取得できません"})
		return 0, false
	}
	return partyID, true
}

// handleList は認証済みパーティの通知一覧を返すハンドラ。
func (s *Server) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := requireParty(c)
		if !ok {
			return
		}

		notifications, err := s.queries.ListNotificationsByParty(c.Request.Context(), partyID)
		if err != nil {
			s.logger.Error("通知一覧の取得に失敗", zap.Int64("party_id", partyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleListUnread は認証済みパーティの未読通知一覧を返すハンドラ。
func (s *Server) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := requireParty(c)
		if !ok {
			return
		}

		notifications, err := s.queries.ListUnreadNotificationsByParty(c.Request.Context(), partyID)
		if err != nil {
			s.logger.Error("未読通知一覧の取得に失敗", zap.Int64("party_id", partyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, toNotificationResponses(notifications))
	}
}

// handleCountUnread は認証済みパーティの未読件数を返すハンドラ。
func (s *Server) handleCountUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := requireParty(c)
		if !ok {
			return
		}

		count, err := s.queries.CountUnreadNotifications(c.Request.Context(), partyID)
		if err != nil {
			s.logger.Error("未読件数の取得に失敗", zap.Int64("party_id", partyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読件数の取得に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"party_id": partyID, "unread": count})
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
func (s *Server) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := requireParty(c)
		if !ok {
			return
		}

		notificationID := c.Param("id")
		ctx := c.Request.Context()

		// 通知の存在確認と所有者チェック
		n, err := s.queries.GetNotificationByID(ctx, notificationID)
		if errors.Is(err, sql.ErrNoRows) {
			c.JSON(http.StatusNotFound, gin.H{"error": "通知が見つかりません"})
			return
		}
		if err != nil {
			s.logger.Error("通知の取得に失敗", zap.String("notification_id", notificationID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の取得に失敗しました"})
			return
		}

		if n.PartyID != partyID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		if err := s.queries.MarkAsRead(ctx, notificationID); err != nil {
			s.logger.Error("通知の既読処理に失敗", zap.String("notification_id", notificationID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の既読処理に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "通知を既読にしました"})
	}
}

// handleMarkAllAsRead は認証済みパーティの全通知を既読にするハンドラ。
func (s *Server) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		partyID, ok := requireParty(c)
		if !ok {
			return
		}

		updated, err := s.queries.MarkAllAsRead(c.Request.Context(), partyID)
		if err != nil {
			s.logger.Error("全通知の既読処理に失敗", zap.Int64("party_id", partyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました", "updated": updated})
	}
}

// sendRequest は通知送信リクエストのJSON構造。
type sendRequest struct {
	// PartyID は通知先のパーティID。
	PartyID int64 `json:"party_id" binding:"required,gt=0"`
	// Model は通知元ドキュメントのモデル名。
	Model string `json:"res_model"`
	// DocumentID は通知元ドキュメントのID。
	DocumentID int64 `json:"res_id"`
	// SubtypeID はメッセージのサブタイプ。
	SubtypeID int64 `json:"subtype_id"`
	// Title は通知のタイトル。
	Title string `json:"title" binding:"required"`
	// Message は通知メッセージ。
	Message string `json:"message" binding:"required"`
}

// handleSend は通知を作成しNotificationSentイベントを発行するハンドラ。
// 内部API（フォロワーサービスの配信から呼び出される）。
func (s *Server) handleSend() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req sendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ctx := c.Request.Context()
		notificationID := uuid.New().String()

		// 通知をデータベースに保存
		if err := s.queries.CreateNotification(ctx, notificationdb.CreateNotificationParams{
			ID:        notificationID,
			PartyID:   req.PartyID,
			ResModel:  req.Model,
			ResID:     req.DocumentID,
			SubtypeID: req.SubtypeID,
			Title:     req.Title,
			Message:   req.Message,
		}); err != nil {
			s.logger.Error("通知の作成に失敗", zap.Int64("party_id", req.PartyID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知の作成に失敗しました"})
			return
		}

		// NotificationSentイベントをEvent Storeに送信
		eventReq, err := event.NewAppendRequest(
			fmt.Sprintf("notification-%s", notificationID),
			event.AggregateTypeParty,
			event.TypeNotificationSent,
			event.NotificationSentData{
				PartyID:    req.PartyID,
				Model:      req.Model,
				DocumentID: req.DocumentID,
				Title:      req.Title,
				Message:    req.Message,
			},
		)
		if err != nil {
			s.logger.Error("イベントデータのシリアライズに失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントデータのシリアライズに失敗しました"})
			return
		}

		var created event.Event
		if err := s.eventStoreClient.PostJSON(ctx, "/api/v1/events", eventReq, &created); err != nil {
			// イベント送信に失敗してもログに記録し、通知自体は成功として扱う
			s.logger.Warn("NotificationSentイベントの送信に失敗",
				zap.String("notification_id", notificationID),
				zap.Error(err),
			)
		}

		c.JSON(http.StatusCreated, gin.H{
			"id":      notificationID,
			"message": "通知を送信しました",
		})
	}
}
