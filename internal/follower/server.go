package follower

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/follower/internal/config"
	"github.com/nao1215/follower/pkg/httpclient"
	"github.com/nao1215/follower/pkg/middleware"
	"github.com/nao1215/follower/pkg/subscription"
	"go.uber.org/zap"
)

// serviceUserID はフォロワーサービスが他サービスを呼び出すときのユーザーID。
const serviceUserID = "follower-service"

// Server はフォロワーサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// store はフォロワーの永続化を担う。
	store *Store
	// publisher はEvent Storeへのイベント送信を担う。
	publisher *Publisher
	// notifier は通知サービスへの配信を担う。
	notifier *Notifier
	// projector はドキュメント削除に追従するバックグラウンドプロセス。
	projector *Projector
	metrics   *Metrics
	logger    *zap.Logger
	// defaultPolicy はリクエストでポリシーが省略された場合のポリシー。
	defaultPolicy subscription.Policy
	// auth は/api/v1配下に適用する認証ミドルウェア。
	auth gin.HandlerFunc
	// limiter はレート制限。無効な場合はnil。
	limiter *middleware.RateLimiter
}

// NewServer は新しいフォロワーサーバーを生成する。
// SQLiteデータベースを開いてマイグレーションを適用し、依存サービスのクライアントを構築する。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	policy, err := subscription.ParsePolicy(cfg.Follower.DefaultPolicy)
	if err != nil {
		return nil, err
	}

	sqlDB, err := sql.Open("sqlite", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := initSchema(ctx, sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	token, err := middleware.GenerateJWT(cfg.Auth.JWTSecret, serviceUserID, "")
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("サービストークンの生成に失敗: %w", err)
	}

	store := NewStore(sqlDB)
	metrics := NewMetrics()
	eventStoreClient := httpclient.New(cfg.EventStore.URL)
	publisher := NewPublisher(eventStoreClient, logger)

	s := &Server{
		router:        gin.New(),
		addr:          cfg.Addr(),
		db:            sqlDB,
		store:         store,
		publisher:     publisher,
		notifier:      NewNotifier(httpclient.New(cfg.Notification.URL, httpclient.WithBearerToken(token)), cfg.Notification.Fanout, metrics, logger),
		projector:     NewProjector(store, eventStoreClient, publisher, metrics, logger, cfg.EventStore.PollInterval, cfg.EventStore.BatchSize),
		metrics:       metrics,
		logger:        logger,
		defaultPolicy: policy,
		auth:          middleware.JWTAuth(cfg.Auth.JWTSecret),
	}
	if cfg.RateLimit.Enabled {
		s.limiter = middleware.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
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

// Projector はドキュメント削除に追従するプロジェクターを返す。
func (s *Server) Projector() *Projector {
	return s.projector
}

// RateLimiter はレート制限を返す。無効な場合はnil。
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.limiter
}

// Close はデータベース接続を閉じる。
func (s *Server) Close() error {
	return s.db.Close()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	api.Use(s.auth)
	if s.limiter != nil {
		api.Use(s.limiter.Handler())
	}
	{
		subtypes := api.Group("/subtypes")
		{
			// サブタイプの登録
			subtypes.POST("", s.handleCreateSubtype())
			// サブタイプ一覧（クエリパラメータ: model）
			subtypes.GET("", s.handleListSubtypes())
		}

		// 複数ドキュメントへのフォロワー一括登録
		api.POST("/models/:model/followers", s.handleSubscribe())

		documents := api.Group("/documents/:model/:id")
		{
			// ドキュメントのフォロワー一覧
			documents.GET("/followers", s.handleListFollowers())
			// フォロー解除
			documents.DELETE("/followers/:party_id", s.handleUnfollow())
			// メッセージの通知先算出
			documents.POST("/recipients", s.handleRecipients())
			// メッセージの投稿と通知配信
			documents.POST("/messages", s.handlePostMessage())
		}

		// パーティがフォローしているドキュメント一覧
		api.GET("/parties/:party_id/followings", s.handleListFollowings())
		// 認証済みパーティ自身のフォロー一覧
		api.GET("/me/followings", s.handleListMyFollowings())
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": config.ServiceFollower})
	})
	s.router.GET("/metrics", gin.WrapH(s.metrics.Handler()))
}
