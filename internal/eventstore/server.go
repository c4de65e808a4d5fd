package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "github.com/mattn/go-sqlite3"
	"github.com/nao1215/follower/internal/config"
	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/middleware"
	"go.uber.org/zap"
)

// 取得系APIのlimitの既定値と上限。
const (
	defaultLimit = 100
	maxLimit     = event.MaxPageSize
)

// Server はイベントストアサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// addr はサーバーのリッスンアドレス。
	addr string
	// db はSQLiteデータベース接続。
	db *sql.DB
	// store はイベントの永続化を担う。
	store *Store
	// logger は構造化ロガー。
	logger *zap.Logger
}

// NewServer は新しいイベントストアサーバーを生成する。
// SQLiteデータベースを開き、マイグレーションを適用する。
func NewServer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Server, error) {
	sqlDB, err := sql.Open("sqlite3", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if err := initSchema(ctx, sqlDB, logger); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}

	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.Logger(logger))

	s := &Server{
		router: router,
		addr:   cfg.Addr(),
		db:     sqlDB,
		store:  NewStore(sqlDB),
		logger: logger,
	}
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
// イベントストアはサービス間の内部通信専用のため認証をかけない。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api/v1")
	{
		events := api.Group("/events")
		{
			// イベントの追記
			events.POST("", s.handleAppendEvent())
			// 全イベントを位置順に取得（クエリパラメータ: after, limit）
			events.GET("", s.handleListEvents())
			// AggregateIDによるイベント取得
			events.GET("/aggregate/:aggregate_id", s.handleGetEventsByAggregateID())
			// AggregateIDの最新バージョン取得
			events.GET("/aggregate/:aggregate_id/version", s.handleGetLatestVersion())
			// イベントタイプによるイベント取得（クエリパラメータ: after, limit）
			events.GET("/type/:event_type", s.handleGetEventsByType())
			// 日時指定によるイベント取得（クエリパラメータ: since, limit）
			events.GET("/since", s.handleGetEventsSince())
		}
	}

	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": config.ServiceEventStore})
	})
}

// pageParams はafterとlimitのクエリパラメータを解析する。
func pageParams(c *gin.Context) (after, limit int64, err error) {
	if v := c.Query("after"); v != "" {
		after, err = strconv.ParseInt(v, 10, 64)
		if err != nil || after < 0 {
			return 0, 0, fmt.Errorf("afterが不正です: %q", v)
		}
	}
	limit, err = limitParam(c)
	return after, limit, err
}

// limitParam はlimitクエリパラメータを解析する。未指定の場合はdefaultLimit。
func limitParam(c *gin.Context) (int64, error) {
	v := c.Query("limit")
	if v == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.ParseInt(v, 10, 64)
	if err != nil || limit <= 0 || limit > maxLimit {
		return 0, fmt.Errorf("limitは1から%dの範囲で指定してください: %q", maxLimit, v)
	}
	return limit, nil
}

// handleAppendEvent はイベントの追記を処理するハンドラを返す。
func (s *Server) handleAppendEvent() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req event.AppendRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		ev, err := s.store.Append(c.Request.Context(), req)
		switch {
		case errors.Is(err, ErrVersionConflict):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		case err != nil:
			s.logger.Error("イベントの追記に失敗",
				zap.String("aggregate_id", req.AggregateID),
				zap.String("event_type", string(req.EventType)),
				zap.Error(err),
			)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの追記に失敗しました"})
			return
		}

		c.JSON(http.StatusCreated, ev)
	}
}

// handleListEvents は全イベントを位置順に返すハンドラを返す。
func (s *Server) handleListEvents() gin.HandlerFunc {
	return func(c *gin.Context) {
		after, limit, err := pageParams(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		events, err := s.store.List(c.Request.Context(), after, limit)
		if err != nil {
			s.logger.Error("イベント一覧の取得に失敗", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// handleGetEventsByAggregateID はAggregateIDによるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsByAggregateID() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")

		events, err := s.store.ListByAggregateID(c.Request.Context(), aggregateID)
		if err != nil {
			s.logger.Error("Aggregateのイベント取得に失敗", zap.String("aggregate_id", aggregateID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// handleGetEventsByType はイベントタイプによるイベント取得を処理するハンドラを返す。
func (s *Server) handleGetEventsByType() gin.HandlerFunc {
	return func(c *gin.Context) {
		after, limit, err := pageParams(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		eventType := event.Type(c.Param("event_type"))
		events, err := s.store.ListByType(c.Request.Context(), eventType, after, limit)
		if err != nil {
			s.logger.Error("タイプ別イベント取得に失敗", zap.String("event_type", string(eventType)), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// handleGetEventsSince は日時指定によるイベント取得を処理するハンドラを返す。
// sinceはRFC3339形式で指定する。
func (s *Server) handleGetEventsSince() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.Query("since")
		if raw == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "sinceパラメータが必要です"})
			return
		}
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("sinceはRFC3339形式で指定してください: %q", raw)})
			return
		}
		limit, err := limitParam(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		events, err := s.store.ListSince(c.Request.Context(), since, limit)
		if err != nil {
			s.logger.Error("日時指定のイベント取得に失敗", zap.Time("since", since), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "イベントの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, events)
	}
}

// handleGetLatestVersion はAggregateIDの最新バージョン取得を処理するハンドラを返す。
func (s *Server) handleGetLatestVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		aggregateID := c.Param("aggregate_id")

		version, err := s.store.LatestVersion(c.Request.Context(), aggregateID)
		if err != nil {
			s.logger.Error("最新バージョンの取得に失敗", zap.String("aggregate_id", aggregateID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "バージョンの取得に失敗しました"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"aggregate_id": aggregateID, "latest_version": version})
	}
}
