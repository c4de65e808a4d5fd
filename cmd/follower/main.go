// フォロワーサービスのエントリポイント。
// ドキュメントとパーティの購読関係を管理し、メッセージの通知先を決定して通知サービスへ配信する。
// Event StoreのDocumentDeletedイベントを購読し、削除されたドキュメントのフォロワーを連鎖削除する。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nao1215/follower/internal/config"
	"github.com/nao1215/follower/internal/follower"
	"github.com/nao1215/follower/pkg/logging"
	"github.com/nao1215/follower/pkg/serve"
	"go.uber.org/zap"
)

// limiterCleanupInterval はアイドル状態のレート制限エントリを掃除する間隔。
const limiterCleanupInterval = time.Minute

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute はサービスを起動し、終了までブロックして終了コードを返す。
// os.Exitはmainでのみ呼ぶ。
func execute(args []string) int {
	fs := flag.NewFlagSet(config.ServiceFollower, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_PATH"), "設定ファイルのパス")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath, config.ServiceFollower)
	if err != nil {
		log.Printf("設定の読み込みに失敗: %v", err)
		return 1
	}

	base, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		log.Printf("ロガーの生成に失敗: %v", err)
		return 1
	}
	defer base.Sync() //nolint:errcheck
	logger := logging.Service(base, config.ServiceFollower)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("フォロワーサービスが異常終了しました", zap.Error(err))
		return 1
	}
	return 0
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	server, err := follower.NewServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer server.Close()

	workers := []serve.Worker{server.Projector().Run}
	if limiter := server.RateLimiter(); limiter != nil {
		workers = append(workers, func(ctx context.Context) error {
			ticker := time.NewTicker(limiterCleanupInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return nil
				case now := <-ticker.C:
					if n := limiter.Cleanup(now); n > 0 {
						logger.Debug("レート制限エントリを削除しました", zap.Int("count", n))
					}
				}
			}
		})
	}

	logger.Info("フォロワーサービスを起動します",
		zap.String("addr", server.Addr()),
		zap.String("default_policy", cfg.Follower.DefaultPolicy),
	)
	return serve.Run(ctx, server.Addr(), server.Handler(), cfg.Server.ShutdownTimeout, logger, workers...)
}
