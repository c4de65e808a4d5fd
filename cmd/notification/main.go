// 通知サービスのエントリポイント。
// フォロワーサービスから配信された通知をパーティごとの受信箱に保存し、
// 一覧取得や既読管理のAPIを提供する。
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nao1215/follower/internal/config"
	"github.com/nao1215/follower/internal/notification"
	"github.com/nao1215/follower/pkg/logging"
	"github.com/nao1215/follower/pkg/serve"
	"go.uber.org/zap"
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute はサービスを起動し、終了までブロックして終了コードを返す。
func execute(args []string) int {
	fs := flag.NewFlagSet(config.ServiceNotification, flag.ContinueOnError)
	configPath := fs.String("config", os.Getenv("CONFIG_PATH"), "設定ファイルのパス")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath, config.ServiceNotification)
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
	logger := logging.Service(base, config.ServiceNotification)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server, err := notification.NewServer(ctx, cfg, logger)
	if err != nil {
		logger.Error("通知サーバーの初期化に失敗", zap.Error(err))
		return 1
	}
	defer server.Close()

	logger.Info("通知サービスを起動します", zap.String("addr", server.Addr()))
	if err := serve.Run(ctx, server.Addr(), server.Handler(), cfg.Server.ShutdownTimeout, logger); err != nil {
		logger.Error("通知サービスが異常終了しました", zap.Error(err))
		return 1
	}
	return 0
}
