// Package serve はHTTPサーバーとバックグラウンド処理の起動と停止をまとめる。
package serve

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// readHeaderTimeout はリクエストヘッダー読み込みのタイムアウト。
const readHeaderTimeout = 10 * time.Second

// Worker はctxがキャンセルされるまで動き続けるバックグラウンド処理。
type Worker func(ctx context.Context) error

// Run はaddrでhandlerを公開し、ctxがキャンセルされたらgracefulに停止する。
// workersはサーバーと同じライフサイクルで動き、いずれかがエラーを返すと全体を停止する。
func Run(ctx context.Context, addr string, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger, workers ...Worker) error {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("リッスンに失敗 (%s): %w", addr, err)
	}
	return Serve(ctx, lis, handler, shutdownTimeout, logger, workers...)
}

// Serve はRunと同じだが、呼び出し側が用意したリスナーを使う。
func Serve(ctx context.Context, lis net.Listener, handler http.Handler, shutdownTimeout time.Duration, logger *zap.Logger, workers ...Worker) error {
	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTPサーバーを起動します", zap.String("addr", lis.Addr().String()))
		if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTPサーバーが異常終了: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()

		logger.Info("HTTPサーバーを停止します")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("HTTPサーバーの停止に失敗: %w", err)
		}
		return nil
	})
	for _, w := range workers {
		g.Go(func() error {
			return w(gctx)
		})
	}

	return g.Wait()
}
