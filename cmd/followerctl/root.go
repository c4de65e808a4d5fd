package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/nao1215/follower/pkg/httpclient"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// 出力形式。
const (
	outputJSON = "json"
	outputYAML = "yaml"
)

// options は全サブコマンド共通のフラグ。
type options struct {
	server  string
	token   string
	output  string
	timeout time.Duration
	out     io.Writer
}

// client はフォロワーサービスへのHTTPクライアントを生成する。
func (o *options) client() *httpclient.Client {
	opts := []httpclient.Option{httpclient.WithTimeout(o.timeout)}
	if o.token != "" {
		opts = append(opts, httpclient.WithBearerToken(o.token))
	}
	return httpclient.New(o.server, opts...)
}

// print はvを指定された形式で出力する。
func (o *options) print(v any) error {
	switch o.output {
	case outputYAML:
		enc := yaml.NewEncoder(o.out)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("YAMLへの変換に失敗: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(o.out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newRootCmd はルートコマンドを生成する。
func newRootCmd(out io.Writer) *cobra.Command {
	o := &options{out: out}

	cmd := &cobra.Command{
		Use:           "followerctl",
		Short:         "フォロワーサービスを操作する",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if o.output != outputJSON && o.output != outputYAML {
				return fmt.Errorf("出力形式が不正です: %q (json または yaml)", o.output)
			}
			return nil
		},
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVar(&o.server, "server", envOr("FOLLOWER_URL", "http://localhost:8085"), "フォロワーサービスのURL (環境変数 FOLLOWER_URL)")
	flags.StringVar(&o.token, "token", os.Getenv("FOLLOWER_TOKEN"), "Bearerトークン (環境変数 FOLLOWER_TOKEN)")
	flags.StringVarP(&o.output, "output", "o", outputJSON, "出力形式 (json|yaml)")
	flags.DurationVar(&o.timeout, "timeout", 30*time.Second, "リクエストのタイムアウト")

	cmd.AddCommand(
		newSubscribeCmd(o),
		newFollowersCmd(o),
		newUnsubscribeCmd(o),
		newFollowingsCmd(o),
		newRecipientsCmd(o),
		newSubtypesCmd(o),
		newTokenCmd(o),
	)
	return cmd
}
