// Package config は各サービスの設定をYAMLファイルと環境変数から読み込む。
//
// 優先順位は 環境変数 > YAMLファイル > Default の順。
// 設定ファイルが存在しない場合はデフォルト値で起動する。
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/subscription"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// サービス名。Defaultでポート番号とデータベースファイルを決めるために使う。
const (
	ServiceEventStore   = "eventstore"
	ServiceFollower     = "follower"
	ServiceNotification = "notification"
)

// defaultPorts はサービスごとのデフォルトリッスンポート。
var defaultPorts = map[string]string{
	ServiceEventStore:   "8084",
	ServiceFollower:     "8085",
	ServiceNotification: "8086",
}

// Config はサービスの設定全体。
type Config struct {
	// Service は設定対象のサービス名。
	Service string `yaml:"-"`

	Server       ServerConfig       `yaml:"server"`
	Database     DatabaseConfig     `yaml:"database"`
	EventStore   EventStoreConfig   `yaml:"eventstore"`
	Notification NotificationConfig `yaml:"notification"`
	Auth         AuthConfig         `yaml:"auth"`
	RateLimit    RateLimitConfig    `yaml:"rate_limit"`
	Log          LogConfig          `yaml:"log"`
	Follower     FollowerConfig     `yaml:"follower"`
}

// ServerConfig はHTTPサーバーの設定。
type ServerConfig struct {
	Port           string   `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// ShutdownTimeout はグレースフルシャットダウンの待ち時間。
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// DatabaseConfig はSQLiteの接続設定。
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// EventStoreConfig はEvent Storeへの接続とイベント購読の設定。
type EventStoreConfig struct {
	URL string `yaml:"url"`
	// PollInterval はプロジェクターがイベントをポーリングする間隔。
	PollInterval time.Duration `yaml:"poll_interval"`
	// BatchSize は1回のポーリングで取得する最大イベント数。
	BatchSize int `yaml:"batch_size"`
}

// NotificationConfig は通知サービスへの配信設定。
type NotificationConfig struct {
	URL string `yaml:"url"`
	// Fanout は通知配信の最大同時実行数。
	Fanout int `yaml:"fanout"`
}

// AuthConfig は認証の設定。
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// RateLimitConfig はAPIのレート制限設定。
type RateLimitConfig struct {
	Enabled           bool    `yaml:"enabled"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
}

// LogConfig はロガーの設定。
type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

// FollowerConfig はフォロワー解決の設定。
type FollowerConfig struct {
	// DefaultPolicy はリクエストでポリシーが省略された場合に使うポリシー。
	DefaultPolicy string `yaml:"default_policy"`
}

// Default はサービスのデフォルト設定を返す。
func Default(service string) *Config {
	port, ok := defaultPorts[service]
	if !ok {
		port = "8080"
	}
	return &Config{
		Service: service,
		Server: ServerConfig{
			Port:            port,
			AllowedOrigins:  []string{"http://localhost:3000"},
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			DSN: fmt.Sprintf("/data/%s.db?_journal_mode=WAL&_busy_timeout=5000", service),
		},
		EventStore: EventStoreConfig{
			URL:          "http://localhost:8084",
			PollInterval: 2 * time.Second,
			BatchSize:    100,
		},
		Notification: NotificationConfig{
			URL:    "http://localhost:8086",
			Fanout: 8,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret-key",
		},
		RateLimit: RateLimitConfig{
			Enabled:           true,
			RequestsPerSecond: 20,
			Burst:             40,
		},
		Log: LogConfig{
			Level: "info",
		},
		Follower: FollowerConfig{
			DefaultPolicy: string(subscription.PolicySkip),
		},
	}
}

// Load は設定ファイルと環境変数から設定を読み込み、検証して返す。
// pathが空文字列、またはファイルが存在しない場合はデフォルト値を使う。
func Load(path, service string) (*Config, error) {
	cfg := Default(service)

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("設定ファイルの解析に失敗: %w", err)
			}
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnv は環境変数で設定を上書きする。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("PORT", &c.Server.Port)
	str("DATABASE_DSN", &c.Database.DSN)
	str("EVENTSTORE_URL", &c.EventStore.URL)
	str("NOTIFICATION_URL", &c.Notification.URL)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	str("LOG_LEVEL", &c.Log.Level)
	str("FOLLOWER_DEFAULT_POLICY", &c.Follower.DefaultPolicy)

	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		origins := make([]string, 0)
		for o := range strings.SplitSeq(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.Server.AllowedOrigins = origins
	}
	if v, ok := lookup("EVENTSTORE_POLL_INTERVAL"); ok && v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("EVENTSTORE_POLL_INTERVALの解析に失敗: %w", err)
		}
		c.EventStore.PollInterval = d
	}
	if v, ok := lookup("RATE_LIMIT_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_ENABLEDの解析に失敗: %w", err)
		}
		c.RateLimit.Enabled = b
	}
	return nil
}

// Validate は設定値を検証する。不正な値はすべてまとめて報告する。
func (c *Config) Validate() error {
	var errs []error

	if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 0 || port > 65535 {
		errs = append(errs, fmt.Errorf("server.portが不正です: %q", c.Server.Port))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsnは必須です"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secretは必須です"))
	}
	if c.EventStore.PollInterval <= 0 {
		errs = append(errs, fmt.Errorf("eventstore.poll_intervalは正の値が必要です: %s", c.EventStore.PollInterval))
	}
	if c.EventStore.BatchSize <= 0 || c.EventStore.BatchSize > event.MaxPageSize {
		errs = append(errs, fmt.Errorf("eventstore.batch_sizeは1から%dの範囲で指定してください: %d", event.MaxPageSize, c.EventStore.BatchSize))
	}
	if c.Notification.Fanout <= 0 {
		errs = append(errs, fmt.Errorf("notification.fanoutは正の値が必要です: %d", c.Notification.Fanout))
	}
	if c.RateLimit.Enabled && (c.RateLimit.RequestsPerSecond <= 0 || c.RateLimit.Burst <= 0) {
		errs = append(errs, errors.New("rate_limitのrequests_per_secondとburstは正の値が必要です"))
	}
	if _, err := zapcore.ParseLevel(c.Log.Level); err != nil {
		errs = append(errs, fmt.Errorf("log.levelが不正です: %q", c.Log.Level))
	}
	if _, err := subscription.ParsePolicy(c.Follower.DefaultPolicy); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// Addr はHTTPサーバーのリッスンアドレスを返す。
func (c *Config) Addr() string {
	return ":" + c.Server.Port
}
