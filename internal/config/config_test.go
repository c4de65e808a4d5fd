package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/follower/pkg/event"
	"github.com/nao1215/follower/pkg/subscription"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	t.Parallel()

	tests := []struct {
		service  string
		wantPort string
	}{
		{service: ServiceEventStore, wantPort: "8084"},
		{service: ServiceFollower, wantPort: "8085"},
		{service: ServiceNotification, wantPort: "8086"},
		{service: "unknown", wantPort: "8080"},
	}

	for _, tt := range tests {
		t.Run(tt.service, func(t *testing.T) {
			t.Parallel()

			cfg := Default(tt.service)
			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Contains(t, cfg.Database.DSN, tt.service+".db")
			assert.Equal(t, ":"+tt.wantPort, cfg.Addr())
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("ファイルが存在しない場合はデフォルト値を使うこと", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), ServiceFollower)
		require.NoError(t, err)
		assert.Equal(t, Default(ServiceFollower), cfg)
	})

	t.Run("YAMLの値で上書きされ、未指定の項目はデフォルトのままであること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "follower.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: "9000"
eventstore:
  url: http://eventstore:8084
  poll_interval: 500ms
notification:
  fanout: 2
follower:
  default_policy: replace
`), 0o600))

		cfg, err := Load(path, ServiceFollower)
		require.NoError(t, err)
		assert.Equal(t, "9000", cfg.Server.Port)
		assert.Equal(t, "http://eventstore:8084", cfg.EventStore.URL)
		assert.Equal(t, 500*time.Millisecond, cfg.EventStore.PollInterval)
		assert.Equal(t, 100, cfg.EventStore.BatchSize)
		assert.Equal(t, 2, cfg.Notification.Fanout)
		assert.Equal(t, string(subscription.PolicyReplace), cfg.Follower.DefaultPolicy)
		assert.Equal(t, "dev-secret-key", cfg.Auth.JWTSecret)
	})

	t.Run("環境変数がYAMLより優先されること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "follower.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: \"9000\"\n"), 0o600))

		t.Setenv("PORT", "9100")
		t.Setenv("JWT_SECRET", "from-env")
		t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com,")
		t.Setenv("EVENTSTORE_POLL_INTERVAL", "3s")
		t.Setenv("RATE_LIMIT_ENABLED", "false")

		cfg, err := Load(path, ServiceFollower)
		require.NoError(t, err)
		assert.Equal(t, "9100", cfg.Server.Port)
		assert.Equal(t, "from-env", cfg.Auth.JWTSecret)
		assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
		assert.Equal(t, 3*time.Second, cfg.EventStore.PollInterval)
		assert.False(t, cfg.RateLimit.Enabled)
	})

	t.Run("不正なYAMLはエラーになること", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "broken.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [unterminated"), 0o600))

		_, err := Load(path, ServiceFollower)
		assert.ErrorContains(t, err, "設定ファイルの解析に失敗")
	})

	t.Run("不正な環境変数はエラーになること", func(t *testing.T) {
		t.Setenv("EVENTSTORE_POLL_INTERVAL", "soon")

		_, err := Load("", ServiceFollower)
		assert.ErrorContains(t, err, "EVENTSTORE_POLL_INTERVAL")
	})
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "ポートが数値でない", mutate: func(c *Config) { c.Server.Port = "http" }, wantErr: "server.port"},
		{name: "ポートが範囲外", mutate: func(c *Config) { c.Server.Port = "70000" }, wantErr: "server.port"},
		{name: "DSNが空", mutate: func(c *Config) { c.Database.DSN = "" }, wantErr: "database.dsn"},
		{name: "JWTシークレットが空", mutate: func(c *Config) { c.Auth.JWTSecret = "" }, wantErr: "auth.jwt_secret"},
		{name: "ポーリング間隔がゼロ", mutate: func(c *Config) { c.EventStore.PollInterval = 0 }, wantErr: "poll_interval"},
		{name: "バッチサイズが負数", mutate: func(c *Config) { c.EventStore.BatchSize = -1 }, wantErr: "batch_size"},
		{name: "バッチサイズが取得上限を超える", mutate: func(c *Config) { c.EventStore.BatchSize = event.MaxPageSize + 1 }, wantErr: "batch_size"},
		{name: "同時配信数がゼロ", mutate: func(c *Config) { c.Notification.Fanout = 0 }, wantErr: "fanout"},
		{name: "レート制限のburstがゼロ", mutate: func(c *Config) { c.RateLimit.Burst = 0 }, wantErr: "rate_limit"},
		{name: "ログレベルが不正", mutate: func(c *Config) { c.Log.Level = "loud" }, wantErr: "log.level"},
		{name: "無効なポリシー", mutate: func(c *Config) { c.Follower.DefaultPolicy = "merge" }, wantErr: "policy"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default(ServiceFollower)
			tt.mutate(cfg)
			assert.ErrorContains(t, cfg.Validate(), tt.wantErr)
		})
	}

	t.Run("バッチサイズは取得上限ちょうどまで許可されること", func(t *testing.T) {
		t.Parallel()

		cfg := Default(ServiceFollower)
		cfg.EventStore.BatchSize = event.MaxPageSize
		assert.NoError(t, cfg.Validate())
	})

	t.Run("レート制限が無効なら値を検証しないこと", func(t *testing.T) {
		t.Parallel()

		cfg := Default(ServiceFollower)
		cfg.RateLimit = RateLimitConfig{Enabled: false}
		assert.NoError(t, cfg.Validate())
	})

	t.Run("複数のエラーをまとめて返すこと", func(t *testing.T) {
		t.Parallel()

		cfg := Default(ServiceFollower)
		cfg.Database.DSN = ""
		cfg.Follower.DefaultPolicy = "merge"

		err := cfg.Validate()
		require.Error(t, err)
		assert.ErrorContains(t, err, "database.dsn")

		var cfgErr *subscription.ConfigurationError
		assert.True(t, errors.As(err, &cfgErr))
	})
}
