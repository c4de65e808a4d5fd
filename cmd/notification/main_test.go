package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestExecute は起動に失敗した場合にプロセスを終了させず終了コードを返すことを検証する。
func TestExecute(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("LOG_LEVEL", "error")

	t.Run("設定ファイルが不正な場合は1を返すこと", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server: [\n"), 0o600))

		assert.Equal(t, 1, execute([]string{"-config", path}))
	})

	t.Run("データベースを開けない場合は1を返すこと", func(t *testing.T) {
		t.Setenv("DATABASE_DSN", filepath.Join(t.TempDir(), "missing", "notification.db"))

		assert.Equal(t, 1, execute(nil))
	})

	t.Run("不明なフラグは2を返すこと", func(t *testing.T) {
		assert.Equal(t, 2, execute([]string{"-unknown"}))
	})

	t.Run("ヘルプは0を返すこと", func(t *testing.T) {
		assert.Equal(t, 0, execute([]string{"-h"}))
	})
}
