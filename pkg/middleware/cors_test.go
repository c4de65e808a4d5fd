package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		allowed     []string
		method      string
		origin      string
		wantCode    int
		wantAllowed bool
	}{
		{name: "許可オリジンのGET", allowed: []string{"http://localhost:3000"}, method: http.MethodGet, origin: "http://localhost:3000", wantCode: http.StatusOK, wantAllowed: true},
		{name: "許可されていないオリジン", allowed: []string{"http://localhost:3000"}, method: http.MethodGet, origin: "http://evil.example.com", wantCode: http.StatusOK},
		{name: "Originヘッダーなし", allowed: []string{"http://localhost:3000"}, method: http.MethodGet, wantCode: http.StatusOK},
		{name: "ワイルドカード", allowed: []string{"*"}, method: http.MethodGet, origin: "http://any.example.com", wantCode: http.StatusOK, wantAllowed: true},
		{name: "プリフライト", allowed: []string{"http://localhost:3000"}, method: http.MethodOptions, origin: "http://localhost:3000", wantCode: http.StatusNoContent, wantAllowed: true},
		{name: "許可されていないオリジンのプリフライト", allowed: nil, method: http.MethodOptions, origin: "http://localhost:3000", wantCode: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			router := gin.New()
			router.Use(CORS(tt.allowed))
			router.GET("/api/v1/subtypes", func(c *gin.Context) {
				c.Status(http.StatusOK)
			})

			req := httptest.NewRequest(tt.method, "/api/v1/subtypes", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if !tt.wantAllowed {
				assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
				return
			}
			assert.Equal(t, tt.origin, w.Header().Get("Access-Control-Allow-Origin"))
			assert.Equal(t, "GET, POST, PUT, DELETE, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
			assert.Equal(t, "Authorization, Content-Type, X-User-ID", w.Header().Get("Access-Control-Allow-Headers"))
			assert.Equal(t, "86400", w.Header().Get("Access-Control-Max-Age"))
			assert.Equal(t, "Origin", w.Header().Get("Vary"))
		})
	}
}
