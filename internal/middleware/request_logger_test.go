package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestLogger(t *testing.T) {
	tests := []struct {
		name      string
		handler   echo.HandlerFunc
		wantLevel string
		wantCode  int
	}{
		{"ok", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, "info", http.StatusNoContent},
		{"client error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusNotFound) }, "warn", http.StatusNotFound},
		{"server error", func(c echo.Context) error { return echo.NewHTTPError(http.StatusInternalServerError) }, "error", http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			e := echo.New()
			req := httptest.NewRequest(http.MethodPost, "/api/v1/transactions", nil)
			req = req.WithContext(WithUserID(req.Context(), 4))
			rec := httptest.NewRecorder()
			c := e.NewContext(req, rec)

			err := RequestLogger(zerolog.New(&buf))(tt.handler)(c)
			require.NoError(t, err)
			assert.Equal(t, tt.wantCode, rec.Code)

			var line map[string]interface{}
			require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
			assert.Equal(t, tt.wantLevel, line["level"])
			assert.Equal(t, "POST", line["method"])
			assert.Equal(t, "/api/v1/transactions", line["path"])
			assert.Equal(t, float64(4), line["user_id"])
		})
	}
}
