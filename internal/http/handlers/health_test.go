package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/geocoder89/devcamper/internal/http/handlers"
)

func TestHealth(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]handlers.Check
		want   int
	}{
		{"no checks", nil, http.StatusOK},
		{"db up", map[string]handlers.Check{"db": func(context.Context) error { return nil }}, http.StatusOK},
		{"redis down", map[string]handlers.Check{
			"db":    func(context.Context) error { return nil },
			"redis": func(context.Context) error { return errors.New("connection refused") },
		}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := handlers.NewHealthHandler(tt.checks)
			r := gin.New()
			r.GET("/healthz", h.Healthz)
			r.GET("/readyz", h.Readyz)

			assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

			w := do(r, http.MethodGet, "/readyz", "")
			assert.Equal(t, tt.want, w.Code)
			if tt.want != http.StatusOK {
				assert.Contains(t, w.Body.String(), "redis")
			}
		})
	}
}
