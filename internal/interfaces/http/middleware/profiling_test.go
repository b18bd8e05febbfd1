package middleware

import (
	"net/http"
	"net/http/httptest"
	"runtime/pprof"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestProfilingWithConfig(t *testing.T) {
	labels := map[string]string{}
	router := gin.New()
	router.Use(Actor(), ProfilingWithConfig(DefaultProfilingConfig()))
	handler := func(c *gin.Context) {
		for k := range labels {
			delete(labels, k)
		}
		pprof.ForLabels(c.Request.Context(), func(key, value string) bool {
			labels[key] = value
			return true
		})
		c.Status(http.StatusOK)
	}
	router.GET("/documents/:kind/:id", handler)
	router.GET("/health", handler)

	tenantID := uuid.NewString()
	send := func(path string) {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set(HeaderTenantID, tenantID)
		req.Header.Set(HeaderUserID, uuid.NewString())
		router.ServeHTTP(httptest.NewRecorder(), req)
	}

	send("/documents/credit_note/" + uuid.NewString())
	assert.Equal(t, "/documents/:kind/:id", labels["route"])
	assert.Equal(t, http.MethodGet, labels["method"])
	assert.Equal(t, tenantID, labels["tenant_id"])

	send("/health")
	assert.Empty(t, labels)
}
