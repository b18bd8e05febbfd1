package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/erp/stockledger/internal/domain/shared"
	"github.com/erp/stockledger/internal/infrastructure/cache"
	"github.com/erp/stockledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{ shared.IdempotencyStore }

func (failingStore) Claim(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("connection refused")
}

func idempotentRouter(store shared.IdempotencyStore, status *int) *gin.Engine {
	router := gin.New()
	router.Use(RequestID(), Actor(), Idempotency(IdempotencyConfig{Store: store, TTL: time.Minute}))
	handler := func(c *gin.Context) { c.Status(*status) }
	router.POST("/documents/:kind/:id/transition", handler)
	router.GET("/documents/:kind/:id", handler)
	return router
}

func doIdempotent(router *gin.Engine, method, path, tenant, key string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set(HeaderTenantID, tenant)
	req.Header.Set(HeaderUserID, uuid.NewString())
	if key != "" {
		req.Header.Set(HeaderIdempotencyKey, key)
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestIdempotency(t *testing.T) {
	tenant := uuid.NewString()
	path := "/documents/goods_receipt/" + uuid.NewString() + "/transition"

	t.Run("duplicate key is rejected", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		status := http.StatusOK
		router := idempotentRouter(store, &status)

		require.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, tenant, "k1").Code)

		w := doIdempotent(router, http.MethodPost, path, tenant, "k1")
		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, dto.ErrCodeDuplicateRequest, decodeResponse(t, w).Error.Code)
	})

	t.Run("keys are scoped by tenant", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		status := http.StatusOK
		router := idempotentRouter(store, &status)

		require.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, tenant, "k1").Code)
		assert.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, uuid.NewString(), "k1").Code)
	})

	t.Run("failed request releases the key", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		status := http.StatusConflict
		router := idempotentRouter(store, &status)

		require.Equal(t, http.StatusConflict, doIdempotent(router, http.MethodPost, path, tenant, "k2").Code)
		status = http.StatusOK
		assert.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, tenant, "k2").Code)
	})

	t.Run("reads and keyless requests pass through", func(t *testing.T) {
		store := cache.NewInMemoryIdempotencyStore(0)
		defer store.Close()
		status := http.StatusOK
		router := idempotentRouter(store, &status)

		getPath := "/documents/goods_receipt/" + uuid.NewString()
		for i := 0; i < 2; i++ {
			assert.Equal(t, http.StatusOK, doIdempotent(router, http.MethodGet, getPath, tenant, "k3").Code)
			assert.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, tenant, "").Code)
		}
	})

	t.Run("store failure lets the request through", func(t *testing.T) {
		status := http.StatusOK
		router := idempotentRouter(failingStore{}, &status)

		assert.Equal(t, http.StatusOK, doIdempotent(router, http.MethodPost, path, tenant, "k4").Code)
	})
}

func TestIdempotency_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := cache.NewRedisIdempotencyStore(client, "idem:")
	defer store.Close()

	status := http.StatusCreated
	router := idempotentRouter(store, &status)
	tenant := uuid.NewString()
	path := "/documents/delivery_note/" + uuid.NewString() + "/transition"

	require.Equal(t, http.StatusCreated, doIdempotent(router, http.MethodPost, path, tenant, "retry-1").Code)
	assert.Equal(t, http.StatusConflict, doIdempotent(router, http.MethodPost, path, tenant, "retry-1").Code)

	mr.FastForward(2 * time.Minute)
	assert.Equal(t, http.StatusCreated, doIdempotent(router, http.MethodPost, path, tenant, "retry-1").Code)
}
