package middleware

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/haierkeys/fast-library-service/pkg/limiter"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, path string, header http.Header) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range header {
		req.Header[k] = v
	}
	r.ServeHTTP(w, req)
	return w
}

func TestTraceMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddlewareWithConfig(true, ""))
	var fromCtx string
	r.GET("/x", func(c *gin.Context) {
		fromCtx = GetTraceID(c.Request.Context())
		c.String(http.StatusOK, GetTraceIDFromGin(c))
	})

	w := serve(r, http.MethodGet, "/x", http.Header{"X-Trace-Id": {"abc"}})
	assert.Equal(t, "abc", w.Body.String())
	assert.Equal(t, "abc", w.Header().Get(DefaultTraceIDHeader))
	assert.Equal(t, "abc", fromCtx)

	w = serve(r, http.MethodGet, "/x", nil)
	assert.Len(t, w.Body.String(), 36)
}

func TestTraceMiddlewareDisabled(t *testing.T) {
	r := gin.New()
	r.Use(TraceMiddlewareWithConfig(false, "X-Req"))
	r.GET("/x", func(c *gin.Context) { c.String(http.StatusOK, GetTraceIDFromGin(c)) })
	w := serve(r, http.MethodGet, "/x", nil)
	assert.Empty(t, w.Body.String())
	assert.Empty(t, w.Header().Get("X-Req"))
}

func TestRecoveryAndNoFound(t *testing.T) {
	r := gin.New()
	r.Use(RecoveryWithLogger(zap.NewNop()), AccessLogWithLogger(zap.NewNop()))
	r.GET("/panic", func(c *gin.Context) { panic("boom") })
	r.NoRoute(NoFound())

	w := serve(r, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), "boom")

	w = serve(r, http.MethodGet, "/missing", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimiter(t *testing.T) {
	l := limiter.NewKeyLimiter().AddBuckets(limiter.BucketRule{Key: "/limited", FillInterval: time.Hour, Capacity: 1, Quantum: 1})
	r := gin.New()
	r.Use(RateLimiter(l), AppInfoWithConfig("svc", "1.0.0"))
	r.GET("/limited", func(c *gin.Context) { c.String(http.StatusOK, c.GetString("app_name")) })
	r.GET("/free", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := serve(r, http.MethodGet, "/limited", nil)
	assert.Equal(t, "svc", w.Body.String())
	assert.Equal(t, "1.0.0", w.Header().Get("X-App-Version"))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/limited", nil).Code)
	assert.Equal(t, http.StatusNoContent, serve(r, http.MethodGet, "/free", nil).Code)
}

func TestContextTimeout(t *testing.T) {
	r := gin.New()
	r.Use(ContextTimeout(time.Minute))
	r.GET("/t", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.String(http.StatusOK, strconv.FormatBool(ok))
	})
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, "true", w.Body.String())

	r = gin.New()
	r.Use(ContextTimeout(0))
	r.GET("/t", func(c *gin.Context) {
		_, ok := c.Request.Context().Deadline()
		c.String(http.StatusOK, strconv.FormatBool(ok))
	})
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/t", nil))
	assert.Equal(t, "false", w.Body.String())
}
