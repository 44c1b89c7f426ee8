package middleware

import (
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newEngine(handlers ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	handlers = append(handlers, func(ctx *gin.Context) {
		actor, _ := ActorFrom(ctx)
		ctx.JSON(http.StatusOK, gin.H{"id": actor.ID, "type": actor.Type})
	})
	r.GET("/probe", handlers...)
	return r
}

func do(r http.Handler, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/probe", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func token(t *testing.T, id uint, typ string) string {
	t.Helper()
	tok, err := utils.GenerateToken(id, typ, time.Hour)
	require.NoError(t, err)
	return tok
}

func TestAuthRequired(t *testing.T) {
	r := newEngine(AuthRequired())

	assert.Equal(t, http.StatusUnauthorized, do(r, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Token abc").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer   ").Code)
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer garbage").Code)

	w := do(r, "Bearer "+token(t, 4, models.ActorChild))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":4,"type":"child"}`, w.Body.String())
}

func TestAuthRequiredRejectsRevokedToken(t *testing.T) {
	r := newEngine(AuthRequired())
	tok := token(t, 8, models.ActorParent)
	require.Equal(t, http.StatusOK, do(r, "Bearer "+tok).Code)

	utils.BlacklistToken(tok, time.Now().Add(time.Hour))
	assert.Equal(t, http.StatusUnauthorized, do(r, "Bearer "+tok).Code)
}

func TestRequireType(t *testing.T) {
	parentOnly := newEngine(AuthRequired(), RequireType(models.ActorParent))
	either := newEngine(AuthRequired(), RequireType(models.ActorParent, models.ActorChild))

	assert.Equal(t, http.StatusOK, do(parentOnly, "Bearer "+token(t, 1, models.ActorParent)).Code)
	assert.Equal(t, http.StatusForbidden, do(parentOnly, "Bearer "+token(t, 2, models.ActorChild)).Code)
	assert.Equal(t, http.StatusOK, do(either, "Bearer "+token(t, 2, models.ActorChild)).Code)

	// without AuthRequired there is no actor
	assert.Equal(t, http.StatusUnauthorized, do(newEngine(RequireType(models.ActorParent)), "").Code)
}

func TestRateLimitMiddleware(t *testing.T) {
	r := newEngine(RateLimitMiddleware(2))

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)
}
