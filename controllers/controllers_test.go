package controllers_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brighterbites/backend/config"
	"github.com/brighterbites/backend/models"
	"github.com/brighterbites/backend/routes"
	"github.com/brighterbites/backend/services"
)

func TestMain(m *testing.M) {
	logDir, err := os.MkdirTemp("", "bb-controllers")
	if err != nil {
		panic(err)
	}
	os.Setenv("JWT_SECRET", "controllers-test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(logDir, "gin.log"))
	os.Setenv("CACHE_ENABLED", "false")
	os.Setenv("RATE_LIMIT_PER_MINUTE", "10000")
	code := m.Run()
	os.RemoveAll(logDir)
	os.Exit(code)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
}

func newAPI(t *testing.T) *api {
	t.Helper()
	db, err := config.OpenDatabase(config.AppConfig{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "api.db"),
		LogLevel:   "silent",
	})
	require.NoError(t, err)
	require.NoError(t, config.Migrate(db, true, models.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	records := services.NewRecordService(db, services.Options{})
	return &api{t: t, router: routes.SetupRouter(db, records)}
}

func (a *api) call(method, path, token string, body interface{}) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w.Code, env
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v), string(raw))
	return v
}

type authData struct {
	Token  string         `json:"token"`
	Parent map[string]any `json:"parent"`
	User   map[string]any `json:"user"`
}

func (a *api) registerParent(name string) string {
	status, env := a.call(http.MethodPost, "/api/auth/parent/register", "", gin.H{
		"parentname": name,
		"email":      name + "@example.com",
		"password":   "secret123",
	})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	return decode[authData](a.t, env.Data).Token
}

func (a *api) addChild(parentToken, name string) uint {
	status, env := a.call(http.MethodPost, "/api/children", parentToken, gin.H{
		"name": name, "age": 6, "gender": models.GenderMale, "password": "1234",
	})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	return decode[struct{ ID uint }](a.t, env.Data).ID
}

func (a *api) loginChild(name string) string {
	status, env := a.call(http.MethodPost, "/api/auth/child/login", "", gin.H{"childname": name, "password": "1234"})
	require.Equal(a.t, http.StatusOK, status, env.Message)
	return decode[authData](a.t, env.Data).Token
}

func (a *api) createHabit(parentToken string, childID uint, name string) uint {
	status, env := a.call(http.MethodPost, "/api/habits", parentToken, gin.H{"name": name, "childId": childID})
	require.Equal(a.t, http.StatusCreated, status, env.Message)
	return decode[models.Habit](a.t, env.Data).ID
}

func TestParentAccountFlow(t *testing.T) {
	a := newAPI(t)
	parent := a.registerParent("dana")

	status, env := a.call(http.MethodPost, "/api/auth/parent/register", "", gin.H{
		"parentname": "dana", "email": "other@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusConflict, status)

	status, _ = a.call(http.MethodPost, "/api/auth/parent/register", "", gin.H{
		"parentname": "al", "email": "al@example.com", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = a.call(http.MethodPost, "/api/auth/parent/register", "", gin.H{
		"parentname": "alex", "email": "not-an-email", "password": "secret123",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = a.call(http.MethodPost, "/api/auth/parent/login", "", gin.H{"email": "DANA@example.com", "password": "secret123"})
	require.Equal(t, http.StatusOK, status)
	assert.NotEmpty(t, decode[authData](t, env.Data).Token)

	status, _ = a.call(http.MethodPost, "/api/auth/parent/login", "", gin.H{"email": "dana@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, status)

	status, env = a.call(http.MethodPut, "/api/parent/me", parent, gin.H{"parentname": "Dana Q"})
	require.Equal(t, http.StatusOK, status, env.Message)

	status, env = a.call(http.MethodGet, "/api/parent/me", parent, nil)
	require.Equal(t, http.StatusOK, status)
	me := decode[struct {
		Parent map[string]any `json:"parent"`
	}](t, env.Data)
	assert.Equal(t, "Dana Q", me.Parent["parentname"])
	assert.Equal(t, "dana@example.com", me.Parent["email"])

	status, _ = a.call(http.MethodPost, "/api/auth/logout", parent, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodGet, "/api/parent/me", parent, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestChildrenAndHabits(t *testing.T) {
	a := newAPI(t)
	parent := a.registerParent("dana")
	other := a.registerParent("omar")

	childID := a.addChild(parent, "mia")
	status, _ := a.call(http.MethodPost, "/api/children", parent, gin.H{
		"name": "mia", "age": 6, "gender": models.GenderFemale, "password": "1234",
	})
	assert.Equal(t, http.StatusConflict, status)
	status, _ = a.call(http.MethodPost, "/api/children", parent, gin.H{
		"name": "zed", "age": 6, "gender": "Robot", "password": "1234",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = a.call(http.MethodPost, "/api/children", parent, gin.H{
		"name": "zed", "age": 6, "gender": models.GenderMale, "password": "123456",
	})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env := a.call(http.MethodGet, "/api/children", parent, nil)
	require.Equal(t, http.StatusOK, status)
	kids := decode[[]map[string]any](t, env.Data)
	require.Len(t, kids, 1)
	assert.Equal(t, "mia", kids[0]["name"])
	assert.NotContains(t, kids[0], "passwordHash")

	status, env = a.call(http.MethodGet, "/api/children", other, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]map[string]any](t, env.Data))

	habitID := a.createHabit(parent, childID, "<b>Floss</b>")
	status, _ = a.call(http.MethodPost, "/api/habits", other, gin.H{"name": "Sneaky", "childId": childID})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = a.call(http.MethodPut, fmt.Sprintf("/api/habits/%d", habitID), parent, gin.H{"isActive": false})
	require.Equal(t, http.StatusOK, status, env.Message)
	updated := decode[models.Habit](t, env.Data)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "Floss", updated.Name)

	status, _ = a.call(http.MethodPut, fmt.Sprintf("/api/habits/%d", habitID), other, gin.H{"name": "Mine"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.call(http.MethodGet, "/api/habits", parent, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = a.call(http.MethodGet, fmt.Sprintf("/api/habits?childId=%d", childID), parent, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decode[[]models.Habit](t, env.Data), 1)

	child := a.loginChild("mia")
	status, env = a.call(http.MethodGet, "/api/habits", child, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Empty(t, decode[[]models.Habit](t, env.Data), "inactive habits are hidden from the child")

	status, _ = a.call(http.MethodPost, "/api/habits", child, gin.H{"name": "Candy", "childId": childID})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = a.call(http.MethodDelete, fmt.Sprintf("/api/habits/%d", habitID), parent, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = a.call(http.MethodDelete, fmt.Sprintf("/api/habits/%d", habitID), parent, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestTaskFlow(t *testing.T) {
	a := newAPI(t)
	parent := a.registerParent("dana")
	childID := a.addChild(parent, "mia")
	floss := a.createHabit(parent, childID, "Floss")
	child := a.loginChild("mia")

	status, env := a.call(http.MethodGet, "/api/tasks/today", child, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	rec := decode[models.DailyRecord](t, env.Data)
	require.Len(t, rec.CustomHabits, 1)
	assert.Equal(t, floss, rec.CustomHabits[0].HabitID)

	status, env = a.call(http.MethodPost, "/api/tasks/morningBrush/complete", child, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	rec = decode[models.DailyRecord](t, env.Data)
	assert.True(t, rec.Stars.MorningBrush)
	assert.Equal(t, 1, rec.StarCount)

	status, _ = a.call(http.MethodPost, "/api/tasks/customHabit/complete", child, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, env = a.call(http.MethodPost, "/api/tasks/teleport/complete", child, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid task type provided", env.Message)

	status, env = a.call(http.MethodPost, "/api/tasks/customHabit/complete", child, gin.H{"habitId": floss})
	require.Equal(t, http.StatusOK, status, env.Message)
	rec = decode[models.DailyRecord](t, env.Data)
	assert.True(t, rec.Stars.AllHabits)
	assert.Equal(t, 2, rec.StarCount)

	// parents cannot act as the child
	status, _ = a.call(http.MethodGet, "/api/tasks/today", parent, nil)
	assert.Equal(t, http.StatusForbidden, status)

	status, env = a.call(http.MethodPost, "/api/tasks/today/add-habit", parent, gin.H{"habitId": floss, "childId": childID})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "this habit is already on today's list", env.Message)

	stretch := a.createHabit(parent, childID, "Stretch")
	status, env = a.call(http.MethodPost, "/api/tasks/today/add-habit", parent, gin.H{"habitId": stretch, "childId": childID})
	require.Equal(t, http.StatusOK, status, env.Message)
	rec = decode[models.DailyRecord](t, env.Data)
	assert.False(t, rec.Stars.AllHabits)
	assert.Len(t, rec.CustomHabits, 2)

	status, _ = a.call(http.MethodPost, "/api/tasks/today/add-habit", child, gin.H{"habitId": stretch, "childId": childID})
	assert.Equal(t, http.StatusForbidden, status)

	status, env = a.call(http.MethodPost, "/api/tasks/today/update", parent, gin.H{"childId": childID})
	require.Equal(t, http.StatusOK, status, env.Message)
	rec = decode[models.DailyRecord](t, env.Data)
	assert.Len(t, rec.CustomHabits, 2)

	status, _ = a.call(http.MethodGet, "/api/tasks/calendar", parent, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = a.call(http.MethodGet, fmt.Sprintf("/api/tasks/calendar?childId=%d&days=abc", childID), parent, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = a.call(http.MethodGet, fmt.Sprintf("/api/tasks/calendar?childId=%d", childID), parent, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Len(t, decode[[]models.DailyRecord](t, env.Data), 1)

	status, env = a.call(http.MethodGet, "/api/tasks/calendar?days=7", child, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Len(t, decode[[]models.DailyRecord](t, env.Data), 1)

	status, env = a.call(http.MethodGet, "/api/tasks/calendar/summary", child, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	sum := decode[services.CalendarSummary](t, env.Data)
	assert.Equal(t, 30, sum.Days)
	assert.Equal(t, 1, sum.TotalStars)
	assert.Equal(t, 2, sum.Score)

	other := a.registerParent("omar")
	status, _ = a.call(http.MethodGet, fmt.Sprintf("/api/tasks/calendar?childId=%d", childID), other, nil)
	assert.Equal(t, http.StatusForbidden, status)
}

func TestUnknownRoutesAndHealth(t *testing.T) {
	a := newAPI(t)
	status, env := a.call(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)

	status, env = a.call(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)
}
