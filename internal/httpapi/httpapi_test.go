package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"family-os/internal/app"
	"family-os/internal/database"
	"family-os/internal/family"
	"family-os/internal/feedback"
	"family-os/internal/llm"
	"family-os/internal/logger"
	"family-os/internal/planner"
	"family-os/internal/session"
	"family-os/internal/shopping"
	"family-os/internal/store"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubModel struct {
	replies map[string]string
}

func (m *stubModel) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	for heading, reply := range m.replies {
		if strings.HasPrefix(prompt, heading) {
			return llm.ContentResponse{Content: reply}, nil
		}
	}
	return llm.ContentResponse{Content: "not json"}, nil
}

func weekJSON(t *testing.T) string {
	t.Helper()
	styles := []string{"Italian Nonna", "Thai Street Food", "Modern British", "Mexican Street Food",
		"Japanese Izakaya", "French Bistro", "Mediterranean Diet"}
	var days []map[string]any
	for i, d := range family.Days {
		meal := func(slot, style string) map[string]any {
			return map[string]any{
				"name":        d + " " + slot,
				"ingredients": []string{"200g rice"},
				"method":      "Cook.",
				"style_tag":   style,
			}
		}
		days = append(days, map[string]any{"day": d, "meals": map[string]any{
			"breakfast": meal("breakfast", "Modern British"),
			"lunch":     meal("lunch", "Ottolenghi"),
			"dinner":    meal("dinner", styles[i]),
		}})
	}
	b, err := json.Marshal(map[string]any{"days": days})
	require.NoError(t, err)
	return string(b)
}

type testServer struct {
	engine *gin.Engine
	model  *stubModel
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := logger.Nop()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "api.db"), log)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	model := &stubModel{replies: map[string]string{
		"# Weekly Planner Prompt": weekJSON(t),
		"# Meal Planner Prompt":   `{"name": "Fish Tacos", "ingredients": ["400g cod"], "method": "Grill.", "style_tag": "Mexican"}`,
	}}
	docs := store.NewCached(store.NewSQLiteStore(db.SQL), store.NewMemoryCache(), time.Minute, log)
	a := app.NewApp(family.DefaultID, docs,
		planner.NewPlanner(model, log),
		shopping.NewBuilder(model, log),
		feedback.NewRecorder(docs, log),
		nil, log)
	sessions, err := session.NewManager(session.NewRepository(db.SQL), "test-secret", time.Hour)
	require.NoError(t, err)

	return &testServer{
		engine: NewRouter(RouterConfig{App: a, Sessions: sessions, Log: log}),
		model:  model,
	}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(t *testing.T, member string) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/session", "", gin.H{"member": member})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var out sessionView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.NotEmpty(t, out.Token)
	return out.Token
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env ErrorEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func TestMembersAndLogin(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/members", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var members struct {
		Members []memberView `json:"members"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &members))
	require.Len(t, members.Members, 2)
	assert.Equal(t, "Dad", members.Members[0].Name)

	w = s.do(t, http.MethodPost, "/api/session", "", gin.H{"member": "Grandma"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_member", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/plan", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	token := s.login(t, "dad")
	w = s.do(t, http.MethodGet, "/api/session", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"member":"Dad"`)

	w = s.do(t, http.MethodDelete, "/api/session", token, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = s.do(t, http.MethodGet, "/api/session", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a logged out token stops working")
}

func TestParentPlanFlow(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "Dad")

	w := s.do(t, http.MethodGet, "/api/tonight", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "no_plan", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/plan/generate", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var gen struct {
		WeekPlan family.WeekPlan `json:"week_plan"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &gen))
	assert.Len(t, gen.WeekPlan.Days, 7)

	w = s.do(t, http.MethodPost, "/api/plan/monday/Dinner/lock", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"locked":true`)

	w = s.do(t, http.MethodPost, "/api/plan/Monday/dinner/reroll", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "locked", errorCode(t, w))

	w = s.do(t, http.MethodPost, "/api/plan/Friday/dinner/reroll", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Fish Tacos")

	w = s.do(t, http.MethodPost, "/api/plan/Someday/regenerate", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = s.do(t, http.MethodPost, "/api/plan/Monday/brunch/lock", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown_slot", errorCode(t, w))

	// The stub has no day or recipe replies, so those calls fail upstream.
	w = s.do(t, http.MethodPost, "/api/plan/Monday/regenerate", token, nil)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, "malformed_output", errorCode(t, w))

	w = s.do(t, http.MethodGet, "/api/plan", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Monday dinner", "a failed regeneration leaves the plan alone")

	w = s.do(t, http.MethodPost, "/api/plan/Tuesday/dinner/rate", token, gin.H{"rating": "dislike"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"score":-1`)
}

func TestChildView(t *testing.T) {
	s := newTestServer(t)
	parent := s.login(t, "Dad")
	w := s.do(t, http.MethodPost, "/api/plan/generate", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)

	kid := s.login(t, "Kid")
	for _, path := range []string{"/api/plan/generate", "/api/shopping", "/api/plan/Monday/dinner/lock"} {
		w = s.do(t, http.MethodPost, path, kid, nil)
		assert.Equal(t, http.StatusForbidden, w.Code, path)
	}
	w = s.do(t, http.MethodGet, "/api/plan", kid, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(t, http.MethodGet, "/api/tonight", kid, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "dinner")

	w = s.do(t, http.MethodPost, "/api/tonight/feedback", kid, gin.H{"rating": "meh"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPost, "/api/tonight/feedback", kid, gin.H{"rating": "LIKE"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"member":"Kid"`)
	assert.Contains(t, w.Body.String(), `"score":1`)

	w = s.do(t, http.MethodGet, "/api/history", parent, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rating":"like"`)
}

func TestShoppingWithoutPlan(t *testing.T) {
	s := newTestServer(t)
	token := s.login(t, "Dad")

	w := s.do(t, http.MethodPost, "/api/shopping", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items": [], "price_comparison": [], "total": 0}`, w.Body.String())
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	w := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OK", w.Body.String())
}
