package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lalith-99/sitetrack/internal/assign"
	"github.com/lalith-99/sitetrack/internal/models"
	"github.com/lalith-99/sitetrack/internal/observ"
	"github.com/lalith-99/sitetrack/internal/repository/memory"
	"github.com/lalith-99/sitetrack/internal/session"
	"github.com/lalith-99/sitetrack/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	db     *memory.DB
	token  string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	db := memory.New(memory.WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	}))
	logger := zap.NewNop()
	metrics := observ.NewMetrics()

	router := NewRouter(Deps{
		Actors:    db.Actors(),
		Owners:    db.Owners(),
		Registry:  store.NewRegistry(db.Backend(), logger),
		Engine:    assign.NewEngine(logger, metrics, assign.Options{}),
		Sessions:  session.NewManager(db.Actors(), session.NewMemoryCache(), logger, metrics, session.Options{}),
		Metrics:   metrics,
		Logger:    logger,
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	})
	h := &harness{t: t, router: router, db: db}

	var resp struct {
		Token string `json:"token"`
	}
	h.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email":        "kim@example.com",
		"password":     "correct-horse",
		"display_name": "Kim",
		"owner_name":   "Acme",
	}, http.StatusCreated, &resp)
	require.NotEmpty(t, resp.Token)
	h.token = resp.Token
	return h
}

// do sends body as JSON with the harness token, asserts the status and
// decodes the response into out when out is non-nil.
func (h *harness) do(method, path string, body any, wantStatus int, out any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if h.token != "" {
		req.Header.Set("Authorization", "Bearer "+h.token)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	require.Equal(h.t, wantStatus, rec.Code, rec.Body.String())
	if out != nil {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), out))
	}
	return rec
}

func (h *harness) rep(name, phone string) models.Representative {
	var r models.Representative
	h.do(http.MethodPost, "/v1/reps", map[string]string{"name": name, "phone": phone}, http.StatusCreated, &r)
	return r
}

func (h *harness) site(title string, rep *models.Representative) models.Site {
	body := map[string]any{"title": title, "address": title + " street", "lat": 37.5, "lng": 127.0}
	if rep != nil {
		body["assigned_rep_id"] = rep.ID
	}
	var out assign.Outcome
	h.do(http.MethodPost, "/v1/sites", body, http.StatusCreated, &out)
	require.NotNil(h.t, out.Site)
	return *out.Site
}

func TestHealthIsPublic(t *testing.T) {
	h := newHarness(t)
	h.token = ""
	h.do(http.MethodGet, "/v1/health", nil, http.StatusOK, nil)
	h.do(http.MethodGet, "/v1/reps", nil, http.StatusUnauthorized, nil)
}

func TestLogin(t *testing.T) {
	h := newHarness(t)
	h.token = ""
	h.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "kim@example.com", "password": "wrong-password"}, http.StatusUnauthorized, nil)

	var resp authResponse
	h.do(http.MethodPost, "/v1/auth/login", map[string]string{"email": "KIM@example.com", "password": "correct-horse"}, http.StatusOK, &resp)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, session.StateVerified, resp.Session.State)
	assert.Empty(t, resp.Actor.PasswordHash)

	h.token = ""
	h.do(http.MethodPost, "/v1/auth/signup", map[string]string{
		"email": "kim@example.com", "password": "another-pass", "display_name": "Kim", "owner_name": "Other",
	}, http.StatusConflict, nil)
}

func TestRepLifecycleAndErrors(t *testing.T) {
	h := newHarness(t)
	kim := h.rep("Kim", "010 1234 5678")
	assert.Equal(t, "010-1234-5678", kim.Phone)

	var errResp map[string]string
	h.do(http.MethodPost, "/v1/reps", map[string]string{"name": "Kim"}, http.StatusConflict, &errResp)
	assert.Equal(t, "duplicate_name", errResp["kind"])
	h.do(http.MethodPost, "/v1/reps", map[string]string{"name": "Lee", "phone": "01012345678"}, http.StatusConflict, &errResp)
	assert.Equal(t, "duplicate_phone", errResp["kind"])

	var updated models.Representative
	h.do(http.MethodPatch, "/v1/reps/"+kim.ID.String(), map[string]string{"phone": ""}, http.StatusOK, &updated)
	assert.Empty(t, updated.Phone)

	h.do(http.MethodPatch, "/v1/reps/not-a-uuid", map[string]string{}, http.StatusBadRequest, nil)

	var imported store.ImportResult
	h.do(http.MethodPost, "/v1/reps/import", map[string]any{"entries": []store.ImportEntry{
		{Name: "Kim"}, {Name: "Park", Phone: "01099998888"},
	}}, http.StatusOK, &imported)
	assert.Len(t, imported.Added, 1)
	assert.Contains(t, imported.Skipped, "Kim")

	site := h.site("Tower", &kim)
	var deleted struct {
		Released []models.Site `json:"released_sites"`
	}
	h.do(http.MethodDelete, "/v1/reps/"+kim.ID.String(), nil, http.StatusOK, &deleted)
	require.Len(t, deleted.Released, 1)
	assert.Equal(t, site.ID, deleted.Released[0].ID)
	assert.Equal(t, models.StatusNew, deleted.Released[0].Status)
}

func TestConflictFlowOverHTTP(t *testing.T) {
	h := newHarness(t)
	kim := h.rep("Kim", "")
	s1 := h.site("S1", &kim)
	s2 := h.site("S2", nil)

	var blocked struct {
		Kind     string          `json:"kind"`
		Decision assign.Decision `json:"decision"`
	}
	h.do(http.MethodPost, "/v1/sites/"+s2.ID.String()+"/assign", map[string]any{"rep_id": kim.ID}, http.StatusConflict, &blocked)
	assert.Equal(t, "conflict", blocked.Kind)
	assert.Equal(t, assign.DecisionConflict, blocked.Decision.Kind)
	assert.Equal(t, s1.ID, blocked.Decision.ConflictingSite.ID)

	var d assign.Decision
	h.do(http.MethodGet, "/v1/decisions/"+blocked.Decision.Token, nil, http.StatusOK, &d)
	assert.Equal(t, blocked.Decision.Token, d.Token)

	h.do(http.MethodPost, "/v1/decisions/"+blocked.Decision.Token, map[string]string{"choice": "sideways"}, http.StatusBadRequest, nil)

	var out assign.Outcome
	h.do(http.MethodPost, "/v1/decisions/"+blocked.Decision.Token, map[string]string{"choice": "proceed"}, http.StatusOK, &out)
	require.NotNil(t, out.Completed)
	assert.Equal(t, s1.ID, out.Completed.ID)
	assert.Equal(t, models.StatusActive, out.Site.Status)

	var got models.Site
	h.do(http.MethodGet, "/v1/sites/"+s1.ID.String(), nil, http.StatusOK, &got)
	assert.Equal(t, models.StatusComplete, got.Status)
}

func TestHandoverAndTrajectory(t *testing.T) {
	h := newHarness(t)
	kim := h.rep("Kim", "")
	lee := h.rep("Lee", "")
	s0 := h.site("S0", &kim)
	h.do(http.MethodPost, "/v1/sites/"+s0.ID.String()+"/complete", nil, http.StatusOK, nil)
	s1 := h.site("S1", &kim)

	var out assign.Outcome
	h.do(http.MethodPost, "/v1/sites/"+s1.ID.String()+"/handover", map[string]any{"rep_id": lee.ID}, http.StatusOK, &out)
	require.NotNil(t, out.Pending)
	assert.Equal(t, assign.DecisionRestore, out.Pending.Kind)

	h.do(http.MethodPost, "/v1/decisions/"+out.Pending.Token, map[string]string{"choice": "proceed"}, http.StatusOK, &out)
	require.NotNil(t, out.Restored)
	assert.Equal(t, s0.ID, out.Restored.ID)

	var tr struct {
		List []struct {
			Index     int    `json:"index"`
			Title     string `json:"title"`
			IsCurrent bool   `json:"is_current"`
		} `json:"list"`
		Render []map[string]any `json:"render"`
		Bounds map[string]any   `json:"bounds"`
	}
	h.do(http.MethodGet, "/v1/reps/"+kim.ID.String()+"/trajectory", nil, http.StatusOK, &tr)
	require.Len(t, tr.List, 3)
	assert.Equal(t, "S0", tr.List[0].Title)
	assert.Equal(t, 3, tr.List[0].Index)
	assert.True(t, tr.List[0].IsCurrent)
	assert.Equal(t, "S1", tr.List[1].Title)
	assert.Equal(t, 1, tr.List[2].Index)
	assert.NotEmpty(t, tr.Render)
	assert.NotNil(t, tr.Bounds)
}

func TestCorrectionOverHTTP(t *testing.T) {
	h := newHarness(t)
	kim := h.rep("Kim", "")
	lee := h.rep("Lee", "")
	s1 := h.site("S1", &kim)

	var out assign.Outcome
	h.do(http.MethodPost, "/v1/sites/"+s1.ID.String()+"/correct", map[string]any{"rep_id": lee.ID}, http.StatusOK, &out)
	assert.Equal(t, int64(1), out.PrunedLogs)

	var logs []models.ActivityLog
	h.do(http.MethodGet, "/v1/reps/"+kim.ID.String()+"/logs", nil, http.StatusOK, &logs)
	assert.Empty(t, logs)
}

func TestLogsAdmin(t *testing.T) {
	h := newHarness(t)
	kim := h.rep("Kim", "")
	h.site("S1", &kim)
	s2 := h.site("S2", nil)
	h.do(http.MethodPost, "/v1/sites/"+s2.ID.String()+"/unassign", nil, http.StatusOK, nil)

	var logs []models.ActivityLog
	h.do(http.MethodGet, "/v1/logs", nil, http.StatusOK, &logs)
	require.Len(t, logs, 1)

	h.do(http.MethodDelete, "/v1/logs/"+logs[0].ID.String(), nil, http.StatusNoContent, nil)
	h.do(http.MethodDelete, "/v1/logs/"+logs[0].ID.String(), nil, http.StatusNoContent, nil)
	h.do(http.MethodGet, "/v1/logs", nil, http.StatusOK, &logs)
	assert.Empty(t, logs)
}

func TestSiteValidationAndSearch(t *testing.T) {
	h := newHarness(t)
	h.do(http.MethodPost, "/v1/sites", map[string]any{"title": "Bad", "lat": 200.0}, http.StatusBadRequest, nil)
	h.site("Gangnam Tower", nil)
	h.do(http.MethodPost, "/v1/sites", map[string]any{"title": "Gangnam Tower"}, http.StatusConflict, nil)

	var res struct {
		Sites  []models.Site `json:"sites"`
		Places []any         `json:"places"`
	}
	h.do(http.MethodGet, "/v1/search?q=gangnam", nil, http.StatusOK, &res)
	assert.Len(t, res.Sites, 1)
	assert.Empty(t, res.Places)

	var addr map[string]any
	h.do(http.MethodGet, "/v1/geocode/reverse?lat=37.5&lng=127", nil, http.StatusOK, &addr)
	assert.Equal(t, "Address unavailable", addr["address"])
	h.do(http.MethodGet, "/v1/geocode/reverse?lat=north&lng=127", nil, http.StatusBadRequest, nil)
}

func TestSessionAndLogout(t *testing.T) {
	h := newHarness(t)
	var s session.Session
	h.do(http.MethodGet, "/v1/session", nil, http.StatusOK, &s)
	assert.Equal(t, session.StateVerified, s.State)

	h.do(http.MethodPost, "/v1/session/logout", nil, http.StatusNoContent, nil)
	h.do(http.MethodGet, "/v1/reps", nil, http.StatusUnauthorized, nil)
	h.do(http.MethodGet, "/v1/session", nil, http.StatusUnauthorized, nil)
}
