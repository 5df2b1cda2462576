package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spexxxzzz/redditleads-sub002/internal/core/domain"
	apperrors "github.com/spexxxzzz/redditleads-sub002/internal/core/errors"
	"github.com/spexxxzzz/redditleads-sub002/internal/discovery"
)

type stubManager struct {
	startErr    error
	resetErr    error
	status      discovery.Status
	progressErr error

	startedWith string
}

func (s *stubManager) Start(_ context.Context, projectID string) error {
	s.startedWith = projectID

	return s.startErr
}

func (s *stubManager) Progress(_ context.Context, _ string) (discovery.Status, error) {
	return s.status, s.progressErr
}

func (s *stubManager) Reset(_ context.Context, _ string) error {
	return s.resetErr
}

type stubLeadStore struct {
	leads     []domain.Lead
	listErr   error
	updateErr error

	updatedLead   string
	updatedStatus string
}

func (s *stubLeadStore) ListLeads(_ context.Context, _, _ string) ([]domain.Lead, error) {
	return s.leads, s.listErr
}

func (s *stubLeadStore) UpdateLeadStatus(_ context.Context, leadID, status string) error {
	s.updatedLead = leadID
	s.updatedStatus = status

	return s.updateErr
}

func newTestHandler(manager Manager, leads LeadStore) http.Handler {
	nop := zerolog.Nop()

	return NewHandler(manager, leads, &nop).Routes()
}

func doRequest(t *testing.T, handler http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	return rec
}

func TestStartDiscovery(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		manager := &stubManager{}
		rec := doRequest(t, newTestHandler(manager, &stubLeadStore{}),
			http.MethodPost, "/api/projects/p1/discover", "")

		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, "p1", manager.startedWith)
		assert.JSONEq(t, `{"status":"started"}`, rec.Body.String())
	})

	t.Run("conflict when already running", func(t *testing.T) {
		manager := &stubManager{startErr: apperrors.ErrAlreadyRunning}
		rec := doRequest(t, newTestHandler(manager, &stubLeadStore{}),
			http.MethodPost, "/api/projects/p1/discover", "")

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.JSONEq(t, `{"error":"discovery already running"}`, rec.Body.String())
	})

	t.Run("bad request without keywords", func(t *testing.T) {
		manager := &stubManager{startErr: apperrors.ErrNoKeywords}
		rec := doRequest(t, newTestHandler(manager, &stubLeadStore{}),
			http.MethodPost, "/api/projects/p1/discover", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("not found", func(t *testing.T) {
		manager := &stubManager{startErr: apperrors.ErrProjectNotFound}
		rec := doRequest(t, newTestHandler(manager, &stubLeadStore{}),
			http.MethodPost, "/api/projects/nope/discover", "")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestDiscoveryProgress(t *testing.T) {
	manager := &stubManager{status: discovery.Status{
		Status:            domain.DiscoveryStatusRunning,
		Stage:             domain.StageSearching,
		LeadsFound:        3,
		Message:           "Searching communities for relevant posts...",
		EstimatedTimeLeft: 42,
	}}

	rec := doRequest(t, newTestHandler(manager, &stubLeadStore{}),
		http.MethodGet, "/api/projects/p1/discover/progress", "")

	require.Equal(t, http.StatusOK, rec.Code)

	var payload map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))

	assert.Equal(t, "running", payload["status"])
	assert.Equal(t, "searching", payload["stage"])
	assert.EqualValues(t, 3, payload["leadsFound"])
	assert.EqualValues(t, 42, payload["estimatedTimeLeft"])
}

func TestResetDiscovery(t *testing.T) {
	rec := doRequest(t, newTestHandler(&stubManager{}, &stubLeadStore{}),
		http.MethodPost, "/api/projects/p1/discover/reset", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"reset"}`, rec.Body.String())
}

func TestListLeads(t *testing.T) {
	t.Run("returns leads", func(t *testing.T) {
		store := &stubLeadStore{leads: []domain.Lead{{ID: "l1", Title: "t"}, {ID: "l2", Title: "u"}}}
		rec := doRequest(t, newTestHandler(&stubManager{}, store),
			http.MethodGet, "/api/projects/p1/leads", "")

		require.Equal(t, http.StatusOK, rec.Code)

		var payload struct {
			Count int `json:"count"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
		assert.Equal(t, 2, payload.Count)
	})

	t.Run("empty list is not null", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubManager{}, &stubLeadStore{}),
			http.MethodGet, "/api/projects/p1/leads", "")

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"leads":[]`)
	})

	t.Run("rejects unknown status filter", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubManager{}, &stubLeadStore{}),
			http.MethodGet, "/api/projects/p1/leads?status=bogus", "")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateLeadStatus(t *testing.T) {
	t.Run("updates", func(t *testing.T) {
		store := &stubLeadStore{}
		rec := doRequest(t, newTestHandler(&stubManager{}, store),
			http.MethodPatch, "/api/leads/l1", `{"status":"replied"}`)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "l1", store.updatedLead)
		assert.Equal(t, "replied", store.updatedStatus)
	})

	t.Run("rejects invalid status", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubManager{}, &stubLeadStore{}),
			http.MethodPatch, "/api/leads/l1", `{"status":"archived"}`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		rec := doRequest(t, newTestHandler(&stubManager{}, &stubLeadStore{}),
			http.MethodPatch, "/api/leads/l1", `{not json`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("missing lead", func(t *testing.T) {
		store := &stubLeadStore{updateErr: apperrors.ErrLeadNotFound}
		rec := doRequest(t, newTestHandler(&stubManager{}, store),
			http.MethodPatch, "/api/leads/nope", `{"status":"saved"}`)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}
