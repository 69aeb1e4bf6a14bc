package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/api"
	"github.com/kiranshivaraju/bidhub/internal/api/handler"
	mw "github.com/kiranshivaraju/bidhub/internal/api/middleware"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/jobs"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type testServer struct {
	t        *testing.T
	handler  http.Handler
	store    *memstore.Store
	accounts *accounts.Service
}

func newTestServer(t *testing.T, requestsPerMin int) *testServer {
	t.Helper()
	st := memstore.New()
	ca := cache.NewMemoryCache()
	acct := accounts.NewService(st).WithHashCost(bcrypt.MinCost)

	bids := handler.NewBids(bidding.NewService(st, ca, time.Minute))
	js := handler.NewJobs(jobs.NewService(st))
	accts := handler.NewAccounts(acct)

	h := api.NewRouter(api.Dependencies{
		Auth:          mw.NewAuth(acct),
		RateLimit:     mw.NewRateLimit(ca, requestsPerMin),
		HealthHandler: handler.Health(st, ca),
		ListJobs:      js.List,
		GetJob:        js.Get,
		CreateJob:     js.Create,
		MyJobs:        js.Mine,
		UpdateJob:     js.Update,
		CancelJob:     js.Cancel,
		PlaceBid:      bids.Place,
		ListJobBids:   bids.ListForJob,
		MyBids:        bids.Mine,
		GetBid:        bids.Get,
		AcceptBid:     bids.Accept,
		RejectBid:     bids.Reject,
		WithdrawBid:   bids.Withdraw,
		GetProfile:    accts.GetProfile,
		PutProfile:    accts.PutProfile,
		CreateUser:    accts.CreateUser,
	})
	return &testServer{t: t, handler: h, store: st, accounts: acct}
}

// adminKey seeds an admin directly in the store and returns a raw key.
func (s *testServer) adminKey() string {
	s.t.Helper()
	now := time.Now().UTC()
	admin := &models.User{
		ID: uuid.New(), FullName: "Root", Email: "root@bidhub.test", Role: models.RoleAdmin,
		IsVerified: true, IsActive: true, CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(s.t, s.store.CreateUser(context.Background(), admin))
	key, err := s.accounts.IssueKey(context.Background(), admin.ID, "bootstrap")
	require.NoError(s.t, err)
	return key
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Data    json.RawMessage `json:"data"`
}

func (s *testServer) call(key, method, path string, body any) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if key != "" {
		req.Header.Set("Authorization", "Bearer "+key)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	var env envelope
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	}
	return rec.Code, env
}

func (s *testServer) createUser(adminKey, role string, verified bool) string {
	s.t.Helper()
	status, env := s.call(adminKey, http.MethodPost, "/api/v1/admin/users", map[string]any{
		"full_name":   role + " user",
		"email":       uuid.NewString() + "@bidhub.test",
		"role":        role,
		"is_verified": verified,
	})
	require.Equal(s.t, http.StatusCreated, status, env.Message)
	var data struct {
		APIKey string `json:"api_key"`
	}
	require.NoError(s.t, json.Unmarshal(env.Data, &data))
	return data.APIKey
}

func idOf(t *testing.T, env envelope) string {
	t.Helper()
	var v struct {
		ID string `json:"id"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v.ID
}

// --- router tests ---

func TestRouter_HealthEndpoint_Public(t *testing.T) {
	s := newTestServer(t, 60)

	status, env := s.call("", http.MethodGet, "/api/v1/health", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.True(t, env.Success)
}

func TestRouter_ProtectedEndpoints_RequireAuth(t *testing.T) {
	s := newTestServer(t, 60)
	id := uuid.NewString()

	endpoints := []struct {
		method string
		path   string
	}{
		{"POST", "/api/v1/jobs"},
		{"GET", "/api/v1/jobs/mine"},
		{"PUT", "/api/v1/jobs/" + id},
		{"DELETE", "/api/v1/jobs/" + id},
		{"GET", "/api/v1/jobs/" + id + "/bids"},
		{"POST", "/api/v1/bids"},
		{"GET", "/api/v1/bids/my"},
		{"GET", "/api/v1/bids/" + id},
		{"PUT", "/api/v1/bids/" + id + "/accept"},
		{"PUT", "/api/v1/bids/" + id + "/reject"},
		{"DELETE", "/api/v1/bids/" + id},
		{"GET", "/api/v1/profile/worker"},
		{"POST", "/api/v1/admin/users"},
	}

	for _, ep := range endpoints {
		t.Run(ep.method+" "+ep.path, func(t *testing.T) {
			status, env := s.call("", ep.method, ep.path, nil)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, "INVALID_TOKEN", env.Code)
		})
	}
}

func TestRouter_PublicJobRoutes(t *testing.T) {
	s := newTestServer(t, 60)

	status, _ := s.call("", http.MethodGet, "/api/v1/jobs", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env := s.call("", http.MethodGet, "/api/v1/jobs/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Job not found", env.Message)
}

func TestRouter_RoleGate(t *testing.T) {
	s := newTestServer(t, 60)
	admin := s.adminKey()
	worker := s.createUser(admin, models.RoleWorker, true)

	status, env := s.call(worker, http.MethodPut, "/api/v1/bids/"+uuid.NewString()+"/accept", nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Access denied. Required role: customer", env.Message)

	unverified := s.createUser(admin, models.RoleCustomer, false)
	status, env = s.call(unverified, http.MethodPost, "/api/v1/jobs", map[string]any{})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "Please verify your phone number first.", env.Message)
}

func TestRouter_BidLifecycle(t *testing.T) {
	s := newTestServer(t, 60)
	admin := s.adminKey()
	customer := s.createUser(admin, models.RoleCustomer, true)
	workerA := s.createUser(admin, models.RoleWorker, true)
	workerB := s.createUser(admin, models.RoleWorker, true)

	status, env := s.call(customer, http.MethodPost, "/api/v1/jobs", map[string]any{
		"title":       "Fix garden fence",
		"description": "Three fence panels blew down in the storm last night.",
		"budget_min":  100,
		"budget_max":  250,
	})
	require.Equal(t, http.StatusCreated, status, env.Message)
	jobID := idOf(t, env)

	bid := func(key string, amount float64) string {
		status, env := s.call(key, http.MethodPost, "/api/v1/bids", map[string]any{
			"job_id": jobID, "bid_amount": amount, "proposal": "I have the panels in stock.",
		})
		require.Equal(t, http.StatusCreated, status, env.Message)
		return idOf(t, env)
	}

	// No profile yet.
	status, env = s.call(workerA, http.MethodPost, "/api/v1/bids", map[string]any{
		"job_id": jobID, "bid_amount": 120, "proposal": "I have the panels in stock.",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Please complete your worker profile before placing bids", env.Message)

	for _, key := range []string{workerA, workerB} {
		status, env = s.call(key, http.MethodPut, "/api/v1/profile/worker", map[string]any{"bio": "Carpenter"})
		require.Equal(t, http.StatusOK, status, env.Message)
	}
	bidA := bid(workerA, 120)
	bidB := bid(workerB, 140)

	status, _ = s.call(customer, http.MethodGet, "/api/v1/jobs/"+jobID+"/bids", nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = s.call(customer, http.MethodPut, "/api/v1/bids/"+bidA+"/accept", nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	assert.Equal(t, "Bid accepted successfully", env.Message)

	status, env = s.call(customer, http.MethodGet, "/api/v1/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, status)
	var job models.JobListing
	require.NoError(t, json.Unmarshal(env.Data, &job))
	assert.Equal(t, models.JobStatusAssigned, job.Status)
	assert.Equal(t, 2, job.BidsCount)
	assert.Zero(t, job.PendingBids)

	status, env = s.call(workerB, http.MethodDelete, "/api/v1/bids/"+bidB, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "You can only withdraw pending bids", env.Message)

	status, env = s.call(customer, http.MethodGet, "/api/v1/jobs/mine", nil)
	require.Equal(t, http.StatusOK, status)
	var mine struct {
		Jobs []models.Job `json:"jobs"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	require.Len(t, mine.Jobs, 1)
	assert.Equal(t, jobID, mine.Jobs[0].ID.String())
}

func TestRouter_RateLimit(t *testing.T) {
	s := newTestServer(t, 2)
	key := s.adminKey()

	for i := 0; i < 2; i++ {
		status, _ := s.call(key, http.MethodGet, "/api/v1/jobs/mine", nil)
		require.Equal(t, http.StatusOK, status)
	}
	status, env := s.call(key, http.MethodGet, "/api/v1/jobs/mine", nil)
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, "RATE_LIMIT_EXCEEDED", env.Code)
}

func TestRouter_NotImplemented(t *testing.T) {
	h := api.NewRouter(api.Dependencies{
		Auth:      mw.NewAuth(accounts.NewService(memstore.New())),
		RateLimit: mw.NewRateLimit(cache.NewMemoryCache(), 60),
	})

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNotImplemented, w.Code)
}

func TestRouter_NotFound(t *testing.T) {
	s := newTestServer(t, 60)

	req := httptest.NewRequest("GET", "/api/v1/nonexistent", nil)
	w := httptest.NewRecorder()
	s.handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}
