package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	gofakeit "github.com/brianvoe/gofakeit/v7"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/accounts"
	"github.com/kiranshivaraju/bidhub/internal/api/handler"
	mw "github.com/kiranshivaraju/bidhub/internal/api/middleware"
	"github.com/kiranshivaraju/bidhub/internal/bidding"
	"github.com/kiranshivaraju/bidhub/internal/cache"
	"github.com/kiranshivaraju/bidhub/internal/jobs"
	"github.com/kiranshivaraju/bidhub/internal/store/memstore"
	"github.com/kiranshivaraju/bidhub/pkg/models"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fixture struct {
	t      *testing.T
	store  *memstore.Store
	router chi.Router
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := memstore.New()
	bids := handler.NewBids(bidding.NewService(st, cache.NewMemoryCache(), time.Minute))
	js := handler.NewJobs(jobs.NewService(st))
	accts := handler.NewAccounts(accounts.NewService(st).WithHashCost(bcrypt.MinCost))

	r := chi.NewRouter()
	r.Post("/bids", bids.Place)
	r.Get("/bids/my", bids.Mine)
	r.Get("/bids/{bidID}", bids.Get)
	r.Put("/bids/{bidID}/accept", bids.Accept)
	r.Put("/bids/{bidID}/reject", bids.Reject)
	r.Delete("/bids/{bidID}", bids.Withdraw)
	r.Get("/jobs", js.List)
	r.Post("/jobs", js.Create)
	r.Get("/jobs/mine", js.Mine)
	r.Get("/jobs/{jobID}", js.Get)
	r.Put("/jobs/{jobID}", js.Update)
	r.Delete("/jobs/{jobID}", js.Cancel)
	r.Get("/jobs/{jobID}/bids", bids.ListForJob)
	r.Get("/profile/worker", accts.GetProfile)
	r.Put("/profile/worker", accts.PutProfile)
	r.Post("/admin/users", accts.CreateUser)

	return &fixture{t: t, store: st, router: r}
}

func (f *fixture) user(role string) models.Principal {
	f.t.Helper()
	now := time.Now().UTC()
	u := &models.User{
		ID:         uuid.New(),
		FullName:   gofakeit.Name(),
		Email:      gofakeit.Email(),
		Phone:      gofakeit.Phone(),
		Role:       role,
		IsVerified: true,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	require.NoError(f.t, f.store.CreateUser(context.Background(), u))
	return u.Principal()
}

func (f *fixture) worker() models.Principal {
	f.t.Helper()
	p := f.user(models.RoleWorker)
	now := time.Now().UTC()
	_, err := f.store.UpsertWorkerProfile(context.Background(), &models.WorkerProfile{
		UserID: p.ID, Bio: gofakeit.Blurb(), CreatedAt: now, UpdatedAt: now,
	})
	require.NoError(f.t, err)
	return p
}

func (f *fixture) job(customer models.Principal) *models.Job {
	f.t.Helper()
	now := time.Now().UTC()
	j := &models.Job{
		ID:          uuid.New(),
		CustomerID:  customer.ID,
		Title:       "Paint two bedrooms",
		Description: "Two bedrooms need a fresh coat of white paint, walls only.",
		BudgetMin:   200,
		BudgetMax:   400,
		City:        gofakeit.City(),
		Images:      []string{},
		Status:      models.JobStatusOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(f.t, f.store.CreateJob(context.Background(), j))
	return j
}

// placeBid places a bid through the API and returns its id.
func (f *fixture) placeBid(worker models.Principal, job *models.Job, amount float64) uuid.UUID {
	f.t.Helper()
	rec := f.do(worker, http.MethodPost, "/bids", map[string]any{
		"job_id":     job.ID,
		"bid_amount": amount,
		"proposal":   "Experienced painter, can start Monday.",
	})
	require.Equal(f.t, http.StatusCreated, rec.Code, rec.Body.String())
	var bid models.Bid
	decodeData(f.t, rec, &bid)
	return bid.ID
}

// do serves a request as p. A zero principal sends the request anonymously.
func (f *fixture) do(p models.Principal, method, path string, body any) *httptest.ResponseRecorder {
	f.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(f.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if p.ID != uuid.Nil {
		req = req.WithContext(mw.SetPrincipal(req.Context(), p))
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Code    string          `json:"code"`
	Total   *int            `json:"total"`
	Data    json.RawMessage `json:"data"`
}

func parse(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return env
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) envelope {
	t.Helper()
	env := parse(t, rec)
	require.NoError(t, json.Unmarshal(env.Data, dst))
	return env
}
