// Package memstore is an in-memory Store used by STORE_DRIVER=memory and by
// service tests. Every transaction holds one mutex for its whole run, which
// gives the same serialization the Postgres row locks provide.
package memstore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/bidhub/internal/store"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// ErrNotificationsDisabled is returned by CreateNotification while
// FailNotifications is set.
var ErrNotificationsDisabled = errors.New("notification sink unavailable")

type data struct {
	users         map[uuid.UUID]models.User
	apiKeys       map[uuid.UUID]models.APIKey
	profiles      map[uuid.UUID]models.WorkerProfile
	jobs          map[uuid.UUID]models.Job
	bids          map[uuid.UUID]models.Bid
	bookings      map[uuid.UUID]models.Booking
	reviews       []models.Review
	notifications []models.Notification
}

func newData() data {
	return data{
		users:    make(map[uuid.UUID]models.User),
		apiKeys:  make(map[uuid.UUID]models.APIKey),
		profiles: make(map[uuid.UUID]models.WorkerProfile),
		jobs:     make(map[uuid.UUID]models.Job),
		bids:     make(map[uuid.UUID]models.Bid),
		bookings: make(map[uuid.UUID]models.Booking),
	}
}

func (d data) clone() data {
	c := newData()
	for k, v := range d.users {
		c.users[k] = v
	}
	for k, v := range d.apiKeys {
		c.apiKeys[k] = v
	}
	for k, v := range d.profiles {
		c.profiles[k] = v
	}
	for k, v := range d.jobs {
		c.jobs[k] = v
	}
	for k, v := range d.bids {
		c.bids[k] = v
	}
	for k, v := range d.bookings {
		c.bookings[k] = v
	}
	c.reviews = append([]models.Review(nil), d.reviews...)
	c.notifications = append([]models.Notification(nil), d.notifications...)
	return c
}

// Store implements store.Store in memory.
type Store struct {
	mu sync.Mutex
	d  data

	// FailNotifications makes every CreateNotification call fail.
	FailNotifications bool
}

var _ store.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{d: newData()}
}

func (s *Store) Ping(_ context.Context) error { return nil }

// WithTx runs fn under the store mutex and restores the previous state when
// fn fails or panics.
func (s *Store) WithTx(_ context.Context, fn func(tx store.Tx) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.d.clone()
	defer func() {
		if p := recover(); p != nil {
			s.d = snapshot
			panic(p)
		}
	}()

	if err := fn(&memTx{s: s}); err != nil {
		s.d = snapshot
		return err
	}
	return nil
}

// --- Users ---

func (s *Store) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.users[u.ID]; ok {
		return store.ErrDuplicateKey
	}
	for _, existing := range s.d.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return store.ErrDuplicateKey
		}
	}
	s.d.users[u.ID] = *u
	return nil
}

func (s *Store) GetUser(_ context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.d.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

// --- API keys ---

func (s *Store) GetAPIKeyByPrefix(_ context.Context, prefix string) ([]*models.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var keys []*models.APIKey
	for _, k := range s.d.apiKeys {
		if k.KeyPrefix == prefix && k.DeletedAt == nil {
			k := k
			keys = append(keys, &k)
		}
	}
	return keys, nil
}

func (s *Store) UpdateAPIKeyLastUsed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k, ok := s.d.apiKeys[id]
	if !ok {
		return nil
	}
	ts := time.Now().UTC()
	k.LastUsedAt = &ts
	k.UpdatedAt = ts
	s.d.apiKeys[id] = k
	return nil
}

func (s *Store) CreateAPIKey(_ context.Context, key *models.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.apiKeys[key.ID]; ok {
		return store.ErrDuplicateKey
	}
	s.d.apiKeys[key.ID] = *key
	return nil
}

// --- Worker profiles ---

func (s *Store) UpsertWorkerProfile(_ context.Context, p *models.WorkerProfile) (*models.WorkerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := *p
	if existing, ok := s.d.profiles[p.UserID]; ok {
		out.CreatedAt = existing.CreatedAt
		out.UpdatedAt = time.Now().UTC()
	}
	s.d.profiles[p.UserID] = out
	return &out, nil
}

func (s *Store) GetWorkerProfile(_ context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.d.profiles[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &p, nil
}

func (s *Store) GetWorkerStats(_ context.Context, workerID uuid.UUID) (*models.WorkerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.workerStats(workerID), nil
}

func (s *Store) GetWorkerStatsMany(_ context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]*models.WorkerStats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[uuid.UUID]*models.WorkerStats, len(workerIDs))
	for _, id := range workerIDs {
		out[id] = s.d.workerStats(id)
	}
	return out, nil
}

func (d data) workerStats(workerID uuid.UUID) *models.WorkerStats {
	var st models.WorkerStats
	sum := 0
	for _, r := range d.reviews {
		if r.RevieweeID == workerID {
			sum += r.Rating
			st.TotalReviews++
		}
	}
	if st.TotalReviews > 0 {
		avg := float64(sum) / float64(st.TotalReviews)
		st.Rating = &avg
	}
	for _, b := range d.bookings {
		if b.WorkerID == workerID && b.Status == models.BookingStatusCompleted {
			st.JobsCompleted++
		}
	}
	return &st
}

// --- Jobs ---

func (s *Store) CreateJob(_ context.Context, j *models.Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.d.jobs[j.ID]; ok {
		return store.ErrDuplicateKey
	}
	job := *j
	if job.Images == nil {
		job.Images = []string{}
	}
	s.d.jobs[j.ID] = job
	return nil
}

func (s *Store) GetJob(_ context.Context, id uuid.UUID) (*models.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.d.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &j, nil
}

func (s *Store) GetJobListing(_ context.Context, id uuid.UUID) (*models.JobListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	j, ok := s.d.jobs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return s.d.listing(j), nil
}

func (s *Store) ListJobs(_ context.Context, f store.JobFilter) ([]*models.JobListing, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := []*models.JobListing{}
	for _, j := range s.d.jobs {
		if !matchJob(j, f) {
			continue
		}
		matched = append(matched, s.d.listing(j))
	}
	sort.SliceStable(matched, func(a, b int) bool {
		return matched[a].CreatedAt.After(matched[b].CreatedAt)
	})

	total := len(matched)
	_, limit, offset := f.Normalize()
	if offset >= total {
		return []*models.JobListing{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return matched[offset:end], total, nil
}

func (d data) listing(j models.Job) *models.JobListing {
	l := &models.JobListing{Job: j, CustomerName: d.users[j.CustomerID].FullName}
	for _, b := range d.bids {
		if b.JobID != j.ID {
			continue
		}
		l.BidsCount++
		if b.Status == models.BidStatusPending {
			l.PendingBids++
		}
	}
	return l
}

func matchJob(j models.Job, f store.JobFilter) bool {
	switch {
	case f.CustomerID != uuid.Nil && j.CustomerID != f.CustomerID:
		return false
	case f.Status != "" && j.Status != f.Status:
		return false
	case f.City != "" && !strings.EqualFold(j.City, f.City):
		return false
	case f.Province != "" && !strings.EqualFold(j.Province, f.Province):
		return false
	case f.MinBudget != nil && j.BudgetMax < *f.MinBudget:
		return false
	case f.MaxBudget != nil && j.BudgetMin > *f.MaxBudget:
		return false
	}
	return true
}

// --- Bids ---

func (s *Store) GetBid(_ context.Context, id uuid.UUID) (*models.Bid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.d.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &b, nil
}

func (s *Store) GetBidDetail(_ context.Context, id uuid.UUID) (*models.BidDetail, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.d.bids[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	j, ok := s.d.jobs[b.JobID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &models.BidDetail{
		Bid:            b,
		JobTitle:       j.Title,
		JobDescription: j.Description,
		CustomerID:     j.CustomerID,
		WorkerName:     s.d.users[b.WorkerID].FullName,
	}, nil
}

func (s *Store) ListJobBids(_ context.Context, jobID uuid.UUID) ([]*models.JobBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.JobBid{}
	for _, b := range s.d.bidsWhere(func(b models.Bid) bool { return b.JobID == jobID }) {
		w := s.d.users[b.WorkerID]
		jb := &models.JobBid{
			Bid:         b,
			WorkerName:  w.FullName,
			WorkerEmail: w.Email,
			WorkerPhone: w.Phone,
		}
		if p, ok := s.d.profiles[b.WorkerID]; ok {
			bio := p.Bio
			jb.Bio = &bio
			jb.HourlyRate = p.HourlyRate
		}
		out = append(out, jb)
	}
	return out, nil
}

func (s *Store) ListWorkerBids(_ context.Context, f store.BidFilter) ([]*models.WorkerBid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []*models.WorkerBid{}
	for _, b := range s.d.bidsWhere(func(b models.Bid) bool {
		return b.WorkerID == f.WorkerID && (f.Status == "" || b.Status == f.Status)
	}) {
		j := s.d.jobs[b.JobID]
		c := s.d.users[j.CustomerID]
		phone := c.Phone
		out = append(out, &models.WorkerBid{
			Bid:            b,
			JobTitle:       j.Title,
			JobDescription: j.Description,
			BudgetMin:      j.BudgetMin,
			BudgetMax:      j.BudgetMax,
			Location:       j.Location,
			City:           j.City,
			Province:       j.Province,
			JobStatus:      j.Status,
			JobImages:      j.Images,
			CustomerName:   c.FullName,
			CustomerPhone:  &phone,
		})
	}
	return out, nil
}

// bidsWhere returns matching bids newest first.
func (d data) bidsWhere(keep func(models.Bid) bool) []models.Bid {
	var out []models.Bid
	for _, b := range d.bids {
		if keep(b) {
			out = append(out, b)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// --- Test helpers ---

// AddBooking inserts a booking directly, bypassing bid acceptance.
func (s *Store) AddBooking(b models.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.bookings[b.ID] = b
}

// AddReview records a review for worker stats.
func (s *Store) AddReview(r models.Review) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.d.reviews = append(s.d.reviews, r)
}

// Bookings returns the bookings for a job.
func (s *Store) Bookings(jobID uuid.UUID) []models.Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Booking
	for _, b := range s.d.bookings {
		if b.JobID == jobID {
			out = append(out, b)
		}
	}
	return out
}

// Notifications returns the notifications addressed to userID in write order.
func (s *Store) Notifications(userID uuid.UUID) []models.Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.Notification
	for _, n := range s.d.notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}
