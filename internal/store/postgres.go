package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// psql builds Postgres statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

const (
	userColumns = `id, full_name, email, phone, role, is_verified, is_active, created_at, updated_at`
	jobColumns  = `id, customer_id, title, description, budget_min, budget_max, location, city, province, images, status, created_at, updated_at`
	bidColumns  = `id, job_id, worker_id, amount, proposal, estimated_duration, status, created_at, updated_at`
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(context.Background())
			panic(p)
		}
	}()

	if err := fn(&pgTx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			slog.Warn("transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// --- Users ---

func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.FullName, u.Email, u.Phone, u.Role, u.IsVerified, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var u models.User
	err := s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.FullName, &u.Email, &u.Phone, &u.Role, &u.IsVerified, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// --- API Keys ---

func (s *PostgresStore) GetAPIKeyByPrefix(ctx context.Context, prefix string) ([]*models.APIKey, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, name, key_hash, key_prefix, last_used_at, deleted_at, created_at, updated_at
		 FROM api_keys WHERE key_prefix = $1 AND deleted_at IS NULL`, prefix)
	if err != nil {
		return nil, fmt.Errorf("get api key by prefix: %w", err)
	}
	defer rows.Close()

	var keys []*models.APIKey
	for rows.Next() {
		var k models.APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyHash, &k.KeyPrefix,
			&k.LastUsedAt, &k.DeletedAt, &k.CreatedAt, &k.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, &k)
	}
	return keys, rows.Err()
}

func (s *PostgresStore) UpdateAPIKeyLastUsed(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = NOW(), updated_at = NOW() WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("update api key last used: %w", err)
	}
	return nil
}

func (s *PostgresStore) CreateAPIKey(ctx context.Context, key *models.APIKey) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO api_keys (id, user_id, name, key_hash, key_prefix, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.UserID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create api key: %w", err)
	}
	return nil
}

// --- Worker Profiles ---

func (s *PostgresStore) UpsertWorkerProfile(ctx context.Context, p *models.WorkerProfile) (*models.WorkerProfile, error) {
	var out models.WorkerProfile
	err := s.pool.QueryRow(ctx,
		`INSERT INTO worker_profiles (user_id, bio, hourly_rate, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (user_id) DO UPDATE SET
		   bio = EXCLUDED.bio,
		   hourly_rate = EXCLUDED.hourly_rate,
		   updated_at = NOW()
		 RETURNING user_id, bio, hourly_rate, created_at, updated_at`,
		p.UserID, p.Bio, p.HourlyRate, p.CreatedAt, p.UpdatedAt,
	).Scan(&out.UserID, &out.Bio, &out.HourlyRate, &out.CreatedAt, &out.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("upsert worker profile: %w", err)
	}
	return &out, nil
}

func (s *PostgresStore) GetWorkerProfile(ctx context.Context, userID uuid.UUID) (*models.WorkerProfile, error) {
	var p models.WorkerProfile
	err := s.pool.QueryRow(ctx,
		`SELECT user_id, bio, hourly_rate, created_at, updated_at FROM worker_profiles WHERE user_id = $1`, userID,
	).Scan(&p.UserID, &p.Bio, &p.HourlyRate, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get worker profile: %w", err)
	}
	return &p, nil
}

func (s *PostgresStore) GetWorkerStats(ctx context.Context, workerID uuid.UUID) (*models.WorkerStats, error) {
	var st models.WorkerStats
	err := s.pool.QueryRow(ctx,
		`SELECT
		   (SELECT AVG(rating)::float8 FROM reviews WHERE reviewee_id = $1),
		   (SELECT COUNT(*) FROM reviews WHERE reviewee_id = $1),
		   (SELECT COUNT(*) FROM bookings WHERE worker_id = $1 AND status = 'completed')`, workerID,
	).Scan(&st.Rating, &st.TotalReviews, &st.JobsCompleted)
	if err != nil {
		return nil, fmt.Errorf("get worker stats: %w", err)
	}
	return &st, nil
}

func (s *PostgresStore) GetWorkerStatsMany(ctx context.Context, workerIDs []uuid.UUID) (map[uuid.UUID]*models.WorkerStats, error) {
	out := make(map[uuid.UUID]*models.WorkerStats, len(workerIDs))
	if len(workerIDs) == 0 {
		return out, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT w.id,
		   (SELECT AVG(rating)::float8 FROM reviews WHERE reviewee_id = w.id),
		   (SELECT COUNT(*) FROM reviews WHERE reviewee_id = w.id),
		   (SELECT COUNT(*) FROM bookings WHERE worker_id = w.id AND status = 'completed')
		 FROM (SELECT DISTINCT unnest($1::uuid[]) AS id) w`, workerIDs)
	if err != nil {
		return nil, fmt.Errorf("get worker stats many: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id uuid.UUID
		var st models.WorkerStats
		if err := rows.Scan(&id, &st.Rating, &st.TotalReviews, &st.JobsCompleted); err != nil {
			return nil, fmt.Errorf("scan worker stats: %w", err)
		}
		out[id] = &st
	}
	return out, rows.Err()
}

// --- Jobs ---

func (s *PostgresStore) CreateJob(ctx context.Context, j *models.Job) error {
	images := j.Images
	if images == nil {
		images = []string{}
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO jobs (`+jobColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		j.ID, j.CustomerID, j.Title, j.Description, j.BudgetMin, j.BudgetMax,
		j.Location, j.City, j.Province, images, j.Status, j.CreatedAt, j.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	j, err := scanJob(s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return j, nil
}

// jobListingQuery selects jobs joined with their poster and bid counts.
func jobListingQuery() sq.SelectBuilder {
	return psql.Select(
		"j.id", "j.customer_id", "j.title", "j.description", "j.budget_min", "j.budget_max",
		"j.location", "j.city", "j.province", "j.images", "j.status", "j.created_at", "j.updated_at",
		"COALESCE(u.full_name, '')",
		"(SELECT COUNT(*) FROM bids b WHERE b.job_id = j.id)",
		"(SELECT COUNT(*) FROM bids b WHERE b.job_id = j.id AND b.status = 'pending')",
	).
		From("jobs j").
		LeftJoin("users u ON j.customer_id = u.id")
}

func (s *PostgresStore) GetJobListing(ctx context.Context, id uuid.UUID) (*models.JobListing, error) {
	query, args, err := jobListingQuery().Where(sq.Eq{"j.id": id}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build job listing query: %w", err)
	}
	j, err := scanJobListing(s.pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job listing: %w", err)
	}
	return j, nil
}

func (s *PostgresStore) ListJobs(ctx context.Context, filter JobFilter) ([]*models.JobListing, int, error) {
	where := sq.And{}
	if filter.CustomerID != uuid.Nil {
		where = append(where, sq.Eq{"j.customer_id": filter.CustomerID})
	}
	if filter.Status != "" {
		where = append(where, sq.Eq{"j.status": filter.Status})
	}
	if filter.City != "" {
		where = append(where, sq.Expr("LOWER(j.city) = LOWER(?)", filter.City))
	}
	if filter.Province != "" {
		where = append(where, sq.Expr("LOWER(j.province) = LOWER(?)", filter.Province))
	}
	if filter.MinBudget != nil {
		where = append(where, sq.GtOrEq{"j.budget_max": *filter.MinBudget})
	}
	if filter.MaxBudget != nil {
		where = append(where, sq.LtOrEq{"j.budget_min": *filter.MaxBudget})
	}

	countQ := psql.Select("COUNT(*)").From("jobs j")
	dataQ := jobListingQuery()
	if len(where) > 0 {
		countQ = countQ.Where(where)
		dataQ = dataQ.Where(where)
	}

	countSQL, countArgs, err := countQ.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build job count query: %w", err)
	}
	var total int
	if err := s.pool.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	_, limit, offset := filter.Normalize()
	dataSQL, dataArgs, err := dataQ.
		OrderBy("j.created_at DESC").
		Limit(uint64(limit)).
		Offset(uint64(offset)).
		ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build job list query: %w", err)
	}

	rows, err := s.pool.Query(ctx, dataSQL, dataArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []*models.JobListing{}
	for rows.Next() {
		j, err := scanJobListing(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, total, rows.Err()
}

// --- Bids ---

func (s *PostgresStore) GetBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	b, err := scanBid(s.pool.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bid: %w", err)
	}
	return b, nil
}

func (s *PostgresStore) GetBidDetail(ctx context.Context, id uuid.UUID) (*models.BidDetail, error) {
	var d models.BidDetail
	err := s.pool.QueryRow(ctx,
		`SELECT b.id, b.job_id, b.worker_id, b.amount, b.proposal, b.estimated_duration, b.status,
		        b.created_at, b.updated_at, j.title, j.description, j.customer_id, u.full_name
		 FROM bids b
		 JOIN jobs j ON b.job_id = j.id
		 JOIN users u ON b.worker_id = u.id
		 WHERE b.id = $1`, id,
	).Scan(&d.ID, &d.JobID, &d.WorkerID, &d.Amount, &d.Proposal, &d.EstimatedDuration, &d.Status,
		&d.CreatedAt, &d.UpdatedAt, &d.JobTitle, &d.JobDescription, &d.CustomerID, &d.WorkerName)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get bid detail: %w", err)
	}
	return &d, nil
}

func (s *PostgresStore) ListJobBids(ctx context.Context, jobID uuid.UUID) ([]*models.JobBid, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT b.id, b.job_id, b.worker_id, b.amount, b.proposal, b.estimated_duration, b.status,
		        b.created_at, b.updated_at, u.full_name, u.email, u.phone, wp.bio, wp.hourly_rate
		 FROM bids b
		 JOIN users u ON b.worker_id = u.id
		 LEFT JOIN worker_profiles wp ON b.worker_id = wp.user_id
		 WHERE b.job_id = $1
		 ORDER BY b.created_at DESC`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list job bids: %w", err)
	}
	defer rows.Close()

	bids := []*models.JobBid{}
	for rows.Next() {
		var b models.JobBid
		if err := rows.Scan(&b.ID, &b.JobID, &b.WorkerID, &b.Amount, &b.Proposal, &b.EstimatedDuration,
			&b.Status, &b.CreatedAt, &b.UpdatedAt, &b.WorkerName, &b.WorkerEmail, &b.WorkerPhone,
			&b.Bio, &b.HourlyRate); err != nil {
			return nil, fmt.Errorf("scan job bid: %w", err)
		}
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

func (s *PostgresStore) ListWorkerBids(ctx context.Context, filter BidFilter) ([]*models.WorkerBid, error) {
	q := psql.Select(
		"b.id", "b.job_id", "b.worker_id", "b.amount", "b.proposal", "b.estimated_duration", "b.status",
		"b.created_at", "b.updated_at",
		"j.title", "j.description", "j.budget_min", "j.budget_max", "j.location", "j.city", "j.province",
		"j.status", "j.images", "u.full_name", "u.phone",
	).
		From("bids b").
		Join("jobs j ON b.job_id = j.id").
		Join("users u ON j.customer_id = u.id").
		Where(sq.Eq{"b.worker_id": filter.WorkerID})
	if filter.Status != "" {
		q = q.Where(sq.Eq{"b.status": filter.Status})
	}

	query, args, err := q.OrderBy("b.created_at DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build worker bids query: %w", err)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list worker bids: %w", err)
	}
	defer rows.Close()

	bids := []*models.WorkerBid{}
	for rows.Next() {
		var b models.WorkerBid
		var phone string
		if err := rows.Scan(&b.ID, &b.JobID, &b.WorkerID, &b.Amount, &b.Proposal, &b.EstimatedDuration,
			&b.Status, &b.CreatedAt, &b.UpdatedAt,
			&b.JobTitle, &b.JobDescription, &b.BudgetMin, &b.BudgetMax, &b.Location, &b.City, &b.Province,
			&b.JobStatus, &b.JobImages, &b.CustomerName, &phone); err != nil {
			return nil, fmt.Errorf("scan worker bid: %w", err)
		}
		b.CustomerPhone = &phone
		bids = append(bids, &b)
	}
	return bids, rows.Err()
}

// --- scanning ---

func scanJob(row pgx.Row) (*models.Job, error) {
	var j models.Job
	err := row.Scan(&j.ID, &j.CustomerID, &j.Title, &j.Description, &j.BudgetMin, &j.BudgetMax,
		&j.Location, &j.City, &j.Province, &j.Images, &j.Status, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanJobListing(row pgx.Row) (*models.JobListing, error) {
	var j models.JobListing
	err := row.Scan(&j.ID, &j.CustomerID, &j.Title, &j.Description, &j.BudgetMin, &j.BudgetMax,
		&j.Location, &j.City, &j.Province, &j.Images, &j.Status, &j.CreatedAt, &j.UpdatedAt,
		&j.CustomerName, &j.BidsCount, &j.PendingBids)
	if err != nil {
		return nil, err
	}
	return &j, nil
}

func scanBid(row pgx.Row) (*models.Bid, error) {
	var b models.Bid
	err := row.Scan(&b.ID, &b.JobID, &b.WorkerID, &b.Amount, &b.Proposal, &b.EstimatedDuration,
		&b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}
