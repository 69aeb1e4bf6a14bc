package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/kiranshivaraju/bidhub/pkg/models"
)

// pgTx implements Tx on top of a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockJob(ctx context.Context, id uuid.UUID, mode LockMode) (*models.Job, error) {
	lock := "FOR SHARE"
	if mode == LockUpdate {
		lock = "FOR UPDATE"
	}
	j, err := scanJob(t.tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 `+lock, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock job: %w", err)
	}
	return j, nil
}

func (t *pgTx) UpdateJob(ctx context.Context, j *models.Job) error {
	tag, err := t.tx.Exec(ctx,
		`UPDATE jobs SET title = $2, description = $3, budget_min = $4, budget_max = $5, updated_at = NOW()
		 WHERE id = $1`,
		j.ID, j.Title, j.Description, j.BudgetMin, j.BudgetMax)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) SetJobStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE jobs SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("set job status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) LockBid(ctx context.Context, id uuid.UUID) (*models.Bid, error) {
	b, err := scanBid(t.tx.QueryRow(ctx, `SELECT `+bidColumns+` FROM bids WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock bid: %w", err)
	}
	return b, nil
}

func (t *pgTx) FindBid(ctx context.Context, jobID, workerID uuid.UUID) (*models.Bid, error) {
	b, err := scanBid(t.tx.QueryRow(ctx,
		`SELECT `+bidColumns+` FROM bids WHERE job_id = $1 AND worker_id = $2`, jobID, workerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find bid: %w", err)
	}
	return b, nil
}

func (t *pgTx) CountBids(ctx context.Context, jobID uuid.UUID, status string) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx,
		`SELECT COUNT(*) FROM bids WHERE job_id = $1 AND status = $2`, jobID, status).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count bids: %w", err)
	}
	return n, nil
}

func (t *pgTx) CreateBid(ctx context.Context, b *models.Bid) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO bids (`+bidColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		b.ID, b.JobID, b.WorkerID, b.Amount, b.Proposal, b.EstimatedDuration, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create bid: %w", err)
	}
	return nil
}

func (t *pgTx) SetBidStatus(ctx context.Context, id uuid.UUID, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE bids SET status = $2, updated_at = NOW() WHERE id = $1`, id, status)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("set bid status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) RejectPendingBids(ctx context.Context, jobID, exceptID uuid.UUID) ([]*models.Bid, error) {
	rows, err := t.tx.Query(ctx,
		`UPDATE bids SET status = 'rejected', updated_at = NOW()
		 WHERE job_id = $1 AND id <> $2 AND status = 'pending'
		 RETURNING `+bidColumns, jobID, exceptID)
	if err != nil {
		return nil, fmt.Errorf("reject pending bids: %w", err)
	}
	defer rows.Close()

	var rejected []*models.Bid
	for rows.Next() {
		b, err := scanBid(rows)
		if err != nil {
			return nil, fmt.Errorf("scan rejected bid: %w", err)
		}
		rejected = append(rejected, b)
	}
	return rejected, rows.Err()
}

func (t *pgTx) DeleteBid(ctx context.Context, id uuid.UUID) error {
	tag, err := t.tx.Exec(ctx, `DELETE FROM bids WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete bid: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (t *pgTx) HasWorkerProfile(ctx context.Context, userID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM worker_profiles WHERE user_id = $1)`, userID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check worker profile: %w", err)
	}
	return exists, nil
}

func (t *pgTx) CreateBooking(ctx context.Context, b *models.Booking) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO bookings (id, job_id, customer_id, worker_id, agreed_price, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		b.ID, b.JobID, b.CustomerID, b.WorkerID, b.AgreedPrice, b.Status, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (t *pgTx) HasActiveBooking(ctx context.Context, jobID uuid.UUID) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM bookings WHERE job_id = $1 AND status IN ('confirmed', 'in_progress'))`,
		jobID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check active booking: %w", err)
	}
	return exists, nil
}

// CreateNotification writes inside a savepoint so a failed insert leaves the
// outer transaction usable.
func (t *pgTx) CreateNotification(ctx context.Context, n *models.Notification) error {
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin notification savepoint: %w", err)
	}
	_, err = sp.Exec(ctx,
		`INSERT INTO notifications (id, user_id, type, title, message, related_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		n.ID, n.UserID, n.Type, n.Title, n.Message, n.RelatedID, n.CreatedAt)
	if err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("create notification: %w", err)
	}
	if err := sp.Commit(ctx); err != nil {
		return fmt.Errorf("release notification savepoint: %w", err)
	}
	return nil
}
