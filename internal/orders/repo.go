package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptRepo stores payment attempts created through the BFF.
type AttemptRepo struct{ DB *pgxpool.Pool }

var ErrAttemptNotFound = errors.New("payment attempt not found")

const attemptColumns = `id, external_id, username, reference_id, channel_code, descriptor,
	action_value, status, total_amount, created_at, updated_at`

func scanAttempt(row pgx.Row) (Attempt, error) {
	var a Attempt
	var status string
	err := row.Scan(&a.ID, &a.ExternalID, &a.Username, &a.ReferenceID, &a.ChannelCode, &a.Descriptor,
		&a.ActionValue, &status, &a.TotalAmount, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	a.Status = PaymentStatus(status)
	return a, err
}

// FindByExternalID: lookup by idempotency key, milik username saja.
func (r *AttemptRepo) FindByExternalID(ctx context.Context, username, externalID string) (Attempt, error) {
	return scanAttempt(r.DB.QueryRow(ctx,
		`SELECT `+attemptColumns+` FROM payment_attempts WHERE username=$1 AND external_id=$2`, username, externalID))
}

// Save inserts a; when (username, external_id) already exists the stored row
// wins and is returned with existed=true.
func (r *AttemptRepo) Save(ctx context.Context, a Attempt) (saved Attempt, existed bool, err error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	row := r.DB.QueryRow(ctx, `
		INSERT INTO payment_attempts(id, external_id, username, reference_id, channel_code, descriptor,
			action_value, status, total_amount)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (username, external_id) DO NOTHING
		RETURNING `+attemptColumns,
		a.ID, a.ExternalID, a.Username, a.ReferenceID, a.ChannelCode, a.Descriptor,
		a.ActionValue, string(a.Status), a.TotalAmount)
	saved, err = scanAttempt(row)
	if errors.Is(err, ErrAttemptNotFound) {
		// conflict -> ambil row yang sudah ada
		saved, err = r.FindByExternalID(ctx, a.Username, a.ExternalID)
		return saved, err == nil, err
	}
	return saved, false, err
}

// UpdateStatus moves a non-terminal attempt to status. Terminal rows are left
// untouched; updated reports whether a row changed.
func (r *AttemptRepo) UpdateStatus(ctx context.Context, referenceID string, status PaymentStatus) (updated bool, err error) {
	ct, err := r.DB.Exec(ctx, `
		UPDATE payment_attempts SET status=$2, updated_at=now()
		WHERE reference_id=$1 AND status NOT IN ('SUCCEEDED','FAILED','CANCELED','EXPIRED')`,
		referenceID, string(status))
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}
