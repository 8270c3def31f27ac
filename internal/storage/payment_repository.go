package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/id-scanner/internal/models"
	"github.com/id-scanner/internal/types"
	"github.com/jackc/pgx/v5"
)

const paymentColumns = `id, user_id, plan, amount, currency, method, status, reference, redirect_url, created_at`

// PaymentRepository stores the payment history
type PaymentRepository struct {
	db *PostgresDB
}

// NewPaymentRepository creates a new payment repository
func NewPaymentRepository(db *PostgresDB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// Create stores a payment, assigning its ID and creation time
func (r *PaymentRepository) Create(ctx context.Context, p *models.Payment) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now().UTC()

	_, err := r.db.Pool().Exec(ctx, `
		INSERT INTO payments (`+paymentColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.UserID, string(p.Plan), p.Amount, p.Currency, p.Method,
		p.Status, p.Reference, p.RedirectURL, p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create payment: %w", err)
	}
	return nil
}

// UpdateStatus sets the status of payment id
func (r *PaymentRepository) UpdateStatus(ctx context.Context, id, status string) error {
	tag, err := r.db.Pool().Exec(ctx, `UPDATE payments SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("payment not found: %s", id)
	}
	return nil
}

// GetByID returns payment id, or nil when it does not exist
func (r *PaymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	p, err := scanPayment(r.db.Pool().QueryRow(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	return p, nil
}

// ListByUser returns the payments of userID, newest first
func (r *PaymentRepository) ListByUser(ctx context.Context, userID string) ([]*models.Payment, error) {
	rows, err := r.db.Pool().Query(ctx,
		`SELECT `+paymentColumns+` FROM payments WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	defer rows.Close()

	payments := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return payments, nil
}

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var p models.Payment
	var plan string
	err := row.Scan(&p.ID, &p.UserID, &plan, &p.Amount, &p.Currency, &p.Method,
		&p.Status, &p.Reference, &p.RedirectURL, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Plan = types.Plan(plan)
	return &p, nil
}
