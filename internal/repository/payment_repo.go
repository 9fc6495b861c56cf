package repository

import (
	"context"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type CreatePaymentInput struct {
	BookingID uuid.UUID
	Reference string
	Provider  string
	Amount    float64
	Status    string
}

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

const paymentColumns = `id, booking_id, reference, provider, amount::float8, status, created_at`

func scanPayment(row pgx.Row) (*models.Payment, error) {
	var payment models.Payment
	err := row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.Reference,
		&payment.Provider,
		&payment.Amount,
		&payment.Status,
		&payment.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := `
		INSERT INTO payments (booking_id, reference, provider, amount, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + paymentColumns
	payment, err := scanPayment(r.db.QueryRow(
		ctx,
		query,
		input.BookingID,
		input.Reference,
		input.Provider,
		input.Amount,
		input.Status,
	))
	if err != nil {
		return nil, translateConstraintError(err)
	}
	return payment, nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID uuid.UUID) (*models.Payment, error) {
	query := `
		SELECT ` + paymentColumns + `
		FROM payments
		WHERE booking_id = $1
		ORDER BY id DESC
		LIMIT 1
	`
	return scanPayment(r.db.QueryRow(ctx, query, bookingID))
}

func (r *PaymentRepository) GetByReference(ctx context.Context, reference string) (*models.Payment, error) {
	return scanPayment(r.db.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE reference = $1`, reference))
}

func (r *PaymentRepository) ListByBookingIDs(ctx context.Context, bookingIDs []uuid.UUID) (map[uuid.UUID]models.Payment, error) {
	payments := make(map[uuid.UUID]models.Payment, len(bookingIDs))
	if len(bookingIDs) == 0 {
		return payments, nil
	}

	query := `
		SELECT DISTINCT ON (booking_id) ` + paymentColumns + `
		FROM payments
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, id DESC
	`

	rows, err := r.db.Query(ctx, query, bookingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		payment, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments[payment.BookingID] = *payment
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}
