package content

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// querier is the subset of *pgxpool.Pool used by PostgresRepository.
type querier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PostgresRepository stores appointment requests in the relational database.
type PostgresRepository struct {
	db querier
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(db querier) *PostgresRepository {
	if db == nil {
		panic("content: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

// Create inserts a new row.
func (r *PostgresRepository) Create(ctx context.Context, req *CreateAppointmentRequest) (*Appointment, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	id := uuid.New()
	query := `
		INSERT INTO appointment_requests (id, name, email, phone, preferred_date, service, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at
	`
	var createdAt time.Time
	if err := r.db.QueryRow(ctx, query,
		id,
		req.Name,
		req.Email,
		req.Phone,
		req.PreferredDate,
		req.Service,
		req.Notes,
	).Scan(&createdAt); err != nil {
		return nil, fmt.Errorf("content: insert appointment failed: %w", err)
	}

	return &Appointment{
		ID:            id.String(),
		Name:          req.Name,
		Email:         req.Email,
		Phone:         req.Phone,
		PreferredDate: req.PreferredDate,
		Service:       req.Service,
		Notes:         req.Notes,
		CreatedAt:     createdAt,
	}, nil
}

const selectAppointment = `
	SELECT id, name, email, phone, preferred_date, service, notes, created_at
	FROM appointment_requests
`

// GetByID fetches a single appointment request.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	row := r.db.QueryRow(ctx, selectAppointment+" WHERE id = $1", id)
	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("content: select appointment failed: %w", err)
	}
	return appt, nil
}

// List returns appointment requests newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListAppointmentsFilter) ([]*Appointment, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.db.Query(ctx, selectAppointment+" ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("content: list appointments failed: %w", err)
	}
	defer rows.Close()

	out := []*Appointment{}
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("content: scan appointment failed: %w", err)
		}
		out = append(out, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("content: iterate appointments failed: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var appt Appointment
	if err := row.Scan(
		&appt.ID,
		&appt.Name,
		&appt.Email,
		&appt.Phone,
		&appt.PreferredDate,
		&appt.Service,
		&appt.Notes,
		&appt.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &appt, nil
}
