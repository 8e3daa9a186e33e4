package appointments

import (
	"context"
	"errors"
	"fmt"

	"schedcal/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// querier is the part of *pgxpool.Pool the repository uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository stores confirmed appointments and reads the employee directory.
type Repository struct {
	db querier
}

// NewRepository creates a repository over a pool or transaction.
func NewRepository(db querier) *Repository {
	return &Repository{db: db}
}

// Create inserts an appointment and returns its id.
func (r *Repository) Create(ctx context.Context, a models.Appointment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO appointments
			(form_id, candidate_name, candidate_email, candidate_id, company, university,
			 interview_stage, start_time, end_time, participants)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, a.FormID, a.CandidateName, a.CandidateEmail, a.CandidateID, a.Company, a.University,
		a.InterviewStage, a.StartTime, a.EndTime, a.Participants).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("failed to insert appointment for form %s: %w", a.FormID, err)
	}
	return id, nil
}

// GetByFormID returns the latest appointment booked from a form.
func (r *Repository) GetByFormID(ctx context.Context, formID string) (models.Appointment, error) {
	var a models.Appointment
	err := r.db.QueryRow(ctx, `
		SELECT id, form_id, candidate_name, candidate_email, candidate_id, company,
			COALESCE(university, ''), interview_stage, start_time, end_time, participants, created_at
		FROM appointments
		WHERE form_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, formID).Scan(
		&a.ID,
		&a.FormID,
		&a.CandidateName,
		&a.CandidateEmail,
		&a.CandidateID,
		&a.Company,
		&a.University,
		&a.InterviewStage,
		&a.StartTime,
		&a.EndTime,
		&a.Participants,
		&a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Appointment{}, fmt.Errorf("appointment for form %s: %w", formID, models.ErrNotFound)
	}
	if err != nil {
		return models.Appointment{}, fmt.Errorf("failed to fetch appointment for form %s: %w", formID, err)
	}
	return a, nil
}

// DeleteByFormID removes the appointments booked from a form.
func (r *Repository) DeleteByFormID(ctx context.Context, formID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM appointments WHERE form_id = $1`, formID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete appointments for form %s: %w", formID, err)
	}
	return tag.RowsAffected(), nil
}

// ListEmployees returns the employee directory ordered by name.
func (r *Repository) ListEmployees(ctx context.Context) ([]models.Employee, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, name, email, COALESCE(title, '')
		FROM employee_directory
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	defer rows.Close()

	employees := []models.Employee{}
	for rows.Next() {
		var e models.Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Email, &e.Title); err != nil {
			return nil, fmt.Errorf("failed to scan employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	return employees, nil
}
