package repository

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type SessionListFilter struct {
	Tutor   string
	Student string
}

// ParticipantKey renders a numeric id the way lesson sessions reference tutors and students.
func ParticipantKey(id int64) string {
	return strconv.FormatInt(id, 10)
}

// SessionRepository stores dated occurrences of recurring lesson contracts.
type SessionRepository struct {
	db DBTX
}

func NewSessionRepository(db DBTX) *SessionRepository {
	return &SessionRepository{db: db}
}

const sessionColumns = `id, tutor, student, to_char(session_date, 'YYYY-MM-DD'), session_time, created_at`

func scanSession(row pgx.Row) (*models.Session, error) {
	var session models.Session
	err := row.Scan(
		&session.ID,
		&session.Tutor,
		&session.Student,
		&session.Date,
		&session.Time,
		&session.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// CreateBatch inserts every session in one round trip and fills CreatedAt.
func (r *SessionRepository) CreateBatch(ctx context.Context, sessions []models.Session) error {
	if len(sessions) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, session := range sessions {
		batch.Queue(`
			INSERT INTO lesson_sessions (id, tutor, student, session_date, session_time)
			VALUES ($1, $2, $3, $4::date, $5)
			RETURNING created_at
		`, session.ID, session.Tutor, session.Student, session.Date, session.Time)
	}

	results := r.db.SendBatch(ctx, batch)
	for i := range sessions {
		if err := results.QueryRow().Scan(&sessions[i].CreatedAt); err != nil {
			_ = results.Close()
			return fmt.Errorf("insert session %s: %w", sessions[i].ID, translateConstraintError(err))
		}
	}
	return results.Close()
}

func (r *SessionRepository) GetByID(ctx context.Context, sessionID uuid.UUID) (*models.Session, error) {
	return scanSession(r.db.QueryRow(ctx, `SELECT `+sessionColumns+` FROM lesson_sessions WHERE id = $1`, sessionID))
}

func (r *SessionRepository) List(ctx context.Context, filter SessionListFilter) ([]models.Session, error) {
	args := []any{}
	orParts := []string{}
	if tutor := strings.TrimSpace(filter.Tutor); tutor != "" {
		args = append(args, tutor)
		orParts = append(orParts, fmt.Sprintf("tutor = $%d", len(args)))
	}
	if student := strings.TrimSpace(filter.Student); student != "" {
		args = append(args, student)
		orParts = append(orParts, fmt.Sprintf("student = $%d", len(args)))
	}
	if len(orParts) == 0 {
		return []models.Session{}, nil
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM lesson_sessions
		WHERE %s
		ORDER BY session_date ASC, created_at ASC
	`, sessionColumns, strings.Join(orParts, " OR "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := make([]models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *session)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return sessions, nil
}
