package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/jackc/pgx/v5"
)

type TutorListFilter struct {
	Subject  string
	MaxPrice float64
}

type UpdateTutorProfileInput struct {
	Bio        *string
	Subjects   *[]string
	HourlyRate *float64
}

type TutorProfileRepository struct {
	db DBTX
}

func NewTutorProfileRepository(db DBTX) *TutorProfileRepository {
	return &TutorProfileRepository{db: db}
}

const tutorProfileSelect = `
	SELECT tp.id, tp.user_id, u.name, u.avatar_url, tp.bio, tp.subjects,
		   tp.hourly_rate::float8, tp.rating::float8, tp.created_at, tp.updated_at
	FROM tutor_profiles tp
	JOIN users u ON u.id = tp.user_id
`

func scanTutorProfile(row pgx.Row) (*models.TutorProfile, error) {
	var profile models.TutorProfile
	err := row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.Name,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.Subjects,
		&profile.HourlyRate,
		&profile.Rating,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if profile.Subjects == nil {
		profile.Subjects = []string{}
	}
	return &profile, nil
}

func (r *TutorProfileRepository) CreateDefault(ctx context.Context, userID int64) error {
	_, err := r.db.Exec(ctx, `INSERT INTO tutor_profiles (user_id, hourly_rate) VALUES ($1, $2)`, userID, models.DefaultHourlyRate)
	return translateConstraintError(err)
}

func (r *TutorProfileRepository) GetByID(ctx context.Context, tutorID int64) (*models.TutorProfile, error) {
	return scanTutorProfile(r.db.QueryRow(ctx, tutorProfileSelect+` WHERE tp.id = $1`, tutorID))
}

func (r *TutorProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	return scanTutorProfile(r.db.QueryRow(ctx, tutorProfileSelect+` WHERE tp.user_id = $1`, userID))
}

func (r *TutorProfileRepository) HourlyRate(ctx context.Context, tutorID int64) (float64, error) {
	var rate float64
	err := r.db.QueryRow(ctx, `SELECT hourly_rate::float8 FROM tutor_profiles WHERE id = $1`, tutorID).Scan(&rate)
	return rate, err
}

func (r *TutorProfileRepository) IDForUser(ctx context.Context, userID int64) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `SELECT id FROM tutor_profiles WHERE user_id = $1`, userID).Scan(&id)
	return id, err
}

func (r *TutorProfileRepository) ListAll(ctx context.Context, filter TutorListFilter) ([]models.TutorProfile, error) {
	args := []any{}
	whereParts := []string{"TRUE"}

	if subject := strings.TrimSpace(filter.Subject); subject != "" {
		args = append(args, subject)
		whereParts = append(whereParts, fmt.Sprintf(
			"EXISTS (SELECT 1 FROM unnest(tp.subjects) AS s WHERE lower(s) = lower($%d))", len(args),
		))
	}
	if filter.MaxPrice > 0 {
		args = append(args, filter.MaxPrice)
		whereParts = append(whereParts, fmt.Sprintf("tp.hourly_rate <= $%d", len(args)))
	}

	query := tutorProfileSelect + ` WHERE ` + strings.Join(whereParts, " AND ") + ` ORDER BY tp.rating DESC, tp.id ASC`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.TutorProfile, 0)
	for rows.Next() {
		profile, err := scanTutorProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *TutorProfileRepository) UpdatePartial(
	ctx context.Context,
	userID int64,
	input UpdateTutorProfileInput,
) (*models.TutorProfile, error) {
	tag, err := r.db.Exec(ctx, `
		UPDATE tutor_profiles
		SET bio = COALESCE($1, bio),
			subjects = COALESCE($2, subjects),
			hourly_rate = COALESCE($3, hourly_rate),
			updated_at = NOW()
		WHERE user_id = $4
	`, input.Bio, input.Subjects, input.HourlyRate, userID)
	if err != nil {
		return nil, err
	}
	if tag.RowsAffected() == 0 {
		return nil, pgx.ErrNoRows
	}
	return r.GetByUserID(ctx, userID)
}
