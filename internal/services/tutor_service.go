package services

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/repository"
	"github.com/ake144/e-tutor/internal/schedule"
	"github.com/jackc/pgx/v5"
)

const busySlotHorizon = 14 * 24 * time.Hour

type TutorDirectory interface {
	ListAll(ctx context.Context, filter repository.TutorListFilter) ([]models.TutorProfile, error)
	GetByID(ctx context.Context, tutorID int64) (*models.TutorProfile, error)
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
	UpdatePartial(ctx context.Context, userID int64, input repository.UpdateTutorProfileInput) (*models.TutorProfile, error)
}

type busySlotReader interface {
	ConfirmedSlotsBetween(ctx context.Context, tutorID int64, from time.Time, to time.Time) ([]schedule.Interval, error)
}

type TutorService struct {
	tutors TutorDirectory
	slots  busySlotReader
	now    func() time.Time
}

func NewTutorService(tutors TutorDirectory, slots busySlotReader) *TutorService {
	return &TutorService{
		tutors: tutors,
		slots:  slots,
		now:    time.Now,
	}
}

type TutorSearch struct {
	Subject  string
	MaxPrice float64
	Page     int
	Limit    int
}

// ListTutors ranks the filtered tutors by match score, then rating, and
// returns the requested page together with the total match count.
func (s *TutorService) ListTutors(ctx context.Context, search TutorSearch) ([]models.TutorWithScore, int, error) {
	if search.Page <= 0 || search.Limit <= 0 {
		return nil, 0, ErrInvalidInput
	}
	if search.MaxPrice < 0 {
		return nil, 0, invalidInput("maxPrice must be positive")
	}

	tutors, err := s.tutors.ListAll(ctx, repository.TutorListFilter{
		Subject:  search.Subject,
		MaxPrice: search.MaxPrice,
	})
	if err != nil {
		return nil, 0, err
	}

	ranked := make([]models.TutorWithScore, 0, len(tutors))
	for _, tutor := range tutors {
		ranked = append(ranked, models.TutorWithScore{
			TutorProfile: tutor,
			MatchScore:   calculateMatchScore(search, &tutor),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MatchScore == ranked[j].MatchScore {
			return ranked[i].Rating > ranked[j].Rating
		}
		return ranked[i].MatchScore > ranked[j].MatchScore
	})

	total := len(ranked)
	offset := (search.Page - 1) * search.Limit
	if offset >= total {
		return []models.TutorWithScore{}, total, nil
	}
	end := offset + search.Limit
	if end > total {
		end = total
	}
	return ranked[offset:end], total, nil
}

func (s *TutorService) GetTutor(ctx context.Context, tutorID int64) (*models.TutorDetail, error) {
	tutor, err := s.tutors.GetByID(ctx, tutorID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}

	from := s.now().UTC()
	busy, err := s.slots.ConfirmedSlotsBetween(ctx, tutorID, from, from.Add(busySlotHorizon))
	if err != nil {
		return nil, err
	}

	detail := &models.TutorDetail{TutorProfile: *tutor, BusySlots: make([]models.BusySlot, 0, len(busy))}
	for _, slot := range busy {
		detail.BusySlots = append(detail.BusySlots, models.BusySlot{StartTime: slot.Start, EndTime: slot.End})
	}
	return detail, nil
}

func (s *TutorService) GetOwnProfile(ctx context.Context, userID int64) (*models.TutorProfile, error) {
	profile, err := s.tutors.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return profile, nil
}

type UpdateTutorProfileInput struct {
	Bio        *string
	Subjects   *[]string
	HourlyRate *float64
}

// UpdateProfile never touches existing bookings; their price was fixed at creation.
func (s *TutorService) UpdateProfile(ctx context.Context, userID int64, input UpdateTutorProfileInput) (*models.TutorProfile, error) {
	update := repository.UpdateTutorProfileInput{}

	if input.Bio != nil {
		bio := strings.TrimSpace(*input.Bio)
		update.Bio = &bio
	}
	if input.Subjects != nil {
		subjects := cleanSubjects(*input.Subjects)
		update.Subjects = &subjects
	}
	if input.HourlyRate != nil {
		if *input.HourlyRate <= 0 {
			return nil, invalidInput("hourlyRate must be greater than zero")
		}
		update.HourlyRate = input.HourlyRate
	}
	if update.Bio == nil && update.Subjects == nil && update.HourlyRate == nil {
		return nil, invalidInput("no fields to update")
	}

	profile, err := s.tutors.UpdatePartial(ctx, userID, update)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTutorNotFound
		}
		return nil, err
	}
	return profile, nil
}

func calculateMatchScore(search TutorSearch, tutor *models.TutorProfile) int {
	score := 0

	if subject := normalize(search.Subject); subject != "" {
		for _, taught := range tutor.Subjects {
			if normalize(taught) == subject {
				score += 40
				break
			}
		}
	}
	if tutor.Rating > 4.0 {
		score += 20
	}
	if tutor.Bio != nil && strings.TrimSpace(*tutor.Bio) != "" {
		score += 10
	}
	if search.MaxPrice > 0 && tutor.HourlyRate <= search.MaxPrice {
		score += 15
	}

	return score
}

func cleanSubjects(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	cleaned := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		key := normalize(trimmed)
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		cleaned = append(cleaned, trimmed)
	}
	return cleaned
}

func normalize(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	value = strings.ReplaceAll(value, " ", "_")
	value = strings.ReplaceAll(value, "-", "_")
	return value
}
