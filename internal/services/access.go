package services

import (
	"context"
	"errors"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/jackc/pgx/v5"
)

type tutorLookup interface {
	TutorIDForUser(ctx context.Context, userID int64) (int64, error)
}

func isBookingParticipant(
	ctx context.Context,
	tutors tutorLookup,
	actorID int64,
	role string,
	booking *models.Booking,
) (bool, error) {
	switch role {
	case models.RoleStudent:
		return booking.StudentID == actorID, nil
	case models.RoleTutor:
		tutorID, err := tutors.TutorIDForUser(ctx, actorID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return false, nil
			}
			return false, err
		}
		return booking.TutorID == tutorID, nil
	default:
		return false, nil
	}
}
