package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrSlotTaken reports that the requested interval overlaps a confirmed booking.
	ErrSlotTaken      = errors.New("slot already taken")
	ErrStatusChanged  = errors.New("booking status changed")
	ErrDuplicateEntry = errors.New("duplicate entry")
)

const (
	pgUniqueViolation    = "23505"
	pgExclusionViolation = "23P01"
)

func translateConstraintError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return ErrDuplicateEntry
		case pgExclusionViolation:
			return ErrSlotTaken
		}
	}
	return err
}
