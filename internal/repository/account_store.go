package repository

import (
	"context"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

type AccountStore struct {
	db *pgxpool.Pool
}

func NewAccountStore(db *pgxpool.Pool) *AccountStore {
	return &AccountStore{db: db}
}

// CreateAccount inserts the user and, for tutors, a default profile in one transaction.
func (s *AccountStore) CreateAccount(ctx context.Context, user *models.User) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if err := NewUserRepository(tx).CreateUser(ctx, user); err != nil {
		return err
	}
	if user.Role == models.RoleTutor {
		if err := NewTutorProfileRepository(tx).CreateDefault(ctx, user.ID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}
