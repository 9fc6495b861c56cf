package services

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/ake144/e-tutor/internal/repository"
	"github.com/ake144/e-tutor/pkg/utils"
	"github.com/jackc/pgx/v5"
)

const (
	minPasswordLength = 8
	resetTokenTTL     = time.Hour
)

type AccountCreator interface {
	CreateAccount(ctx context.Context, user *models.User) error
}

type UserStore interface {
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByResetToken(ctx context.Context, token string, now time.Time) (*models.User, error)
	SetResetToken(ctx context.Context, userID int64, token string, expiry time.Time) error
	ResetPassword(ctx context.Context, userID int64, passwordHash string) error
}

type tutorProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.TutorProfile, error)
}

type AuthService struct {
	accounts  AccountCreator
	users     UserStore
	tutors    tutorProfileReader
	blacklist *utils.TokenBlacklist
	jwtSecret string
	tokenTTL  time.Duration
	appURL    string
	now       func() time.Time
}

func NewAuthService(
	accounts AccountCreator,
	users UserStore,
	tutors tutorProfileReader,
	blacklist *utils.TokenBlacklist,
	jwtSecret string,
	tokenTTL time.Duration,
	appURL string,
) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = utils.DefaultTokenTTL
	}
	return &AuthService{
		accounts:  accounts,
		users:     users,
		tutors:    tutors,
		blacklist: blacklist,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		appURL:    strings.TrimRight(appURL, "/"),
		now:       time.Now,
	}
}

type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     string
}

type AuthResult struct {
	User  *models.User
	Token string
}

type AccountView struct {
	User         *models.User         `json:"user"`
	TutorProfile *models.TutorProfile `json:"tutorProfile,omitempty"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, invalidInput("name is required")
	}
	if len(input.Password) < minPasswordLength {
		return nil, invalidInput("password must be at least %d characters", minPasswordLength)
	}
	role := input.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && role != models.RoleTutor {
		return nil, invalidInput("invalid role")
	}

	hashed, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Name:         name,
		Email:        email,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := s.accounts.CreateAccount(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	slog.InfoContext(ctx, "user registered", "user_id", user.ID, "role", user.Role)
	return s.issue(user)
}

func (s *AuthService) Login(ctx context.Context, email string, password string) (*AuthResult, error) {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !utils.CheckPassword(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return s.issue(user)
}

func (s *AuthService) Me(ctx context.Context, userID int64) (*AccountView, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	view := &AccountView{User: user}
	if user.Role == models.RoleTutor {
		profile, err := s.tutors.GetByUserID(ctx, userID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		view.TutorProfile = profile
	}
	return view, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *AuthService) Logout(claims *utils.Claims) {
	if claims == nil || s.blacklist == nil {
		return
	}
	expiresAt := s.now().Add(s.tokenTTL)
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	s.blacklist.Revoke(claims.ID, expiresAt)
}

// ForgotPassword is silent for unknown emails so callers cannot enumerate accounts.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	normalized, err := normalizeEmail(email)
	if err != nil {
		return err
	}

	user, err := s.users.GetByEmail(ctx, normalized)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}

	token, err := utils.GenerateResetToken()
	if err != nil {
		return err
	}
	if err := s.users.SetResetToken(ctx, user.ID, token, s.now().Add(resetTokenTTL)); err != nil {
		return err
	}

	// email delivery is handled outside this service
	slog.InfoContext(ctx, "password reset requested",
		"user_id", user.ID, "reset_link", s.appURL+"/reset-password?token="+token)
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token string, password string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return ErrInvalidResetToken
	}
	if len(password) < minPasswordLength {
		return invalidInput("password must be at least %d characters", minPasswordLength)
	}

	user, err := s.users.GetByResetToken(ctx, token, s.now())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidResetToken
		}
		return err
	}

	hashed, err := utils.HashPassword(password)
	if err != nil {
		return err
	}
	if err := s.users.ResetPassword(ctx, user.ID, hashed); err != nil {
		return err
	}

	slog.InfoContext(ctx, "password reset", "user_id", user.ID)
	return nil
}

func (s *AuthService) issue(user *models.User) (*AuthResult, error) {
	token, err := utils.GenerateTokenWithTTL(strconv.FormatInt(user.ID, 10), user.Role, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	return &AuthResult{User: user, Token: token}, nil
}

func normalizeEmail(raw string) (string, error) {
	parsed, err := mail.ParseAddress(strings.TrimSpace(raw))
	if err != nil {
		return "", invalidInput("invalid email format")
	}
	return strings.ToLower(parsed.Address), nil
}
