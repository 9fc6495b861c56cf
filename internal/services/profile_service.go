package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ake144/e-tutor/internal/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var avatarExtensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

type AvatarUpdater interface {
	UpdateAvatar(ctx context.Context, userID int64, avatarURL string) (*models.User, error)
}

type AvatarUpload struct {
	UploadURL string       `json:"uploadUrl"`
	AvatarURL string       `json:"avatarUrl"`
	User      *models.User `json:"user"`
}

type ProfileService struct {
	users   AvatarUpdater
	storage StorageService
}

// NewProfileService accepts a nil storage; avatar uploads then fail with ErrStorageUnavailable.
func NewProfileService(users AvatarUpdater, storage StorageService) *ProfileService {
	return &ProfileService{
		users:   users,
		storage: storage,
	}
}

func (s *ProfileService) RequestAvatarUpload(ctx context.Context, userID int64, contentType string) (*AvatarUpload, error) {
	if s.storage == nil {
		return nil, ErrStorageUnavailable
	}

	contentType = strings.ToLower(strings.TrimSpace(contentType))
	ext, ok := avatarExtensions[contentType]
	if !ok {
		return nil, invalidInput("unsupported avatar content type %q", contentType)
	}

	objectKey := fmt.Sprintf("avatars/%d/%s%s", userID, uuid.NewString(), ext)
	uploadURL, err := s.storage.PresignUpload(ctx, objectKey, contentType)
	if err != nil {
		return nil, err
	}

	avatarURL := s.storage.PublicURL(objectKey)
	user, err := s.users.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrForbidden
		}
		return nil, err
	}

	return &AvatarUpload{
		UploadURL: uploadURL,
		AvatarURL: avatarURL,
		User:      user,
	}, nil
}
