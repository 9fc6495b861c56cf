package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ake144/e-tutor/internal/models"
)

type stubStorage struct {
	lastKey         string
	lastContentType string
}

func (s *stubStorage) PresignUpload(_ context.Context, objectKey string, contentType string) (string, error) {
	s.lastKey = objectKey
	s.lastContentType = contentType
	return "https://upload.example.com/" + objectKey + "?sig=abc", nil
}

func (s *stubStorage) PublicURL(objectKey string) string {
	return "https://cdn.example.com/" + objectKey
}

type stubAvatarUpdater struct {
	avatarURL string
}

func (s *stubAvatarUpdater) UpdateAvatar(_ context.Context, userID int64, avatarURL string) (*models.User, error) {
	s.avatarURL = avatarURL
	return &models.User{ID: userID, AvatarURL: &avatarURL}, nil
}

func TestRequestAvatarUpload(t *testing.T) {
	storage := &stubStorage{}
	users := &stubAvatarUpdater{}
	service := NewProfileService(users, storage)

	upload, err := service.RequestAvatarUpload(context.Background(), 42, "image/PNG")
	if err != nil {
		t.Fatalf("RequestAvatarUpload: %v", err)
	}
	if !strings.HasPrefix(storage.lastKey, "avatars/42/") || !strings.HasSuffix(storage.lastKey, ".png") {
		t.Fatalf("unexpected object key %q", storage.lastKey)
	}
	if storage.lastContentType != "image/png" {
		t.Fatalf("expected normalized content type, got %q", storage.lastContentType)
	}
	if upload.AvatarURL != users.avatarURL || !strings.HasPrefix(upload.AvatarURL, "https://cdn.example.com/avatars/42/") {
		t.Fatalf("expected stored avatar url to match, got %q vs %q", upload.AvatarURL, users.avatarURL)
	}

	if _, err := service.RequestAvatarUpload(context.Background(), 42, "application/pdf"); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for pdf, got %v", err)
	}
}

func TestRequestAvatarUploadWithoutStorage(t *testing.T) {
	service := NewProfileService(&stubAvatarUpdater{}, nil)

	if _, err := service.RequestAvatarUpload(context.Background(), 1, "image/png"); !errors.Is(err, ErrStorageUnavailable) {
		t.Fatalf("expected ErrStorageUnavailable, got %v", err)
	}
}
