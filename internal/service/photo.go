package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/repository"
)

// reorderOffset keeps intermediate positions clear of the live 1..N range
// while a reorder shuffles rows, so the (user_id, position) unique index
// never sees a transient collision.
const reorderOffset = 100000

// CreatePhotoInput registers an externally hosted photo.
type CreatePhotoInput struct {
	UserID      uint64 `json:"userId"`
	URL         string `json:"url"`
	IsMain      bool   `json:"isMain"`
	AltText     string `json:"altText"`
	ContentType string `json:"contentType"`
}

// UpdatePhotoInput carries the mutable photo fields. Nil leaves a field as is.
type UpdatePhotoInput struct {
	AltText *string `json:"altText"`
	IsMain  *bool   `json:"isMain"`
}

// PhotoService manages the photo gallery of each user.
//
// Invariants held on every exit path:
//   - at most one main photo per user, exactly one while the user has photos
//   - positions are unique per user; reorder leaves them dense 1..N
//   - at most the configured cap of photos per user
type PhotoService struct {
	appCtx *app.AppContext
	store  BlobStore
}

// NewPhotoService builds a PhotoService. store may be nil when photos are
// registered by URL only (tests).
func NewPhotoService(appCtx *app.AppContext, store BlobStore) *PhotoService {
	return &PhotoService{appCtx: appCtx, store: store}
}

func (s *PhotoService) maxPhotos() int {
	if s.appCtx.Cfg != nil && s.appCtx.Cfg.Upload.MaxPhotos > 0 {
		return s.appCtx.Cfg.Upload.MaxPhotos
	}
	return 6
}

// Upload stores a multipart file and registers it as a photo.
//
// The file lands on disk before the transaction so the DB never references a
// missing file; if the insert fails the stored file is removed again.
func (s *PhotoService) Upload(ctx context.Context, userID uint64, file multipart.File, header *multipart.FileHeader, requestedMain bool, altText string) (*PhotoResponse, error) {
	if s.store == nil {
		return nil, apperror.Validation("file", "file uploads are not enabled")
	}
	if header == nil || header.Size == 0 {
		return nil, apperror.Validation("file", "file must not be empty")
	}
	if strings.Contains(header.Filename, "..") {
		return nil, apperror.Validation("file", "invalid file name")
	}

	if err := s.checkUserExists(ctx, userID); err != nil {
		return nil, err
	}

	// cheap pre-check so we do not write files for users already at the cap
	count, err := repository.NewPhotoRepository(s.appCtx.DB).CountByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if count >= int64(s.maxPhotos()) {
		return nil, apperror.MaxCapacity(fmt.Sprintf("users may have at most %d photos", s.maxPhotos()))
	}

	saved, err := s.store.Save(file, header)
	if err != nil {
		return nil, err
	}

	photo := &db.Photo{
		UserID:      userID,
		URL:         saved.URL,
		AltText:     altText,
		FileSize:    saved.FileSize,
		Width:       saved.Width,
		Height:      saved.Height,
		ContentType: saved.ContentType,
	}

	if err := s.insertPhoto(ctx, photo, requestedMain); err != nil {
		s.store.Delete(saved.URL)
		return nil, err
	}

	logger.Info("photo uploaded", "user_id", userID, "photo_id", photo.ID, "main", photo.IsMain)
	return NewPhotoResponse(photo), nil
}

// CreateFromURL registers an externally hosted photo without touching disk.
func (s *PhotoService) CreateFromURL(ctx context.Context, in CreatePhotoInput) (*PhotoResponse, error) {
	in.URL = strings.TrimSpace(in.URL)
	switch {
	case in.URL == "":
		return nil, apperror.Validation("url", "url is required")
	case len(in.URL) > 500:
		return nil, apperror.Validation("url", "url must be at most 500 characters")
	}

	if err := s.checkUserExists(ctx, in.UserID); err != nil {
		return nil, err
	}

	photo := &db.Photo{
		UserID:      in.UserID,
		URL:         in.URL,
		AltText:     in.AltText,
		ContentType: in.ContentType,
	}
	if err := s.insertPhoto(ctx, photo, in.IsMain); err != nil {
		return nil, err
	}
	return NewPhotoResponse(photo), nil
}

// insertPhoto appends a photo at the next free position and resolves the main
// flag, all inside one transaction.
//
// Main resolution: the first photo is always main regardless of the request;
// otherwise a requested main demotes the current one first.
func (s *PhotoService) insertPhoto(ctx context.Context, photo *db.Photo, requestedMain bool) error {
	return s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		photos := repository.NewPhotoRepository(tx)

		count, err := photos.CountByUser(ctx, photo.UserID)
		if err != nil {
			return err
		}
		if count >= int64(s.maxPhotos()) {
			return apperror.MaxCapacity(fmt.Sprintf("users may have at most %d photos", s.maxPhotos()))
		}

		maxPos, err := photos.MaxPosition(ctx, photo.UserID)
		if err != nil {
			return err
		}
		photo.Position = maxPos + 1

		if count == 0 {
			photo.IsMain = true
		} else if requestedMain {
			if err := photos.ClearMain(ctx, photo.UserID); err != nil {
				return err
			}
			photo.IsMain = true
		}

		return photos.Create(ctx, photo)
	})
}

// Get returns one photo.
func (s *PhotoService) Get(ctx context.Context, id uint64) (*PhotoResponse, error) {
	photo, err := repository.NewPhotoRepository(s.appCtx.DB).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("photo", id)
		}
		return nil, err
	}
	return NewPhotoResponse(photo), nil
}

// ListByUser returns the user's gallery ordered by position.
func (s *PhotoService) ListByUser(ctx context.Context, userID uint64) ([]PhotoResponse, error) {
	photos, err := repository.NewPhotoRepository(s.appCtx.DB).ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]PhotoResponse, 0, len(photos))
	for i := range photos {
		out = append(out, *NewPhotoResponse(&photos[i]))
	}
	return out, nil
}

// Main returns the user's main photo.
func (s *PhotoService) Main(ctx context.Context, userID uint64) (*PhotoResponse, error) {
	photo, err := repository.NewPhotoRepository(s.appCtx.DB).FindMain(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("main photo for user", userID)
		}
		return nil, err
	}
	return NewPhotoResponse(photo), nil
}

// MainURL returns the URL of the user's main photo, "" when there is none.
func (s *PhotoService) MainURL(ctx context.Context, userID uint64) (string, error) {
	photo, err := repository.NewPhotoRepository(s.appCtx.DB).FindMain(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return photo.URL, nil
}

// Count returns the size of the user's gallery.
func (s *PhotoService) Count(ctx context.Context, userID uint64) (int64, error) {
	return repository.NewPhotoRepository(s.appCtx.DB).CountByUser(ctx, userID)
}

// HasMain reports whether the user has a main photo.
func (s *PhotoService) HasMain(ctx context.Context, userID uint64) (bool, error) {
	_, err := repository.NewPhotoRepository(s.appCtx.DB).FindMain(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// SetMain promotes a photo to main, demoting the previous one in the same
// transaction. Idempotent when the photo already is main.
func (s *PhotoService) SetMain(ctx context.Context, photoID uint64) (*PhotoResponse, error) {
	var result *db.Photo

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		photos := repository.NewPhotoRepository(tx)

		photo, err := photos.FindByID(ctx, photoID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("photo", photoID)
			}
			return err
		}
		if photo.IsMain {
			result = photo
			return nil
		}

		if err := photos.ClearMain(ctx, photo.UserID); err != nil {
			return err
		}
		if err := photos.SetMain(ctx, photo.ID); err != nil {
			return err
		}
		photo.IsMain = true
		result = photo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewPhotoResponse(result), nil
}

// Update edits the alt text and optionally the main flag.
func (s *PhotoService) Update(ctx context.Context, photoID uint64, in UpdatePhotoInput) (*PhotoResponse, error) {
	var result *db.Photo

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		photos := repository.NewPhotoRepository(tx)

		photo, err := photos.FindByID(ctx, photoID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("photo", photoID)
			}
			return err
		}

		if in.AltText != nil {
			photo.AltText = *in.AltText
		}
		if in.IsMain != nil && *in.IsMain && !photo.IsMain {
			if err := photos.ClearMain(ctx, photo.UserID); err != nil {
				return err
			}
			photo.IsMain = true
		}

		if err := photos.Save(ctx, photo); err != nil {
			return err
		}
		result = photo
		return nil
	})
	if err != nil {
		return nil, err
	}
	return NewPhotoResponse(result), nil
}

// Delete removes a photo. When the deleted photo was main, the survivor with
// the lowest position is promoted in the same transaction, so a non-empty
// gallery always keeps exactly one main photo. The file itself is removed
// best effort after commit.
func (s *PhotoService) Delete(ctx context.Context, photoID uint64) error {
	var removedURL string

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		photos := repository.NewPhotoRepository(tx)

		photo, err := photos.FindByID(ctx, photoID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("photo", photoID)
			}
			return err
		}
		removedURL = photo.URL

		if err := photos.Delete(ctx, photo.ID); err != nil {
			return err
		}

		if photo.IsMain {
			remaining, err := photos.ListByUser(ctx, photo.UserID)
			if err != nil {
				return err
			}
			if len(remaining) > 0 {
				return photos.SetMain(ctx, remaining[0].ID)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if s.store != nil {
		s.store.Delete(removedURL)
	}
	return nil
}

// Reorder rewrites the gallery order. orderedIDs must be a permutation of the
// user's photo IDs; positions become index+1. All-or-nothing: a bad ID leaves
// every position untouched.
func (s *PhotoService) Reorder(ctx context.Context, userID uint64, orderedIDs []uint64) ([]PhotoResponse, error) {
	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		photos := repository.NewPhotoRepository(tx)

		owned, err := photos.ListByUser(ctx, userID)
		if err != nil {
			return err
		}

		ownedSet := make(map[uint64]struct{}, len(owned))
		for _, p := range owned {
			ownedSet[p.ID] = struct{}{}
		}
		if len(orderedIDs) != len(owned) {
			return apperror.Validation("photoIds", "reorder must list every photo of the user exactly once")
		}
		seen := make(map[uint64]struct{}, len(orderedIDs))
		for _, id := range orderedIDs {
			if _, ok := ownedSet[id]; !ok {
				return apperror.Validation("photoIds", fmt.Sprintf("photo %d does not belong to user %d", id, userID))
			}
			if _, dup := seen[id]; dup {
				return apperror.Validation("photoIds", fmt.Sprintf("photo %d listed twice", id))
			}
			seen[id] = struct{}{}
		}

		// pass one: park everything far away from 1..N
		for i, id := range orderedIDs {
			if err := photos.UpdatePosition(ctx, id, reorderOffset+i+1); err != nil {
				return err
			}
		}
		// pass two: final dense positions
		for i, id := range orderedIDs {
			if err := photos.UpdatePosition(ctx, id, i+1); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.ListByUser(ctx, userID)
}

func (s *PhotoService) checkUserExists(ctx context.Context, userID uint64) error {
	if _, err := repository.NewUserRepository(s.appCtx.DB).FindByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("user", userID)
		}
		return err
	}
	return nil
}
