package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/db"
)

// PhotoRepository provides data access methods for the Photo model.
type PhotoRepository struct {
	db *gorm.DB
}

// NewPhotoRepository creates a new repository bound to the given DB connection.
func NewPhotoRepository(database *gorm.DB) *PhotoRepository {
	return &PhotoRepository{db: database}
}

// Create inserts a new photo row.
func (r *PhotoRepository) Create(ctx context.Context, photo *db.Photo) error {
	return r.db.WithContext(ctx).Create(photo).Error
}

// Save persists all fields of an existing photo.
func (r *PhotoRepository) Save(ctx context.Context, photo *db.Photo) error {
	return r.db.WithContext(ctx).Save(photo).Error
}

// FindByID returns the photo with the given ID or gorm.ErrRecordNotFound.
func (r *PhotoRepository) FindByID(ctx context.Context, id uint64) (*db.Photo, error) {
	var photo db.Photo
	if err := r.db.WithContext(ctx).First(&photo, id).Error; err != nil {
		return nil, err
	}
	return &photo, nil
}

// ListByUser returns the user's photos ordered by position.
func (r *PhotoRepository) ListByUser(ctx context.Context, userID uint64) ([]db.Photo, error) {
	var photos []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("position ASC").
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	return photos, nil
}

// CountByUser returns how many photos the user has.
func (r *PhotoRepository) CountByUser(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Photo{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// FindMain returns the user's main photo or gorm.ErrRecordNotFound.
func (r *PhotoRepository) FindMain(ctx context.Context, userID uint64) (*db.Photo, error) {
	var photo db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND is_main = ?", userID, true).
		First(&photo).Error
	if err != nil {
		return nil, err
	}
	return &photo, nil
}

// FindMainByUsers returns the main photo of each given user, keyed by user ID.
// Users without a main photo are absent from the map.
func (r *PhotoRepository) FindMainByUsers(ctx context.Context, userIDs []uint64) (map[uint64]db.Photo, error) {
	if len(userIDs) == 0 {
		return map[uint64]db.Photo{}, nil
	}
	var photos []db.Photo
	err := r.db.WithContext(ctx).
		Where("user_id IN ? AND is_main = ?", userIDs, true).
		Find(&photos).Error
	if err != nil {
		return nil, err
	}
	byUser := make(map[uint64]db.Photo, len(photos))
	for _, p := range photos {
		byUser[p.UserID] = p
	}
	return byUser, nil
}

// ClearMain unsets the main flag on all of the user's photos.
// Always runs before setting a new main, so at most one photo ends up flagged.
func (r *PhotoRepository) ClearMain(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).Model(&db.Photo{}).
		Where("user_id = ? AND is_main = ?", userID, true).
		Update("is_main", false).Error
}

// SetMain flags a single photo as main.
func (r *PhotoRepository) SetMain(ctx context.Context, photoID uint64) error {
	return r.db.WithContext(ctx).Model(&db.Photo{}).
		Where("id = ?", photoID).
		Update("is_main", true).Error
}

// MaxPosition returns the highest position among the user's photos, 0 when
// the user has none.
func (r *PhotoRepository) MaxPosition(ctx context.Context, userID uint64) (int, error) {
	var max *int
	err := r.db.WithContext(ctx).Model(&db.Photo{}).
		Where("user_id = ?", userID).
		Select("MAX(position)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

// UpdatePosition moves a single photo to the given position.
// Reorders run this in two passes inside one transaction to dodge transient
// unique violations on (user_id, position).
func (r *PhotoRepository) UpdatePosition(ctx context.Context, photoID uint64, position int) error {
	return r.db.WithContext(ctx).Model(&db.Photo{}).
		Where("id = ?", photoID).
		Update("position", position).Error
}

// Delete removes a photo row.
func (r *PhotoRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.Photo{}, id).Error
}

// DeleteAllForUser removes every photo owned by the user.
// Used when a user account is deleted. File cleanup is the service's job.
func (r *PhotoRepository) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Delete(&db.Photo{}).Error
}
