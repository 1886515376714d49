package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/db"
)

// UserRepository provides data access methods for the User model.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
// Pass a transaction handle to scope all calls to that transaction.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Create inserts a new user row.
func (r *UserRepository) Create(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// Save persists all fields of an existing user.
func (r *UserRepository) Save(ctx context.Context, user *db.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// FindByID returns the user with the given ID or gorm.ErrRecordNotFound.
func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername returns the user with the given username.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail returns the user with the given email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsernameOrEmail resolves a login identifier that may be either field.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*db.User, error) {
	var user db.User
	err := r.db.WithContext(ctx).
		Where("username = ? OR email = ?", identifier, identifier).
		First(&user).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ExistsByUsername reports whether any user already holds the username.
func (r *UserRepository) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("username = ?", username).
		Count(&count).Error
	return count > 0, err
}

// ExistsByEmail reports whether any user already holds the email.
func (r *UserRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// FindByIDs returns the users for the given ID set, unordered.
// Missing IDs are silently skipped; callers decide whether that matters.
func (r *UserRepository) FindByIDs(ctx context.Context, ids []uint64) ([]db.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var users []db.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}

// List returns users ordered by ID with offset pagination.
func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Count returns the total number of users.
func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.User{}).Count(&count).Error
	return count, err
}

// Delete removes the user row. Related likes, photos and messages are removed
// by the user service inside the same transaction.
func (r *UserRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&db.User{}, id).Error
}

// ListByCity returns enabled users in the given city, ordered by ID.
func (r *UserRepository) ListByCity(ctx context.Context, city string) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("city = ? AND enabled = ?", city, true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListByGender returns enabled users of the given gender, ordered by ID.
func (r *UserRepository) ListByGender(ctx context.Context, gender string) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("gender = ? AND enabled = ?", gender, true).
		Order("id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ListByAgeRange returns enabled users whose age lies in [min, max].
func (r *UserRepository) ListByAgeRange(ctx context.Context, min, max int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("age BETWEEN ? AND ? AND enabled = ?", min, max, true).
		Order("age ASC, id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Newest returns the most recently registered enabled users.
func (r *UserRepository) Newest(ctx context.Context, limit int) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}
