package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/utils/pagination"
)

// LikeRepository provides data access methods for the Like model.
// A like is a directed edge; matches are derived, never stored.
type LikeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new repository bound to the given DB connection.
func NewLikeRepository(database *gorm.DB) *LikeRepository {
	return &LikeRepository{db: database}
}

// Create inserts a new like edge.
//
// The unique index on (liker_id, liked_user_id) makes concurrent duplicate
// inserts fail with gorm.ErrDuplicatedKey; the service maps that to an
// already-exists error.
func (r *LikeRepository) Create(ctx context.Context, like *db.Like) error {
	return r.db.WithContext(ctx).Create(like).Error
}

// FindByID returns the like with the given ID or gorm.ErrRecordNotFound.
func (r *LikeRepository) FindByID(ctx context.Context, id uint64) (*db.Like, error) {
	var like db.Like
	if err := r.db.WithContext(ctx).First(&like, id).Error; err != nil {
		return nil, err
	}
	return &like, nil
}

// Exists reports whether liker has already liked likedUser.
func (r *LikeRepository) Exists(ctx context.Context, likerID, likedUserID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liker_id = ? AND liked_user_id = ?", likerID, likedUserID).
		Count(&count).Error
	return count > 0, err
}

// FindPair returns the like edge liker -> likedUser or gorm.ErrRecordNotFound.
func (r *LikeRepository) FindPair(ctx context.Context, likerID, likedUserID uint64) (*db.Like, error) {
	var like db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_user_id = ?", likerID, likedUserID).
		First(&like).Error
	if err != nil {
		return nil, err
	}
	return &like, nil
}

// GivenBy returns every like the user has sent, newest first.
func (r *LikeRepository) GivenBy(ctx context.Context, likerID uint64) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liker_id = ?", likerID).
		Order("created_at DESC, id DESC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// ReceivedBy returns every like the user has received, newest first.
func (r *LikeRepository) ReceivedBy(ctx context.Context, likedUserID uint64) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liked_user_id = ?", likedUserID).
		Order("created_at DESC, id DESC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// ReceivedByPage returns one page of likes received by the user.
//
// Behavior:
//   - Ordered by created_at DESC, id DESC (stable keyset ordering).
//   - Supports cursor-based pagination via paginationToken.
//   - Returns limit rows plus the token for the next page, or nil when the
//     feed is exhausted.
func (r *LikeRepository) ReceivedByPage(
	ctx context.Context,
	likedUserID uint64,
	paginationToken *string,
	limit int,
) ([]db.Like, *string, error) {
	var likes []db.Like

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("liked_user_id = ?", likedUserID).
		Order("created_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.LikeID > 0 && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix)
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND id < ?))",
			ts, ts, cursor.LikeID,
		)
	}

	if err := query.Find(&likes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(likes) > limit {
		last := likes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			LikeID:      last.ID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		likes = likes[:limit]
	}

	return likes, nextToken, nil
}

// ReceivedSince returns likes received by the user after the given instant,
// newest first.
func (r *LikeRepository) ReceivedSince(ctx context.Context, likedUserID uint64, since time.Time) ([]db.Like, error) {
	var likes []db.Like
	err := r.db.WithContext(ctx).
		Where("liked_user_id = ? AND created_at > ?", likedUserID, since).
		Order("created_at DESC, id DESC").
		Find(&likes).Error
	if err != nil {
		return nil, err
	}
	return likes, nil
}

// CountGiven returns how many likes the user has sent.
func (r *LikeRepository) CountGiven(ctx context.Context, likerID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liker_id = ?", likerID).
		Count(&count).Error
	return count, err
}

// CountReceived returns how many likes the user has received.
func (r *LikeRepository) CountReceived(ctx context.Context, likedUserID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Where("liked_user_id = ?", likedUserID).
		Count(&count).Error
	return count, err
}

// LikedCount groups received likes per user, for the top-liked ranking.
type LikedCount struct {
	LikedUserID uint64
	Count       int64
}

// TopLiked returns the users ordered by likes received.
//
// Behavior:
//   - Counts all received likes per user.
//   - Ties break on the lower user ID, so the ranking is deterministic.
func (r *LikeRepository) TopLiked(ctx context.Context, limit int) ([]LikedCount, error) {
	var rows []LikedCount
	err := r.db.WithContext(ctx).Model(&db.Like{}).
		Select("liked_user_id, COUNT(*) AS count").
		Group("liked_user_id").
		Order("count DESC, liked_user_id ASC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// DeleteByPair removes the like edge liker -> likedUser.
// Returns the number of rows removed (0 when the edge never existed).
func (r *LikeRepository) DeleteByPair(ctx context.Context, likerID, likedUserID uint64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("liker_id = ? AND liked_user_id = ?", likerID, likedUserID).
		Delete(&db.Like{})
	return res.RowsAffected, res.Error
}

// DeleteAllForUser removes every like the user sent or received.
// Used when a user account is deleted.
func (r *LikeRepository) DeleteAllForUser(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("liker_id = ? OR liked_user_id = ?", userID, userID).
		Delete(&db.Like{}).Error
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
