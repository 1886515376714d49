package service

import (
	"context"
	"errors"
	"math"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/repository"
)

// LikeService manages directed likes and the matches derived from them.
type LikeService struct {
	appCtx *app.AppContext
}

// NewLikeService builds a LikeService.
func NewLikeService(appCtx *app.AppContext) *LikeService {
	return &LikeService{appCtx: appCtx}
}

// Create records liker -> likedUser and reports whether that completed a
// mutual match.
//
// Behavior:
//   - self-like is rejected
//   - both users must exist
//   - the pair must not already exist; the existence check and insert share
//     one transaction, and a duplicate-key race still comes back as
//     already-exists
func (s *LikeService) Create(ctx context.Context, likerID, likedUserID uint64) (*LikeResponse, error) {
	if likerID == likedUserID {
		return nil, apperror.SelfReference("users cannot like themselves")
	}

	like := &db.Like{LikerID: likerID, LikedUserID: likedUserID}
	var isMatch bool

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		likes := repository.NewLikeRepository(tx)

		for _, id := range []uint64{likerID, likedUserID} {
			if _, err := users.FindByID(ctx, id); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return apperror.NotFound("user", id)
				}
				return err
			}
		}

		exists, err := likes.Exists(ctx, likerID, likedUserID)
		if err != nil {
			return err
		}
		if exists {
			return apperror.AlreadyExists("like", "user already liked")
		}

		if err := likes.Create(ctx, like); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.AlreadyExists("like", "user already liked")
			}
			return err
		}

		isMatch, err = likes.Exists(ctx, likedUserID, likerID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if isMatch {
		logger.Info("new match", "user_a", likerID, "user_b", likedUserID)
	}
	return NewLikeResponse(like, isMatch), nil
}

// Get returns a single like by ID.
func (s *LikeService) Get(ctx context.Context, id uint64) (*LikeResponse, error) {
	likes := repository.NewLikeRepository(s.appCtx.DB)
	like, err := likes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("like", id)
		}
		return nil, err
	}
	isMatch, err := likes.Exists(ctx, like.LikedUserID, like.LikerID)
	if err != nil {
		return nil, err
	}
	return NewLikeResponse(like, isMatch), nil
}

// Remove deletes the directed edge liker -> likedUser. The reverse edge, if
// any, is untouched; removing a like dissolves the match but not the other
// user's like.
func (s *LikeService) Remove(ctx context.Context, likerID, likedUserID uint64) error {
	removed, err := repository.NewLikeRepository(s.appCtx.DB).DeleteByPair(ctx, likerID, likedUserID)
	if err != nil {
		return err
	}
	if removed == 0 {
		return apperror.NotFound("like", likedUserID)
	}
	return nil
}

// RemoveByID deletes a like by its row ID.
func (s *LikeService) RemoveByID(ctx context.Context, id uint64) error {
	likes := repository.NewLikeRepository(s.appCtx.DB)
	like, err := likes.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("like", id)
		}
		return err
	}
	_, err = likes.DeleteByPair(ctx, like.LikerID, like.LikedUserID)
	return err
}

// IsMatch reports whether both directed likes exist. Symmetric in its
// arguments; a user never matches themselves.
func (s *LikeService) IsMatch(ctx context.Context, userA, userB uint64) (bool, error) {
	if userA == userB {
		return false, nil
	}
	likes := repository.NewLikeRepository(s.appCtx.DB)
	ab, err := likes.Exists(ctx, userA, userB)
	if err != nil || !ab {
		return false, err
	}
	return likes.Exists(ctx, userB, userA)
}

// HasLiked reports whether the directed edge liker -> likedUser exists.
func (s *LikeService) HasLiked(ctx context.Context, likerID, likedUserID uint64) (bool, error) {
	return repository.NewLikeRepository(s.appCtx.DB).Exists(ctx, likerID, likedUserID)
}

// MatchesFor returns the user's mutual matches, most recent first. The match
// timestamp is the creation time of the later of the two likes.
func (s *LikeService) MatchesFor(ctx context.Context, userID uint64) ([]MatchResponse, error) {
	likes := repository.NewLikeRepository(s.appCtx.DB)

	given, err := likes.GivenBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := likes.ReceivedBy(ctx, userID)
	if err != nil {
		return nil, err
	}

	receivedBy := make(map[uint64]db.Like, len(received))
	for _, l := range received {
		receivedBy[l.LikerID] = l
	}

	type pair struct {
		partnerID uint64
		matchedAt time.Time
	}
	var pairs []pair
	for _, out := range given {
		back, ok := receivedBy[out.LikedUserID]
		if !ok {
			continue
		}
		matchedAt := out.CreatedAt
		if back.CreatedAt.After(matchedAt) {
			matchedAt = back.CreatedAt
		}
		pairs = append(pairs, pair{partnerID: out.LikedUserID, matchedAt: matchedAt})
	}

	sort.Slice(pairs, func(i, j int) bool {
		if !pairs[i].matchedAt.Equal(pairs[j].matchedAt) {
			return pairs[i].matchedAt.After(pairs[j].matchedAt)
		}
		return pairs[i].partnerID < pairs[j].partnerID
	})

	ids := make([]uint64, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, p.partnerID)
	}
	profiles, err := loadProfiles(ctx, s.appCtx.DB, ids)
	if err != nil {
		return nil, err
	}

	matches := make([]MatchResponse, 0, len(pairs))
	for _, p := range pairs {
		profile, ok := profiles[p.partnerID]
		if !ok {
			continue
		}
		matches = append(matches, MatchResponse{User: profile, MatchedAt: p.matchedAt})
	}
	return matches, nil
}

// TopLiked returns the most liked users. limit 0 yields an empty list.
func (s *LikeService) TopLiked(ctx context.Context, limit int) ([]TopLikedUser, error) {
	if limit < 0 {
		return nil, apperror.Validation("limit", "limit must not be negative")
	}
	if limit == 0 {
		return []TopLikedUser{}, nil
	}

	rows, err := repository.NewLikeRepository(s.appCtx.DB).TopLiked(ctx, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]uint64, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.LikedUserID)
	}
	profiles, err := loadProfiles(ctx, s.appCtx.DB, ids)
	if err != nil {
		return nil, err
	}

	top := make([]TopLikedUser, 0, len(rows))
	for _, row := range rows {
		profile, ok := profiles[row.LikedUserID]
		if !ok {
			continue
		}
		top = append(top, TopLikedUser{User: profile, LikeCount: row.Count})
	}
	return top, nil
}

// Stats aggregates the user's like activity.
//
// likeBackRate  = matches / likesGiven * 100, 0 when nothing was given.
// popularity    = ln(likesReceived + 1) * 10, 0 when nothing was received.
func (s *LikeService) Stats(ctx context.Context, userID uint64) (*LikeStats, error) {
	likes := repository.NewLikeRepository(s.appCtx.DB)

	given, err := likes.CountGiven(ctx, userID)
	if err != nil {
		return nil, err
	}
	received, err := likes.CountReceived(ctx, userID)
	if err != nil {
		return nil, err
	}
	matches, err := s.MatchesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &LikeStats{
		UserID:        userID,
		LikesGiven:    given,
		LikesReceived: received,
		MatchesCount:  int64(len(matches)),
	}
	if given > 0 {
		stats.LikeBackRate = float64(stats.MatchesCount) / float64(given) * 100
	}
	if received > 0 {
		stats.PopularityScore = math.Log(float64(received)+1) * 10
	}
	return stats, nil
}

// GivenBy lists the likes the user sent, newest first.
func (s *LikeService) GivenBy(ctx context.Context, userID uint64) ([]LikeResponse, error) {
	likes, err := repository.NewLikeRepository(s.appCtx.DB).GivenBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.toLikeResponses(ctx, likes)
}

// ReceivedBy returns one cursor page of the likes the user received.
func (s *LikeService) ReceivedBy(ctx context.Context, userID uint64, pageToken *string, limit int) (*LikePage, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	likes, next, err := repository.NewLikeRepository(s.appCtx.DB).ReceivedByPage(ctx, userID, pageToken, limit)
	if err != nil {
		return nil, apperror.Validation("pageToken", err.Error())
	}
	responses, err := s.toLikeResponses(ctx, likes)
	if err != nil {
		return nil, err
	}
	return &LikePage{Likes: responses, NextToken: next}, nil
}

// RecentReceived lists the likes received within the past N hours.
func (s *LikeService) RecentReceived(ctx context.Context, userID uint64, hours int) ([]LikeResponse, error) {
	if hours <= 0 {
		hours = 24
	}
	since := time.Now().Add(-time.Duration(hours) * time.Hour)
	likes, err := repository.NewLikeRepository(s.appCtx.DB).ReceivedSince(ctx, userID, since)
	if err != nil {
		return nil, err
	}
	return s.toLikeResponses(ctx, likes)
}

// LikedUserIDs returns the IDs of everyone the user has liked.
func (s *LikeService) LikedUserIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	likes, err := repository.NewLikeRepository(s.appCtx.DB).GivenBy(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(likes))
	for _, l := range likes {
		ids = append(ids, l.LikedUserID)
	}
	return ids, nil
}

// CountGiven returns how many likes the user sent.
func (s *LikeService) CountGiven(ctx context.Context, userID uint64) (int64, error) {
	return repository.NewLikeRepository(s.appCtx.DB).CountGiven(ctx, userID)
}

// CountReceived returns how many likes the user received.
func (s *LikeService) CountReceived(ctx context.Context, userID uint64) (int64, error) {
	return repository.NewLikeRepository(s.appCtx.DB).CountReceived(ctx, userID)
}

// RemoveAllForUser removes every like the user sent or received.
func (s *LikeService) RemoveAllForUser(ctx context.Context, userID uint64) error {
	return repository.NewLikeRepository(s.appCtx.DB).DeleteAllForUser(ctx, userID)
}

func (s *LikeService) toLikeResponses(ctx context.Context, likes []db.Like) ([]LikeResponse, error) {
	out := make([]LikeResponse, 0, len(likes))
	for i := range likes {
		isMatch, err := repository.NewLikeRepository(s.appCtx.DB).
			Exists(ctx, likes[i].LikedUserID, likes[i].LikerID)
		if err != nil {
			return nil, err
		}
		out = append(out, *NewLikeResponse(&likes[i], isMatch))
	}
	return out, nil
}
