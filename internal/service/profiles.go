package service

import (
	"context"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/repository"
)

// loadProfiles resolves user DTOs plus their main photo URLs for a set of
// IDs. Missing users are simply absent from the map.
func loadProfiles(ctx context.Context, database *gorm.DB, ids []uint64) (map[uint64]*UserResponse, error) {
	users, err := repository.NewUserRepository(database).FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	mains, err := repository.NewPhotoRepository(database).FindMainByUsers(ctx, ids)
	if err != nil {
		return nil, err
	}

	profiles := make(map[uint64]*UserResponse, len(users))
	for i := range users {
		resp := NewUserResponse(&users[i])
		if main, ok := mains[users[i].ID]; ok {
			resp.MainPhotoURL = main.URL
		}
		profiles[users[i].ID] = resp
	}
	return profiles, nil
}
