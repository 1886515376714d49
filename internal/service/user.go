package service

import (
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/meetwo/meetwo-server/internal/app"
	"github.com/meetwo/meetwo-server/internal/apperror"
	"github.com/meetwo/meetwo-server/internal/auth"
	"github.com/meetwo/meetwo-server/internal/db"
	"github.com/meetwo/meetwo-server/internal/logger"
	"github.com/meetwo/meetwo-server/internal/repository"
	"github.com/meetwo/meetwo-server/internal/storage"
)

// BlobStore is the slice of the storage layer the services need.
type BlobStore interface {
	Save(file multipart.File, header *multipart.FileHeader) (*storage.SavedFile, error)
	Delete(url string)
}

// CreateUserInput carries the fields accepted on user creation.
type CreateUserInput struct {
	Username                string     `json:"username"`
	Email                   string     `json:"email"`
	Password                string     `json:"password"`
	FirstName               string     `json:"firstName"`
	LastName                string     `json:"lastName"`
	BirthDate               *time.Time `json:"birthDate"`
	Gender                  string     `json:"gender"`
	Biography               string     `json:"biography"`
	City                    string     `json:"city"`
	Interests               []string   `json:"interests"`
	SeekingRelationshipType string     `json:"seekingRelationshipType"`
}

// UpdateUserInput carries the fields accepted on profile update.
// Nil pointers leave the stored value untouched.
type UpdateUserInput struct {
	FirstName               *string    `json:"firstName"`
	LastName                *string    `json:"lastName"`
	BirthDate               *time.Time `json:"birthDate"`
	Gender                  *string    `json:"gender"`
	Biography               *string    `json:"biography"`
	City                    *string    `json:"city"`
	Interests               []string   `json:"interests"`
	SeekingRelationshipType *string    `json:"seekingRelationshipType"`
	Enabled                 *bool      `json:"enabled"`
}

// UserService manages profiles. Name and age are derived here on every
// create/update rather than by persistence hooks.
type UserService struct {
	appCtx    *app.AppContext
	passwords *auth.PasswordService
	store     BlobStore
}

// NewUserService builds a UserService. store may be nil when file cleanup is
// not wanted (tests).
func NewUserService(appCtx *app.AppContext, passwords *auth.PasswordService, store BlobStore) *UserService {
	return &UserService{appCtx: appCtx, passwords: passwords, store: store}
}

// deriveName picks "first last", then first, then last, then the username.
func deriveName(firstName, lastName, username string) string {
	first := strings.TrimSpace(firstName)
	last := strings.TrimSpace(lastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	case last != "":
		return last
	default:
		return username
	}
}

func marshalInterests(interests []string) ([]byte, error) {
	if interests == nil {
		interests = []string{}
	}
	return json.Marshal(interests)
}

func validateCreateUser(in *CreateUserInput) error {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)

	switch {
	case in.Username == "":
		return apperror.Validation("username", "username is required")
	case len(in.Username) > 50:
		return apperror.Validation("username", "username must be at most 50 characters")
	case in.Email == "" || !strings.Contains(in.Email, "@"):
		return apperror.Validation("email", "a valid email is required")
	case len(in.Email) > 100:
		return apperror.Validation("email", "email must be at most 100 characters")
	case in.Password == "":
		return apperror.Validation("password", "password is required")
	case len(in.Password) < 6:
		return apperror.Validation("password", "password must be at least 6 characters")
	case !db.ValidGender(in.Gender):
		return apperror.Validation("gender", "gender must be male or female")
	case len(in.Biography) > 500:
		return apperror.Validation("biography", "biography must be at most 500 characters")
	}
	if in.SeekingRelationshipType == "" {
		in.SeekingRelationshipType = db.RelationshipSerious
	}
	if !db.ValidRelationshipType(in.SeekingRelationshipType) {
		return apperror.Validation("seekingRelationshipType", "unknown relationship type")
	}
	return nil
}

// Create inserts a new profile. Username and email must be unique.
func (s *UserService) Create(ctx context.Context, in CreateUserInput) (*UserResponse, error) {
	if err := validateCreateUser(&in); err != nil {
		return nil, err
	}

	hash, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, err
	}
	rawInterests, err := marshalInterests(in.Interests)
	if err != nil {
		return nil, err
	}

	user := &db.User{
		Username:                in.Username,
		Email:                   in.Email,
		PasswordHash:            hash,
		Name:                    deriveName(in.FirstName, in.LastName, in.Username),
		FirstName:               strings.TrimSpace(in.FirstName),
		LastName:                strings.TrimSpace(in.LastName),
		BirthDate:               in.BirthDate,
		Gender:                  in.Gender,
		Biography:               in.Biography,
		City:                    strings.TrimSpace(in.City),
		Interests:               rawInterests,
		SeekingRelationshipType: in.SeekingRelationshipType,
		Enabled:                 true,
	}
	if in.BirthDate != nil {
		user.Age = db.AgeAt(*in.BirthDate, time.Now())
	}

	err = s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)

		if taken, err := users.ExistsByUsername(ctx, user.Username); err != nil {
			return err
		} else if taken {
			return apperror.AlreadyExists("username", user.Username)
		}
		if taken, err := users.ExistsByEmail(ctx, user.Email); err != nil {
			return err
		} else if taken {
			return apperror.AlreadyExists("email", user.Email)
		}

		if err := users.Create(ctx, user); err != nil {
			// two racing registrations can both pass the checks; the unique
			// index decides the winner
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperror.AlreadyExists("user", user.Username)
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info("user created", "user_id", user.ID, "username", user.Username)
	return NewUserResponse(user), nil
}

// GetByID returns one profile.
func (s *UserService) GetByID(ctx context.Context, id uint64) (*UserResponse, error) {
	user, err := repository.NewUserRepository(s.appCtx.DB).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, err
	}
	return NewUserResponse(user), nil
}

// GetByUsername returns one profile looked up by username.
func (s *UserService) GetByUsername(ctx context.Context, username string) (*UserResponse, error) {
	user, err := repository.NewUserRepository(s.appCtx.DB).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", username)
		}
		return nil, err
	}
	return NewUserResponse(user), nil
}

// GetByEmail returns one profile looked up by email.
func (s *UserService) GetByEmail(ctx context.Context, email string) (*UserResponse, error) {
	user, err := repository.NewUserRepository(s.appCtx.DB).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, err
	}
	return NewUserResponse(user), nil
}

// List returns profiles with offset pagination.
func (s *UserService) List(ctx context.Context, offset, limit int) ([]UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	users, err := repository.NewUserRepository(s.appCtx.DB).List(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

// Update applies a partial profile update and re-derives name and age.
func (s *UserService) Update(ctx context.Context, id uint64, in UpdateUserInput) (*UserResponse, error) {
	var updated *db.User

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)

		user, err := users.FindByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("user", id)
			}
			return err
		}

		if in.FirstName != nil {
			user.FirstName = strings.TrimSpace(*in.FirstName)
		}
		if in.LastName != nil {
			user.LastName = strings.TrimSpace(*in.LastName)
		}
		if in.BirthDate != nil {
			user.BirthDate = in.BirthDate
		}
		if in.Gender != nil {
			if !db.ValidGender(*in.Gender) {
				return apperror.Validation("gender", "gender must be male or female")
			}
			user.Gender = *in.Gender
		}
		if in.Biography != nil {
			if len(*in.Biography) > 500 {
				return apperror.Validation("biography", "biography must be at most 500 characters")
			}
			user.Biography = *in.Biography
		}
		if in.City != nil {
			user.City = strings.TrimSpace(*in.City)
		}
		if in.Interests != nil {
			raw, err := marshalInterests(in.Interests)
			if err != nil {
				return err
			}
			user.Interests = raw
		}
		if in.SeekingRelationshipType != nil {
			if !db.ValidRelationshipType(*in.SeekingRelationshipType) {
				return apperror.Validation("seekingRelationshipType", "unknown relationship type")
			}
			user.SeekingRelationshipType = *in.SeekingRelationshipType
		}
		if in.Enabled != nil {
			user.Enabled = *in.Enabled
		}

		user.Name = deriveName(user.FirstName, user.LastName, user.Username)
		if user.BirthDate != nil {
			user.Age = db.AgeAt(*user.BirthDate, time.Now())
		}

		if err := users.Save(ctx, user); err != nil {
			return err
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}

	return NewUserResponse(updated), nil
}

// Delete removes a user and everything attached: likes in both directions,
// all messages, all photo rows. Row cleanup is one transaction; the photo
// files are removed best effort after commit.
func (s *UserService) Delete(ctx context.Context, id uint64) error {
	var photoURLs []string

	err := s.appCtx.DB.Transaction(func(tx *gorm.DB) error {
		users := repository.NewUserRepository(tx)
		likes := repository.NewLikeRepository(tx)
		photos := repository.NewPhotoRepository(tx)
		messages := repository.NewMessageRepository(tx)

		if _, err := users.FindByID(ctx, id); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return apperror.NotFound("user", id)
			}
			return err
		}

		owned, err := photos.ListByUser(ctx, id)
		if err != nil {
			return err
		}
		for _, p := range owned {
			photoURLs = append(photoURLs, p.URL)
		}

		if err := likes.DeleteAllForUser(ctx, id); err != nil {
			return err
		}
		if err := messages.DeleteAllForUser(ctx, id); err != nil {
			return err
		}
		if err := photos.DeleteAllForUser(ctx, id); err != nil {
			return err
		}
		return users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	if s.store != nil {
		for _, url := range photoURLs {
			s.store.Delete(url)
		}
	}

	logger.Info("user deleted", "user_id", id, "photos_removed", len(photoURLs))
	return nil
}

// ExistsByUsername reports whether the username is taken.
func (s *UserService) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	return repository.NewUserRepository(s.appCtx.DB).ExistsByUsername(ctx, username)
}

// ExistsByEmail reports whether the email is taken.
func (s *UserService) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	return repository.NewUserRepository(s.appCtx.DB).ExistsByEmail(ctx, email)
}

// ByCity lists enabled users in a city.
func (s *UserService) ByCity(ctx context.Context, city string) ([]UserResponse, error) {
	users, err := repository.NewUserRepository(s.appCtx.DB).ListByCity(ctx, city)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

// ByGender lists enabled users of a gender.
func (s *UserService) ByGender(ctx context.Context, gender string) ([]UserResponse, error) {
	if !db.ValidGender(gender) {
		return nil, apperror.Validation("gender", "gender must be male or female")
	}
	users, err := repository.NewUserRepository(s.appCtx.DB).ListByGender(ctx, gender)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

// ByAgeRange lists enabled users whose age lies in [min, max].
func (s *UserService) ByAgeRange(ctx context.Context, min, max int) ([]UserResponse, error) {
	if min < 0 || max < min {
		return nil, apperror.Validation("age", "invalid age range")
	}
	users, err := repository.NewUserRepository(s.appCtx.DB).ListByAgeRange(ctx, min, max)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

// Newest lists the most recently registered enabled users.
func (s *UserService) Newest(ctx context.Context, limit int) ([]UserResponse, error) {
	if limit <= 0 || limit > 100 {
		limit = 10
	}
	users, err := repository.NewUserRepository(s.appCtx.DB).Newest(ctx, limit)
	if err != nil {
		return nil, err
	}
	return toUserResponses(users), nil
}

func toUserResponses(users []db.User) []UserResponse {
	out := make([]UserResponse, 0, len(users))
	for i := range users {
		out = append(out, *NewUserResponse(&users[i]))
	}
	return out
}
