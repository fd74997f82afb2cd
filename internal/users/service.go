package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tundeabiodun/handyfix-backend/pkg/catalog"
	"github.com/tundeabiodun/handyfix-backend/pkg/db/models"
	"github.com/tundeabiodun/handyfix-backend/pkg/enums"
	"github.com/tundeabiodun/handyfix-backend/pkg/errors"
	"github.com/tundeabiodun/handyfix-backend/pkg/storage"
	"github.com/tundeabiodun/handyfix-backend/pkg/types"
)

// Service covers profile reads and the self-service profile mutations.
type Service interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error)
	UpdateProviderProfile(ctx context.Context, userID uuid.UUID, input UpdateProviderProfileInput) (*UserDTO, error)
	SaveAvatar(ctx context.Context, userID uuid.UUID, content []byte) (*UserDTO, error)
	ListUsers(ctx context.Context, role *enums.Role, limit, offset int) ([]UserDTO, error)
}

// UpdateProviderProfileInput is the writable slice of a provider profile.
type UpdateProviderProfileInput struct {
	Country          string   `json:"country" validate:"required"`
	State            string   `json:"state" validate:"required"`
	LGA              string   `json:"lga" validate:"required"`
	Skills           []string `json:"skills" validate:"required,min=1"`
	Available        bool     `json:"available"`
	AvailabilityNote string   `json:"availabilityNote"`
}

type service struct {
	repo  Repository
	files storage.FileStore
}

// NewService wires the users service with its repository and file store.
func NewService(repo Repository, files storage.FileStore) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if files == nil {
		return nil, fmt.Errorf("file store required")
	}
	return &service{repo: repo, files: files}, nil
}

func (s *service) GetProfile(ctx context.Context, userID uuid.UUID) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return FromModel(user), nil
}

// UpdateProviderProfile replaces the provider's work profile. Only provider
// accounts carry one; skills must come from the service catalog.
func (s *service) UpdateProviderProfile(ctx context.Context, userID uuid.UUID, input UpdateProviderProfileInput) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.Role != enums.RoleProvider {
		return nil, errors.New(errors.CodeForbidden, "only providers have a work profile")
	}

	for _, skill := range input.Skills {
		if !catalog.IsValidKey(skill) {
			return nil, errors.New(errors.CodeValidation, "unknown service key").
				WithDetails(map[string]any{"skill": skill})
		}
	}

	profile := &types.ProviderProfile{
		Country:          input.Country,
		State:            input.State,
		LGA:              input.LGA,
		Skills:           append([]string(nil), input.Skills...),
		Available:        input.Available,
		AvailabilityNote: input.AvailabilityNote,
	}
	if err := s.repo.UpdateProviderProfile(ctx, userID, profile); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, err
	}

	user.ProviderProfile = profile
	return FromModel(user), nil
}

// SaveAvatar sniffs the payload, stores it, and points the user at the new URL.
func (s *service) SaveAvatar(ctx context.Context, userID uuid.UUID, content []byte) (*UserDTO, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	ext, err := storage.SniffImage(content)
	if err != nil {
		return nil, errors.Wrap(errors.CodeValidation, err, "avatar must be an image")
	}

	url, err := s.files.Save(ctx, "avatar", content, ext)
	if err != nil {
		return nil, errors.Wrap(errors.CodeInternal, err, "storing avatar")
	}

	if err := s.repo.UpdateAvatar(ctx, userID, url); err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, err
	}

	user.AvatarURL = &url
	return FromModel(user), nil
}

func (s *service) ListUsers(ctx context.Context, role *enums.Role, limit, offset int) ([]UserDTO, error) {
	if role != nil && !role.IsValid() {
		return nil, errors.New(errors.CodeValidation, "invalid role filter")
	}

	records, err := s.repo.List(ctx, role, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]UserDTO, 0, len(records))
	for i := range records {
		out = append(out, *FromModel(&records[i]))
	}
	return out, nil
}

func (s *service) findUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, errors.New(errors.CodeValidation, "user id is required")
	}
	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, errors.New(errors.CodeNotFound, "user not found")
		}
		return nil, err
	}
	return user, nil
}
