package services

import (
	"context"

	"github.com/desp-aas/project-management/internal/models"
	"github.com/desp-aas/project-management/internal/repository"
	appErr "github.com/desp-aas/project-management/pkg/errors"
	"github.com/desp-aas/project-management/pkg/logger"
	"github.com/desp-aas/project-management/pkg/utils"
	"go.uber.org/zap"
)

type ProfileService interface {
	// GetOrCreate returns the actor's profile, creating it with a generated password on first use.
	GetOrCreate(ctx context.Context, actor Actor) (*models.Profile, error)
}

type profileService struct {
	profiles repository.ProfileRepository
}

func NewProfileService(profiles repository.ProfileRepository) ProfileService {
	return &profileService{profiles: profiles}
}

var _ ProfileService = (*profileService)(nil)

func (s *profileService) GetOrCreate(ctx context.Context, actor Actor) (*models.Profile, error) {
	if actor.OwnerID == "" {
		return nil, appErr.New(appErr.CodeNotFound, "no profile for the current user")
	}

	p, err := s.profiles.GetByOwner(ctx, actor.OwnerID)
	if err == nil {
		return p, nil
	}
	if !appErr.IsCode(err, appErr.CodeNotFound) {
		return nil, err
	}

	password, err := utils.GeneratePassword()
	if err != nil {
		return nil, appErr.Wrap(err, appErr.CodeInternal, "generate profile password failed")
	}
	p, err = s.profiles.CreateIfAbsent(ctx, &models.Profile{
		Username:    actor.Username,
		Password:    password,
		DespOwnerID: actor.OwnerID,
	})
	if err != nil {
		return nil, err
	}
	logger.L().Info("profile created", zap.String("profile_id", p.ID.String()), zap.String("username", p.Username))
	return p, nil
}
