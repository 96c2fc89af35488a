package users

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

type profileRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	UpdateContact(ctx context.Context, id uuid.UUID, name, surname, phone string) (bool, error)
}

// Service answers profile reads and edits for signed-in users.
type Service struct {
	repo profileRepository
	logg *logger.Logger
}

func NewService(repo profileRepository, logg *logger.Logger) (*Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Service{repo: repo, logg: logg}, nil
}

// GetProfile returns nil, nil when no profile exists. Backend failures are
// returned as errors rather than folded into "not found".
func (s *Service) GetProfile(ctx context.Context, uid uuid.UUID) (*Profile, error) {
	if uid == uuid.Nil {
		return nil, nil
	}
	user, err := s.repo.FindByID(ctx, uid)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not load profile")
	}
	return FromModel(user), nil
}

// UpdateProfile writes name, surname and phone and nothing else. Callers
// validate name and surname; phone may be empty.
func (s *Service) UpdateProfile(ctx context.Context, uid uuid.UUID, name, surname, phone string) error {
	if uid == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id is required")
	}
	matched, err := s.repo.UpdateContact(ctx, uid, name, surname, phone)
	if err != nil {
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not update profile")
	}
	if !matched {
		return pkgerrors.New(pkgerrors.CodeNotFound, "profile not found")
	}
	s.logg.Info(s.logg.WithUserID(ctx, uid.String()), "profile updated")
	return nil
}

// IsAdmin reports whether the session's stored profile has role exactly
// "admin". It never fails: lookup errors are logged and answered false.
func (s *Service) IsAdmin(ctx context.Context, sess *identity.Session) bool {
	if !sess.Active() {
		return false
	}
	profile, err := s.GetProfile(ctx, sess.UserID)
	if err != nil {
		s.logg.Warn(s.logg.WithField(s.logg.WithUserID(ctx, sess.UserID.String()), "error", err.Error()), "admin check failed")
		return false
	}
	return profile != nil && profile.Role == enums.RoleAdmin
}
