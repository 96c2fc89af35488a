package auth

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cyglobaltech/storefront-backend/internal/users"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/enums"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
	"github.com/cyglobaltech/storefront-backend/pkg/security"
)

// Register creates an account with role user and an unverified email.
func (s *service) Register(ctx context.Context, req RegisterRequest) (*users.Profile, error) {
	if err := ValidateRegistration(req); err != nil {
		s.metrics.Registration(metricsModel, metrics.OutcomeRejected)
		return nil, err
	}
	email := normalizeEmail(req.Email)

	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		s.metrics.Registration(metricsModel, metrics.OutcomeRejected)
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
	} else if !db.IsNotFound(err) {
		s.metrics.Registration(metricsModel, metrics.OutcomeFailure)
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "registration failed")
	}

	hash, err := security.HashPassword(req.Password, s.passwordCfg)
	if err != nil {
		s.metrics.Registration(metricsModel, metrics.OutcomeFailure)
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}

	user, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(req.Name),
		Surname:      strings.TrimSpace(req.Surname),
		Role:         enums.RoleUser,
	})
	if err != nil {
		if db.IsUniqueViolation(err, "") {
			s.metrics.Registration(metricsModel, metrics.OutcomeRejected)
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "email already registered")
		}
		s.metrics.Registration(metricsModel, metrics.OutcomeFailure)
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "registration failed")
	}

	s.metrics.Registration(metricsModel, metrics.OutcomeSuccess)
	s.logg.Info(s.logg.WithUserID(ctx, user.ID.String()), "user registered")
	return users.FromModel(user), nil
}

// ValidateRegistration applies the sign-up form rules in order: every field
// present, passwords equal, minimum password length. The local credential
// model shares them.
func ValidateRegistration(req RegisterRequest) error {
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Surname) == "" ||
		strings.TrimSpace(req.Email) == "" || req.Password == "" || req.ConfirmPassword == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "please fill in all fields")
	}
	if req.Password != req.ConfirmPassword {
		return pkgerrors.New(pkgerrors.CodeValidation, "passwords do not match")
	}
	if utf8.RuneCountInString(req.Password) < security.MinPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}
	return nil
}
