package auth

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/db/models"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
	"github.com/cyglobaltech/storefront-backend/pkg/security"
)

// ResetNotifier delivers a reset token to the account owner.
type ResetNotifier interface {
	SendPasswordReset(ctx context.Context, email, token string, expires time.Time) error
}

// LogNotifier writes reset tokens to the service log. It stands in for a
// mail provider in development.
type LogNotifier struct {
	Logg *logger.Logger
}

func (n LogNotifier) SendPasswordReset(ctx context.Context, email, token string, expires time.Time) error {
	if n.Logg == nil {
		return fmt.Errorf("logger required")
	}
	ctx = n.Logg.WithFields(ctx, map[string]any{
		"email":      email,
		"expires_at": expires.Format(time.RFC3339),
	})
	n.Logg.Info(ctx, "password reset issued")
	n.Logg.Debug(n.Logg.WithField(ctx, "reset_token", token), "password reset token")
	return nil
}

type resetStore interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	PasswordResetKey(token string) string
}

type resetUserRepository interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error
}

// PasswordReset issues and redeems one-time reset tokens held in Redis.
type PasswordReset struct {
	users       resetUserRepository
	store       resetStore
	notifier    ResetNotifier
	ttl         time.Duration
	passwordCfg config.PasswordConfig
	logg        *logger.Logger
	now         func() time.Time
}

// PasswordResetParams bundles the reset flow dependencies.
type PasswordResetParams struct {
	UserRepo       resetUserRepository
	Store          resetStore
	Notifier       ResetNotifier
	JWTConfig      config.JWTConfig
	PasswordConfig config.PasswordConfig
	Logger         *logger.Logger
}

func NewPasswordReset(params PasswordResetParams) (*PasswordReset, error) {
	if params.UserRepo == nil {
		return nil, fmt.Errorf("user repository is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("reset store is required")
	}
	if params.Notifier == nil {
		return nil, fmt.Errorf("reset notifier is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	ttl := params.JWTConfig.ResetTokenTTL()
	if ttl <= 0 {
		return nil, fmt.Errorf("reset token ttl must be positive")
	}
	return &PasswordReset{
		users:       params.UserRepo,
		store:       params.Store,
		notifier:    params.Notifier,
		ttl:         ttl,
		passwordCfg: params.PasswordConfig,
		logg:        params.Logger,
		now:         time.Now,
	}, nil
}

// NewRedisPasswordReset is NewPasswordReset with Redis as the token store.
func NewRedisPasswordReset(client *redisclient.Client, params PasswordResetParams) (*PasswordReset, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	params.Store = client
	return NewPasswordReset(params)
}

// RequestReset issues a token for a known email. Unknown emails are reported
// rather than silently accepted.
func (p *PasswordReset) RequestReset(ctx context.Context, email string) error {
	normalized := normalizeEmail(email)
	if normalized == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "please enter your email")
	}
	user, err := p.users.FindByEmail(ctx, normalized)
	if err != nil {
		if db.IsNotFound(err) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "No account found with that email.")
		}
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "password reset failed")
	}

	token, err := security.GenerateResetToken()
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate reset token")
	}
	if err := p.store.Set(ctx, p.store.PasswordResetKey(token), user.ID.String(), p.ttl); err != nil {
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "password reset failed")
	}
	if err := p.notifier.SendPasswordReset(ctx, user.Email, token, p.now().Add(p.ttl)); err != nil {
		_ = p.store.Del(ctx, p.store.PasswordResetKey(token))
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not send reset email")
	}
	return nil
}

// ConfirmReset sets a new password and burns the token.
func (p *PasswordReset) ConfirmReset(ctx context.Context, token, newPassword string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "reset token is required")
	}
	if utf8.RuneCountInString(newPassword) < security.MinPasswordLength {
		return pkgerrors.New(pkgerrors.CodeValidation, "password must be at least 6 characters")
	}

	key := p.store.PasswordResetKey(token)
	raw, err := p.store.Get(ctx, key)
	if err != nil {
		if redisclient.IsNil(err) {
			return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
		}
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "password reset failed")
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid or expired reset token")
	}

	hash, err := security.HashPassword(newPassword, p.passwordCfg)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash password")
	}
	if err := p.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "password reset failed")
	}
	if err := p.store.Del(ctx, key); err != nil {
		p.logg.Warn(p.logg.WithUserID(ctx, userID.String()), "reset token not deleted after use")
	}
	p.logg.Info(p.logg.WithUserID(ctx, userID.String()), "password reset completed")
	return nil
}
