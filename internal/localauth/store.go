package localauth

import (
	"context"
	"crypto/subtle"
	"fmt"
	"time"

	"github.com/cyglobaltech/storefront-backend/internal/identity"
	pkgerrors "github.com/cyglobaltech/storefront-backend/pkg/errors"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
	"github.com/cyglobaltech/storefront-backend/pkg/metrics"
	redisclient "github.com/cyglobaltech/storefront-backend/pkg/redis"
)

const metricsModel = "local"

type kv interface {
	HSetNX(ctx context.Context, key, field string, value any) (bool, error)
	HGet(ctx context.Context, key, field string) (string, error)
	HLen(ctx context.Context, key string) (int64, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
}

type keyer interface {
	LocalUsersKey(deviceID string) string
	LocalSessionKey(deviceID string) string
}

// Store is the device-local credential store. Each device namespace holds two
// keys: the record set (a hash keyed by exact email) and the logged-in pointer.
// It is independent of the server accounts in internal/auth.
type Store struct {
	kv      kv
	keys    keyer
	logg    *logger.Logger
	metrics *metrics.Storefront
}

// NewStore wires the store to Redis.
func NewStore(client *redisclient.Client, logg *logger.Logger, m *metrics.Storefront) (*Store, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Store{kv: client, keys: client, logg: logg, metrics: m}, nil
}

// Device returns the namespace for one device.
func (s *Store) Device(deviceID string) (*Device, error) {
	if !identity.ValidDeviceID(deviceID) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid device id")
	}
	return &Device{
		store:      s,
		id:         deviceID,
		usersKey:   s.keys.LocalUsersKey(deviceID),
		sessionKey: s.keys.LocalSessionKey(deviceID),
	}, nil
}

// Device is one device's credential namespace.
type Device struct {
	store      *Store
	id         string
	usersKey   string
	sessionKey string
}

// ID returns the device identifier.
func (d *Device) ID() string {
	return d.id
}

// Register adds a record and reports false when the exact email (case-sensitive)
// is already present. No format or strength checks happen here.
func (d *Device) Register(ctx context.Context, email, password, name, surname string) (bool, error) {
	raw, err := Record{Email: email, Password: password, Name: name, Surname: surname}.encode()
	if err != nil {
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "could not encode record")
	}
	created, err := d.store.kv.HSetNX(ctx, d.usersKey, email, raw)
	if err != nil {
		d.store.metrics.Registration(metricsModel, metrics.OutcomeFailure)
		return false, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "registration failed")
	}
	if !created {
		d.store.metrics.Registration(metricsModel, metrics.OutcomeRejected)
		return false, nil
	}
	d.store.metrics.Registration(metricsModel, metrics.OutcomeSuccess)
	d.store.logg.Info(d.store.logg.WithDeviceID(ctx, d.id), "local user registered")
	return true, nil
}

// Login succeeds iff a record with exactly this email and password exists. On
// success the logged-in pointer is overwritten with email.
func (d *Device) Login(ctx context.Context, email, password string) (bool, error) {
	rec, err := d.lookup(ctx, email)
	if err != nil {
		d.store.metrics.Login(metricsModel, metrics.OutcomeFailure)
		return false, err
	}
	if rec == nil || subtle.ConstantTimeCompare([]byte(rec.Password), []byte(password)) != 1 {
		d.store.metrics.Login(metricsModel, metrics.OutcomeRejected)
		return false, nil
	}
	if err := d.store.kv.Set(ctx, d.sessionKey, email, 0); err != nil {
		d.store.metrics.Login(metricsModel, metrics.OutcomeFailure)
		return false, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "login failed")
	}
	d.store.metrics.Login(metricsModel, metrics.OutcomeSuccess)
	return true, nil
}

// Logout clears the logged-in pointer. Calling it with no pointer set is fine.
func (d *Device) Logout(ctx context.Context) error {
	if err := d.store.kv.Del(ctx, d.sessionKey); err != nil {
		return pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "logout failed")
	}
	return nil
}

// CurrentUser resolves the pointer. It returns nil when nothing is set or the
// pointer names an email with no record.
func (d *Device) CurrentUser(ctx context.Context) (*Record, error) {
	email, err := d.store.kv.Get(ctx, d.sessionKey)
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not read session")
	}
	rec, err := d.lookup(ctx, email)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		d.store.logg.Warn(d.store.logg.WithDeviceID(ctx, d.id), "local session points at a missing record")
	}
	return rec, nil
}

// Count returns the number of records in the namespace.
func (d *Device) Count(ctx context.Context) (int64, error) {
	n, err := d.store.kv.HLen(ctx, d.usersKey)
	if err != nil {
		return 0, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not count records")
	}
	return n, nil
}

// ImportReport summarises an ImportLegacy run.
type ImportReport struct {
	Imported   int      `json:"imported"`
	Duplicates int      `json:"duplicates"`
	Rejected   []string `json:"rejected"`
}

// ImportLegacy loads records in the old delimited format. Ambiguous records are
// reported in Rejected and never stored; existing emails are left untouched.
func (d *Device) ImportLegacy(ctx context.Context, raws []string) (ImportReport, error) {
	report := ImportReport{Rejected: []string{}}
	for _, raw := range raws {
		rec, err := DecodeLegacy(raw)
		if err != nil {
			report.Rejected = append(report.Rejected, raw)
			continue
		}
		created, err := d.Register(ctx, rec.Email, rec.Password, rec.Name, rec.Surname)
		if err != nil {
			return report, err
		}
		if created {
			report.Imported++
		} else {
			report.Duplicates++
		}
	}
	if len(report.Rejected) > 0 {
		ctx = d.store.logg.WithFields(d.store.logg.WithDeviceID(ctx, d.id), map[string]any{"rejected": len(report.Rejected)})
		d.store.logg.Warn(ctx, "legacy import skipped ambiguous records")
	}
	return report, nil
}

func (d *Device) lookup(ctx context.Context, email string) (*Record, error) {
	raw, err := d.store.kv.HGet(ctx, d.usersKey, email)
	if err != nil {
		if redisclient.IsNil(err) {
			return nil, nil
		}
		return nil, pkgerrors.Wrapf(pkgerrors.CodeDependency, err, "could not read credentials")
	}
	rec, err := decodeRecord(raw)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "corrupt credential record")
	}
	return rec, nil
}
