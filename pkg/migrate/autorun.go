package migrate

import (
	"context"
	"fmt"

	"github.com/cyglobaltech/storefront-backend/pkg/config"
	"github.com/cyglobaltech/storefront-backend/pkg/db"
	"github.com/cyglobaltech/storefront-backend/pkg/logger"
)

// MaybeRunDev applies pending Postgres migrations at boot when running in dev
// with STOREFRONT_AUTO_MIGRATE set. SQLite is left to db.New.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate || client.IsSQLite() {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("open sql handle: %w", err)
	}

	ctx = logg.WithField(ctx, "migrations", "embedded")
	logg.Info(ctx, "migrate.autorun.start")
	if err := Run(ctx, sqlDB, DefaultDir, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
