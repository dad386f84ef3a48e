package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-backend/pkg/config"
	"github.com/angelmondragon/storefront-backend/pkg/db"
	"github.com/angelmondragon/storefront-backend/pkg/logger"
)

// autoApplyLockKey serializes boot-time migrations when several processes start together.
const autoApplyLockKey int64 = 0x53544f5245

// ShouldAutoApply reports whether processes should migrate on boot: dev only,
// behind STOREFRONT_AUTO_MIGRATE, and never against SQLite.
func ShouldAutoApply(cfg *config.Config) bool {
	return cfg != nil && cfg.App.IsDev() && cfg.FeatureFlags.AutoMigrate && !cfg.DB.IsSQLite()
}

// AutoApply runs the embedded migrations up to the latest version while holding
// a session advisory lock.
func AutoApply(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) (err error) {
	if !ShouldAutoApply(cfg) {
		return nil
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}
	conn, err := sqlDB.Conn(ctx)
	if err != nil {
		return fmt.Errorf("reserve migration connection: %w", err)
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "SELECT pg_advisory_lock($1)", autoApplyLockKey); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, unlockErr := conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock($1)", autoApplyLockKey); unlockErr != nil && err == nil {
			err = fmt.Errorf("release migration lock: %w", unlockErr)
		}
	}()

	runner, err := NewRunner(sqlDB, nil)
	if err != nil {
		return err
	}
	before, err := runner.Version()
	if err != nil {
		return err
	}
	if err := runner.Run(ctx, "up"); err != nil {
		return err
	}
	after, err := runner.Version()
	if err != nil {
		return err
	}

	logg.Info(logg.WithFields(ctx, map[string]any{
		"env":          cfg.App.Env,
		"from_version": before,
		"to_version":   after,
	}), "schema migrations applied on boot")
	return nil
}
