package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/warehouse/pkg/config"
	"github.com/angelmondragon/warehouse/pkg/db"
	"github.com/angelmondragon/warehouse/pkg/logger"
)

// MaybeAutoRun applies the embedded migrations when the auto-migrate flag is
// set. Outside dev it only runs "up"; in dev it refreshes the schema, which
// drops all data.
func MaybeAutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	command := "up"
	if cfg.App.IsDev() && cfg.FeatureFlags.RefreshOnStart {
		command = "refresh"
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":     cfg.App.Env,
		"dialect": client.Dialect(),
		"command": command,
	})
	logg.Info(ctx, "running embedded goose migrations")

	if err := Run(ctx, sqlDB, client.Dialect(), Embedded(client.Dialect()), command); err != nil {
		return fmt.Errorf("running goose %s: %w", command, err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
