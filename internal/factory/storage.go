package factory

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/planfold/planfold/server/internal/config"
	storepkg "github.com/planfold/planfold/server/internal/store"
	storepg "github.com/planfold/planfold/server/internal/store/postgres"
	storelite "github.com/planfold/planfold/server/internal/store/sqlite"
)

// NewStore returns the store.Store selected by cfg.DBDriver: sqlite for the
// local build target, postgres for cloud targets. The postgres bootstrap
// check runs async so startup is not blocked; the health checker catches a
// database that never comes up.
func NewStore(ctx context.Context, cfg *config.Config, log zerolog.Logger) (storepkg.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		db, err := storelite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return storelite.NewWithDB(db), nil

	case "postgres":
		dsn := cfg.PostgresDSN
		if dsn == "" {
			return nil, fmt.Errorf("PLANFOLD_POSTGRES_DSN is required when DB_DRIVER=postgres")
		}

		// Open the connection synchronously; health checks need it immediately.
		db, err := storepg.Open(dsn)
		if err != nil {
			return nil, err
		}

		go func() {
			bootstrapTimeout := time.Duration(cfg.BootstrapTimeoutSeconds) * time.Second
			bootstrapCtx, cancel := context.WithTimeout(ctx, bootstrapTimeout)
			defer cancel()

			if err := storepg.Bootstrap(bootstrapCtx, dsn); err != nil {
				log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store bootstrap check failed")
				return
			}
			if err := storepg.Migrate(bootstrapCtx, db); err != nil {
				log.Warn().Err(err).Str("driver", cfg.DBDriver).Msg("store migration failed")
				return
			}
			log.Debug().Str("driver", cfg.DBDriver).Msg("store bootstrap completed")
		}()

		return storepg.NewWithDB(db), nil

	default:
		return nil, fmt.Errorf("unknown DB_DRIVER: %s", cfg.DBDriver)
	}
}
