package main

import (
	"context"
	"database/sql"
	"sync"
	"sync/atomic"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"sneaker_hub/internal/adapters/observability"
	"sneaker_hub/internal/app"
	"sneaker_hub/internal/shared"
	mysqlrepo "sneaker_hub/internal/storage/mysql"
)

// seeder creates empty owner records for SEED_OWNER_IDS so listings can be
// created against them in local environments.
func main() {
	ctx := context.Background()
	cfg := shared.Load()

	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)

	log.Info().
		Int("owners", len(cfg.SeedOwnerIDs)).
		Int("workers", cfg.SeedWorkers).
		Msg("seeder starting")

	raw, err := sql.Open("mysql", cfg.MySQLDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("sql.Open failed")
	}
	if err := raw.Ping(); err != nil {
		log.Fatal().Err(err).Msg("db.Ping failed")
	}
	db := mysqlrepo.Open(raw, "mysql")
	defer db.Close()
	if err := mysqlrepo.EnsureSchema(ctx, db); err != nil {
		log.Fatal().Err(err).Msg("schema setup failed")
	}

	prov := app.NewOwnerProvisioner(mysqlrepo.NewOwnerStore(db))
	sem := semaphore.NewWeighted(int64(max(cfg.SeedWorkers, 1)))
	var (
		wg              sync.WaitGroup
		created, failed atomic.Int64
	)

	for _, id := range cfg.SeedOwnerIDs {
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			log.Fatal().Err(err).Msg("semaphore acquire failed")
		}

		wg.Add(1)
		go func(ownerID string) {
			defer wg.Done()
			defer sem.Release(1)

			ok, err := prov.Ensure(ctx, ownerID)
			if err != nil {
				failed.Add(1)
				log.Warn().Str("owner_id", ownerID).Err(err).Msg("provisioning failed")
				return
			}
			if ok {
				created.Add(1)
				log.Info().Str("owner_id", ownerID).Msg("owner created")
			}
		}(id)
	}

	wg.Wait()
	log.Info().Int64("created", created.Load()).Int64("failed", failed.Load()).Msg("seeding completed")
}
