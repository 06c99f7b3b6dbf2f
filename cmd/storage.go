package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/duynhne/mining-service/config"
	database "github.com/duynhne/mining-service/internal/core"
	"github.com/duynhne/mining-service/internal/core/domain"
	"github.com/duynhne/mining-service/internal/core/repository"
	"github.com/duynhne/mining-service/internal/core/repository/memory"
)

// stores bundles the repositories for the selected STORAGE_DRIVER.
type stores struct {
	users    domain.UserRepository
	sessions domain.SessionRepository
	tiers    domain.TierRepository
	mining   domain.MiningRepository
	close    func(ctx context.Context)
}

func openStores(ctx context.Context, cfg *config.Config) (*stores, error) {
	switch cfg.Storage.Driver {
	case config.DriverPostgres:
		pool, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Msg("Database connection pool established")
		return &stores{
			users:    repository.NewUserRepository(pool),
			sessions: repository.NewSessionRepository(pool),
			tiers:    repository.NewTierRepository(pool),
			mining:   repository.NewMiningRepository(pool),
			close:    func(context.Context) { pool.Close() },
		}, nil

	case config.DriverMongo:
		client, db, err := database.ConnectMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		log.Info().Str("database", cfg.Mongo.Database).Msg("MongoDB connection established")
		return &stores{
			users:    repository.NewMongoUserRepository(db),
			sessions: repository.NewMongoSessionRepository(db),
			tiers:    repository.NewMongoTierRepository(db),
			mining:   repository.NewMongoMiningRepository(db),
			close: func(ctx context.Context) {
				if err := client.Disconnect(ctx); err != nil {
					log.Error().Err(err).Msg("MongoDB disconnect error")
				}
			},
		}, nil

	case config.DriverMemory:
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		db := memory.New()
		return &stores{
			users:    db.Users(),
			sessions: db.Sessions(),
			tiers:    db.Tiers(),
			mining:   db.Mining(),
			close:    func(context.Context) {},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}
