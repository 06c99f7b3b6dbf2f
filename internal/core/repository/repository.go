// Package repository implements the domain repositories on PostgreSQL
// (pgx) and MongoDB. The in-memory variant lives in repository/memory.
package repository

import "github.com/duynhne/mining-service/internal/core/domain"

// Ensure interfaces are met.
var (
	_ domain.UserRepository    = (*PgxUserRepository)(nil)
	_ domain.SessionRepository = (*PgxSessionRepository)(nil)
	_ domain.TierRepository    = (*PgxTierRepository)(nil)
	_ domain.MiningRepository  = (*PgxMiningRepository)(nil)

	_ domain.UserRepository    = (*MongoUserRepository)(nil)
	_ domain.SessionRepository = (*MongoSessionRepository)(nil)
	_ domain.TierRepository    = (*MongoTierRepository)(nil)
	_ domain.MiningRepository  = (*MongoMiningRepository)(nil)
)
