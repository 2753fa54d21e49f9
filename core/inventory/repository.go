package inventory

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/sksmith/inventory-allocation/core"
)

func rollback(ctx context.Context, tx core.Transaction, err error) {
	if tx == nil {
		return
	}
	e := tx.Rollback(ctx)
	if e != nil {
		log.Warn().Err(err).AnErr("rollbackErr", e).Msg("failed to rollback")
	}
}

type Transactional interface {
	BeginTransaction(ctx context.Context) (core.Transaction, error)
}

type Repository interface {
	Transactional
	SnapshotRepository
	JournalRepository
	AuditRepository

	// GetLevel reads the snapshot and the rollup of key as of one point in time, so a compaction committing
	// in between cannot be seen half applied. An absent snapshot is returned as a zero baseline.
	GetLevel(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, Rollup, error)
}

type SnapshotRepository interface {
	GetInventory(ctx context.Context, key Key, options ...core.QueryOptions) (Inventory, error)
	// LockInventory holds the snapshot row of key until the transaction ends, creating a zero row when there
	// is none yet, and returns it.
	LockInventory(ctx context.Context, key Key, options ...core.UpdateOptions) (Inventory, error)

	SaveInventory(ctx context.Context, inventory Inventory, options ...core.UpdateOptions) error
}

type JournalRepository interface {
	GetRollup(ctx context.Context, key Key, options ...core.QueryOptions) (Rollup, error)
	GetJournal(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Journal, error)
	GetJournaledKeys(ctx context.Context, limit int, options ...core.QueryOptions) ([]Key, error)

	SaveJournal(ctx context.Context, journal *Journal, options ...core.UpdateOptions) error
	// DeleteJournalUpTo removes the entries of key with an id no greater than highWaterMark and returns the sum
	// of exactly the entries it removed.
	DeleteJournalUpTo(ctx context.Context, key Key, highWaterMark uint64, options ...core.UpdateOptions) (Rollup, error)
}

type AuditRepository interface {
	GetAudits(ctx context.Context, key Key, limit, offset int, options ...core.QueryOptions) ([]Audit, error)

	SaveAudit(ctx context.Context, audit *Audit, options ...core.UpdateOptions) error
}

// Queue receives the level of a key after each committed change.
type Queue interface {
	PublishInventory(ctx context.Context, inventory Dto) error
}
