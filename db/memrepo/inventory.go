// Package memrepo holds in-memory repositories used when the application runs without a database and by
// tests that need real journaling semantics.
package memrepo

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
)

var ErrForeignTx = errors.New("memrepo: transaction was not started by this repository")

// InventoryRepo keeps snapshots, journal entries and audits in maps guarded by a mutex. Writes made inside a
// transaction are staged and only become visible to other callers on Commit.
type InventoryRepo struct {
	mu            sync.Mutex
	snapshots     map[inventory.Key]inventory.Inventory
	journal       []inventory.Journal
	audits        []inventory.Audit
	nextJournalID uint64
	nextAuditID   uint64
	locks         *rowLocks
}

func NewInventoryRepo() *InventoryRepo {
	return &InventoryRepo{
		snapshots: make(map[inventory.Key]inventory.Inventory),
		locks:     newRowLocks(),
	}
}

// tx stages the writes of one transaction. deleted holds the ids of committed journal entries the transaction
// removed; only those are dropped on Commit. onCommit runs after the staged writes are applied and onClose
// after both Commit and Rollback, which is where row locks are released.
type tx struct {
	repo      *InventoryRepo
	snapshots map[inventory.Key]inventory.Inventory
	journal   []inventory.Journal
	audits    []inventory.Audit
	deleted   map[uint64]bool
	onCommit  []func()
	onClose   []func()
	done      bool
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return errors.New("memrepo: transaction already closed")
	}
	t.done = true

	t.repo.apply(t)
	for _, f := range t.onCommit {
		f()
	}
	t.close()
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.close()
	return nil
}

func (t *tx) close() {
	for _, f := range t.onClose {
		f()
	}
}

func (r *InventoryRepo) apply(t *tx) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(t.deleted) > 0 {
		kept := r.journal[:0]
		for _, j := range r.journal {
			if !t.deleted[j.ID] {
				kept = append(kept, j)
			}
		}
		r.journal = kept
	}
	for key, snapshot := range t.snapshots {
		r.snapshots[key] = snapshot
	}
	r.journal = append(r.journal, t.journal...)
	r.audits = append(r.audits, t.audits...)
}

func (r *InventoryRepo) BeginTransaction(_ context.Context) (core.Transaction, error) {
	return &tx{
		repo:      r,
		snapshots: make(map[inventory.Key]inventory.Inventory),
		deleted:   make(map[uint64]bool),
	}, nil
}

func (r *InventoryRepo) GetLevel(_ context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Inventory, inventory.Rollup, error) {
	t, err := queryTx(r, options)
	if err != nil {
		return inventory.Inventory{}, inventory.Rollup{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshot(t, key)
	if !ok {
		snapshot = inventory.Inventory{Key: key}
	}
	return snapshot, r.rollup(t, key), nil
}

func (r *InventoryRepo) GetInventory(_ context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Inventory, error) {
	t, err := queryTx(r, options)
	if err != nil {
		return inventory.Inventory{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshot(t, key)
	if !ok {
		return inventory.Inventory{}, errors.WithStack(core.ErrNotFound)
	}
	return snapshot, nil
}

// LockInventory holds key for t until it closes. Without a transaction nothing is held.
func (r *InventoryRepo) LockInventory(_ context.Context, key inventory.Key, options ...core.UpdateOptions) (inventory.Inventory, error) {
	t, err := updateTx(r, options)
	if err != nil {
		return inventory.Inventory{}, err
	}
	if t != nil {
		r.locks.acquire(t, key.String())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	snapshot, ok := r.snapshot(t, key)
	if !ok {
		snapshot = inventory.Inventory{Key: key}
	}
	return snapshot, nil
}

func (r *InventoryRepo) SaveInventory(_ context.Context, snapshot inventory.Inventory, options ...core.UpdateOptions) error {
	t, err := updateTx(r, options)
	if err != nil {
		return err
	}
	if t != nil {
		t.snapshots[snapshot.Key] = snapshot
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshots[snapshot.Key] = snapshot
	return nil
}

func (r *InventoryRepo) GetRollup(_ context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Rollup, error) {
	t, err := queryTx(r, options)
	if err != nil {
		return inventory.Rollup{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	return r.rollup(t, key), nil
}

// snapshot and rollup read what t sees, or the committed state when t is nil. Callers hold mu.
func (r *InventoryRepo) snapshot(t *tx, key inventory.Key) (inventory.Inventory, bool) {
	if t != nil {
		if snapshot, ok := t.snapshots[key]; ok {
			return snapshot, true
		}
	}
	snapshot, ok := r.snapshots[key]
	return snapshot, ok
}

func (r *InventoryRepo) rollup(t *tx, key inventory.Key) inventory.Rollup {
	rollup := inventory.Rollup{Key: key}
	for _, j := range r.journal {
		if j.Key != key || (t != nil && t.deleted[j.ID]) {
			continue
		}
		rollup = rollup.Add(j)
	}
	if t != nil {
		for _, j := range t.journal {
			if j.Key == key {
				rollup = rollup.Add(j)
			}
		}
	}
	return rollup
}

func (r *InventoryRepo) GetJournal(_ context.Context, key inventory.Key, limit, offset int, _ ...core.QueryOptions) ([]inventory.Journal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := make([]inventory.Journal, 0)
	for _, j := range r.journal {
		if j.Key == key {
			entries = append(entries, j)
		}
	}
	sort.Slice(entries, func(a, b int) bool { return entries[a].ID < entries[b].ID })
	return page(entries, limit, offset), nil
}

func (r *InventoryRepo) GetJournaledKeys(_ context.Context, limit int, _ ...core.QueryOptions) ([]inventory.Key, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	seen := make(map[inventory.Key]bool)
	keys := make([]inventory.Key, 0)
	for _, j := range r.journal {
		if !seen[j.Key] {
			seen[j.Key] = true
			keys = append(keys, j.Key)
		}
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a].String() < keys[b].String() })
	return page(keys, limit, 0), nil
}

func (r *InventoryRepo) SaveJournal(_ context.Context, journal *inventory.Journal, options ...core.UpdateOptions) error {
	t, err := updateTx(r, options)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextJournalID++
	journal.ID = r.nextJournalID
	if t != nil {
		t.journal = append(t.journal, *journal)
		return nil
	}
	r.journal = append(r.journal, *journal)
	return nil
}

func (r *InventoryRepo) DeleteJournalUpTo(_ context.Context, key inventory.Key, highWaterMark uint64, options ...core.UpdateOptions) (inventory.Rollup, error) {
	t, err := updateTx(r, options)
	if err != nil {
		return inventory.Rollup{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := inventory.Rollup{Key: key}
	if t == nil {
		for _, j := range r.journal {
			if j.Key == key && j.ID <= highWaterMark {
				removed = removed.Add(j)
			}
		}
		r.journal = removeUpTo(r.journal, key, highWaterMark)
		return removed, nil
	}

	// entries committed later by other transactions are not in r.journal yet and stay untouched
	for _, j := range r.journal {
		if j.Key == key && j.ID <= highWaterMark && !t.deleted[j.ID] {
			removed = removed.Add(j)
			t.deleted[j.ID] = true
		}
	}
	for _, j := range t.journal {
		if j.Key == key && j.ID <= highWaterMark {
			removed = removed.Add(j)
		}
	}
	t.journal = removeUpTo(t.journal, key, highWaterMark)
	return removed, nil
}

func (r *InventoryRepo) GetAudits(_ context.Context, key inventory.Key, limit, offset int, _ ...core.QueryOptions) ([]inventory.Audit, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	audits := make([]inventory.Audit, 0)
	for _, a := range r.audits {
		if a.Key == key {
			audits = append(audits, a)
		}
	}
	sort.Slice(audits, func(a, b int) bool { return audits[a].ID < audits[b].ID })
	return page(audits, limit, offset), nil
}

func (r *InventoryRepo) SaveAudit(_ context.Context, audit *inventory.Audit, options ...core.UpdateOptions) error {
	t, err := updateTx(r, options)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextAuditID++
	audit.ID = r.nextAuditID
	if t != nil {
		t.audits = append(t.audits, *audit)
		return nil
	}
	r.audits = append(r.audits, *audit)
	return nil
}

// JournalLen returns the number of committed journal entries across all keys.
func (r *InventoryRepo) JournalLen() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.journal)
}

func removeUpTo(entries []inventory.Journal, key inventory.Key, hwm uint64) []inventory.Journal {
	kept := entries[:0]
	for _, j := range entries {
		if j.Key == key && j.ID <= hwm {
			continue
		}
		kept = append(kept, j)
	}
	return kept
}

func queryTx(r *InventoryRepo, options []core.QueryOptions) (*tx, error) {
	if len(options) == 0 || options[0].Tx == nil {
		return nil, nil
	}
	return ownTx(r, options[0].Tx)
}

func updateTx(r *InventoryRepo, options []core.UpdateOptions) (*tx, error) {
	if len(options) == 0 || options[0].Tx == nil {
		return nil, nil
	}
	return ownTx(r, options[0].Tx)
}

func ownTx(r *InventoryRepo, transaction core.Transaction) (*tx, error) {
	t, err := memTx(transaction)
	if err != nil {
		return nil, err
	}
	if t.repo != r {
		return nil, ErrForeignTx
	}
	return t, nil
}

// memTx accepts a transaction begun by any InventoryRepo, which lets the other repositories of this package
// join it.
func memTx(transaction core.Transaction) (*tx, error) {
	t, ok := transaction.(*tx)
	if !ok {
		return nil, ErrForeignTx
	}
	if t.done {
		return nil, errors.New("memrepo: transaction already closed")
	}
	return t, nil
}
