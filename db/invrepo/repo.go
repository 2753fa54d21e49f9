package invrepo

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/inventory"
	"github.com/sksmith/inventory-allocation/db"
)

type dbRepo struct {
	conn core.Conn
}

func NewPostgresRepo(conn core.Conn) inventory.Repository {
	return &dbRepo{
		conn: conn,
	}
}

func (d *dbRepo) GetInventory(ctx context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Inventory, error) {
	m := db.StartMetric("inventory", "GetInventory")
	tx, forUpdate := db.GetQueryOptions(d.conn, options...)

	inv := inventory.Inventory{Key: key}
	err := tx.QueryRow(ctx, `
		SELECT quantity_on_hand, allocated_quantity, reserved_quantity, reorder_minimum, reorder_quantity
		  FROM inventory
		 WHERE sku_code = $1 AND warehouse_id = $2 `+forUpdate,
		key.SkuCode, key.WarehouseID).
		Scan(&inv.QuantityOnHand, &inv.AllocatedQuantity, &inv.ReservedQuantity, &inv.ReorderMinimum, &inv.ReorderQuantity)

	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return inv, errors.WithStack(core.ErrNotFound)
		}
		return inv, errors.WithStack(err)
	}

	m.Complete(nil)
	return inv, nil
}

// LockInventory upserts instead of selecting FOR UPDATE, so a key without a snapshot row is held as well.
func (d *dbRepo) LockInventory(ctx context.Context, key inventory.Key, options ...core.UpdateOptions) (inventory.Inventory, error) {
	m := db.StartMetric("inventory", "LockInventory")
	tx := db.GetUpdateOptions(d.conn, options...)

	inv := inventory.Inventory{Key: key}
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory (sku_code, warehouse_id)
		               VALUES ($1, $2)
		ON CONFLICT (sku_code, warehouse_id)
		DO UPDATE SET sku_code = EXCLUDED.sku_code
		RETURNING quantity_on_hand, allocated_quantity, reserved_quantity, reorder_minimum, reorder_quantity`,
		key.SkuCode, key.WarehouseID).
		Scan(&inv.QuantityOnHand, &inv.AllocatedQuantity, &inv.ReservedQuantity, &inv.ReorderMinimum, &inv.ReorderQuantity)
	if err != nil {
		m.Complete(err)
		return inv, errors.WithStack(err)
	}

	m.Complete(nil)
	return inv, nil
}

// GetLevel reads the snapshot and the journal sums in one statement, so both come from the same snapshot of
// the database.
func (d *dbRepo) GetLevel(ctx context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Inventory, inventory.Rollup, error) {
	m := db.StartMetric("inventory", "GetLevel")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	inv := inventory.Inventory{Key: key}
	rollup := inventory.Rollup{Key: key}
	var hwm int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(i.quantity_on_hand, 0), COALESCE(i.allocated_quantity, 0), COALESCE(i.reserved_quantity, 0),
		       COALESCE(i.reorder_minimum, 0), COALESCE(i.reorder_quantity, 0),
		       j.quantity_on_hand_delta, j.allocated_quantity_delta, j.entries, j.high_water_mark
		  FROM (SELECT COALESCE(SUM(quantity_on_hand_delta), 0)::bigint AS quantity_on_hand_delta,
		               COALESCE(SUM(allocated_quantity_delta), 0)::bigint AS allocated_quantity_delta,
		               COUNT(*) AS entries, COALESCE(MAX(id), 0) AS high_water_mark
		          FROM inventory_journal
		         WHERE sku_code = $1 AND warehouse_id = $2) j
		  LEFT JOIN inventory i ON i.sku_code = $1 AND i.warehouse_id = $2`,
		key.SkuCode, key.WarehouseID).
		Scan(&inv.QuantityOnHand, &inv.AllocatedQuantity, &inv.ReservedQuantity, &inv.ReorderMinimum, &inv.ReorderQuantity,
			&rollup.QuantityOnHandDelta, &rollup.AllocatedQuantityDelta, &rollup.Entries, &hwm)
	if err != nil {
		m.Complete(err)
		return inv, rollup, errors.WithStack(err)
	}

	rollup.HighWaterMark = uint64(hwm)
	m.Complete(nil)
	return inv, rollup, nil
}

func (d *dbRepo) SaveInventory(ctx context.Context, inv inventory.Inventory, options ...core.UpdateOptions) error {
	m := db.StartMetric("inventory", "SaveInventory")
	tx := db.GetUpdateOptions(d.conn, options...)

	ct, err := tx.Exec(ctx, `
		UPDATE inventory
		   SET quantity_on_hand = $3, allocated_quantity = $4, reserved_quantity = $5,
		       reorder_minimum = $6, reorder_quantity = $7
		 WHERE sku_code = $1 AND warehouse_id = $2;`,
		inv.SkuCode, inv.WarehouseID, inv.QuantityOnHand, inv.AllocatedQuantity, inv.ReservedQuantity,
		inv.ReorderMinimum, inv.ReorderQuantity)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		_, err = tx.Exec(ctx, `
		INSERT INTO inventory (sku_code, warehouse_id, quantity_on_hand, allocated_quantity, reserved_quantity,
		                       reorder_minimum, reorder_quantity)
		                VALUES ($1, $2, $3, $4, $5, $6, $7);`,
			inv.SkuCode, inv.WarehouseID, inv.QuantityOnHand, inv.AllocatedQuantity, inv.ReservedQuantity,
			inv.ReorderMinimum, inv.ReorderQuantity)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}
	m.Complete(nil)
	return nil
}

func (d *dbRepo) GetRollup(ctx context.Context, key inventory.Key, options ...core.QueryOptions) (inventory.Rollup, error) {
	m := db.StartMetric("inventory", "GetRollup")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	rollup := inventory.Rollup{Key: key}
	var hwm int64
	err := tx.QueryRow(ctx, `
		SELECT COALESCE(SUM(quantity_on_hand_delta), 0)::bigint, COALESCE(SUM(allocated_quantity_delta), 0)::bigint,
		       COUNT(*), COALESCE(MAX(id), 0)
		  FROM inventory_journal
		 WHERE sku_code = $1 AND warehouse_id = $2`,
		key.SkuCode, key.WarehouseID).
		Scan(&rollup.QuantityOnHandDelta, &rollup.AllocatedQuantityDelta, &rollup.Entries, &hwm)
	if err != nil {
		m.Complete(err)
		return rollup, errors.WithStack(err)
	}

	rollup.HighWaterMark = uint64(hwm)
	m.Complete(nil)
	return rollup, nil
}

func (d *dbRepo) GetJournal(ctx context.Context, key inventory.Key, limit, offset int, options ...core.QueryOptions) ([]inventory.Journal, error) {
	m := db.StartMetric("inventory", "GetJournal")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	rows, err := tx.Query(ctx, `
		SELECT id, quantity_on_hand_delta, allocated_quantity_delta, event_type, originator, created
		  FROM inventory_journal
		 WHERE sku_code = $1 AND warehouse_id = $2
		 ORDER BY id
		 LIMIT $3 OFFSET $4`,
		key.SkuCode, key.WarehouseID, limit, offset)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	entries := make([]inventory.Journal, 0)
	for rows.Next() {
		j := inventory.Journal{Key: key}
		var id int64
		var eventType string
		if err = rows.Scan(&id, &j.QuantityOnHandDelta, &j.AllocatedQuantityDelta, &eventType, &j.Originator, &j.Created); err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		j.ID = uint64(id)
		j.EventType = inventory.EventType(eventType)
		entries = append(entries, j)
	}
	if err = rows.Err(); err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	m.Complete(nil)
	return entries, nil
}

func (d *dbRepo) GetJournaledKeys(ctx context.Context, limit int, options ...core.QueryOptions) ([]inventory.Key, error) {
	m := db.StartMetric("inventory", "GetJournaledKeys")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	rows, err := tx.Query(ctx, `
		SELECT DISTINCT sku_code, warehouse_id
		  FROM inventory_journal
		 ORDER BY sku_code, warehouse_id
		 LIMIT $1`,
		limit)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	keys := make([]inventory.Key, 0)
	for rows.Next() {
		key := inventory.Key{}
		if err = rows.Scan(&key.SkuCode, &key.WarehouseID); err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		keys = append(keys, key)
	}
	if err = rows.Err(); err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	m.Complete(nil)
	return keys, nil
}

func (d *dbRepo) SaveJournal(ctx context.Context, journal *inventory.Journal, options ...core.UpdateOptions) error {
	m := db.StartMetric("inventory", "SaveJournal")
	tx := db.GetUpdateOptions(d.conn, options...)

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_journal (sku_code, warehouse_id, quantity_on_hand_delta, allocated_quantity_delta,
		                               event_type, originator, created)
		                       VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;`,
		journal.Key.SkuCode, journal.Key.WarehouseID, journal.QuantityOnHandDelta, journal.AllocatedQuantityDelta,
		string(journal.EventType), journal.Originator, journal.Created).
		Scan(&id)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	journal.ID = uint64(id)
	m.Complete(nil)
	return nil
}

// DeleteJournalUpTo deletes and sums in one statement so the rollup matches exactly the rows removed.
func (d *dbRepo) DeleteJournalUpTo(ctx context.Context, key inventory.Key, highWaterMark uint64, options ...core.UpdateOptions) (inventory.Rollup, error) {
	m := db.StartMetric("inventory", "DeleteJournalUpTo")
	tx := db.GetUpdateOptions(d.conn, options...)

	removed := inventory.Rollup{Key: key}
	var hwm int64
	err := tx.QueryRow(ctx, `
		WITH removed AS (
			DELETE FROM inventory_journal
			 WHERE sku_code = $1 AND warehouse_id = $2 AND id <= $3
			RETURNING id, quantity_on_hand_delta, allocated_quantity_delta
		)
		SELECT COALESCE(SUM(quantity_on_hand_delta), 0)::bigint, COALESCE(SUM(allocated_quantity_delta), 0)::bigint,
		       COUNT(*), COALESCE(MAX(id), 0)
		  FROM removed`,
		key.SkuCode, key.WarehouseID, int64(highWaterMark)).
		Scan(&removed.QuantityOnHandDelta, &removed.AllocatedQuantityDelta, &removed.Entries, &hwm)
	if err != nil {
		m.Complete(err)
		return removed, errors.WithStack(err)
	}

	removed.HighWaterMark = uint64(hwm)
	m.Complete(nil)
	return removed, nil
}

func (d *dbRepo) GetAudits(ctx context.Context, key inventory.Key, limit, offset int, options ...core.QueryOptions) ([]inventory.Audit, error) {
	m := db.StartMetric("inventory", "GetAudits")
	tx, _ := db.GetQueryOptions(d.conn, options...)

	rows, err := tx.Query(ctx, `
		SELECT id, COALESCE(journal_id, 0), event_type, quantity, originator, created
		  FROM inventory_audit
		 WHERE sku_code = $1 AND warehouse_id = $2
		 ORDER BY id
		 LIMIT $3 OFFSET $4`,
		key.SkuCode, key.WarehouseID, limit, offset)
	if err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}
	defer rows.Close()

	audits := make([]inventory.Audit, 0)
	for rows.Next() {
		a := inventory.Audit{Key: key}
		var id, journalID int64
		var eventType string
		if err = rows.Scan(&id, &journalID, &eventType, &a.Quantity, &a.Originator, &a.Created); err != nil {
			m.Complete(err)
			return nil, errors.WithStack(err)
		}
		a.ID = uint64(id)
		a.JournalID = uint64(journalID)
		a.EventType = inventory.EventType(eventType)
		audits = append(audits, a)
	}
	if err = rows.Err(); err != nil {
		m.Complete(err)
		return nil, errors.WithStack(err)
	}

	m.Complete(nil)
	return audits, nil
}

func (d *dbRepo) SaveAudit(ctx context.Context, audit *inventory.Audit, options ...core.UpdateOptions) error {
	m := db.StartMetric("inventory", "SaveAudit")
	tx := db.GetUpdateOptions(d.conn, options...)

	var journalID *int64
	if audit.JournalID != 0 {
		id := int64(audit.JournalID)
		journalID = &id
	}

	var id int64
	err := tx.QueryRow(ctx, `
		INSERT INTO inventory_audit (journal_id, sku_code, warehouse_id, event_type, quantity, originator, created)
		                     VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id;`,
		journalID, audit.Key.SkuCode, audit.Key.WarehouseID, string(audit.EventType), audit.Quantity, audit.Originator, audit.Created).
		Scan(&id)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}

	audit.ID = uint64(id)
	m.Complete(nil)
	return nil
}

func (d *dbRepo) BeginTransaction(ctx context.Context) (core.Transaction, error) {
	tx, err := d.conn.Begin(ctx)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return tx, nil
}
