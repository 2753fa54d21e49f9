// Package cartrepo stores cart orders in Postgres.
package cartrepo

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/cartorder"
	"github.com/sksmith/inventory-allocation/db"
)

type dbRepo struct {
	conn core.Conn
}

func NewPostgresRepo(conn core.Conn) cartorder.Repository {
	return &dbRepo{conn: conn}
}

func (d *dbRepo) Insert(ctx context.Context, order cartorder.CartOrder) error {
	m := db.StartMetric("cartorder", "InsertCartOrder")

	_, err := d.conn.Exec(ctx, `
		INSERT INTO cart_orders (id, cart_guid, store_code, created)
		                 VALUES ($1, $2, $3, $4);`,
		order.ID, order.CartGUID, order.StoreCode, order.Created)
	if err != nil {
		if db.IsUniqueViolation(err) {
			m.Complete(nil)
			return errors.WithStack(cartorder.ErrDuplicate)
		}
		m.Complete(err)
		return errors.WithStack(err)
	}

	m.Complete(nil)
	return nil
}

func (d *dbRepo) GetByCart(ctx context.Context, cartGUID string) (cartorder.CartOrder, error) {
	m := db.StartMetric("cartorder", "GetCartOrderByCart")

	order := cartorder.CartOrder{}
	err := d.conn.QueryRow(ctx, `
		SELECT id, cart_guid, store_code, created
		  FROM cart_orders
		 WHERE cart_guid = $1`,
		cartGUID).
		Scan(&order.ID, &order.CartGUID, &order.StoreCode, &order.Created)
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return order, errors.WithStack(core.ErrNotFound)
		}
		return order, errors.WithStack(err)
	}

	m.Complete(nil)
	return order, nil
}
