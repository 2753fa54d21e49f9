// Package prodrepo stores product sku availability settings and pre/back-order counters in Postgres.
package prodrepo

import (
	"context"

	"github.com/jackc/pgx/v4"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/core/allocation"
	"github.com/sksmith/inventory-allocation/db"
)

type dbRepo struct {
	conn core.Conn
}

func NewPostgresRepo(conn core.Conn) allocation.ProductRepository {
	return &dbRepo{conn: conn}
}

func (d *dbRepo) GetProductSku(ctx context.Context, skuCode string) (allocation.ProductSku, error) {
	m := db.StartMetric("product", "GetProductSku")

	product := allocation.ProductSku{SkuCode: skuCode}
	var criteria string
	err := d.conn.QueryRow(ctx, `
		SELECT product_code, availability_criteria, pre_or_back_order_limit
		  FROM product_skus
		 WHERE sku_code = $1`,
		skuCode).
		Scan(&product.ProductCode, &criteria, &product.PreOrBackOrderLimit)
	if err != nil {
		m.Complete(err)
		if err == pgx.ErrNoRows {
			return product, errors.WithStack(core.ErrNotFound)
		}
		return product, errors.WithStack(err)
	}

	product.Criteria = allocation.Criteria(criteria)
	m.Complete(nil)
	return product, nil
}

func (d *dbRepo) SaveProductSku(ctx context.Context, product allocation.ProductSku) error {
	m := db.StartMetric("product", "SaveProductSku")

	ct, err := d.conn.Exec(ctx, `
		UPDATE product_skus
		   SET product_code = $2, availability_criteria = $3, pre_or_back_order_limit = $4
		 WHERE sku_code = $1;`,
		product.SkuCode, product.ProductCode, string(product.Criteria), product.PreOrBackOrderLimit)
	if err != nil {
		m.Complete(err)
		return errors.WithStack(err)
	}
	if ct.RowsAffected() == 0 {
		_, err = d.conn.Exec(ctx, `
		INSERT INTO product_skus (sku_code, product_code, availability_criteria, pre_or_back_order_limit)
		                  VALUES ($1, $2, $3, $4);`,
			product.SkuCode, product.ProductCode, string(product.Criteria), product.PreOrBackOrderLimit)
		if err != nil {
			m.Complete(err)
			return errors.WithStack(err)
		}
	}
	m.Complete(nil)
	return nil
}

// GetPreOrBackOrderQuantity locks with an upsert rather than FOR UPDATE so that a sku without a counter row
// is still held.
func (d *dbRepo) GetPreOrBackOrderQuantity(ctx context.Context, skuCode string, options ...core.QueryOptions) (int64, error) {
	m := db.StartMetric("product", "GetPreOrBackOrderQuantity")
	conn, forUpdate := db.GetQueryOptions(d.conn, options...)

	var qty int64
	var err error
	if forUpdate != "" {
		err = conn.QueryRow(ctx, `
		INSERT INTO pre_or_back_order (sku_code, quantity)
		                       VALUES ($1, 0)
		ON CONFLICT (sku_code)
		DO UPDATE SET quantity = pre_or_back_order.quantity
		RETURNING quantity`,
			skuCode).
			Scan(&qty)
	} else {
		err = conn.QueryRow(ctx, `SELECT quantity FROM pre_or_back_order WHERE sku_code = $1`, skuCode).Scan(&qty)
	}
	if err != nil {
		if err == pgx.ErrNoRows {
			m.Complete(nil)
			return 0, nil
		}
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return qty, nil
}

func (d *dbRepo) AddPreOrBackOrderQuantity(ctx context.Context, skuCode string, delta int64, options ...core.UpdateOptions) (int64, error) {
	m := db.StartMetric("product", "AddPreOrBackOrderQuantity")
	conn := db.GetUpdateOptions(d.conn, options...)

	var qty int64
	err := conn.QueryRow(ctx, `
		INSERT INTO pre_or_back_order (sku_code, quantity)
		                       VALUES ($1, GREATEST($2::bigint, 0))
		ON CONFLICT (sku_code)
		DO UPDATE SET quantity = GREATEST(pre_or_back_order.quantity + $2::bigint, 0)
		RETURNING quantity`,
		skuCode, delta).
		Scan(&qty)
	if err != nil {
		m.Complete(err)
		return 0, errors.WithStack(err)
	}

	m.Complete(nil)
	return qty, nil
}
