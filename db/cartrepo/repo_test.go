package cartrepo_test

import (
	"context"
	"testing"

	"github.com/jackc/pgconn"
	"github.com/pkg/errors"
	"github.com/sksmith/inventory-allocation/core/cartorder"
	"github.com/sksmith/inventory-allocation/db"
	"github.com/sksmith/inventory-allocation/db/cartrepo"
)

func TestInsert(t *testing.T) {
	tests := []struct {
		name    string
		execErr error
		wantErr error
	}{
		{name: "inserted"},
		{name: "unique violation", execErr: &pgconn.PgError{Code: "23505"}, wantErr: cartorder.ErrDuplicate},
		{name: "other failure", execErr: &pgconn.PgError{Code: "08006"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := db.NewMockConn()
			conn.ExecFunc = func(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
				return pgconn.CommandTag("INSERT 0 1"), tt.execErr
			}

			err := cartrepo.NewPostgresRepo(conn).Insert(context.Background(), cartorder.CartOrder{ID: "id", CartGUID: "cart"})
			switch {
			case tt.execErr == nil && err != nil:
				t.Errorf("did not want error, got=%v", err)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Errorf("unexpected error got=%v want=%v", err, tt.wantErr)
			case tt.execErr != nil && tt.wantErr == nil && (err == nil || errors.Is(err, cartorder.ErrDuplicate)):
				t.Errorf("expected the original error, got=%v", err)
			}
		})
	}
}
