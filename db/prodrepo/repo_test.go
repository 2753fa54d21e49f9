package prodrepo_test

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v4"
	"github.com/sksmith/inventory-allocation/core"
	"github.com/sksmith/inventory-allocation/db"
	"github.com/sksmith/inventory-allocation/db/prodrepo"
	"github.com/sksmith/inventory-allocation/test"
)

const connPkg = "github.com/sksmith/inventory-allocation/db.(*MockConn)."

func TestGetPreOrBackOrderQuantity(t *testing.T) {
	tests := []struct {
		name      string
		row       db.MockRow
		forUpdate bool
		wantSQL   string
		want      int64
	}{
		{name: "plain read", row: db.MockRow{Values: []interface{}{int64(4)}}, wantSQL: "SELECT quantity", want: 4},
		{name: "no counter yet", row: db.MockRow{Err: pgx.ErrNoRows}, wantSQL: "SELECT quantity", want: 0},
		{name: "locked", row: db.MockRow{Values: []interface{}{int64(2)}}, forUpdate: true, wantSQL: "ON CONFLICT (sku_code)", want: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conn := db.NewMockConn()
			tx := db.NewMockTransaction()
			var gotSQL string
			rowFunc := func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
				gotSQL = sql
				return tt.row
			}
			conn.QueryRowFunc = rowFunc
			tx.QueryRowFunc = rowFunc

			got, err := prodrepo.NewPostgresRepo(conn).GetPreOrBackOrderQuantity(context.Background(), "sku-1",
				core.QueryOptions{Tx: tx, ForUpdate: tt.forUpdate})
			if err != nil {
				t.Fatalf("did not want error, got=%v", err)
			}
			if got != tt.want {
				t.Errorf("unexpected quantity got=%d want=%d", got, tt.want)
			}
			if !strings.Contains(gotSQL, tt.wantSQL) {
				t.Errorf("expected sql to contain %q got=%s", tt.wantSQL, gotSQL)
			}
			test.VerifyCount(t, tx.MockConn.CallWatcher, connPkg+"QueryRow", 1)
			test.VerifyCount(t, conn.CallWatcher, connPkg+"QueryRow", 0)
		})
	}
}

func TestAddPreOrBackOrderQuantityUsesTransaction(t *testing.T) {
	conn := db.NewMockConn()
	tx := db.NewMockTransaction()
	var gotArgs []interface{}
	tx.QueryRowFunc = func(ctx context.Context, sql string, args ...interface{}) pgx.Row {
		gotArgs = args
		return db.MockRow{Values: []interface{}{int64(7)}}
	}

	got, err := prodrepo.NewPostgresRepo(conn).AddPreOrBackOrderQuantity(context.Background(), "sku-1", 3, core.UpdateOptions{Tx: tx})
	if err != nil {
		t.Fatalf("did not want error, got=%v", err)
	}
	if got != 7 {
		t.Errorf("unexpected total got=%d want=7", got)
	}
	if len(gotArgs) != 2 || gotArgs[1] != int64(3) {
		t.Errorf("unexpected args got=%v", gotArgs)
	}
	test.VerifyCount(t, conn.CallWatcher, connPkg+"QueryRow", 0)
}
