package errors

import (
	stdErrors "errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

func TestDumpFlattensPgxError(t *testing.T) {
	pgErr := &pgconn.PgError{
		Code:           "23505",
		Message:        "duplicate key value violates unique constraint",
		Detail:         "Key (order_id)=(abc) already exists.",
		TableName:      "shop_transactions",
		ColumnName:     "order_id",
		ConstraintName: "ux_shop_transactions_order_credit",
	}
	err := Wrap(CodeConflict, fmt.Errorf("credit shop: %w", pgErr), "ledger insert")

	dump := Dump(err)
	if dump.Code != CodeConflict {
		t.Fatalf("unexpected code %s", dump.Code)
	}
	if dump.PGCode != "23505" {
		t.Fatalf("unexpected pg code %q", dump.PGCode)
	}
	if dump.PGTable != "shop_transactions" {
		t.Fatalf("unexpected pg table %q", dump.PGTable)
	}
	if dump.PGColumn != "order_id" {
		t.Fatalf("unexpected pg column %q", dump.PGColumn)
	}
	if dump.PGConstraint != "ux_shop_transactions_order_credit" {
		t.Fatalf("unexpected pg constraint %q", dump.PGConstraint)
	}
	if len(dump.Chain) == 0 {
		t.Fatalf("expected error chain to be captured")
	}
}

func TestDumpFlattensPqError(t *testing.T) {
	pqErr := &pq.Error{
		Code:       "23502",
		Message:    "null value in column",
		Table:      "orders",
		Column:     "status",
		Constraint: "orders_status_check",
	}
	dump := Dump(fmt.Errorf("update order: %w", pqErr))
	if dump.PGCode != "23502" {
		t.Fatalf("unexpected pg code %q", dump.PGCode)
	}
	if dump.PGColumn != "status" {
		t.Fatalf("unexpected pg column %q", dump.PGColumn)
	}
	if dump.PGTable != "orders" {
		t.Fatalf("unexpected pg table %q", dump.PGTable)
	}
}

func TestDumpPlainError(t *testing.T) {
	dump := Dump(stdErrors.New("boom"))
	if dump.TopMessage != "boom" {
		t.Fatalf("unexpected top message %q", dump.TopMessage)
	}
	if dump.PGCode != "" || dump.PGColumn != "" {
		t.Fatalf("plain error should carry no postgres detail")
	}
}
