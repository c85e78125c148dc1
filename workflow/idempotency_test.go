package workflow

import (
	"errors"
	"fmt"
	"testing"

	mysqlDriver "github.com/go-sql-driver/mysql"
)

func TestIsDuplicateKeyErr(t *testing.T) {
	dup := &mysqlDriver.MySQLError{Number: 1062, Message: "Duplicate entry 'x' for key 'uniq_idem'"}
	if !isDuplicateKeyErr(dup) {
		t.Error("expected 1062 to be detected as duplicate key")
	}
	if !isDuplicateKeyErr(fmt.Errorf("create idempotency key: %w", dup)) {
		t.Error("expected wrapped 1062 to be detected as duplicate key")
	}
	if isDuplicateKeyErr(&mysqlDriver.MySQLError{Number: 1213, Message: "Deadlock found"}) {
		t.Error("deadlock must not be treated as duplicate key")
	}
	if isDuplicateKeyErr(errors.New("duplicate entry")) {
		t.Error("plain errors must not be treated as duplicate key")
	}
	if isDuplicateKeyErr(nil) {
		t.Error("nil must not be treated as duplicate key")
	}
}
