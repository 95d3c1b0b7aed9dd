package mariadb

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/kozaktomas/face-attendance/internal/database"
)

// ER_DUP_ENTRY
const mysqlDuplicateEntry = 1062

// translateError maps driver errors onto store-independent errors.
func translateError(err error) error {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
		return &database.UniqueViolationError{Constraint: duplicateKeyName(myErr.Message), Err: err}
	}
	return err
}

// duplicateKeyName extracts the key from "Duplicate entry 'x' for key 'name'".
// MySQL 8 prefixes the key with the table name ("table.name").
func duplicateKeyName(msg string) string {
	_, after, ok := strings.Cut(msg, " for key ")
	if !ok {
		return ""
	}
	key := strings.Trim(after, "'`\"")
	if i := strings.LastIndexByte(key, '.'); i >= 0 {
		key = key[i+1:]
	}
	return key
}
