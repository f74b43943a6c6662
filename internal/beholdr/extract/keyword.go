package extract

import (
	"strings"

	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

// stripLeadingComments removes leading comments and whitespace so that
// classification is not blocked by headers like /* ... */ or -- ...
func stripLeadingComments(query string) string {
	s := strings.TrimSpace(query)

	for {
		switch {
		case strings.HasPrefix(s, "/*"):
			if end := strings.Index(s, "*/"); end != -1 {
				s = strings.TrimSpace(s[end+2:])
				continue
			}
			return "" // unterminated block comment
		case strings.HasPrefix(s, "--"), strings.HasPrefix(s, "#"):
			if end := strings.Index(s, "\n"); end != -1 {
				s = strings.TrimSpace(s[end+1:])
				continue
			}
			return "" // whole line was a comment
		}
		break
	}

	return s
}

// classifyKeyword inspects the leading keywords of a statement the parser
// rejected and returns its operation and a type mask derived from it.
func classifyKeyword(query string) (record.Operation, record.TypeMask) {
	s := stripLeadingComments(query)
	if s == "" {
		return record.OpUndefined, record.TypeUnknown
	}
	sUp := strings.ToUpper(s)

	switch {
	// --- Transaction boundaries ---
	case strings.HasPrefix(sUp, "BEGIN"),
		strings.HasPrefix(sUp, "START TRANSACTION"):
		return record.OpUndefined, record.TypeBeginTrx
	case strings.HasPrefix(sUp, "COMMIT"):
		return record.OpUndefined, record.TypeCommit
	case strings.HasPrefix(sUp, "ROLLBACK"):
		return record.OpUndefined, record.TypeRollback

	// --- DML ---
	case strings.HasPrefix(sUp, "SELECT"),
		strings.HasPrefix(sUp, "WITH"):
		return record.OpSelect, record.TypeRead
	case strings.HasPrefix(sUp, "INSERT"),
		strings.HasPrefix(sUp, "REPLACE"):
		return record.OpInsert, record.TypeWrite
	case strings.HasPrefix(sUp, "UPDATE"):
		return record.OpUpdate, record.TypeWrite
	case strings.HasPrefix(sUp, "DELETE"):
		return record.OpDelete, record.TypeWrite
	case strings.HasPrefix(sUp, "TRUNCATE"):
		return record.OpTruncate, record.TypeWrite

	// --- DDL ---
	case strings.HasPrefix(sUp, "CREATE TEMPORARY"):
		return record.OpCreate, record.TypeWrite | record.TypeCreateTmpTable
	case strings.HasPrefix(sUp, "CREATE"):
		return record.OpCreate, record.TypeWrite
	case strings.HasPrefix(sUp, "ALTER"),
		strings.HasPrefix(sUp, "RENAME TABLE"):
		return record.OpAlter, record.TypeWrite
	case strings.HasPrefix(sUp, "DROP"):
		return record.OpDrop, record.TypeWrite

	// --- Privileges ---
	case strings.HasPrefix(sUp, "GRANT"):
		return record.OpGrant, record.TypeWrite
	case strings.HasPrefix(sUp, "REVOKE"):
		return record.OpRevoke, record.TypeWrite

	// --- Bulk ops ---
	case strings.HasPrefix(sUp, "LOAD DATA"):
		return record.OpLoad, record.TypeWrite

	// --- Session ---
	case strings.HasPrefix(sUp, "USE "):
		return record.OpChangeDB, record.TypeSessionWrite
	case strings.HasPrefix(sUp, "SET"):
		return record.OpSet, record.TypeSessionWrite
	case strings.HasPrefix(sUp, "SHOW DATABASES"):
		return record.OpShow, record.TypeShowDatabases
	case strings.HasPrefix(sUp, "SHOW TABLES"):
		return record.OpShow, record.TypeShowTables
	case strings.HasPrefix(sUp, "SHOW"):
		return record.OpShow, record.TypeRead
	case strings.HasPrefix(sUp, "EXPLAIN"),
		strings.HasPrefix(sUp, "DESCRIBE"):
		return record.OpExplain, record.TypeRead

	// --- Procedural / Execution ---
	case strings.HasPrefix(sUp, "CALL"):
		return record.OpCall, record.TypeWrite
	case strings.HasPrefix(sUp, "PREPARE"):
		return record.OpUndefined, record.TypePrepareNamedStmt
	case strings.HasPrefix(sUp, "EXECUTE"):
		return record.OpExecute, record.TypeExecStmt
	case strings.HasPrefix(sUp, "DEALLOCATE"):
		return record.OpUndefined, record.TypeDeallocPrepare
	}

	return record.OpUndefined, record.TypeUnknown
}
