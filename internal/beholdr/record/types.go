package record

import (
	"fmt"
	"strings"
)

// Operation is the kind of statement a query performs.
type Operation int

const (
	OpUndefined Operation = iota
	OpSelect
	OpUpdate
	OpInsert
	OpDelete
	OpTruncate
	OpAlter
	OpCreate
	OpDrop
	OpChangeDB
	OpLoad
	OpGrant
	OpRevoke
	OpExecute
	OpShow
	OpSet
	OpCall
	OpExplain
)

var opNames = [...]string{
	OpUndefined: "QUERY_OP_UNDEFINED",
	OpSelect:    "QUERY_OP_SELECT",
	OpUpdate:    "QUERY_OP_UPDATE",
	OpInsert:    "QUERY_OP_INSERT",
	OpDelete:    "QUERY_OP_DELETE",
	OpTruncate:  "QUERY_OP_TRUNCATE",
	OpAlter:     "QUERY_OP_ALTER",
	OpCreate:    "QUERY_OP_CREATE",
	OpDrop:      "QUERY_OP_DROP",
	OpChangeDB:  "QUERY_OP_CHANGE_DB",
	OpLoad:      "QUERY_OP_LOAD",
	OpGrant:     "QUERY_OP_GRANT",
	OpRevoke:    "QUERY_OP_REVOKE",
	OpExecute:   "QUERY_OP_EXECUTE",
	OpShow:      "QUERY_OP_SHOW",
	OpSet:       "QUERY_OP_SET",
	OpCall:      "QUERY_OP_CALL",
	OpExplain:   "QUERY_OP_EXPLAIN",
}

func (o Operation) String() string {
	if o < 0 || int(o) >= len(opNames) {
		return opNames[OpUndefined]
	}
	return opNames[o]
}

// ParseOperation is the inverse of Operation.String.
func ParseOperation(s string) (Operation, error) {
	for i, name := range opNames {
		if name == s {
			return Operation(i), nil
		}
	}
	return OpUndefined, fmt.Errorf("unknown operation %q", s)
}

// TypeMask is a set of semantic flags describing a statement.
type TypeMask uint32

const (
	TypeRead TypeMask = 1 << iota
	TypeWrite
	TypeSessionWrite
	TypeUserVarRead
	TypeUserVarWrite
	TypeSysVarRead
	TypeSysVarWrite
	TypeGSysVarRead
	TypeGSysVarWrite
	TypeBeginTrx
	TypeEnableAutocommit
	TypeDisableAutocommit
	TypeRollback
	TypeCommit
	TypePrepareNamedStmt
	TypeExecStmt
	TypeCreateTmpTable
	TypeReadTmpTable
	TypeShowDatabases
	TypeShowTables
	TypeDeallocPrepare
)

// TypeUnknown is the empty mask.
const TypeUnknown TypeMask = 0

var typeNames = []struct {
	bit  TypeMask
	name string
}{
	{TypeRead, "QUERY_TYPE_READ"},
	{TypeWrite, "QUERY_TYPE_WRITE"},
	{TypeSessionWrite, "QUERY_TYPE_SESSION_WRITE"},
	{TypeUserVarRead, "QUERY_TYPE_USERVAR_READ"},
	{TypeUserVarWrite, "QUERY_TYPE_USERVAR_WRITE"},
	{TypeSysVarRead, "QUERY_TYPE_SYSVAR_READ"},
	{TypeSysVarWrite, "QUERY_TYPE_SYSVAR_WRITE"},
	{TypeGSysVarRead, "QUERY_TYPE_GSYSVAR_READ"},
	{TypeGSysVarWrite, "QUERY_TYPE_GSYSVAR_WRITE"},
	{TypeBeginTrx, "QUERY_TYPE_BEGIN_TRX"},
	{TypeEnableAutocommit, "QUERY_TYPE_ENABLE_AUTOCOMMIT"},
	{TypeDisableAutocommit, "QUERY_TYPE_DISABLE_AUTOCOMMIT"},
	{TypeRollback, "QUERY_TYPE_ROLLBACK"},
	{TypeCommit, "QUERY_TYPE_COMMIT"},
	{TypePrepareNamedStmt, "QUERY_TYPE_PREPARE_NAMED_STMT"},
	{TypeExecStmt, "QUERY_TYPE_EXEC_STMT"},
	{TypeCreateTmpTable, "QUERY_TYPE_CREATE_TMP_TABLE"},
	{TypeReadTmpTable, "QUERY_TYPE_READ_TMP_TABLE"},
	{TypeShowDatabases, "QUERY_TYPE_SHOW_DATABASES"},
	{TypeShowTables, "QUERY_TYPE_SHOW_TABLES"},
	{TypeDeallocPrepare, "QUERY_TYPE_DEALLOC_PREPARE"},
}

const typeUnknownName = "QUERY_TYPE_UNKNOWN"

// String renders the set flags joined by '|', lowest bit first.
func (m TypeMask) String() string {
	if m == TypeUnknown {
		return typeUnknownName
	}
	var parts []string
	for _, t := range typeNames {
		if m&t.bit != 0 {
			parts = append(parts, t.name)
		}
	}
	return strings.Join(parts, "|")
}

// Has reports whether every flag in other is set.
func (m TypeMask) Has(other TypeMask) bool {
	return m&other == other
}

// ParseTypeMask is the inverse of TypeMask.String.
func ParseTypeMask(s string) (TypeMask, error) {
	if s == "" || s == typeUnknownName {
		return TypeUnknown, nil
	}
	var m TypeMask
	for _, part := range strings.Split(s, "|") {
		found := false
		for _, t := range typeNames {
			if t.name == part {
				m |= t.bit
				found = true
				break
			}
		}
		if !found {
			return TypeUnknown, fmt.Errorf("unknown type flag %q", part)
		}
	}
	return m, nil
}

// Usage is the set of contexts a field appears in.
type Usage uint8

const (
	UsedInSelect Usage = 1 << iota
	UsedInSubselect
	UsedInWhere
	UsedInSet
	UsedInGroupBy
)

var usageNames = []struct {
	bit  Usage
	name string
}{
	{UsedInSelect, "select"},
	{UsedInSubselect, "subselect"},
	{UsedInWhere, "where"},
	{UsedInSet, "set"},
	{UsedInGroupBy, "group_by"},
}

// Names lists the contexts in canonical order.
func (u Usage) Names() []string {
	names := []string{}
	for _, n := range usageNames {
		if u&n.bit != 0 {
			names = append(names, n.name)
		}
	}
	return names
}

func parseUsage(names []string) (Usage, error) {
	var u Usage
	for _, name := range names {
		found := false
		for _, n := range usageNames {
			if n.name == name {
				u |= n.bit
				found = true
				break
			}
		}
		if !found {
			return 0, fmt.Errorf("unknown usage %q", name)
		}
	}
	return u, nil
}

// Field describes one column reference in a statement.
type Field struct {
	Column   string
	Table    string
	Database string
	Usage    Usage
}

// Principal identifies who sent a query.
type Principal struct {
	User    string
	Address string
}

func (p Principal) String() string {
	return p.User + "@" + p.Address
}
