package extract

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pingcap/tidb/pkg/parser"
	"github.com/pingcap/tidb/pkg/parser/ast"
	_ "github.com/pingcap/tidb/pkg/parser/test_driver"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

// Info is the structural metadata of one statement.
type Info struct {
	Operation     record.Operation
	Type          record.TypeMask
	Fields        []record.Field
	CanonicalText string
	// Parsed is false when the statement did not parse and Operation/Type
	// come from keyword classification.
	Parsed bool
}

// Params turns the metadata into record construction parameters.
func (i Info) Params(raw string, p record.Principal) record.Params {
	return record.Params{
		Operation:     i.Operation,
		Type:          i.Type,
		Fields:        i.Fields,
		Principal:     p,
		CanonicalText: i.CanonicalText,
		RawText:       raw,
	}
}

// Extractor parses SQL text into Info. It is safe for concurrent use.
type Extractor struct {
	mu sync.Mutex
	p  *parser.Parser
}

func New() *Extractor {
	return &Extractor{p: parser.New()}
}

// Extract is best effort: on a parse failure the returned Info is still
// usable (keyword-derived operation, no fields) and the error says why.
func (x *Extractor) Extract(sql string) (Info, error) {
	query := strings.TrimSpace(sql)
	info := Info{CanonicalText: parser.Normalize(query)}
	if query == "" {
		return info, fmt.Errorf("empty statement")
	}

	x.mu.Lock()
	stmt, err := x.p.ParseOneStmt(query, "", "")
	x.mu.Unlock()
	if err != nil {
		info.Operation, info.Type = classifyKeyword(query)
		logger.L().Debugw("Statement did not parse, using keyword classification",
			"query", query,
			"operation", info.Operation.String(),
			"error", err)
		return info, fmt.Errorf("parse statement: %w", err)
	}

	w := newWalker()
	info.Operation, info.Type = w.statement(stmt)
	info.Fields = w.fields
	info.Parsed = true

	logger.L().Debugw("Statement extracted",
		"operation", info.Operation.String(),
		"type", info.Type.String(),
		"fields", len(info.Fields))
	return info, nil
}

// statement classifies stmt and collects its field references.
func (w *walker) statement(stmt ast.StmtNode) (record.Operation, record.TypeMask) {
	switch s := stmt.(type) {
	case *ast.SelectStmt:
		w.selectStmt(s, 0)
		return record.OpSelect, record.TypeRead | w.varReads
	case *ast.SetOprStmt:
		w.resultSet(s, 0)
		return record.OpSelect, record.TypeRead | w.varReads
	case *ast.InsertStmt:
		w.insertStmt(s)
		return record.OpInsert, record.TypeWrite | w.varReads
	case *ast.UpdateStmt:
		w.updateStmt(s)
		return record.OpUpdate, record.TypeWrite | w.varReads
	case *ast.DeleteStmt:
		w.deleteStmt(s)
		return record.OpDelete, record.TypeWrite | w.varReads
	case *ast.SetStmt:
		return record.OpSet, setType(s)
	case *ast.UseStmt:
		return record.OpChangeDB, record.TypeSessionWrite
	case *ast.ShowStmt:
		switch s.Tp {
		case ast.ShowDatabases:
			return record.OpShow, record.TypeShowDatabases
		case ast.ShowTables:
			return record.OpShow, record.TypeShowTables
		}
		return record.OpShow, record.TypeRead
	case *ast.BeginStmt:
		return record.OpUndefined, record.TypeBeginTrx
	case *ast.CommitStmt:
		return record.OpUndefined, record.TypeCommit
	case *ast.RollbackStmt:
		return record.OpUndefined, record.TypeRollback
	case *ast.PrepareStmt:
		return record.OpUndefined, record.TypePrepareNamedStmt
	case *ast.ExecuteStmt:
		return record.OpExecute, record.TypeExecStmt
	case *ast.DeallocateStmt:
		return record.OpUndefined, record.TypeDeallocPrepare
	case *ast.CallStmt:
		return record.OpCall, record.TypeWrite
	case *ast.LoadDataStmt:
		return record.OpLoad, record.TypeWrite
	case *ast.GrantStmt, *ast.GrantRoleStmt:
		return record.OpGrant, record.TypeWrite
	case *ast.RevokeStmt, *ast.RevokeRoleStmt:
		return record.OpRevoke, record.TypeWrite
	case *ast.ExplainStmt:
		return record.OpExplain, record.TypeRead
	case *ast.CreateTableStmt:
		if s.TemporaryKeyword != ast.TemporaryNone {
			return record.OpCreate, record.TypeWrite | record.TypeCreateTmpTable
		}
		return record.OpCreate, record.TypeWrite
	case *ast.CreateDatabaseStmt, *ast.CreateIndexStmt, *ast.CreateViewStmt:
		return record.OpCreate, record.TypeWrite
	case *ast.AlterTableStmt, *ast.AlterDatabaseStmt, *ast.RenameTableStmt:
		return record.OpAlter, record.TypeWrite
	case *ast.DropTableStmt, *ast.DropDatabaseStmt, *ast.DropIndexStmt:
		return record.OpDrop, record.TypeWrite
	case *ast.TruncateTableStmt:
		return record.OpTruncate, record.TypeWrite
	case ast.DDLNode:
		return record.OpUndefined, record.TypeWrite
	}
	return record.OpUndefined, record.TypeUnknown
}

func setType(s *ast.SetStmt) record.TypeMask {
	var m record.TypeMask
	for _, v := range s.Variables {
		switch {
		case !v.IsSystem:
			m |= record.TypeUserVarWrite
		case strings.EqualFold(v.Name, "autocommit"):
			if truthy(v.Value) {
				m |= record.TypeEnableAutocommit
			} else {
				m |= record.TypeDisableAutocommit
			}
			m |= record.TypeSessionWrite
		case v.IsGlobal:
			m |= record.TypeGSysVarWrite
		default:
			m |= record.TypeSessionWrite
		}
	}
	return m
}

// truthy reports whether a SET value enables a boolean variable.
func truthy(e ast.ExprNode) bool {
	switch v := e.(type) {
	case ast.ValueExpr:
		switch strings.ToLower(fmt.Sprint(v.GetValue())) {
		case "1", "on", "true":
			return true
		}
	case *ast.ColumnNameExpr:
		return strings.EqualFold(v.Name.Name.O, "on")
	}
	return false
}
