package extract

import (
	"strings"

	"github.com/pingcap/tidb/pkg/parser/ast"

	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

// walker collects field references from one statement. Fields are merged
// per (db, table, column), usage bits OR-ed, first appearance kept.
type walker struct {
	fields   []record.Field
	seen     map[string]int
	aliases  map[string]string
	varReads record.TypeMask
}

func newWalker() *walker {
	return &walker{
		seen:    make(map[string]int),
		aliases: make(map[string]string),
	}
}

func (w *walker) add(db, table, column string, u record.Usage) {
	if name, ok := w.aliases[strings.ToLower(table)]; ok && db == "" {
		table = name
	}
	key := strings.ToLower(db) + "." + strings.ToLower(table) + "." + strings.ToLower(column)
	if i, ok := w.seen[key]; ok {
		w.fields[i].Usage |= u
		return
	}
	w.seen[key] = len(w.fields)
	w.fields = append(w.fields, record.Field{Column: column, Table: table, Database: db, Usage: u})
}

func (w *walker) column(c *ast.ColumnName, u record.Usage) {
	if c == nil {
		return
	}
	w.add(c.Schema.O, c.Table.O, c.Name.O, u)
}

// expr visits every column reference below e with usage u. Subqueries are
// walked as nested selects; their columns carry the subselect bit plus the
// inner clause they appear in, not the enclosing one.
func (w *walker) expr(e ast.Node, u record.Usage) {
	if e == nil {
		return
	}
	e.Accept(&exprVisitor{w: w, usage: u})
}

type exprVisitor struct {
	w     *walker
	usage record.Usage
}

func (v *exprVisitor) Enter(n ast.Node) (ast.Node, bool) {
	switch x := n.(type) {
	case *ast.ColumnNameExpr:
		v.w.column(x.Name, v.usage)
		return n, true
	case *ast.SubqueryExpr:
		v.w.resultSet(x.Query, record.UsedInSubselect)
		return n, true
	case *ast.VariableExpr:
		v.w.varRead(x)
	}
	return n, false
}

func (v *exprVisitor) Leave(n ast.Node) (ast.Node, bool) {
	return n, true
}

func (w *walker) varRead(x *ast.VariableExpr) {
	switch {
	case !x.IsSystem:
		w.varReads |= record.TypeUserVarRead
	case x.IsGlobal:
		w.varReads |= record.TypeGSysVarRead
	default:
		w.varReads |= record.TypeSysVarRead
	}
}

// resultSet walks anything that can produce rows. inherited carries the
// subselect bit into nested queries.
func (w *walker) resultSet(n ast.Node, inherited record.Usage) {
	switch s := n.(type) {
	case *ast.SelectStmt:
		w.selectStmt(s, inherited)
	case *ast.SetOprStmt:
		if s.SelectList != nil {
			w.resultSet(s.SelectList, inherited)
		}
	case *ast.SetOprSelectList:
		for _, sel := range s.Selects {
			w.resultSet(sel, inherited)
		}
	case *ast.SubqueryExpr:
		w.resultSet(s.Query, inherited)
	case *ast.TableSource:
		w.resultSet(s.Source, inherited)
	case *ast.Join:
		w.join(s, inherited)
	}
}

func (w *walker) selectStmt(s *ast.SelectStmt, inherited record.Usage) {
	if s.From != nil {
		w.tableRefs(s.From.TableRefs, inherited)
	}
	if s.Fields != nil {
		for _, f := range s.Fields.Fields {
			if f.WildCard != nil {
				w.add(f.WildCard.Schema.O, f.WildCard.Table.O, "*", record.UsedInSelect|inherited)
				continue
			}
			w.expr(f.Expr, record.UsedInSelect|inherited)
		}
	}
	w.expr(s.Where, record.UsedInWhere|inherited)
	if s.GroupBy != nil {
		for _, item := range s.GroupBy.Items {
			w.expr(item.Expr, record.UsedInGroupBy|inherited)
		}
	}
	if s.Having != nil {
		w.expr(s.Having.Expr, record.UsedInWhere|inherited)
	}
	if s.OrderBy != nil {
		for _, item := range s.OrderBy.Items {
			w.expr(item.Expr, inherited)
		}
	}
}

// tableRefs records aliases first so that qualified columns resolve to
// their table names, then walks join conditions and derived tables.
func (w *walker) tableRefs(j *ast.Join, inherited record.Usage) {
	if j == nil {
		return
	}
	w.collectAliases(j)
	w.join(j, inherited)
}

func (w *walker) collectAliases(n ast.ResultSetNode) {
	switch s := n.(type) {
	case *ast.Join:
		w.collectAliases(s.Left)
		if s.Right != nil {
			w.collectAliases(s.Right)
		}
	case *ast.TableSource:
		if t, ok := s.Source.(*ast.TableName); ok && s.AsName.O != "" {
			w.aliases[s.AsName.L] = t.Name.O
		}
	}
}

func (w *walker) join(j *ast.Join, inherited record.Usage) {
	for _, side := range []ast.ResultSetNode{j.Left, j.Right} {
		if side == nil {
			continue
		}
		switch s := side.(type) {
		case *ast.Join:
			w.join(s, inherited)
		case *ast.TableSource:
			if _, ok := s.Source.(*ast.TableName); !ok {
				w.resultSet(s.Source, inherited|record.UsedInSubselect)
			}
		}
	}
	if j.On != nil {
		w.expr(j.On.Expr, record.UsedInWhere|inherited)
	}
}

func (w *walker) assignments(list []*ast.Assignment) {
	for _, a := range list {
		w.column(a.Column, record.UsedInSet)
		w.expr(a.Expr, record.UsedInSet)
	}
}

func (w *walker) insertStmt(s *ast.InsertStmt) {
	if s.Table != nil {
		w.collectAliases(s.Table.TableRefs)
	}
	for _, c := range s.Columns {
		w.column(c, record.UsedInSet)
	}
	w.assignments(s.Setlist)
	for _, row := range s.Lists {
		for _, e := range row {
			w.expr(e, 0)
		}
	}
	if s.Select != nil {
		w.resultSet(s.Select, 0)
	}
	w.assignments(s.OnDuplicate)
}

func (w *walker) updateStmt(s *ast.UpdateStmt) {
	if s.TableRefs != nil {
		w.tableRefs(s.TableRefs.TableRefs, 0)
	}
	w.assignments(s.List)
	w.expr(s.Where, record.UsedInWhere)
}

func (w *walker) deleteStmt(s *ast.DeleteStmt) {
	if s.TableRefs != nil {
		w.tableRefs(s.TableRefs.TableRefs, 0)
	}
	w.expr(s.Where, record.UsedInWhere)
}
