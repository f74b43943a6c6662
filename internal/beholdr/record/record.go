package record

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// ErrEmptyColumn is returned when a field has no column name.
var ErrEmptyColumn = errors.New("field without column name")

// Params carries everything needed to build a Record.
type Params struct {
	Operation     Operation
	Type          TypeMask
	Fields        []Field
	Principal     Principal
	CanonicalText string
	// RawText is the original statement; empty when extraction failed.
	RawText string
}

// Record is one observed query. It is immutable once built.
type Record struct {
	op         Operation
	typ        TypeMask
	fields     []Field
	principal  Principal
	canonical  string
	raw        string
	serialized []byte
}

// wireRecord fixes the key order of the serialized form.
type wireRecord struct {
	User         string      `json:"user"`
	Address      string      `json:"address"`
	Type         string      `json:"type"`
	Op           string      `json:"op"`
	CanonicalSQL string      `json:"canonical_sql"`
	SQL          string      `json:"sql,omitempty"`
	Fields       []wireField `json:"fields"`
}

type wireField struct {
	Column string   `json:"column"`
	Table  string   `json:"table,omitempty"`
	DB     string   `json:"db,omitempty"`
	Usage  []string `json:"usage"`
}

// New validates p and builds the record together with its serialized form.
func New(p Params) (*Record, error) {
	fields := make([]Field, len(p.Fields))
	for i, f := range p.Fields {
		if f.Column == "" {
			return nil, fmt.Errorf("field %d: %w", i, ErrEmptyColumn)
		}
		fields[i] = f
	}

	r := &Record{
		op:        p.Operation,
		typ:       p.Type,
		fields:    fields,
		principal: p.Principal,
		canonical: p.CanonicalText,
		raw:       p.RawText,
	}

	b, err := r.encode()
	if err != nil {
		return nil, fmt.Errorf("serialize record: %w", err)
	}
	r.serialized = b
	return r, nil
}

func (r *Record) encode() ([]byte, error) {
	w := wireRecord{
		User:         r.principal.User,
		Address:      r.principal.Address,
		Type:         r.typ.String(),
		Op:           r.op.String(),
		CanonicalSQL: r.canonical,
		SQL:          r.raw,
		Fields:       make([]wireField, 0, len(r.fields)),
	}
	for _, f := range r.fields {
		w.Fields = append(w.Fields, wireField{
			Column: f.Column,
			Table:  f.Table,
			DB:     f.Database,
			Usage:  f.Usage.Names(),
		})
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(w); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Parse decodes a serialized record.
func Parse(data []byte) (*Record, error) {
	var w wireRecord
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	op, err := ParseOperation(w.Op)
	if err != nil {
		return nil, err
	}
	typ, err := ParseTypeMask(w.Type)
	if err != nil {
		return nil, err
	}
	fields := make([]Field, 0, len(w.Fields))
	for _, f := range w.Fields {
		u, err := parseUsage(f.Usage)
		if err != nil {
			return nil, err
		}
		fields = append(fields, Field{Column: f.Column, Table: f.Table, Database: f.DB, Usage: u})
	}
	return New(Params{
		Operation:     op,
		Type:          typ,
		Fields:        fields,
		Principal:     Principal{User: w.User, Address: w.Address},
		CanonicalText: w.CanonicalSQL,
		RawText:       w.SQL,
	})
}

func (r *Record) Operation() Operation { return r.op }
func (r *Record) Type() TypeMask { return r.typ }
func (r *Record) Principal() Principal { return r.principal }
func (r *Record) CanonicalText() string { return r.canonical }
func (r *Record) RawText() string { return r.raw }
func (r *Record) Serialized() string { return string(r.serialized) }

// Fields returns a copy of the field descriptors in statement order.
func (r *Record) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Bytes returns a copy of the serialized form.
func (r *Record) Bytes() []byte {
	out := make([]byte, len(r.serialized))
	copy(out, r.serialized)
	return out
}

// ShapeKey is the structural fingerprint of a record. Two records are
// equivalent exactly when their keys compare equal; names, principal and
// text never take part.
type ShapeKey struct {
	Op        Operation
	Type      TypeMask
	Fields    int
	Select    int
	Subselect int
	Where     int
	Set       int
	GroupBy   int
}

// Shape computes the record's fingerprint. Each field counts towards
// exactly one usage context, the first it carries in the order select,
// subselect, where, set, group_by. Fields with no usage only add to
// Fields.
func (r *Record) Shape() ShapeKey {
	k := ShapeKey{Op: r.op, Type: r.typ, Fields: len(r.fields)}
	for _, f := range r.fields {
		switch {
		case f.Usage&UsedInSelect != 0:
			k.Select++
		case f.Usage&UsedInSubselect != 0:
			k.Subselect++
		case f.Usage&UsedInWhere != 0:
			k.Where++
		case f.Usage&UsedInSet != 0:
			k.Set++
		case f.Usage&UsedInGroupBy != 0:
			k.GroupBy++
		}
	}
	return k
}

// Hash returns a stable 64-bit digest of the key.
func (k ShapeKey) Hash() uint64 {
	var buf [4 + 4 + 6*8]byte
	binary.BigEndian.PutUint32(buf[0:], uint32(k.Op))
	binary.BigEndian.PutUint32(buf[4:], uint32(k.Type))
	for i, n := range []int{k.Fields, k.Select, k.Subselect, k.Where, k.Set, k.GroupBy} {
		binary.BigEndian.PutUint64(buf[8+i*8:], uint64(n))
	}
	return xxhash.Sum64(buf[:])
}

// String renders the key as "<type> <op> fields=N select=N subselect=N where=N set=N group_by=N".
func (k ShapeKey) String() string {
	return fmt.Sprintf("%s %s fields=%d select=%d subselect=%d where=%d set=%d group_by=%d",
		k.Type, k.Op, k.Fields, k.Select, k.Subselect, k.Where, k.Set, k.GroupBy)
}
