package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/natefinch/atomic"

	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

const maxSQLWidth = 80

// Row is the wire form of one index entry, used by the snapshot export
// and the admin API.
type Row struct {
	Shape     string          `json:"shape"`
	Count     int64           `json:"count"`
	FirstSeen time.Time       `json:"first_seen"`
	LastSeen  time.Time       `json:"last_seen"`
	Record    json.RawMessage `json:"record"`
}

func NewRow(e index.Entry) Row {
	return Row{
		Shape:     ShapeID(e),
		Count:     e.Count,
		FirstSeen: e.FirstSeen.UTC(),
		LastSeen:  e.LastSeen.UTC(),
		Record:    json.RawMessage(e.Record.Bytes()),
	}
}

// Rows converts a snapshot keeping its order.
func Rows(entries []index.Entry) []Row {
	rows := make([]Row, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, NewRow(e))
	}
	return rows
}

// ShapeID is the printable hash of the entry's shape.
func ShapeID(e index.Entry) string {
	return fmt.Sprintf("%016x", e.Shape.Hash())
}

// Sorted returns entries ordered by count, highest first. Entries with
// equal counts keep their first-seen order.
func Sorted(entries []index.Entry) []index.Entry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b index.Entry) int {
		switch {
		case a.Count > b.Count:
			return -1
		case a.Count < b.Count:
			return 1
		}
		return 0
	})
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

// PrintSummary writes one line per shape, most frequent first.
func PrintSummary(w io.Writer, entries []index.Entry) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COUNT\tOPERATION\tTYPE\tPRINCIPAL\tFIRST SEEN\tCANONICAL SQL")
	for _, e := range Sorted(entries) {
		rec := e.Record
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			e.Count,
			rec.Operation(),
			rec.Type(),
			rec.Principal(),
			e.FirstSeen.UTC().Format(time.RFC3339),
			truncate(rec.CanonicalText(), maxSQLWidth))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d shapes\n", len(entries))
	return err
}

// ExportSnapshot writes entries as NDJSON rows to path. The file is
// replaced atomically so readers never see a partial snapshot.
func ExportSnapshot(path string, entries []index.Entry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, row := range Rows(entries) {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("encode row %s: %w", row.Shape, err)
		}
	}
	if err := atomic.WriteFile(path, &buf); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	logger.L().Infow("exported snapshot", "path", path, "shapes", len(entries))
	return nil
}

// PrintRows writes rows fetched from a remote admin API, keeping their
// order. Rows whose record cannot be decoded are printed without details.
func PrintRows(w io.Writer, rows []Row) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SHAPE\tCOUNT\tOPERATION\tPRINCIPAL\tLAST SEEN\tCANONICAL SQL")
	for _, row := range rows {
		op, principal, sql := "?", "?", "?"
		if rec, err := record.Parse(row.Record); err == nil {
			op = rec.Operation().String()
			principal = rec.Principal().String()
			sql = truncate(rec.CanonicalText(), maxSQLWidth)
		}
		fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n",
			row.Shape, row.Count, op, principal,
			row.LastSeen.UTC().Format(time.RFC3339), sql)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d shapes\n", len(rows))
	return err
}
