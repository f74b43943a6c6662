package source

import (
	"context"
	"strings"
)

// SQLReader reads one statement per line. Blank lines and comment lines
// are skipped.
type SQLReader struct {
	opts ReaderOptions
}

func NewSQLReader(opts ReaderOptions) *SQLReader {
	return &SQLReader{opts: opts}
}

func (r *SQLReader) ReadLine(ctx context.Context, line string) (*Query, error) {
	s := strings.TrimSpace(line)
	if s == "" || strings.HasPrefix(s, "--") || strings.HasPrefix(s, "#") {
		return nil, ErrSkipLine
	}
	s = strings.TrimSpace(strings.TrimRight(s, ";"))
	if s == "" {
		return nil, ErrSkipLine
	}
	return &Query{SQL: s, Principal: r.opts.principal()}, nil
}
