package source

import (
	"context"
	"errors"
	"fmt"

	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

// ErrSkipLine indicates the reader couldn't use the line but processing should continue.
var ErrSkipLine = errors.New("skip line")

// Query is one statement read from the input, attributed to a principal.
type Query struct {
	SQL       string
	Principal record.Principal
}

type ReaderOptions struct {
	// User and Address attribute statements whose input carries no principal.
	User    string
	Address string
}

func (o ReaderOptions) principal() record.Principal {
	return record.Principal{User: o.User, Address: o.Address}
}

// Reader turns one input line into a Query.
type Reader interface {
	// ReadLine returns the query on the line, ErrSkipLine if the line is
	// ignorable, or another error for fatal input failures.
	ReadLine(ctx context.Context, line string) (*Query, error)
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

// NewReader returns a Reader for the given input format ("sql" or "auditr").
func (f *Factory) NewReader(format string, opts ReaderOptions) (Reader, error) {
	switch format {
	case "sql", "":
		return NewSQLReader(opts), nil
	case "auditr", "ndjson":
		return NewAuditReader(opts), nil
	default:
		return nil, fmt.Errorf("unsupported input format: %s", format)
	}
}
