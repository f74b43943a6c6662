package source

import (
	"context"
	"encoding/json"
	"strings"
)

// auditEvent is the subset of an AuditR NDJSON event we consume.
type auditEvent struct {
	EventID   string  `json:"event_id"`
	DBUser    *string `json:"db_user,omitempty"`
	ClientIP  *string `json:"client_ip,omitempty"`
	QueryType string  `json:"query_type"`
	RawQuery  *string `json:"raw_query,omitempty"`
}

// AuditReader reads NDJSON audit events. Events without raw_query, and
// lines that are not JSON objects, are skipped.
type AuditReader struct {
	opts ReaderOptions
}

func NewAuditReader(opts ReaderOptions) *AuditReader {
	return &AuditReader{opts: opts}
}

func (r *AuditReader) ReadLine(ctx context.Context, line string) (*Query, error) {
	s := strings.TrimSpace(line)
	if !strings.HasPrefix(s, "{") {
		return nil, ErrSkipLine
	}

	var evt auditEvent
	if err := json.Unmarshal([]byte(s), &evt); err != nil {
		return nil, ErrSkipLine
	}
	if evt.QueryType == "SKIP" || evt.QueryType == "PARSE_ERROR" {
		return nil, ErrSkipLine
	}
	if evt.RawQuery == nil || strings.TrimSpace(*evt.RawQuery) == "" {
		return nil, ErrSkipLine
	}

	p := r.opts.principal()
	if evt.DBUser != nil && *evt.DBUser != "" {
		p.User = *evt.DBUser
	}
	if evt.ClientIP != nil && *evt.ClientIP != "" {
		p.Address = *evt.ClientIP
	}
	return &Query{SQL: strings.TrimSpace(*evt.RawQuery), Principal: p}, nil
}
