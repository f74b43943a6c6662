package relay

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
)

// FileSink appends one payload per line to a file opened once at construction.
type FileSink struct {
	path    string
	options string

	mu sync.Mutex
	f  *os.File
}

// NewFileSink opens target for append. Anything after '?' is kept as
// options but otherwise ignored.
func NewFileSink(target string) (*FileSink, error) {
	path, options, _ := strings.Cut(target, "?")
	if path == "" {
		return nil, fmt.Errorf("%w: file destination has no path", ErrConfig)
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrConfig, path, err)
	}
	logger.L().Infow("File sink opened", "path", path, "options", options)
	return &FileSink{path: path, options: options, f: f}, nil
}

func (s *FileSink) Path() string    { return s.path }
func (s *FileSink) Options() string { return s.options }

func (s *FileSink) Send(_ context.Context, payload []byte) error {
	line := make([]byte, 0, len(payload)+1)
	line = append(line, payload...)
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return fmt.Errorf("file sink %s is closed", s.path)
	}
	if _, err := s.f.Write(line); err != nil {
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return nil
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.f == nil {
		return nil
	}
	err := s.f.Close()
	s.f = nil
	return err
}
