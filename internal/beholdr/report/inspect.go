package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

const maxLineSize = 16 * 1024 * 1024

type InspectStats struct {
	Lines   int
	Records int
	Invalid int
}

// Inspect reads records written by a file sink and classifies them into
// a fresh index built from opts. Lines that are not records are counted
// and skipped.
func Inspect(in io.Reader, opts index.Options) (*index.Index, InspectStats, error) {
	log := logger.L()
	idx, err := index.New(opts)
	if err != nil {
		return nil, InspectStats{}, err
	}
	var stats InspectStats

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		stats.Lines++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		rec, err := record.Parse([]byte(line))
		if err != nil {
			stats.Invalid++
			log.Debugw("skipping line that is not a record",
				"line_number", stats.Lines,
				"err", err.Error())
			continue
		}
		idx.Classify(rec)
		stats.Records++
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("scan input: %w", err)
	}

	log.Infow("inspected records",
		"lines", stats.Lines,
		"records", stats.Records,
		"invalid", stats.Invalid,
		"shapes", idx.Len())
	return idx, stats, nil
}
