package source

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/vaibhaw-/beholdr/internal/beholdr/config"
	"github.com/vaibhaw-/beholdr/internal/beholdr/extract"
	"github.com/vaibhaw-/beholdr/internal/beholdr/index"
	"github.com/vaibhaw-/beholdr/internal/beholdr/logger"
	"github.com/vaibhaw-/beholdr/internal/beholdr/record"
)

const maxLineSize = 4 * 1024 * 1024

// Reject reasons.
const (
	ReasonSkip          = "SKIP"
	ReasonInvalidRecord = "INVALID_RECORD"
)

// Observer receives every record built from the input. *pipeline.Pipeline
// satisfies it.
type Observer interface {
	Observe(rec *record.Record) index.Result
}

type RunSummary struct {
	Timestamp     string `json:"timestamp"`
	Input         string `json:"input"`
	Destination   string `json:"destination"`
	RejectFile    string `json:"reject_file,omitempty"`
	RawCount      int    `json:"raw_count"`
	ObservedCount int    `json:"observed_count"`
	RejectedCount int    `json:"rejected_count"`
	NewShapes     int    `json:"new_shapes"`
	Unparsed      int    `json:"unparsed"`
}

// RejectEvent is written to the reject file for every line that produced
// no record.
type RejectEvent struct {
	EventID   string `json:"event_id"`
	Timestamp string `json:"timestamp"`
	Reason    string `json:"reason"`
	RawLine   string `json:"raw_line"`
}

func newRejectEvent(reason, line string) *RejectEvent {
	return &RejectEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
		Reason:    reason,
		RawLine:   line,
	}
}

func appendRunLog(path string, summary RunSummary) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(summary)
}

// openRejectFile returns nil if no reject file is configured.
func openRejectFile(cfg *config.Config) (io.WriteCloser, error) {
	if cfg == nil || cfg.Output.RejectFile == "" {
		return nil, nil
	}
	return os.OpenFile(cfg.Output.RejectFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
}

type runner struct {
	reader Reader
	x      *extract.Extractor
	obs    Observer
	reject *json.Encoder
	sum    RunSummary
}

func (r *runner) encodeReject(reason, line string) error {
	if r.reject == nil {
		return nil
	}
	if err := r.reject.Encode(newRejectEvent(reason, line)); err != nil {
		return fmt.Errorf("encode reject event: %w", err)
	}
	return nil
}

// processLine handles a single line of input. It returns true if a
// record was observed.
func (r *runner) processLine(ctx context.Context, line string) (bool, error) {
	log := logger.L()

	q, err := r.reader.ReadLine(ctx, line)
	if err != nil {
		if errors.Is(err, ErrSkipLine) {
			log.Debugw("skipping line", "length", len(line))
			return false, r.encodeReject(ReasonSkip, line)
		}
		return false, fmt.Errorf("read line: %w", err)
	}

	info, err := r.x.Extract(q.SQL)
	if err != nil {
		r.sum.Unparsed++
	}
	rec, err := record.New(info.Params(q.SQL, q.Principal))
	if err != nil {
		log.Warnw("invalid record, rejecting line", "err", err.Error())
		return false, r.encodeReject(ReasonInvalidRecord, line)
	}

	res := r.obs.Observe(rec)
	if res.IsNew {
		r.sum.NewShapes++
	}
	return true, nil
}

// Run reads in line by line, builds a record for every statement and hands
// it to obs. Unusable lines go to the reject file when one is configured.
// A summary is appended to the run log when configured.
func Run(ctx context.Context, reader Reader, in io.Reader, obs Observer, cfg *config.Config) (RunSummary, error) {
	log := logger.L()
	if cfg == nil {
		cfg = &config.Config{}
	}
	log.Infow("starting observe run",
		"input", cfg.Input.FilePath,
		"format", cfg.Input.Format,
		"destination", cfg.Relay.Destination,
		"reject_file", cfg.Output.RejectFile)

	rejectFile, err := openRejectFile(cfg)
	if err != nil {
		log.Errorw("failed to open reject file",
			"path", cfg.Output.RejectFile,
			"err", err.Error())
		return RunSummary{}, fmt.Errorf("open reject file: %w", err)
	}
	r := &runner{reader: reader, x: extract.New(), obs: obs}
	if rejectFile != nil {
		defer rejectFile.Close()
		r.reject = json.NewEncoder(rejectFile)
	}

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	startTime := time.Now()

	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			log.Infow("observe run interrupted", "lines_processed", r.sum.RawCount)
			return r.sum, err
		}

		r.sum.RawCount++
		if r.sum.RawCount%1000 == 0 {
			log.Infow("processing progress",
				"lines_processed", r.sum.RawCount,
				"observed_count", r.sum.ObservedCount,
				"rejected_count", r.sum.RejectedCount)
		}

		observed, err := r.processLine(ctx, scanner.Text())
		if err != nil {
			log.Errorw("failed to process line",
				"line_number", r.sum.RawCount,
				"err", err.Error())
			return r.sum, err
		}
		if observed {
			r.sum.ObservedCount++
		} else {
			r.sum.RejectedCount++
		}
	}
	if err := scanner.Err(); err != nil {
		log.Errorw("scanner error", "err", err.Error())
		return r.sum, fmt.Errorf("scan input: %w", err)
	}

	r.sum.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	r.sum.Input = cfg.Input.FilePath
	r.sum.Destination = cfg.Relay.Destination
	r.sum.RejectFile = cfg.Output.RejectFile
	if cfg.Logging.RunLog != "" {
		if err := appendRunLog(cfg.Logging.RunLog, r.sum); err != nil {
			log.Errorw("failed to write run log",
				"path", cfg.Logging.RunLog,
				"err", err.Error())
		} else {
			log.Debugw("wrote run summary", "path", cfg.Logging.RunLog)
		}
	}

	duration := time.Since(startTime)
	log.Infow("completed observe run",
		"duration", duration,
		"lines_processed", r.sum.RawCount,
		"observed_count", r.sum.ObservedCount,
		"rejected_count", r.sum.RejectedCount,
		"new_shapes", r.sum.NewShapes,
		"lines_per_second", float64(r.sum.RawCount)/duration.Seconds())
	return r.sum, nil
}
