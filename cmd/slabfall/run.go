package main

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"slabfall.ai/internal/persistence/indexdb"
	persistlog "slabfall.ai/internal/persistence/log"
	"slabfall.ai/internal/persistence/snapshot"
	"slabfall.ai/internal/protocol"
	"slabfall.ai/internal/sim/engine"
	"slabfall.ai/internal/sim/slab"
	"slabfall.ai/internal/sim/tuning"
	"slabfall.ai/internal/transport/ws"
)

type runOptions struct {
	InputPath  string
	ResumePath string
	SnapPath   string
	IndexPath  string
	EventsPath string
	PublishURL string
	Tuning     tuning.Tuning
}

type runOutcome struct {
	RunID   string
	Digest  string
	Result  engine.Result
	Settle  engine.SettleStats
	Elapsed time.Duration
}

func run(ctx context.Context, opts runOptions, stdout io.Writer, logger *log.Logger) error {
	runID := uuid.NewString()

	var passLog *persistlog.PassLogger
	cfg := engine.Config{MaxPasses: opts.Tuning.MaxPasses}
	if opts.EventsPath != "" {
		passLog = persistlog.NewPassLogger(opts.EventsPath, runID)
		cfg.OnPass = passLog.WritePass
	}

	start := time.Now()
	e := engine.New(cfg)
	res, st, digest, err := compute(e, opts)
	elapsed := time.Since(start)
	if passLog != nil {
		if cerr := passLog.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("event log: %w", cerr)
		}
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "The answer is: %d\n", res.Sum)
	fmt.Fprintf(stdout, "%.2f milliseconds\n", float64(elapsed.Nanoseconds())/1e6)

	logger.Printf("run=%s slabs=%s cells=%s passes=%d moves=%s candidates=%d safe=%d",
		runID, humanize.Comma(int64(len(e.Slabs()))), humanize.Comma(int64(e.CellCount())),
		st.Passes, humanize.Comma(int64(st.Moves)), len(res.Candidates), res.SafeToRemove)
	if passLog != nil {
		logger.Printf("event log written: %s", opts.EventsPath)
	}

	out := runOutcome{RunID: runID, Digest: digest, Result: res, Settle: st, Elapsed: elapsed}

	if opts.SnapPath != "" {
		if err := snapshot.WriteSnapshot(opts.SnapPath, e.ExportSnapshot(runID)); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		logger.Printf("snapshot written: %s", opts.SnapPath)
	}
	if opts.IndexPath != "" {
		if err := recordRun(ctx, opts, e, out); err != nil {
			return fmt.Errorf("index: %w", err)
		}
	}
	if opts.PublishURL != "" {
		p := &ws.Publisher{
			URL:              opts.PublishURL,
			HandshakeTimeout: time.Duration(opts.Tuning.Publish.HandshakeTimeoutMs) * time.Millisecond,
			WriteTimeout:     time.Duration(opts.Tuning.Publish.WriteTimeoutMs) * time.Millisecond,
		}
		if err := p.Publish(ctx, report(opts, e, out)); err != nil {
			return err
		}
		logger.Printf("report published to %s", opts.PublishURL)
	}
	return nil
}

func compute(e *engine.Engine, opts runOptions) (engine.Result, engine.SettleStats, string, error) {
	digest, err := load(e, opts)
	if err != nil {
		return engine.Result{}, engine.SettleStats{}, "", err
	}
	res, st, err := e.Run()
	return res, st, digest, err
}

// load fills e from a snapshot or the input file and returns a digest of the
// source bytes.
func load(e *engine.Engine, opts runOptions) (string, error) {
	if opts.ResumePath != "" {
		snap, err := snapshot.ReadSnapshot(opts.ResumePath)
		if err != nil {
			return "", fmt.Errorf("read snapshot: %w", err)
		}
		if err := e.ImportSnapshot(snap); err != nil {
			return "", fmt.Errorf("import snapshot: %w", err)
		}
		return "snapshot:" + snap.Header.RunID, nil
	}

	raw, err := os.ReadFile(opts.InputPath)
	if err != nil {
		return "", fmt.Errorf("read input: %w", err)
	}
	slabs, err := slab.ParseAll(bytes.NewReader(raw), opts.Tuning.StrictBlankLines)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", opts.InputPath, err)
	}
	if err := e.Load(slabs); err != nil {
		return "", err
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

func recordRun(ctx context.Context, opts runOptions, e *engine.Engine, out runOutcome) error {
	idx, err := indexdb.OpenSQLite(opts.IndexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	source := opts.InputPath
	if opts.ResumePath != "" {
		source = opts.ResumePath
	}
	r := indexdb.Run{
		ID:           out.RunID,
		InputPath:    source,
		InputDigest:  out.Digest,
		Slabs:        len(e.Slabs()),
		Cells:        e.CellCount(),
		Passes:       out.Settle.Passes,
		Moves:        out.Settle.Moves,
		Candidates:   len(out.Result.Candidates),
		SafeToRemove: out.Result.SafeToRemove,
		Answer:       out.Result.Sum,
		ElapsedMs:    float64(out.Elapsed.Nanoseconds()) / 1e6,
	}
	for _, s := range e.Slabs() {
		lo, hi := s.Corners()
		r.Rows = append(r.Rows, indexdb.SlabRow{
			Label:       int(s.Label),
			Lo:          [3]int{lo.X, lo.Y, lo.Z},
			Hi:          [3]int{hi.X, hi.Y, hi.Z},
			Supports:    len(s.Supports),
			SupportedBy: len(s.SupportedBy),
			Cascade:     out.Result.Cascades[s.Label],
		})
	}
	return idx.RecordRun(ctx, r)
}

func report(opts runOptions, e *engine.Engine, out runOutcome) protocol.ReportMsg {
	return protocol.ReportMsg{
		Type:            protocol.TypeReport,
		ProtocolVersion: opts.Tuning.ProtocolVersion,
		RunID:           out.RunID,
		Answer:          out.Result.Sum,
		Candidates:      len(out.Result.Candidates),
		SafeToRemove:    out.Result.SafeToRemove,
		Slabs:           len(e.Slabs()),
		Cells:           e.CellCount(),
		Passes:          out.Settle.Passes,
		Moves:           out.Settle.Moves,
		ElapsedMs:       float64(out.Elapsed.Nanoseconds()) / 1e6,
	}
}
