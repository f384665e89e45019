package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"slabfall.ai/internal/sim/tuning"
)

func main() {
	var (
		inputPath   = flag.String("input", "", "slab input file (default: ./input, else next to the binary)")
		tuningPath  = flag.String("tuning", "", "path to tuning.yaml (optional)")
		snapPath    = flag.String("snapshot", "", "write the settled arrangement to this .snap.zst file")
		resumePath  = flag.String("resume", "", "load slabs from a snapshot instead of the input file")
		indexPath   = flag.String("index", "", "record the run in this sqlite index")
		eventsPath  = flag.String("events", "", "write settle passes to this .jsonl.zst log")
		publishURL  = flag.String("publish", "", "send a REPORT to this collector websocket url")
		collectAddr = flag.String("collect", "", "serve a REPORT collector on this address instead of running (records into -index)")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[slabfall] ", log.LstdFlags|log.Lmicroseconds)

	tune := tuning.Defaults()
	if tp := strings.TrimSpace(*tuningPath); tp != "" {
		t, err := tuning.Load(tp)
		if err != nil {
			logger.Fatalf("load tuning: %v", err)
		}
		tune = t
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if addr := strings.TrimSpace(*collectAddr); addr != "" {
		if err := serveCollector(ctx, addr, strings.TrimSpace(*indexPath), logger); err != nil {
			logger.Fatalf("collect: %v", err)
		}
		return
	}

	opts := runOptions{
		InputPath:  strings.TrimSpace(*inputPath),
		ResumePath: strings.TrimSpace(*resumePath),
		SnapPath:   strings.TrimSpace(*snapPath),
		IndexPath:  strings.TrimSpace(*indexPath),
		EventsPath: strings.TrimSpace(*eventsPath),
		PublishURL: strings.TrimSpace(*publishURL),
		Tuning:     tune,
	}
	if opts.InputPath == "" && opts.ResumePath == "" {
		opts.InputPath = defaultInputPath()
	}

	if err := run(ctx, opts, os.Stdout, logger); err != nil {
		logger.Fatalf("%v", err)
	}
}

// defaultInputPath prefers ./input and falls back to an input file beside
// the executable.
func defaultInputPath() string {
	const name = "input"
	if _, err := os.Stat(name); err == nil {
		return name
	}
	exe, err := os.Executable()
	if err != nil {
		return name
	}
	p := filepath.Join(filepath.Dir(exe), name)
	if _, err := os.Stat(p); err == nil {
		return p
	}
	return name
}
