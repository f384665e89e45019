package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"slabfall.ai/internal/persistence/indexdb"
	"slabfall.ai/internal/protocol"
	"slabfall.ai/internal/transport/ws"
)

const defaultCollectIndex = "data/reports.sqlite"

// recordReport stores a received REPORT as a run row. Per-slab rows stay
// with the publishing side.
func recordReport(idx *indexdb.SQLiteIndex, logger *log.Logger) func(protocol.ReportMsg) error {
	return func(rep protocol.ReportMsg) error {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := idx.RecordRun(ctx, indexdb.Run{
			ID:           rep.RunID,
			InputPath:    "report",
			Slabs:        rep.Slabs,
			Cells:        rep.Cells,
			Passes:       rep.Passes,
			Moves:        rep.Moves,
			Candidates:   rep.Candidates,
			SafeToRemove: rep.SafeToRemove,
			Answer:       rep.Answer,
			ElapsedMs:    rep.ElapsedMs,
		})
		if err != nil {
			return err
		}
		logger.Printf("report run=%s answer=%d slabs=%d", rep.RunID, rep.Answer, rep.Slabs)
		return nil
	}
}

func collectMux(idx *indexdb.SQLiteIndex, logger *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/v1/reports", ws.NewCollector(logger, recordReport(idx, logger)).Handler())
	return mux
}

// serveCollector accepts REPORT messages on addr until ctx is cancelled.
func serveCollector(ctx context.Context, addr, indexPath string, logger *log.Logger) error {
	if indexPath == "" {
		indexPath = defaultCollectIndex
	}
	idx, err := indexdb.OpenSQLite(indexPath)
	if err != nil {
		return err
	}
	defer idx.Close()

	srv := &http.Server{
		Addr:              addr,
		Handler:           collectMux(idx, logger),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("collecting reports on %s (index %s)", addr, indexPath)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
