package ws

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"slabfall.ai/internal/protocol"
)

func startCollector(t *testing.T, onReport func(protocol.ReportMsg) error) string {
	t.Helper()
	srv := httptest.NewServer(NewCollector(nil, onReport).Handler())
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func sampleReport() protocol.ReportMsg {
	return protocol.ReportMsg{
		RunID:        "run-1",
		Answer:       7,
		Candidates:   2,
		SafeToRemove: 5,
		Slabs:        7,
		Cells:        20,
		Passes:       4,
		Moves:        5,
		ElapsedMs:    1.5,
	}
}

func TestPublishDeliversReport(t *testing.T) {
	got := make(chan protocol.ReportMsg, 1)
	url := startCollector(t, func(r protocol.ReportMsg) error {
		got <- r
		return nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := &Publisher{URL: url}
	if err := p.Publish(ctx, sampleReport()); err != nil {
		t.Fatalf("publish: %v", err)
	}

	select {
	case r := <-got:
		if r.Type != protocol.TypeReport || r.Answer != 7 || r.RunID != "run-1" {
			t.Fatalf("unexpected report %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("collector never received report")
	}
}

func TestPublishSurfacesCollectorError(t *testing.T) {
	url := startCollector(t, func(protocol.ReportMsg) error { return errors.New("disk full") })

	err := (&Publisher{URL: url}).Publish(context.Background(), sampleReport())
	var remote *RemoteError
	if !errors.As(err, &remote) {
		t.Fatalf("expected RemoteError, got %v", err)
	}
	if remote.Code != protocol.ErrInternal {
		t.Fatalf("code=%s want %s", remote.Code, protocol.ErrInternal)
	}
}

func TestPublishRejectsInvalidReportBeforeDial(t *testing.T) {
	rep := sampleReport()
	rep.RunID = ""
	// Nothing listens here; validation must fail first.
	err := (&Publisher{URL: "ws://127.0.0.1:1/none"}).Publish(context.Background(), rep)
	if err == nil || !strings.Contains(err.Error(), "publish:") {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestCollectorRejectsWrongType(t *testing.T) {
	c := NewCollector(nil, nil)
	reply, ok := c.handle([]byte(`{"type":"ACK","protocol_version":"1.0"}`)).(protocol.ErrorMsg)
	if !ok || reply.Code != protocol.ErrProtoBadRequest {
		t.Fatalf("unexpected reply %+v", reply)
	}
	reply, ok = c.handle([]byte(`{"type":"REPORT","protocol_version":"0.1"}`)).(protocol.ErrorMsg)
	if !ok || reply.Code != protocol.ErrBadVersion {
		t.Fatalf("unexpected reply %+v", reply)
	}
}
