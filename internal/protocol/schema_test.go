package protocol

import (
	"encoding/json"
	"testing"
)

func TestValidateReportAcceptsEncodedReport(t *testing.T) {
	b, err := json.Marshal(ReportMsg{
		Type:            TypeReport,
		ProtocolVersion: Version,
		RunID:           "5f0c",
		Answer:          7,
		Candidates:      2,
		SafeToRemove:    5,
		Slabs:           7,
		Cells:           20,
		Passes:          4,
		Moves:           5,
		ElapsedMs:       0.31,
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := ValidateReport(b); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestValidateReportRejects(t *testing.T) {
	tests := []string{
		`{"type":"ACK","protocol_version":"1.0","run_id":"x","answer":1,"candidates":1,"safe_to_remove":0,"slabs":1,"passes":1,"elapsed_ms":1}`,
		`{"type":"REPORT","protocol_version":"1.0","run_id":"","answer":1,"candidates":1,"safe_to_remove":0,"slabs":1,"passes":1,"elapsed_ms":1}`,
		`{"type":"REPORT","protocol_version":"1.0","run_id":"x","answer":-1,"candidates":1,"safe_to_remove":0,"slabs":1,"passes":1,"elapsed_ms":1}`,
		`{"type":"REPORT","protocol_version":"1.0","run_id":"x","answer":1,"candidates":1,"safe_to_remove":0,"slabs":1,"passes":1,"elapsed_ms":1,"extra":true}`,
		`{"type":"REPORT"}`,
		`not json`,
	}
	for _, tc := range tests {
		if err := ValidateReport([]byte(tc)); err == nil {
			t.Fatalf("expected validation failure for %s", tc)
		}
	}
}

func TestDecodeBase(t *testing.T) {
	base, err := DecodeBase([]byte(`{"type":"ACK","protocol_version":"1.0","run_id":"r"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if base.Type != TypeAck || base.ProtocolVersion != Version {
		t.Fatalf("unexpected base %+v", base)
	}
}
