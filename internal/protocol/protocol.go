package protocol

import "encoding/json"

const Version = "1.0"

// Message types.
const (
	TypeReport = "REPORT"
	TypeAck    = "ACK"
	TypeError  = "ERROR"
)

// BaseMessage lets us route unknown JSON messages by type.
type BaseMessage struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version,omitempty"`
}

func DecodeBase(b []byte) (BaseMessage, error) {
	var m BaseMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

// ReportMsg carries the outcome of one run.
type ReportMsg struct {
	Type            string  `json:"type"`
	ProtocolVersion string  `json:"protocol_version"`
	RunID           string  `json:"run_id"`
	Answer          int     `json:"answer"`
	Candidates      int     `json:"candidates"`
	SafeToRemove    int     `json:"safe_to_remove"`
	Slabs           int     `json:"slabs"`
	Cells           int     `json:"cells"`
	Passes          int     `json:"passes"`
	Moves           int     `json:"moves"`
	ElapsedMs       float64 `json:"elapsed_ms"`
}

type AckMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	RunID           string `json:"run_id"`
}

type ErrorMsg struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Code            string `json:"code"`
	Message         string `json:"message,omitempty"`
}
