package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"slabfall.ai/internal/protocol"
)

// Publisher delivers a REPORT to a collector and waits for its ACK.
type Publisher struct {
	URL              string
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// RemoteError is an ERROR reply from the collector.
type RemoteError struct {
	Code    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return "collector: " + e.Code
	}
	return fmt.Sprintf("collector: %s: %s", e.Code, e.Message)
}

func (p *Publisher) Publish(ctx context.Context, rep protocol.ReportMsg) error {
	if p.URL == "" {
		return errors.New("publish: empty url")
	}
	rep.Type = protocol.TypeReport
	if rep.ProtocolVersion == "" {
		rep.ProtocolVersion = protocol.Version
	}
	b, err := json.Marshal(rep)
	if err != nil {
		return err
	}
	if err := protocol.ValidateReport(b); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	d := websocket.Dialer{HandshakeTimeout: p.handshakeTimeout()}
	conn, _, err := d.DialContext(ctx, p.URL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", p.URL, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(p.writeTimeout())
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetWriteDeadline(deadline)
	if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return fmt.Errorf("send REPORT: %w", err)
	}

	_ = conn.SetReadDeadline(deadline)
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return fmt.Errorf("await ACK: %w", err)
	}
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return fmt.Errorf("await ACK: %w", err)
	}
	switch base.Type {
	case protocol.TypeAck:
		var ack protocol.AckMsg
		if err := json.Unmarshal(msg, &ack); err != nil {
			return err
		}
		if ack.RunID != rep.RunID {
			return fmt.Errorf("ACK for run %q, sent %q", ack.RunID, rep.RunID)
		}
	case protocol.TypeError:
		var e protocol.ErrorMsg
		if err := json.Unmarshal(msg, &e); err != nil {
			return err
		}
		return &RemoteError{Code: e.Code, Message: e.Message}
	default:
		return fmt.Errorf("unexpected reply type %q", base.Type)
	}

	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	return nil
}

func (p *Publisher) handshakeTimeout() time.Duration {
	if p.HandshakeTimeout > 0 {
		return p.HandshakeTimeout
	}
	return 5 * time.Second
}

func (p *Publisher) writeTimeout() time.Duration {
	if p.WriteTimeout > 0 {
		return p.WriteTimeout
	}
	return 5 * time.Second
}
