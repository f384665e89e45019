package ws

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"slabfall.ai/internal/protocol"
)

// Collector accepts REPORT messages over websocket. Each valid report is
// handed to OnReport and acknowledged.
type Collector struct {
	log      *log.Logger
	onReport func(protocol.ReportMsg) error

	upgrader websocket.Upgrader
}

func NewCollector(logger *log.Logger, onReport func(protocol.ReportMsg) error) *Collector {
	return &Collector{
		log:      logger,
		onReport: onReport,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

func (c *Collector) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := c.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			reply := c.handle(msg)
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteJSON(reply); err != nil {
				return
			}
		}
	}
}

func (c *Collector) handle(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeReport {
		return errorMsg(protocol.ErrProtoBadRequest, "expected REPORT")
	}
	if base.ProtocolVersion != protocol.Version {
		return errorMsg(protocol.ErrBadVersion, "bad protocol_version")
	}
	if err := protocol.ValidateReport(msg); err != nil {
		return errorMsg(protocol.ErrInvalidReport, err.Error())
	}
	var rep protocol.ReportMsg
	if err := json.Unmarshal(msg, &rep); err != nil {
		return errorMsg(protocol.ErrInvalidReport, err.Error())
	}
	if c.onReport != nil {
		if err := c.onReport(rep); err != nil {
			if c.log != nil {
				c.log.Printf("collector: run %s: %v", rep.RunID, err)
			}
			return errorMsg(protocol.ErrInternal, err.Error())
		}
	}
	return protocol.AckMsg{Type: protocol.TypeAck, ProtocolVersion: protocol.Version, RunID: rep.RunID}
}

func errorMsg(code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{Type: protocol.TypeError, ProtocolVersion: protocol.Version, Code: code, Message: message}
}
