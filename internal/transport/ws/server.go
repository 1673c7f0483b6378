package ws

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"multiverse.land/internal/ledger"
	"multiverse.land/internal/protocol"
)

type Server struct {
	ledger  *ledger.Ledger
	log     *log.Logger
	schemas *protocol.Schemas

	upgrader websocket.Upgrader
}

func NewServer(l *ledger.Ledger, logger *log.Logger) *Server {
	s := &Server{
		ledger: l,
		log:    logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
	return s
}

// SetSchemas enables JSON Schema validation of inbound frames. A nil
// schema set leaves validation off.
func (s *Server) SetSchemas(sc *protocol.Schemas) { s.schemas = sc }

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		actor, sessionID := s.handshake(conn)
		if actor == "" {
			return
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b, ok := <-out:
					if !ok {
						return
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		resp := make(chan protocol.ResultMsg, 1)

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				cancel()
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil {
				continue
			}
			if base.Type != protocol.TypeCall {
				continue
			}
			if s.schemas != nil && s.schemas.Call != nil {
				var doc any
				if err := json.Unmarshal(msg, &doc); err != nil {
					continue
				}
				if err := s.schemas.Call.Validate(doc); err != nil {
					s.writeResult(ctx, out, protocol.ResultMsg{
						Type: protocol.TypeResult, OK: false,
						Code: protocol.ErrProtoBadRequest, Msg: "schema validation failed",
					})
					continue
				}
			}
			var call protocol.CallMsg
			if err := json.Unmarshal(msg, &call); err != nil {
				continue
			}
			if call.ProtocolVersion != protocol.Version {
				continue
			}

			select {
			case s.ledger.Inbox() <- ledger.CallEnvelope{Actor: actor, Call: call, Resp: resp}:
			case <-ctx.Done():
				return
			}
			select {
			case res := <-resp:
				s.writeResult(ctx, out, res)
			case <-ctx.Done():
				return
			}
		}

		s.log.Printf("session %s closed (actor=%s)", sessionID, actor)
	}
}

func (s *Server) writeResult(ctx context.Context, out chan []byte, res protocol.ResultMsg) {
	b, err := json.Marshal(res)
	if err != nil {
		return
	}
	select {
	case out <- b:
	case <-ctx.Done():
	}
}

func (s *Server) handshake(conn *websocket.Conn) (actor ledger.Address, sessionID string) {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return "", ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return "", ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return "", ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return "", ""
	}

	addr := ledger.Address(strings.ToLower(strings.TrimSpace(hello.Address)))
	if addr == "" {
		addr = ledger.NewAddress()
	}
	if !addr.Valid() {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad address"), time.Now().Add(time.Second))
		return "", ""
	}

	sessionID = uuid.NewString()
	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		SessionID:       sessionID,
		Address:         string(addr),
		LedgerID:        s.ledger.ID(),
		Seq:             s.ledger.Seq(),
		PricePerTile:    s.ledger.PricePerTile(),
	}
	if err := writeJSON(conn, welcome); err != nil {
		return "", ""
	}

	s.log.Printf("session %s opened (actor=%s)", sessionID, addr)
	return addr, sessionID
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
