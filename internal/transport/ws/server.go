package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"baseparts.ai/internal/logging"
	"baseparts.ai/internal/protocol"
	"baseparts.ai/internal/sim/baseparts"
	"baseparts.ai/internal/sim/catalogs"
)

const maxLimit = 512

type Server struct {
	holder *baseparts.Holder
	log    *zap.Logger

	upgrader websocket.Upgrader

	// subscribed runs between Subscribe and reading the current registry.
	subscribed func()
}

func NewServer(h *baseparts.Holder, logger *zap.Logger) *Server {
	return &Server{
		holder: h,
		log:    logging.OrNop(logger).Named("ws"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		hello, updates, stop, ok := s.handshake(conn)
		if !ok {
			return
		}
		defer stop()
		log := s.log.With(zap.String("client", hello.ClientName), zap.String("remote", r.RemoteAddr))
		log.Debug("client connected", zap.Bool("subscribe", hello.Subscribe))

		out := make(chan []byte, 16)

		// Writer goroutine.
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				case reg, ok := <-updates:
					if !ok {
						updates = nil
						continue
					}
					b, err := json.Marshal(protocol.ReloadedMsg{
						Type:            protocol.TypeReloaded,
						ProtocolVersion: protocol.Version,
						Catalog:         protocol.Summary(reg),
					})
					if err != nil {
						continue
					}
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			resp := s.handle(msg)
			b, err := json.Marshal(resp)
			if err != nil {
				log.Error("encode response", zap.Error(err))
				continue
			}
			select {
			case out <- b:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}
		}
		log.Debug("client disconnected")
	}
}

// handshake expects HELLO and answers WELCOME. Subscribing happens before
// WELCOME is written so no reload published afterwards is missed.
func (s *Server) handshake(conn *websocket.Conn) (hello protocol.HelloMsg, updates <-chan *baseparts.Registry, stop func(), ok bool) {
	stop = func() {}

	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return hello, nil, stop, false
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		closeWith(conn, "expected HELLO")
		return hello, nil, stop, false
	}
	if err := json.Unmarshal(msg, &hello); err != nil {
		closeWith(conn, "bad HELLO")
		return hello, nil, stop, false
	}
	if hello.ProtocolVersion != protocol.Version {
		closeWith(conn, "bad protocol_version")
		return hello, nil, stop, false
	}
	if hello.ClientName == "" {
		hello.ClientName = "client"
	}

	if hello.Subscribe {
		updates, stop = s.holder.Subscribe(4)
		if s.subscribed != nil {
			s.subscribed()
		}
	}
	reg := s.holder.Current()
	if reg == nil {
		stop()
		_ = writeJSON(conn, errorMsg("", protocol.ErrNotLoaded, "no catalog published yet"))
		return hello, nil, func() {}, false
	}

	welcome := protocol.WelcomeMsg{
		Type:            protocol.TypeWelcome,
		ProtocolVersion: protocol.Version,
		Catalog:         protocol.Summary(reg),
	}
	if err := writeJSON(conn, welcome); err != nil {
		stop()
		return hello, nil, func() {}, false
	}
	return hello, updates, stop, true
}

func (s *Server) handle(msg []byte) any {
	base, err := protocol.DecodeBase(msg)
	if err != nil {
		return errorMsg("", protocol.ErrProtoBadRequest, "invalid json")
	}
	if base.Type != protocol.TypeQuery {
		return errorMsg("", protocol.ErrProtoBadRequest, fmt.Sprintf("unexpected message type %q", base.Type))
	}
	var q protocol.QueryMsg
	if err := json.Unmarshal(msg, &q); err != nil {
		return errorMsg("", protocol.ErrProtoBadRequest, "bad QUERY")
	}
	if q.ProtocolVersion != protocol.Version {
		return errorMsg(q.ID, protocol.ErrProtoBadRequest, "bad protocol_version")
	}
	return Answer(s.holder.Current(), q)
}

// Answer resolves q against reg. It returns a PartsMsg or an ErrorMsg.
func Answer(reg *baseparts.Registry, q protocol.QueryMsg) any {
	if reg == nil {
		return errorMsg(q.ID, protocol.ErrNotLoaded, "no catalog published yet")
	}
	class, err := baseparts.ParseClass(q.Class)
	if err != nil {
		return errorMsg(q.ID, protocol.ErrBadRequest, err.Error())
	}
	var res catalogs.Resource
	if class == baseparts.ClassRequired {
		if q.Resource == "" {
			return errorMsg(q.ID, protocol.ErrBadRequest, "required parts need a resource")
		}
		res, err = catalogs.ParseResource(q.Resource)
		if err != nil {
			return errorMsg(q.ID, protocol.ErrBadRequest, err.Error())
		}
	}
	limit := q.Limit
	if limit < 0 {
		return errorMsg(q.ID, protocol.ErrBadRequest, "negative limit")
	}
	if limit == 0 || limit > maxLimit {
		limit = maxLimit
	}
	return protocol.PartsMsg{
		Type:            protocol.TypeParts,
		ProtocolVersion: protocol.Version,
		ID:              q.ID,
		Digest:          reg.Digest,
		Parts:           protocol.Views(reg.Select(class, res), limit),
	}
}

func errorMsg(id, code, message string) protocol.ErrorMsg {
	return protocol.ErrorMsg{
		Type:            protocol.TypeError,
		ProtocolVersion: protocol.Version,
		ID:              id,
		Code:            code,
		Message:         message,
	}
}

func closeWith(conn *websocket.Conn, reason string) {
	_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, reason), time.Now().Add(time.Second))
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
