package signaling

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"kids-tutoring/pkg/utils"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeWait = 5 * time.Second

type Options struct {
	SendBuffer   int
	PingInterval time.Duration
	ReadLimit    int64

	// CheckOrigin overrides the upgrader's origin check. nil accepts any
	// origin; CORS is enforced on the REST surface.
	CheckOrigin func(r *http.Request) bool
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 25 * time.Second
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 64 << 10
	}
	if o.CheckOrigin == nil {
		o.CheckOrigin = func(*http.Request) bool { return true }
	}
	return o
}

// Server upgrades HTTP requests to websocket connections and feeds their
// frames into a Relay.
type Server struct {
	relay    *Relay
	opts     Options
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewServer(relay *Relay, opts Options, log *zap.Logger) *Server {
	opts = opts.withDefaults()
	return &Server{
		relay: relay,
		opts:  opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     opts.CheckOrigin,
		},
		log: log.With(zap.String("module", "signaling")),
	}
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("Websocket upgrade failed", zap.Error(err))
		return
	}

	c := &wsConn{
		id:   utils.GenerateUUIDString(),
		ws:   ws,
		send: make(chan []byte, s.opts.SendBuffer),
		done: make(chan struct{}),
		log:  s.log,
	}

	if err := s.relay.Connect(c); err != nil {
		s.log.Error("Register connection", zap.Error(err))
		_ = ws.Close()
		return
	}

	c.Send(Frame{Event: EventConnected, Data: PeerEvent{SocketID: c.id}})

	// the handler's context ends once the upgrade returns on some servers,
	// so the connection lives on its own
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	go s.writePump(c)
	s.readPump(ctx, c)
}

type wsConn struct {
	id   string
	ws   *websocket.Conn
	send chan []byte

	// done is closed exactly once; send is never closed so Send cannot panic
	done      chan struct{}
	closeOnce sync.Once

	log *zap.Logger
}

func (c *wsConn) ID() string { return c.id }

// Send queues a frame without blocking. A full buffer drops the frame.
func (c *wsConn) Send(f Frame) bool {
	b, err := json.Marshal(f)
	if err != nil {
		c.log.Error("Marshal frame", zap.String("event", f.Event), zap.Error(err))
		return false
	}

	select {
	case <-c.done:
		return false
	default:
	}

	select {
	case c.send <- b:
		return true
	case <-c.done:
		return false
	default:
		c.log.Warn("Send buffer full, dropping frame",
			zap.String("conn_id", c.id),
			zap.String("event", f.Event),
		)
		return false
	}
}

func (c *wsConn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}

func (s *Server) writePump(c *wsConn) {
	ticker := time.NewTicker(s.opts.PingInterval)
	defer func() {
		ticker.Stop()
		c.Close()
	}()

	for {
		select {
		case <-c.done:
			return
		case data := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				s.log.Debug("Write failed", zap.String("conn_id", c.id), zap.Error(err))
				return
			}
		case <-ticker.C:
			if err := c.ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (s *Server) readPump(ctx context.Context, c *wsConn) {
	defer func() {
		s.relay.Disconnect(c.id)
		c.Close()
	}()

	pongWait := s.opts.PingInterval * 10 / 9
	c.ws.SetReadLimit(s.opts.ReadLimit)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				s.log.Info("Connection closed unexpectedly", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))

		s.dispatch(ctx, c, data)
	}
}

func (s *Server) dispatch(ctx context.Context, c *wsConn, data []byte) {
	var in inbound
	if err := json.Unmarshal(data, &in); err != nil {
		c.Send(Frame{Event: EventError, Data: ErrorEvent{Error: "invalid frame"}})
		return
	}

	switch in.Event {
	case EventJoinRoom:
		roomID, secret, err := parseRoomRef(in.Data)
		if err != nil {
			c.Send(Frame{Event: EventJoinRoom, Ack: in.Ack, Data: JoinRejected{Error: err.Error()}})
			return
		}
		_, _ = s.relay.Join(ctx, c.id, roomID, secret, in.Ack)

	case EventOffer, EventAnswer, EventICECandidate:
		var n negotiation
		if err := json.Unmarshal(in.Data, &n); err != nil || n.To == "" {
			return
		}
		s.relay.Forward(c.id, n.To, in.Event, n.payload(in.Event))

	case EventSendMessage:
		var msg struct {
			RoomID string `json:"roomId"`
		}
		if err := json.Unmarshal(in.Data, &msg); err != nil || msg.RoomID == "" {
			return
		}
		s.relay.Broadcast(c.id, msg.RoomID, in.Data)

	case EventLeaveRoom:
		roomID, _, err := parseRoomRef(in.Data)
		if err != nil {
			return
		}
		s.relay.Leave(c.id, roomID)

	case EventPing:
		c.Send(Frame{Event: EventPong, Ack: in.Ack})

	default:
		s.log.Debug("Unknown event", zap.String("conn_id", c.id), zap.String("event", in.Event))
		c.Send(Frame{Event: EventError, Ack: in.Ack, Data: ErrorEvent{Error: "unknown event " + in.Event}})
	}
}
