// Package foxglove streams decoded KFly telemetry to a Foxglove Studio
// websocket client, speaking a minimal subset of the Foxglove
// WebSocket Protocol (serverInfo/advertise/subscribe plus binary
// message-data frames). It is a pure consumer of kfly.Codec dispatch;
// nothing here runs on the device link's hot path.
package foxglove

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/kfly-project/kfly-comm/pkg/kfly"
)

// channel IDs are fixed: one per telemetry kind this bridge knows how
// to publish.
const (
	chanIMU       uint64 = 1
	chanAttitude  uint64 = 2
	chanStatus    uint64 = 3
	chanDebug     uint64 = 4
	chanTransform uint64 = 5
)

// TelemetryEvent is one published message: the channel it belongs to
// plus its already-JSON-encoded body.
type TelemetryEvent struct {
	ChannelID uint64
	LogTimeNs uint64
	Body      []byte
}

// Server bridges a kfly.Codec's dispatched datagrams to any number of
// connected Foxglove websocket clients.
type Server struct {
	cfg Config
	hub *Hub[TelemetryEvent]

	upgrader websocket.Upgrader
}

// NewServer creates a bridge using cfg (zero-valued fields fall back
// to DefaultConfig).
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:      cfg.withDefaults(),
		hub:      NewHub[TelemetryEvent](WithBroadcastBuffer[TelemetryEvent](cfg.withDefaults().SendBuf)),
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
	}
}

// Attach registers callbacks on codec that publish every telemetry
// datagram this bridge understands. It returns the HandlerIDs so the
// caller can detach them on shutdown.
func (s *Server) Attach(codec *kfly.Codec) []detachable {
	return []detachable{
		{cmd: kfly.GetIMUData, id: kfly.RegisterCallback(codec, kfly.GetIMUData, s.publishIMU)},
		{cmd: kfly.GetEstimationAttitude, id: kfly.RegisterCallback(codec, kfly.GetEstimationAttitude, s.publishAttitude)},
		{cmd: kfly.GetEstimationPosition, id: kfly.RegisterCallback(codec, kfly.GetEstimationPosition, s.publishPosition)},
		{cmd: kfly.GetSystemStatus, id: kfly.RegisterCallback(codec, kfly.GetSystemStatus, s.publishStatus)},
		{cmd: kfly.DebugMessage, id: kfly.RegisterCallback(codec, kfly.DebugMessage, s.publishDebug)},
	}
}

type detachable struct {
	cmd kfly.Command
	id  kfly.HandlerID
}

// Detach releases every callback Attach registered.
func Detach(codec *kfly.Codec, attached []detachable) {
	for _, a := range attached {
		codec.ReleaseCallback(a.cmd, a.id)
	}
}

func (s *Server) publishIMU(v kfly.IMUData) {
	s.publishJSON(chanIMU, v)
}

func (s *Server) publishAttitude(v kfly.EstimationAttitude) {
	s.publishJSON(chanAttitude, v)
	s.publishTransform(v.Q.W, v.Q.X, v.Q.Y, v.Q.Z)
}

func (s *Server) publishPosition(v kfly.EstimationPosition) {
	s.publishJSON(chanTransform, v)
}

func (s *Server) publishStatus(v kfly.SystemStatus) {
	s.publishJSON(chanStatus, v)
}

func (s *Server) publishDebug(v kfly.DebugMessagePayload) {
	text := string(v.Text[:])
	for i, b := range v.Text {
		if b == 0 {
			text = string(v.Text[:i])
			break
		}
	}
	s.publishJSON(chanDebug, struct {
		Message string `json:"message"`
	}{Message: text})
}

func (s *Server) publishTransform(w, x, y, z float32) {
	s.publishJSON(chanTransform, struct {
		ParentFrame string  `json:"parent_frame_id"`
		ChildFrame  string  `json:"child_frame_id"`
		QW          float32 `json:"qw"`
		QX          float32 `json:"qx"`
		QY          float32 `json:"qy"`
		QZ          float32 `json:"qz"`
	}{ParentFrame: s.cfg.ParentFrame, ChildFrame: s.cfg.FrameID, QW: w, QX: x, QY: y, QZ: z})
}

func (s *Server) publishJSON(channelID uint64, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		return
	}
	s.hub.Publish(TelemetryEvent{
		ChannelID: channelID,
		LogTimeNs: uint64(time.Now().UnixNano()),
		Body:      body,
	})
}

// Serve runs the hub and the websocket listener together until ctx is
// cancelled or either one fails.
func (s *Server) Serve(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleConn)
	srv := &http.Server{Addr: s.cfg.WSAddr, Handler: mux}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.hub.Run(ctx)
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		return srv.Close()
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	return g.Wait()
}

func (s *Server) handleConn(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &wsClient{conn: conn, send: make(chan []byte, s.cfg.SendBuf)}
	if err := c.writeJSON(serverInfo(s.cfg)); err != nil {
		_ = conn.Close()
		return
	}
	if err := c.writeJSON(advertise(s.cfg)); err != nil {
		_ = conn.Close()
		return
	}

	sub := s.hub.Subscribe()
	defer s.hub.Unsubscribe(sub)

	go c.writePump()
	go c.readLoop()

	for {
		select {
		case <-r.Context().Done():
			c.close()
			return
		case evt, ok := <-sub:
			if !ok {
				c.close()
				return
			}
			subID, subscribed := c.subscriptionFor(evt.ChannelID)
			if !subscribed {
				continue
			}
			frame := EncodeMessageData(subID, evt.LogTimeNs, evt.Body)
			select {
			case c.send <- frame:
			default:
			}
		}
	}
}

func serverInfo(cfg Config) ServerInfoMsg {
	return ServerInfoMsg{
		Op:                 OpServerInfo,
		Name:               "kfly-comm",
		Capabilities:       []string{},
		SupportedEncodings: []string{"json"},
	}
}

func advertise(cfg Config) AdvertiseMsg {
	mk := func(id uint64, suffix string) Channel {
		return Channel{
			ID:         id,
			Topic:      fmt.Sprintf("%s/%s", cfg.Topic, suffix),
			Encoding:   "json",
			SchemaName: cfg.SchemaName,
		}
	}
	return AdvertiseMsg{
		Op: OpAdvertise,
		Channels: []Channel{
			mk(chanIMU, "imu"),
			mk(chanAttitude, "estimation/attitude"),
			mk(chanStatus, "status"),
			mk(chanDebug, "debug"),
			mk(chanTransform, "transform"),
		},
	}
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
	mu   sync.Mutex
	once sync.Once

	subMu sync.Mutex
	subs  map[uint64]uint32 // channelID -> client-chosen subscriptionID
}

func (c *wsClient) writeJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(v)
}

func (c *wsClient) writePump() {
	for frame := range c.send {
		c.mu.Lock()
		err := c.conn.WriteMessage(websocket.BinaryMessage, frame)
		c.mu.Unlock()
		if err != nil {
			c.close()
			return
		}
	}
}

// clientOp sniffs the "op" field shared by every client-to-server
// message before deciding which concrete type to unmarshal into.
type clientOp struct {
	Op string `json:"op"`
}

// readLoop handles subscribe/unsubscribe requests from the client and
// discards anything else. A Foxglove client only advertises interest
// in a subset of channels; events for channels the client never
// subscribed to are dropped in handleConn rather than sent.
func (c *wsClient) readLoop() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var op clientOp
		if err := json.Unmarshal(data, &op); err != nil {
			continue
		}

		switch op.Op {
		case OpSubscribe:
			var msg SubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, s := range msg.Subscriptions {
				c.subscribe(s.ChannelID, s.ID)
			}
		case OpUnsubscribe:
			var msg UnsubscribeMsg
			if err := json.Unmarshal(data, &msg); err != nil {
				continue
			}
			for _, id := range msg.SubscriptionIDs {
				c.unsubscribe(id)
			}
		}
	}
}

func (c *wsClient) subscribe(channelID uint64, subscriptionID uint32) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	if c.subs == nil {
		c.subs = make(map[uint64]uint32)
	}
	c.subs[channelID] = subscriptionID
}

func (c *wsClient) unsubscribe(subscriptionID uint32) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for channelID, id := range c.subs {
		if id == subscriptionID {
			delete(c.subs, channelID)
		}
	}
}

func (c *wsClient) subscriptionFor(channelID uint64) (uint32, bool) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id, ok := c.subs[channelID]
	return id, ok
}

func (c *wsClient) close() {
	c.once.Do(func() {
		close(c.send)
		if err := c.conn.Close(); err != nil {
			log.Printf("foxglove: close client: %v", err)
		}
	})
}
