package gateway

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/voxworks/studio-api/internal/bus"
	"github.com/voxworks/studio-api/internal/telemetry"
)

// connection binds one WebSocket to one bus subscription. The gorilla
// websocket API permits a single concurrent writer, so every outbound frame
// funnels through the write pump; the read pump only parses client messages
// and queues responses.
type connection struct {
	ws       *websocket.Conn
	bus      bus.Bus
	sub      *bus.Subscriber
	userID   uuid.UUID
	logger   *slog.Logger
	outbound chan any

	writeTimeout time.Duration

	mu    sync.Mutex
	topic string

	closeOnce sync.Once
	done      chan struct{}
}

func newConnection(
	ws *websocket.Conn,
	notifyBus bus.Bus,
	userID uuid.UUID,
	buffer int,
	writeTimeout time.Duration,
	logger *slog.Logger,
) *connection {
	return &connection{
		ws:           ws,
		bus:          notifyBus,
		sub:          bus.NewSubscriber(buffer),
		userID:       userID,
		logger:       logger,
		outbound:     make(chan any, 16),
		writeTimeout: writeTimeout,
		done:         make(chan struct{}),
	}
}

// subscribe attaches the connection to its initial topic.
func (c *connection) subscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.topic = topic
	c.bus.Subscribe(topic, c.sub)
}

// resubscribe atomically re-points the connection at a new topic.
func (c *connection) resubscribe(topic string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.topic == topic {
		return
	}
	c.bus.Unsubscribe(c.topic, c.sub)
	c.bus.Subscribe(topic, c.sub)
	c.topic = topic
}

// currentTopic returns the topic the connection is attached to.
func (c *connection) currentTopic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.topic
}

// send queues an outbound message for the write pump. It never blocks past
// connection shutdown.
func (c *connection) send(msg any) {
	select {
	case c.outbound <- msg:
	case <-c.done:
	}
}

// close tears the connection down: unsubscribe, stop the pumps, close the
// socket. Safe to call more than once.
func (c *connection) close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		if c.topic != "" {
			c.bus.Unsubscribe(c.topic, c.sub)
			c.topic = ""
		}
		c.mu.Unlock()

		close(c.done)
		_ = c.ws.Close()
		telemetry.ActiveConnections.Dec()
	})
}

// writePump serializes all outbound traffic: bus events framed as typed
// envelopes, plus direct responses queued by the read pump.
func (c *connection) writePump() {
	for {
		select {
		case <-c.done:
			return

		case event := <-c.sub.Events():
			msg, ok := messageFromEvent(event)
			if !ok {
				c.logger.Warn("dropping unrecognized bus event", "event_type", event.Type)
				continue
			}
			if !c.write(msg) {
				return
			}

		case msg := <-c.outbound:
			if !c.write(msg) {
				return
			}
		}
	}
}

// write sends one JSON frame, closing the connection on failure.
func (c *connection) write(msg any) bool {
	if c.writeTimeout > 0 {
		_ = c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout))
	}
	if err := c.ws.WriteJSON(msg); err != nil {
		c.logger.Debug("write failed, closing connection", "error", err)
		c.close()
		return false
	}
	return true
}

// readPump parses client messages until the connection drops. Malformed
// frames produce an error envelope but never close the connection.
func (c *connection) readPump() {
	defer c.close()

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			c.send(errorMessage{Type: msgTypeError, Message: "Invalid JSON format"})
			continue
		}

		switch msg.Type {
		case msgTypePing:
			ts := msg.Timestamp
			if len(ts) == 0 {
				ts, _ = json.Marshal(time.Now().UTC())
			}
			c.send(pongMessage{Type: msgTypePong, Timestamp: ts})

		case msgTypeSubscribeJob:
			jobID, err := uuid.Parse(msg.JobID)
			if err != nil {
				c.send(errorMessage{Type: msgTypeError, Message: "Invalid job_id"})
				continue
			}
			topic := bus.JobTopic(jobID)
			c.resubscribe(topic)
			c.send(connectionEstablishedMessage{
				Type:  msgTypeConnectionEstablished,
				Group: topic,
				JobID: jobID.String(),
			})

		default:
			c.send(errorMessage{Type: msgTypeError, Message: "Unknown message type"})
		}
	}
}
