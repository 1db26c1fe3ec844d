package http

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/pawcircle/nearby/internal/adapters/nats"
	"github.com/pawcircle/nearby/internal/pkg/metrics"
)

// wsMessage is sent by clients to follow assignment events.
// Community is a community id, "none" for subjects that left every
// community, or "" for all events.
type wsMessage struct {
	Action    string `json:"action"` // "subscribe" | "unsubscribe"
	Community string `json:"community"`
}

// wsSubject maps a client community filter to a NATS subject.
func wsSubject(community string) (string, bool) {
	switch community {
	case "":
		return natsadapter.SubjectCommunityAssigned + ">", true
	case natsadapter.NoCommunityToken:
		return natsadapter.SubjectCommunityAssigned + natsadapter.NoCommunityToken, true
	}
	id, err := strconv.ParseInt(community, 10, 64)
	if err != nil || id <= 0 {
		return "", false
	}
	return natsadapter.AssignedSubject(&id), true
}

// WebSocketHandler relays community assignment events to connected
// clients. Nothing is relayed until the client subscribes, e.g.
// {"action":"subscribe","community":"12"}.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription)

		writeJSON := func(v any) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}
		reply := func(status, subject string) {
			_ = writeJSON(map[string]string{"status": status, "subject": subject})
		}
		fail := func(msg string) {
			_ = writeJSON(map[string]string{"error": msg})
		}

		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, raw, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(raw, &m); err != nil {
				fail("invalid JSON")
				continue
			}
			subject, ok := wsSubject(m.Community)
			if !ok {
				fail("unknown community: " + m.Community)
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					reply("already subscribed", subject)
					continue
				}
				if nc == nil {
					fail("event relay unavailable")
					continue
				}
				s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
					_ = writeJSON(json.RawMessage(msg.Data))
				})
				if err != nil {
					fail("subscribe failed: " + err.Error())
					continue
				}
				subs[subject] = s
				reply("subscribed", subject)

			case "unsubscribe":
				s, exists := subs[subject]
				if !exists {
					fail("not subscribed to " + subject)
					continue
				}
				_ = s.Unsubscribe()
				delete(subs, subject)
				reply("unsubscribed", subject)

			default:
				fail("unknown action: " + m.Action)
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
