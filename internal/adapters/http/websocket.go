package http

import (
	"encoding/json"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/climatrack/climatrack/internal/adapters/nats"
	"github.com/climatrack/climatrack/internal/core/domain"
	"github.com/climatrack/climatrack/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to feeds.
type wsMessage struct {
	Action string `json:"action"` // "subscribe" | "unsubscribe"
	Owner  string `json:"owner"`  // owner id or "anonymous"; "" means the caller's own feed
}

// ownerSubject resolves the requested feed. Callers may only follow their
// own parcels; unknown sessions only see anonymous saves.
func ownerSubject(session domain.Session, requested string) (string, bool) {
	own := natsadapter.ParcelCreatedSubject(session.OwnerID)
	if requested == "" {
		return own, true
	}
	var want *int64
	if requested != "anonymous" {
		id, err := strconv.ParseInt(requested, 10, 64)
		if err != nil || id <= 0 {
			return "", false
		}
		want = &id
	}
	subject := natsadapter.ParcelCreatedSubject(want)
	return subject, subject == own
}

// WebSocketHandler returns a handler that upgrades to WebSocket and relays
// parcel-created events for the caller's session.
// Clients send JSON: {"action":"subscribe","owner":"12"}
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		session, _ := c.Locals("ws_session").(domain.Session)
		remoteAddr := c.RemoteAddr().String()
		log := slog.With("remote", remoteAddr)
		log.Info("ws client connected")
		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		if nc == nil {
			_ = c.WriteJSON(map[string]string{"error": "event stream unavailable"})
			return
		}

		var mu sync.Mutex
		subs := make(map[string]*nats.Subscription) // subject -> subscription

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		subscribe := func(subject string) error {
			s, err := nc.Subscribe(subject, func(msg *nats.Msg) {
				_ = writeJSON(json.RawMessage(msg.Data))
			})
			if err != nil {
				return err
			}
			subs[subject] = s
			return nil
		}

		// Auto-subscribe to the caller's own feed
		if session.Known() {
			if err := subscribe(natsadapter.ParcelCreatedSubject(session.OwnerID)); err != nil {
				log.Error("ws default subscribe failed", "error", err)
				return
			}
		}

		// Keep-alive ping
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
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			subject, allowed := ownerSubject(session, m.Owner)
			if !allowed {
				_ = writeJSON(map[string]string{"error": "forbidden feed: " + m.Owner})
				continue
			}

			switch m.Action {
			case "subscribe":
				if _, exists := subs[subject]; exists {
					_ = writeJSON(map[string]string{"status": "already subscribed", "subject": subject})
					continue
				}
				if err := subscribe(subject); err != nil {
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
					continue
				}
				_ = writeJSON(map[string]string{"status": "subscribed", "subject": subject})

			case "unsubscribe":
				if s, exists := subs[subject]; exists {
					_ = s.Unsubscribe()
					delete(subs, subject)
					_ = writeJSON(map[string]string{"status": "unsubscribed", "subject": subject})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		for _, s := range subs {
			_ = s.Unsubscribe()
		}
		log.Info("ws client disconnected")
	}
}
