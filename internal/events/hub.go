// Package events fans run events out to TCP and websocket subscribers.
package events

import (
	"encoding/json"
	"net"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const writeTimeout = 2 * time.Second

const (
	transportTCP = "tcp"
	transportWS  = "websocket"
)

// Filter narrows a subscription. The zero Filter matches every event.
type Filter struct {
	RunID string   `json:"run_id,omitempty"`
	Types []string `json:"types,omitempty"`
}

// FilterFromQuery reads run_id and type from a query string. type may be
// repeated or comma separated.
func FilterFromQuery(q url.Values) Filter {
	f := Filter{RunID: strings.TrimSpace(q.Get("run_id"))}
	for _, v := range q["type"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				f.Types = append(f.Types, t)
			}
		}
	}
	return f
}

func (f Filter) Match(ev Event) bool {
	if f.RunID != "" && f.RunID != ev.RunID {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if t == ev.Type {
			return true
		}
	}
	return false
}

// subscriber is one connection on either transport.
type subscriber struct {
	transport string
	remote    string
	filter    Filter
	write     func([]byte) error
	close     func() error
}

// Subscription is a handle on a connected subscriber.
type Subscription struct {
	hub *Hub
	sub *subscriber
}

// SetFilter replaces the subscription's filter for later events.
func (s *Subscription) SetFilter(f Filter) {
	s.hub.mu.Lock()
	s.sub.filter = f
	s.hub.mu.Unlock()
}

// Close unsubscribes and closes the connection. It is safe to call after
// the hub already dropped the subscriber.
func (s *Subscription) Close() {
	s.hub.mu.Lock()
	_, ok := s.hub.subs[s.sub]
	delete(s.hub.subs, s.sub)
	s.hub.mu.Unlock()
	if ok {
		_ = s.sub.close()
	}
}

type Hub struct {
	log *zap.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type Stats struct {
	TCPClients int `json:"tcp_clients"`
	WSClients  int `json:"ws_clients"`
}

func NewHub(log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{log: log, subs: make(map[*subscriber]struct{})}
}

// SubscribeTCP registers conn for events matching f.
func (h *Hub) SubscribeTCP(conn net.Conn, f Filter) *Subscription {
	return h.subscribe(&subscriber{
		transport: transportTCP,
		remote:    conn.RemoteAddr().String(),
		filter:    f,
		write: func(b []byte) error {
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			_, err := conn.Write(b)
			return err
		},
		close: conn.Close,
	})
}

// SubscribeWS registers ws for events matching f, one event per message.
func (h *Hub) SubscribeWS(ws *websocket.Conn, f Filter) *Subscription {
	return h.subscribe(&subscriber{
		transport: transportWS,
		remote:    ws.RemoteAddr().String(),
		filter:    f,
		write: func(b []byte) error {
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			return ws.WriteMessage(websocket.TextMessage, b)
		},
		close: ws.Close,
	})
}

func (h *Hub) subscribe(s *subscriber) *Subscription {
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return &Subscription{hub: h, sub: s}
}

// Publish sends ev to every subscriber whose filter matches. Subscribers
// that cannot keep up are dropped.
func (h *Hub) Publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now().UTC()
	}
	b, err := json.Marshal(ev)
	if err != nil {
		h.log.Warn("drop unencodable event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	b = append(b, '\n')

	h.mu.Lock()
	defer h.mu.Unlock()

	for s := range h.subs {
		if !s.filter.Match(ev) {
			continue
		}
		if err := s.write(b); err != nil {
			h.log.Debug("dropping subscriber",
				zap.String("transport", s.transport),
				zap.String("remote", s.remote),
				zap.Error(err))
			_ = s.close()
			delete(h.subs, s)
		}
	}
}

func (h *Hub) Stats() Stats {
	h.mu.Lock()
	defer h.mu.Unlock()

	var st Stats
	for s := range h.subs {
		switch s.transport {
		case transportTCP:
			st.TCPClients++
		case transportWS:
			st.WSClients++
		}
	}
	return st
}

type welcome struct {
	Type      string `json:"type"`
	Transport string `json:"transport"`
	Clients   int    `json:"clients"`
	Filter    Filter `json:"filter"`
}

func (h *Hub) welcome(transport string, f Filter) []byte {
	st := h.Stats()
	b, _ := json.Marshal(welcome{
		Type:      "welcome",
		Transport: transport,
		Clients:   st.TCPClients + st.WSClients + 1,
		Filter:    f,
	})
	return append(b, '\n')
}
