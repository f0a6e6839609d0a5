package events

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"net"

	"go.uber.org/zap"
)

// Server is the plain TCP line feed: one JSON event per line. A subscriber
// may send a Filter as one JSON line at any time to narrow what it gets.
type Server struct {
	Addr string
	Hub  *Hub
}

func NewServer(addr string, hub *Hub) *Server {
	return &Server{Addr: addr, Hub: hub}
}

// Run accepts subscribers until ctx is done.
func (s *Server) Run(ctx context.Context) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", s.Addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve accepts subscribers on ln until ctx is done, then closes it.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	log := s.Hub.log.With(zap.String("addr", ln.Addr().String()))
	log.Info("event feed listening")

	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			log.Warn("accept failed", zap.Error(err))
			continue
		}

		_, _ = conn.Write(s.Hub.welcome(transportTCP, Filter{}))
		sub := s.Hub.SubscribeTCP(conn, Filter{})
		log.Debug("tcp subscriber connected", zap.String("remote", conn.RemoteAddr().String()))

		go s.readFilters(conn, sub, log)
	}
}

// readFilters applies each filter line the subscriber sends until it
// disconnects. Lines that are not a filter are ignored.
func (s *Server) readFilters(conn net.Conn, sub *Subscription, log *zap.Logger) {
	defer sub.Close()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var f Filter
		if err := json.Unmarshal(sc.Bytes(), &f); err != nil {
			log.Debug("ignoring subscriber line", zap.String("remote", conn.RemoteAddr().String()), zap.Error(err))
			continue
		}
		sub.SetFilter(f)
		log.Debug("subscriber filter set",
			zap.String("remote", conn.RemoteAddr().String()),
			zap.String("run_id", f.RunID),
			zap.Strings("types", f.Types))
	}
}
