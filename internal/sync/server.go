package sync

import (
	"bufio"
	"errors"
	"log/slog"
	"net"
	"sync"

	"luminousdeep/pkg/logging"
)

// Server accepts TCP subscribers for the hub.
type Server struct {
	Addr string
	Hub  *Hub

	logger *slog.Logger
	mu     sync.Mutex
	ln     net.Listener
	closed bool
}

func NewServer(addr string, hub *Hub, logger *slog.Logger) *Server {
	return &Server{Addr: addr, Hub: hub, logger: logging.Component(logger, "tcp-sync")}
}

// Run blocks until Close is called or the listener fails.
func (s *Server) Run() error {
	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = ln.Close()
		return nil
	}
	s.ln = ln
	s.mu.Unlock()
	s.logger.Info("listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}

		if err := s.Hub.AddTCP(conn); err != nil {
			_ = conn.Close()
			continue
		}
		s.logger.Info("client connected", "remote", conn.RemoteAddr().String())

		go func(c net.Conn) {
			defer func() {
				s.Hub.Remove(c)
				s.logger.Info("client disconnected", "remote", c.RemoteAddr().String())
			}()

			// subscribers are read-only; drain until they hang up
			sc := bufio.NewScanner(c)
			for sc.Scan() {
			}
		}(conn)
	}
}

// LocalAddr is nil until Run has bound the listener.
func (s *Server) LocalAddr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// Close stops Run. Calling it before Run has bound the listener makes Run
// return as soon as it does.
func (s *Server) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.ln == nil {
		return nil
	}
	return s.ln.Close()
}
