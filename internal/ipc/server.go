// Package ipc implements spec.md §4.2's request/response server: an
// http.ServeMux bound to a Unix-domain socket instead of a TCP port.
//
// Grounded on the teacher's internal/server/server.go New/Start
// (http.NewServeMux + http.Server), generalized from a TCP listener
// with a websocket hub to a unix-socket listener with two JSON routes.
package ipc

import (
	"context"
	"net"
	"net/http"
	"os"

	"github.com/conneroisu/tsdev/internal/logging"
)

// Server is the parent-side half of the sync-bridge protocol: it
// serves /compile and /file-required over a Unix-domain socket.
type Server struct {
	socketPath string
	http       *http.Server
	log        logging.Logger
}

// New constructs a Server bound to socketPath (not yet listening).
// routes registers the concrete handlers, kept separate from this file
// so the wire framing lives apart from the business logic (routes.go).
func New(socketPath string, routes *Routes, log logging.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/compile", routes.handleCompile)
	mux.HandleFunc("/file-required", routes.handleFileRequired)

	return &Server{
		socketPath: socketPath,
		http:       &http.Server{Handler: mux},
		log:        log.WithComponent("ipc"),
	}
}

// Serve binds the Unix-domain socket and blocks, serving requests
// until ctx is canceled or Shutdown is called. Any stale socket file
// left over from an unclean prior exit is removed first, since
// net.Listen("unix", ...) fails on an existing path.
func (s *Server) Serve(ctx context.Context) error {
	_ = os.Remove(s.socketPath)

	ln, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		_ = s.http.Close()
	}()

	s.log.Debug("ipc server listening", "socket", s.socketPath)
	if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server and removes the socket file.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.http.Shutdown(ctx)
	_ = os.Remove(s.socketPath)
	return err
}
