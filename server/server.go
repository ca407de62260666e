// Package server serves HTTP over a bound TCP listener with keep-alives,
// and stops gracefully when its task.Group is cancelled.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"go.cinedex.dev/core/task"
)

// Server is an HTTP server of a bound TCP listener.
type Server struct {
	// RawListener is the bound TCP listener of the Server.
	RawListener *net.TCPListener
	// HTTPServer serves connections of RawListener.
	HTTPServer *http.Server
	// ShutdownTimeout bounds the wait for in-flight requests on stop.
	ShutdownTimeout time.Duration
}

// New binds the TCP network interface |iface| and |port|, which may be zero
// to select a free port, and returns a Server of |handler|.
func New(iface string, port uint16, handler http.Handler) (*Server, error) {
	var addr = fmt.Sprintf("%s:%d", iface, port)

	var raw, err = net.Listen("tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to bind service address (%s)", addr)
	}
	return &Server{
		RawListener: raw.(*net.TCPListener),
		HTTPServer: &http.Server{
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		},
		ShutdownTimeout: 10 * time.Second,
	}, nil
}

// Endpoint of the Server, as a URL.
func (s *Server) Endpoint() string {
	return "http://" + s.RawListener.Addr().String()
}

// QueueTasks queues serving of the Server, and its graceful shutdown upon
// cancellation of the task.Group.
func (s *Server) QueueTasks(tg *task.Group) {
	tg.Queue("http.Serve", func() error {
		var err = s.HTTPServer.Serve(keepAliveListener{s.RawListener})
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	})
	tg.Queue("http.Shutdown", func() error {
		<-tg.Context().Done()

		var ctx, cancel = context.WithTimeout(context.Background(), s.ShutdownTimeout)
		defer cancel()

		log.WithField("endpoint", s.Endpoint()).Info("shutting down HTTP server")
		return s.HTTPServer.Shutdown(ctx)
	})
}

// keepAliveListener enables TCP keep-alive on accepted connections, so that
// dead peers are eventually reaped.
type keepAliveListener struct {
	*net.TCPListener
}

func (ln keepAliveListener) Accept() (net.Conn, error) {
	var conn, err = ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	_ = conn.SetKeepAlive(true)
	_ = conn.SetKeepAlivePeriod(3 * time.Minute)
	return conn, nil
}
