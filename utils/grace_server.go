package utils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"
)

const (
	defaultReadTimeout  = 60 * time.Second
	defaultWriteTimeout = defaultReadTimeout
	shutdownTimeout     = 30 * time.Second

	// A child started on SIGUSR2 finds the parent's listener on fd 3.
	inheritListenerEnv = "GYMPOINTS_INHERIT_LISTENER"
	inheritListenerFD  = 3
)

// Server drains on SIGINT/SIGTERM and hands its listening socket to a fresh
// copy of the binary on SIGUSR2.
type Server struct {
	http     *http.Server
	listener net.Listener
	hooks    []func()
	signals  chan os.Signal
	done     chan struct{}
}

// NewServer wraps handler with the default timeouts.
func NewServer(addr string, handler http.Handler) *Server {
	if addr == "" {
		addr = ":http"
	}
	return &Server{
		http: &http.Server{
			Addr:              addr,
			Handler:           handler,
			ReadTimeout:       defaultReadTimeout,
			ReadHeaderTimeout: 10 * time.Second,
			WriteTimeout:      defaultWriteTimeout,
		},
		signals: make(chan os.Signal, 1),
		done:    make(chan struct{}),
	}
}

// OnShutdown registers fn to run after in-flight requests have drained.
func (s *Server) OnShutdown(fn func()) {
	s.hooks = append(s.hooks, fn)
}

// ListenAndServe blocks until the server has shut down and every hook ran.
func (s *Server) ListenAndServe() error {
	ln, err := listen(s.http.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	signal.Notify(s.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGUSR2)
	go s.watchSignals()

	err = s.http.Serve(ln)
	if !errors.Is(err, http.ErrServerClosed) {
		signal.Stop(s.signals)
		close(s.signals)
		return err
	}
	<-s.done
	return nil
}

func listen(addr string) (net.Listener, error) {
	if os.Getenv(inheritListenerEnv) != "" {
		f := os.NewFile(inheritListenerFD, "inherited-listener")
		defer f.Close()
		ln, err := net.FileListener(f)
		if err != nil {
			return nil, fmt.Errorf("inherit listener: %w", err)
		}
		return ln, nil
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	return ln, nil
}

func (s *Server) watchSignals() {
	for sig := range s.signals {
		switch sig {
		case syscall.SIGINT, syscall.SIGTERM:
			Sugar.Infof("received %s, draining HTTP server", sig)
			s.shutdown()
			return
		case syscall.SIGUSR2:
			pid, err := s.handOff()
			if err != nil {
				Sugar.Errorf("restart failed, still serving: %v", err)
				continue
			}
			Sugar.Infof("restarted as pid %d, draining old HTTP server", pid)
			s.shutdown()
			return
		}
	}
}

func (s *Server) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		Sugar.Errorf("HTTP server shutdown: %v", err)
	} else {
		Sugar.Info("HTTP server stopped")
	}
	for _, fn := range s.hooks {
		fn()
	}
	signal.Stop(s.signals)
	close(s.done)
}

// handOff starts a copy of this binary that serves from the same socket.
func (s *Server) handOff() (int, error) {
	tcpLn, ok := s.listener.(*net.TCPListener)
	if !ok {
		return 0, errors.New("listener is not TCP")
	}
	file, err := tcpLn.File()
	if err != nil {
		return 0, fmt.Errorf("listener file: %w", err)
	}
	defer file.Close()

	env := make([]string, 0, len(os.Environ())+1)
	for _, e := range os.Environ() {
		if !strings.HasPrefix(e, inheritListenerEnv+"=") {
			env = append(env, e)
		}
	}
	env = append(env, inheritListenerEnv+"=1")

	pid, err := syscall.ForkExec(os.Args[0], os.Args, &syscall.ProcAttr{
		Env:   env,
		Files: []uintptr{os.Stdin.Fd(), os.Stdout.Fd(), os.Stderr.Fd(), file.Fd()},
	})
	if err != nil {
		return 0, fmt.Errorf("fork: %w", err)
	}
	return pid, nil
}

// GraceServer serves handler on addr until a shutdown signal, then runs hooks
// in order.
func GraceServer(addr string, handler http.Handler, hooks ...func()) error {
	srv := NewServer(addr, handler)
	for _, fn := range hooks {
		srv.OnShutdown(fn)
	}
	return srv.ListenAndServe()
}
