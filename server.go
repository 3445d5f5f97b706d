package main

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"

	"github.com/neovim/go-client/nvim"

	"lspedit/logger"
	"lspedit/types"
)

// Server hosts one editor session per connection. Over stdio there is a
// single session; in listen mode every accepted connection gets its own.
type Server struct {
	config      Config
	encoding    types.OffsetEncoding
	listener    net.Listener
	socketPath  string
	clientCount int64
	ctx         context.Context
	cancel      context.CancelFunc
}

func NewServer(config Config) (*Server, error) {
	enc, err := types.ParseOffsetEncoding(config.OffsetEncoding)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Server{
		config:   config,
		encoding: enc,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// ServeStdio serves the editor that started this process as an RPC job
func (s *Server) ServeStdio() error {
	n, err := nvim.New(os.Stdin, os.Stdout, os.Stdout, logger.Printf)
	if err != nil {
		return err
	}
	defer n.Close()

	logger.Info("serving on stdio")
	return s.serve(n)
}

// Listen accepts editor connections on a unix socket until the server is
// stopped or receives SIGINT/SIGTERM.
func (s *Server) Listen(socketPath string) error {
	s.socketPath = socketPath
	if err := s.setupSocket(); err != nil {
		return err
	}
	defer s.cleanup()

	logger.Info("listening on socket: %s", s.socketPath)

	s.setupShutdownHandling()
	go s.acceptConnections()

	<-s.ctx.Done()
	logger.Info("server shutting down...")
	return nil
}

func (s *Server) serve(n *nvim.Nvim) error {
	sess := newSession(n, s.config, s.encoding)
	if err := sess.register(n); err != nil {
		return err
	}
	if err := n.Serve(); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) setupSocket() error {
	// Remove existing socket
	os.Remove(s.socketPath)

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return err
	}
	s.listener = listener
	return nil
}

func (s *Server) setupShutdownHandling() {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			logger.Info("received shutdown signal")
			s.Stop()
		case <-s.ctx.Done():
		}
		signal.Stop(sigChan)
	}()
}

func (s *Server) acceptConnections() {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			select {
			case <-s.ctx.Done():
				return // Server is shutting down
			default:
				logger.Error("error accepting connection: %v", err)
				continue
			}
		}

		atomic.AddInt64(&s.clientCount, 1)
		logger.Info("new client connected, total clients: %d", atomic.LoadInt64(&s.clientCount))
		go s.handleConnection(conn)
	}
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()
	defer func() {
		atomic.AddInt64(&s.clientCount, -1)
		logger.Info("client disconnected, remaining clients: %d", atomic.LoadInt64(&s.clientCount))
	}()

	n, err := nvim.New(conn, conn, conn, logger.Printf)
	if err != nil {
		logger.Error("error creating nvim client: %v", err)
		return
	}

	if err := s.serve(n); err != nil {
		logger.Error("error serving connection: %v", err)
	}
}

// ClientCount returns the number of connected editors in listen mode
func (s *Server) ClientCount() int64 {
	return atomic.LoadInt64(&s.clientCount)
}

func (s *Server) Stop() {
	if s.listener != nil {
		s.listener.Close()
	}
	s.cancel()
}

func (s *Server) cleanup() {
	os.Remove(s.socketPath)
}
