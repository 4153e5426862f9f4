// Package ipc serves the daemon's control socket: one goroutine accepts
// connections, one goroutine per connection reads newline-delimited JSON
// requests and writes back newline-delimited JSON responses.
package ipc

import (
	"bufio"
	"errors"
	"net"
	"os"
	"path/filepath"

	"wayclipd/pkg/logger"
	"wayclipd/pkg/protocol"
)

// Handler answers a single decoded request. It is called from whichever
// connection's goroutine received the request, so implementations that
// touch shared state must do their own synchronization (the coordinator's
// Handle relies on the store's own mutex).
type Handler func(protocol.Request) protocol.Response

// Server accepts connections on a Unix socket and dispatches each
// request line to a Handler.
type Server struct {
	listener *net.UnixListener
	path     string
}

// Listen removes any stale socket left by a previous run, binds a fresh
// one at path, and restricts it to the owning user.
func Listen(path string) (*Server, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, err
	}
	if _, err := os.Stat(path); err == nil {
		if err := os.Remove(path); err != nil {
			return nil, err
		}
	}

	addr, err := net.ResolveUnixAddr("unix", path)
	if err != nil {
		return nil, err
	}
	listener, err := net.ListenUnix("unix", addr)
	if err != nil {
		return nil, err
	}
	if err := os.Chmod(path, 0o600); err != nil {
		listener.Close()
		return nil, err
	}

	return &Server{listener: listener, path: path}, nil
}

// Close stops accepting connections and removes the socket file.
func (s *Server) Close() error {
	err := s.listener.Close()
	os.Remove(s.path)
	return err
}

// Serve accepts connections until the listener is closed, dispatching
// each request line on its own connection's goroutine to handle.
func (s *Server) Serve(handle Handler) error {
	for {
		conn, err := s.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			return err
		}
		go serveConn(conn, handle)
	}
}

func serveConn(conn net.Conn, handle Handler) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			respond(conn, line, handle)
		}
		if err != nil {
			return
		}
	}
}

func respond(conn net.Conn, line []byte, handle Handler) {
	req, err := protocol.DecodeRequest(trimNewline(line))
	var resp protocol.Response
	if err != nil {
		resp = protocol.NewError(protocol.ErrInvalidRequest, "invalid request: "+err.Error())
	} else {
		resp = handle(req)
	}

	encoded, err := protocol.EncodeResponse(resp)
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode ipc response")
		return
	}
	if _, err := conn.Write(encoded); err != nil {
		logger.Debug().Err(err).Msg("ipc client connection ended")
	}
}

func trimNewline(line []byte) []byte {
	for len(line) > 0 && (line[len(line)-1] == '\n' || line[len(line)-1] == '\r') {
		line = line[:len(line)-1]
	}
	return line
}
