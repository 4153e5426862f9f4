// Package wlclipboard speaks the zwlr-data-control-v1 protocol directly
// over the compositor's Unix socket: no cgo, no external Wayland client
// library, just the wire format itself.
package wlclipboard

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

var le = binary.LittleEndian

// Fixed, connection-scoped object IDs every session starts with. Data
// offer objects are server-announced: their IDs arrive as the payload of
// the data_offer event itself and are not client-allocated.
const (
	idDisplay   uint32 = 1
	idRegistry  uint32 = 2
	idCallback1 uint32 = 3
	idSeat      uint32 = 4
	idDCManager uint32 = 5
	idDCSource  uint32 = 6
	idDCDevice  uint32 = 7
	idCallback2 uint32 = 8
)

// conn is a buffered Wayland client connection.
type conn struct {
	fd         int
	inBuf      []byte
	pendingFds []int
}

func dial() (*conn, error) {
	runtime := os.Getenv("XDG_RUNTIME_DIR")
	if runtime == "" {
		return nil, fmt.Errorf("wlclipboard: XDG_RUNTIME_DIR not set")
	}
	display := os.Getenv("WAYLAND_DISPLAY")
	if display == "" {
		display = "wayland-0"
	}
	sockPath := filepath.Join(runtime, display)

	fd, err := syscall.Socket(syscall.AF_UNIX, syscall.SOCK_STREAM, 0)
	if err != nil {
		return nil, err
	}
	if err := syscall.Connect(fd, &syscall.SockaddrUnix{Name: sockPath}); err != nil {
		syscall.Close(fd) //nolint:errcheck
		return nil, fmt.Errorf("wlclipboard: connect %s: %w", sockPath, err)
	}
	return &conn{fd: fd}, nil
}

func (c *conn) close() {
	syscall.Close(c.fd) //nolint:errcheck
}

// send writes a Wayland request message.
func (c *conn) send(objectID uint32, opcode uint16, args []byte) error {
	size := uint16(8 + len(args))
	buf := make([]byte, size)
	le.PutUint32(buf[0:], objectID)
	le.PutUint32(buf[4:], uint32(opcode)|uint32(size)<<16)
	copy(buf[8:], args)
	_, err := syscall.Write(c.fd, buf)
	return err
}

// sendWithFD writes a Wayland request message that carries a file
// descriptor via SCM_RIGHTS (used by zwlr_data_control_offer_v1.receive).
func (c *conn) sendWithFD(objectID uint32, opcode uint16, args []byte, fd int) error {
	size := uint16(8 + len(args))
	buf := make([]byte, size)
	le.PutUint32(buf[0:], objectID)
	le.PutUint32(buf[4:], uint32(opcode)|uint32(size)<<16)
	copy(buf[8:], args)

	rights := syscall.UnixRights(fd)
	return syscall.Sendmsg(c.fd, buf, rights, nil, 0)
}

// readMsg reads the next complete Wayland event, returning any fd that
// arrived with it via SCM_RIGHTS. fd is -1 if none was delivered.
func (c *conn) readMsg() (objectID uint32, opcode uint16, payload []byte, fd int, err error) {
	fd = -1
	for {
		if len(c.inBuf) >= 8 {
			sizeOpcode := le.Uint32(c.inBuf[4:8])
			size := int(sizeOpcode >> 16)
			if size >= 8 && len(c.inBuf) >= size {
				objectID = le.Uint32(c.inBuf[0:4])
				opcode = uint16(sizeOpcode & 0xffff)
				payload = make([]byte, size-8)
				copy(payload, c.inBuf[8:size])
				c.inBuf = c.inBuf[size:]
				if len(c.pendingFds) > 0 {
					fd = c.pendingFds[0]
					c.pendingFds = c.pendingFds[1:]
				}
				return
			}
		}

		buf := make([]byte, 4096)
		oob := make([]byte, syscall.CmsgSpace(4*8))
		n, oobn, _, _, recvErr := syscall.Recvmsg(c.fd, buf, oob, 0)
		if recvErr != nil {
			err = recvErr
			return
		}
		if n == 0 {
			err = fmt.Errorf("wlclipboard: connection closed")
			return
		}
		c.inBuf = append(c.inBuf, buf[:n]...)

		if oobn > 0 {
			scms, parseErr := syscall.ParseSocketControlMessage(oob[:oobn])
			if parseErr == nil {
				for _, scm := range scms {
					rights, parseErr := syscall.ParseUnixRights(&scm)
					if parseErr == nil {
						c.pendingFds = append(c.pendingFds, rights...)
					}
				}
			}
		}
	}
}

func encodeUint32(v uint32) []byte {
	b := make([]byte, 4)
	le.PutUint32(b, v)
	return b
}

// encodeString encodes a Wayland string: uint32 length (incl. null
// terminator), bytes, padded to 4-byte alignment.
func encodeString(s string) []byte {
	sBytes := append([]byte(s), 0)
	length := len(sBytes)
	padded := (length + 3) &^ 3
	buf := make([]byte, 4+padded)
	le.PutUint32(buf[0:], uint32(length))
	copy(buf[4:], sBytes)
	return buf
}

func concat(slices ...[]byte) []byte {
	var total int
	for _, s := range slices {
		total += len(s)
	}
	result := make([]byte, 0, total)
	for _, s := range slices {
		result = append(result, s...)
	}
	return result
}

func decodeString(data []byte) (string, []byte, error) {
	if len(data) < 4 {
		return "", data, fmt.Errorf("wlclipboard: short string length field")
	}
	length := int(le.Uint32(data[:4]))
	data = data[4:]
	if length == 0 {
		return "", data, nil
	}
	padded := (length + 3) &^ 3
	if len(data) < padded {
		return "", data, fmt.Errorf("wlclipboard: short string data")
	}
	s := string(data[:length-1])
	return s, data[padded:], nil
}

// globals holds the registry entries bootstrapDisplay cares about.
type globals struct {
	seatName, seatVersion           uint32
	dcManagerName, dcManagerVersion uint32
	seatFound, dcManagerFound       bool
}

// bootstrapDisplay performs the get_registry + sync dance every session
// needs and reports the globals this package consumes.
func bootstrapDisplay(c *conn) (globals, error) {
	var g globals

	if err := c.send(idDisplay, 1 /*get_registry*/, encodeUint32(idRegistry)); err != nil {
		return g, err
	}
	if err := c.send(idDisplay, 0 /*sync*/, encodeUint32(idCallback1)); err != nil {
		return g, err
	}

	for {
		objectID, opcode, payload, fd, err := c.readMsg()
		if err != nil {
			return g, err
		}
		if fd >= 0 {
			syscall.Close(fd) //nolint:errcheck
		}

		switch {
		case objectID == idRegistry && opcode == 0 /*global*/ :
			if len(payload) < 4 {
				continue
			}
			name := le.Uint32(payload[:4])
			iface, rest, decErr := decodeString(payload[4:])
			if decErr != nil || len(rest) < 4 {
				continue
			}
			version := le.Uint32(rest[:4])
			switch iface {
			case "wl_seat":
				g.seatName, g.seatVersion, g.seatFound = name, version, true
			case "zwlr_data_control_manager_v1":
				g.dcManagerName, g.dcManagerVersion, g.dcManagerFound = name, version, true
			}

		case objectID == idCallback1 && opcode == 0 /*done*/ :
			if !g.seatFound {
				return g, fmt.Errorf("wlclipboard: wl_seat not found")
			}
			if !g.dcManagerFound {
				return g, fmt.Errorf("wlclipboard: zwlr_data_control_manager_v1 not found (compositor may not support wlr-data-control)")
			}
			return g, nil
		}
	}
}

func bindSeatAndManager(c *conn, g globals) error {
	if err := c.send(idRegistry, 0 /*bind*/, concat(
		encodeUint32(g.seatName), encodeString("wl_seat"), encodeUint32(1), encodeUint32(idSeat),
	)); err != nil {
		return err
	}
	version := g.dcManagerVersion
	if version > 2 {
		version = 2
	}
	return c.send(idRegistry, 0 /*bind*/, concat(
		encodeUint32(g.dcManagerName), encodeString("zwlr_data_control_manager_v1"), encodeUint32(version), encodeUint32(idDCManager),
	))
}
