package wlclipboard

import (
	"io"
	"os"
	"syscall"

	"wayclipd/pkg/logger"
	"wayclipd/pkg/protocol"
)

// CaptureEvent is a single completed clipboard selection read off the
// compositor.
type CaptureEvent struct {
	Content  []byte
	MimeType string
}

// Capture binds the data-control device for the default seat and streams
// every selection change to the returned channel until the connection
// fails or stop is closed. It owns its own Wayland connection, separate
// from any in-flight Publish, since the two have independent lifetimes.
func Capture(stop <-chan struct{}) (<-chan CaptureEvent, error) {
	c, err := dial()
	if err != nil {
		return nil, err
	}

	g, err := bootstrapDisplay(c)
	if err != nil {
		c.close()
		return nil, err
	}
	if err := bindSeatAndManager(c, g); err != nil {
		c.close()
		return nil, err
	}
	if err := c.send(idDCManager, 1 /*get_data_device*/, concat(
		encodeUint32(idDCDevice), encodeUint32(idSeat),
	)); err != nil {
		c.close()
		return nil, err
	}

	events := make(chan CaptureEvent, 16)

	go func() {
		defer c.close()
		defer close(events)
		runDeviceLoop(c, events, stop)
	}()

	return events, nil
}

// deviceState tracks the single in-flight data offer. The compositor only
// ever has one selection offer outstanding at a time, so unlike the
// general Wayland registry there is no need for a map keyed by object id.
type deviceState struct {
	offerID   uint32
	mimeTypes []string
}

func runDeviceLoop(c *conn, events chan<- CaptureEvent, stop <-chan struct{}) {
	var st deviceState

	msgs := make(chan wireMsg, 1)
	errs := make(chan error, 1)
	go readLoop(c, msgs, errs)

	for {
		select {
		case <-stop:
			return
		case err := <-errs:
			logger.Warn().Err(err).Msg("clipboard capture connection ended")
			return
		case msg := <-msgs:
			if !handleDeviceMsg(c, &st, msg, events) {
				return
			}
		}
	}
}

type wireMsg struct {
	objectID uint32
	opcode   uint16
	payload  []byte
	fd       int
}

func readLoop(c *conn, out chan<- wireMsg, errs chan<- error) {
	for {
		objectID, opcode, payload, fd, err := c.readMsg()
		if err != nil {
			errs <- err
			return
		}
		out <- wireMsg{objectID, opcode, payload, fd}
	}
}

// handleDeviceMsg applies one decoded message to the device state machine.
// It returns false when the compositor has torn down the data control
// device (the "finished" event), which is fatal: the caller must stop the
// capture loop rather than keep waiting on a device that no longer exists.
func handleDeviceMsg(c *conn, st *deviceState, msg wireMsg, events chan<- CaptureEvent) bool {
	if msg.fd >= 0 && msg.objectID != st.offerID {
		syscall.Close(msg.fd) //nolint:errcheck
	}

	switch msg.objectID {
	case idDCDevice:
		switch msg.opcode {
		case 0: // data_offer: new_id of the offer object
			if len(msg.payload) >= 4 {
				st.offerID = le.Uint32(msg.payload[:4])
				st.mimeTypes = nil
			}
		case 1: // selection: nullable object id (0 = cleared)
			if len(msg.payload) < 4 {
				return true
			}
			selected := le.Uint32(msg.payload[:4])
			if selected != 0 && selected == st.offerID {
				receiveOffer(c, st, events)
			}
		case 2: // finished
			logger.Warn().Msg("data control device finished, stopping capture")
			return false
		}

	case st.offerID:
		if msg.opcode == 0 { // offer: mime_type string
			mime, _, err := decodeString(msg.payload)
			if err == nil {
				st.mimeTypes = append(st.mimeTypes, mime)
			}
		}
	}
	return true
}

func receiveOffer(c *conn, st *deviceState, events chan<- CaptureEvent) {
	mimeType, ok := protocol.SelectBestMimeType(st.mimeTypes)
	if !ok {
		logger.Debug().Msg("no suitable mime type offered, skipping selection")
		return
	}

	r, w, err := os.Pipe()
	if err != nil {
		logger.Error().Err(err).Msg("failed to create pipe for clipboard receive")
		return
	}

	if err := c.sendWithFD(st.offerID, 0 /*receive*/, encodeString(mimeType), int(w.Fd())); err != nil {
		logger.Error().Err(err).Msg("failed to request clipboard data")
		w.Close()
		r.Close()
		return
	}
	w.Close() // our copy; the compositor holds its own dup via SCM_RIGHTS

	if err := c.send(st.offerID, 1 /*destroy*/, nil); err != nil {
		logger.Warn().Err(err).Msg("failed to destroy data offer")
	}

	// Read happens off the event-dispatch goroutine so a slow or
	// misbehaving data source can't stall the Wayland connection.
	go func(mime string) {
		defer r.Close()
		content, err := io.ReadAll(r)
		if err != nil {
			logger.Error().Err(err).Msg("failed to read clipboard data")
			return
		}
		if len(content) == 0 {
			return
		}
		events <- CaptureEvent{Content: content, MimeType: mime}
	}(mimeType)
}
