package wlclipboard

import "syscall"

// Publish claims the Wayland clipboard selection and blocks until
// ownership is cancelled by some other client taking the selection. It
// serves each offered MIME type on demand by writing the corresponding
// bytes to the fd the compositor hands back on a paste request.
//
// Publish is meant to run in the detached background process a caller
// forks into; see pkg/clipboard for the fork-and-wait-for-ack wrapper
// around it.
func Publish(formats map[string][]byte) error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.close()

	g, err := bootstrapDisplay(c)
	if err != nil {
		return err
	}
	if err := bindSeatAndManager(c, g); err != nil {
		return err
	}

	if err := c.send(idDCManager, 0 /*create_data_source*/, encodeUint32(idDCSource)); err != nil {
		return err
	}
	for mimeType := range formats {
		if err := c.send(idDCSource, 0 /*offer*/, encodeString(mimeType)); err != nil {
			return err
		}
	}
	if err := c.send(idDCManager, 1 /*get_data_device*/, concat(
		encodeUint32(idDCDevice), encodeUint32(idSeat),
	)); err != nil {
		return err
	}
	if err := c.send(idDCDevice, 0 /*set_selection*/, encodeUint32(idDCSource)); err != nil {
		return err
	}
	if err := c.send(idDisplay, 0 /*sync*/, encodeUint32(idCallback2)); err != nil {
		return err
	}

	for {
		objectID, opcode, _, fd, err := c.readMsg()
		if err != nil {
			return err
		}
		if fd >= 0 {
			syscall.Close(fd) //nolint:errcheck
		}
		if objectID == idCallback2 && opcode == 0 /*done*/ {
			break
		}
	}

	for {
		objectID, opcode, payload, fd, err := c.readMsg()
		if err != nil {
			// Connection closed means the compositor went away; nothing
			// left to serve.
			return nil
		}
		if objectID != idDCSource {
			if fd >= 0 {
				syscall.Close(fd) //nolint:errcheck
			}
			continue
		}

		switch opcode {
		case 0: // zwlr_data_control_source_v1.send
			mimeType, _, _ := decodeString(payload)
			if fd >= 0 {
				if data, ok := formats[mimeType]; ok {
					syscall.Write(fd, data) //nolint:errcheck
				}
				syscall.Close(fd) //nolint:errcheck
			}
		case 1: // zwlr_data_control_source_v1.cancelled
			return nil
		}
	}
}
