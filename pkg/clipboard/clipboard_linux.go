//go:build linux

package clipboard

import (
	"bytes"
	"encoding/json"
	"os"
	"os/exec"
	"syscall"

	"wayclipd/pkg/paths"
	"wayclipd/pkg/wlclipboard"
)

type publishPayload struct {
	MimeType string `json:"mime_type"`
	Data     []byte `json:"data"`
}

// Capture starts the dedicated clipboard-monitor connection and streams
// selection changes until stop is closed.
func Capture(stop <-chan struct{}) (<-chan wlclipboard.CaptureEvent, error) {
	return wlclipboard.Capture(stop)
}

// Publish re-publishes data as mimeType on the Wayland selection. It forks
// a short-lived setup process that hands the payload off to a fully
// detached process over a temp file, then returns as soon as that setup
// process exits: like wl-copy's own fork-to-background behaviour, the
// caller waits only for that initial acknowledgement, not for the
// selection to eventually be claimed by someone else.
func Publish(mimeType string, data []byte) error {
	payload, err := json.Marshal(publishPayload{MimeType: mimeType, Data: data})
	if err != nil {
		return err
	}

	cmd := exec.Command(os.Args[0], StageSetup)
	cmd.Stdin = bytes.NewReader(payload)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// RunSetupStage is the entry point for the StageSetup re-exec: it reads
// the payload handed to it on stdin, stores it where a fully detached
// process can pick it up, forks that process, and returns so the parent
// still waiting in Publish can move on.
func RunSetupStage() error {
	var payload publishPayload
	if err := json.NewDecoder(os.Stdin).Decode(&payload); err != nil {
		return err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if err := paths.EnsureDir(paths.SocketDir()); err != nil {
		return err
	}
	f, err := os.CreateTemp(paths.SocketDir(), "publish-*.json")
	if err != nil {
		return err
	}
	if err := f.Chmod(0o600); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if _, err := f.Write(encoded); err != nil {
		f.Close()
		os.Remove(f.Name())
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return err
	}

	cmd := exec.Command(os.Args[0], StageServe, f.Name())
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := cmd.Start(); err != nil {
		os.Remove(f.Name())
		return err
	}

	return nil
}

// RunServeStage is the entry point for the StageServe re-exec: the fully
// detached grandchild that owns the selection until some other client
// claims it.
func RunServeStage(payloadPath string) error {
	data, err := os.ReadFile(payloadPath)
	if err != nil {
		return err
	}
	os.Remove(payloadPath)

	var payload publishPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return err
	}

	return wlclipboard.Publish(expandFormats(payload.MimeType, payload.Data))
}

// expandFormats offers the common MIME aliases text clients expect;
// images are offered only under their own MIME type.
func expandFormats(mimeType string, data []byte) map[string][]byte {
	if len(mimeType) >= 6 && mimeType[:6] == "image/" {
		return map[string][]byte{mimeType: data}
	}
	return map[string][]byte{
		"text/plain;charset=utf-8": data,
		"text/plain":               data,
		"UTF8_STRING":              data,
		"STRING":                   data,
		"TEXT":                     data,
	}
}
