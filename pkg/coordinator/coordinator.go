// Package coordinator is the only thing that ever touches the store: it
// consumes captured clipboard selections off a channel in Run, and answers
// IPC requests in Handle, which each connection's goroutine calls
// directly. IPC requests do not pass through a channel and Handle takes no
// lock of its own; the store guards itself with a mutex, since clipboard
// capture and IPC requests run on different goroutines.
package coordinator

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"regexp"
	"strconv"
	"strings"

	"wayclipd/pkg/clipboard"
	"wayclipd/pkg/config"
	"wayclipd/pkg/ipc"
	"wayclipd/pkg/logger"
	"wayclipd/pkg/protocol"
	"wayclipd/pkg/store"
	"wayclipd/pkg/wlclipboard"
)

// Version is reported in get_status responses.
const Version = "0.1.0"

// Coordinator wires a capture stream and an IPC request stream into a
// shared store.
type Coordinator struct {
	store            *store.Store
	config           config.Config
	ignoreMimeRegexp []*regexp.Regexp
}

// New returns a Coordinator over an already-open store and loaded
// configuration. ignore_mime_patterns entries that fail to compile as
// regular expressions are logged and skipped rather than rejecting
// startup outright.
func New(s *store.Store, cfg config.Config) *Coordinator {
	return &Coordinator{store: s, config: cfg, ignoreMimeRegexp: compilePatterns(cfg.Clipboard.IgnoreMimePatterns)}
}

func compilePatterns(patterns []string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, pattern := range patterns {
		re, err := regexp.Compile(pattern)
		if err != nil {
			logger.Warn().Err(err).Str("pattern", pattern).Msg("ignoring invalid ignore_mime_patterns regex")
			continue
		}
		compiled = append(compiled, re)
	}
	return compiled
}

// Run consumes captures until captures is closed, applying admission,
// deduplication, and retention on every stored entry. It returns when the
// channel closes, which happens when the capture connection ends or stop
// is closed.
func (co *Coordinator) Run(captures <-chan wlclipboard.CaptureEvent) {
	for event := range captures {
		if err := co.handleCapture(event); err != nil {
			logger.Error().Err(err).Msg("failed to handle clipboard event")
		}
	}
}

func (co *Coordinator) handleCapture(event wlclipboard.CaptureEvent) error {
	if co.ignored(event.MimeType) {
		logger.Debug().Str("mime_type", event.MimeType).Msg("ignoring entry: mime type filtered")
		return nil
	}

	size := uint64(len(event.Content))
	if size > co.config.Daemon.MaxEntrySize {
		logger.Debug().Uint64("size", size).Msg("ignoring entry: too large")
		return nil
	}
	if size < co.config.Daemon.MinEntrySize {
		logger.Debug().Uint64("size", size).Msg("ignoring entry: too small")
		return nil
	}

	hash := hashContent(event.Content)

	if _, found, err := co.store.FindByHash(hash); err != nil {
		return err
	} else if found {
		logger.Debug().Msg("ignoring duplicate entry")
		return co.store.TouchByHash(hash)
	}

	contentType := protocol.ContentTypeFromMime(event.MimeType)
	preview := generatePreview(event.Content, event.MimeType, contentType)

	id, err := co.store.InsertEntry(hash, contentType, event.MimeType, preview, event.Content)
	if err != nil {
		return err
	}
	logger.Info().Int64("id", id).Str("preview", preview).Int("bytes", len(event.Content)).Msg("stored new entry")

	if err := co.store.Sweep(co.config.Daemon.MaxEntries, co.config.Daemon.MaxAgeDays); err != nil {
		return err
	}
	return nil
}

func (co *Coordinator) ignored(mimeType string) bool {
	for _, re := range co.ignoreMimeRegexp {
		if re.MatchString(mimeType) {
			return true
		}
	}
	return false
}

func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// generatePreview builds the short human-readable summary stored
// alongside an entry. Text is truncated to 200 characters with runs of
// whitespace collapsed; PNG images report their pixel dimensions when the
// header is long enough to read them from.
func generatePreview(content []byte, mimeType string, contentType protocol.ContentType) string {
	if contentType == protocol.ContentImage {
		if mimeType == "image/png" && len(content) >= 24 {
			width := binary.BigEndian.Uint32(content[16:20])
			height := binary.BigEndian.Uint32(content[20:24])
			return fmtDimensions(width, height)
		}
		return "copied image"
	}

	text := []rune(string(content))
	if len(text) > 200 {
		text = text[:200]
	}
	return strings.Join(strings.Fields(string(text)), " ")
}

func fmtDimensions(width, height uint32) string {
	return "copied image (" + strconv.FormatUint(uint64(width), 10) + "x" + strconv.FormatUint(uint64(height), 10) + ")"
}

// Handle answers a single decoded IPC request against the store. It is
// suitable for use directly as an ipc.Handler.
func (co *Coordinator) Handle(req protocol.Request) protocol.Response {
	switch req.Type {
	case protocol.RequestGetHistory:
		return co.handleGetHistory(req)
	case protocol.RequestGetContent:
		return co.handleGetContent(req)
	case protocol.RequestSetClipboard:
		return co.handleSetClipboard(req)
	case protocol.RequestDeleteEntry:
		return co.handleDeleteEntry(req)
	case protocol.RequestClearHistory:
		return co.handleClearHistory()
	case protocol.RequestSetPinned:
		return co.handleSetPinned(req)
	case protocol.RequestGetStatus:
		return co.handleGetStatus()
	case protocol.RequestPing:
		return protocol.Response{Type: protocol.ResponsePong}
	default:
		return protocol.NewError(protocol.ErrInvalidRequest, "unknown request type: "+string(req.Type))
	}
}

func (co *Coordinator) handleGetHistory(req protocol.Request) protocol.Response {
	limit := uint32(50)
	if req.Limit != nil {
		limit = *req.Limit
	}
	var offset uint32
	if req.Offset != nil {
		offset = *req.Offset
	}
	search := ""
	if req.Search != nil {
		search = *req.Search
	}

	entries, total, err := co.store.GetHistory(limit, offset, search)
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	return protocol.Response{Type: protocol.ResponseHistory, Entries: entries, TotalCount: total}
}

func (co *Coordinator) handleGetContent(req protocol.Request) protocol.Response {
	mimeType, data, found, err := co.store.GetContent(req.ID)
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	if !found {
		return protocol.NewNotFound(req.ID)
	}
	return protocol.Response{
		Type:     protocol.ResponseContent,
		ID:       req.ID,
		MimeType: mimeType,
		Data:     base64.StdEncoding.EncodeToString(data),
	}
}

func (co *Coordinator) handleSetClipboard(req protocol.Request) protocol.Response {
	mimeType, data, found, err := co.store.GetContent(req.ID)
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	if !found {
		return protocol.NewNotFound(req.ID)
	}

	if err := clipboard.Publish(mimeType, data); err != nil {
		return protocol.NewError(protocol.ErrClipboardError, err.Error())
	}
	if err := co.store.TouchEntry(req.ID); err != nil {
		logger.Warn().Err(err).Int64("id", req.ID).Msg("failed to touch entry after publish")
	}
	return protocol.Response{Type: protocol.ResponseOk}
}

func (co *Coordinator) handleDeleteEntry(req protocol.Request) protocol.Response {
	deleted, err := co.store.DeleteEntry(req.ID)
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	if !deleted {
		return protocol.NewNotFound(req.ID)
	}
	return protocol.Response{Type: protocol.ResponseOk}
}

func (co *Coordinator) handleClearHistory() protocol.Response {
	if err := co.store.ClearUnpinned(); err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	return protocol.Response{Type: protocol.ResponseOk}
}

func (co *Coordinator) handleSetPinned(req protocol.Request) protocol.Response {
	matched, err := co.store.SetPinned(req.ID, req.Pinned)
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	if !matched {
		return protocol.NewNotFound(req.ID)
	}
	return protocol.Response{Type: protocol.ResponseOk}
}

func (co *Coordinator) handleGetStatus() protocol.Response {
	count, err := co.store.CountEntries()
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	size, err := co.store.DatabaseSizeBytes()
	if err != nil {
		return protocol.NewError(protocol.ErrDatabaseError, err.Error())
	}
	return protocol.Response{
		Type:              protocol.ResponseStatus,
		Version:           Version,
		EntryCount:        count,
		DatabaseSizeBytes: size,
	}
}

var _ ipc.Handler = (&Coordinator{}).Handle
