// Package protocol implements the newline-delimited JSON wire format spoken
// over the daemon's Unix socket: one Request per line in, one Response per
// line out.
package protocol

import (
	"encoding/json"
	"fmt"
)

// RequestType tags the variant of a Request.
type RequestType string

const (
	RequestGetHistory   RequestType = "get_history"
	RequestGetContent   RequestType = "get_content"
	RequestSetClipboard RequestType = "set_clipboard"
	RequestDeleteEntry  RequestType = "delete_entry"
	RequestClearHistory RequestType = "clear_history"
	RequestSetPinned    RequestType = "set_pinned"
	RequestGetStatus    RequestType = "get_status"
	RequestPing         RequestType = "ping"
)

// ResponseType tags the variant of a Response.
type ResponseType string

const (
	ResponseHistory ResponseType = "history"
	ResponseContent ResponseType = "content"
	ResponseOk      ResponseType = "ok"
	ResponseError   ResponseType = "error"
	ResponseStatus  ResponseType = "status"
	ResponsePong    ResponseType = "pong"
)

// ErrorCode enumerates the wire-level error taxonomy. This is distinct from
// errors.ExitCode: one is a JSON value a client branches on, the other is a
// process exit status — they serve different callers and must not merge.
type ErrorCode string

const (
	ErrNotFound       ErrorCode = "not_found"
	ErrDatabaseError  ErrorCode = "database_error"
	ErrClipboardError ErrorCode = "clipboard_error"
	ErrInvalidRequest ErrorCode = "invalid_request"
	ErrInternalError  ErrorCode = "internal_error"
)

// Request is a single client command. Only the fields relevant to Type are
// populated; the rest are left at their zero value and omitted on encode.
type Request struct {
	Type RequestType `json:"type"`

	// get_history
	Limit  *uint32 `json:"limit,omitempty"`
	Offset *uint32 `json:"offset,omitempty"`
	Search *string `json:"search,omitempty"`

	// get_content, set_clipboard, delete_entry, set_pinned
	ID int64 `json:"id,omitempty"`

	// set_pinned
	Pinned bool `json:"pinned,omitempty"`
}

// Response is a single daemon reply. Only the fields relevant to Type are
// populated.
type Response struct {
	Type ResponseType `json:"type"`

	// history
	Entries    []HistoryEntry `json:"entries,omitempty"`
	TotalCount uint64         `json:"total_count,omitempty"`

	// content
	ID       int64  `json:"id,omitempty"`
	MimeType string `json:"mime_type,omitempty"`
	Data     string `json:"data,omitempty"`

	// error
	Code    ErrorCode `json:"code,omitempty"`
	Message string    `json:"message,omitempty"`

	// status
	Version           string `json:"version,omitempty"`
	EntryCount        uint64 `json:"entry_count,omitempty"`
	DatabaseSizeBytes uint64 `json:"database_size_bytes,omitempty"`
}

// ContentType is the coarse classification of an entry's payload.
type ContentType string

const (
	ContentText  ContentType = "text"
	ContentImage ContentType = "image"
)

// ContentTypeFromMime classifies a MIME type the way the capture path does:
// anything under image/ is an image, everything else is text.
func ContentTypeFromMime(mime string) ContentType {
	if len(mime) >= 6 && mime[:6] == "image/" {
		return ContentImage
	}
	return ContentText
}

// HistoryEntry is the metadata-only view of a stored clipboard entry
// returned by get_history; it never carries the entry's raw content.
type HistoryEntry struct {
	ID          int64       `json:"id"`
	ContentType ContentType `json:"content_type"`
	MimeType    string      `json:"mime_type"`
	Preview     string      `json:"preview"`
	ByteSize    uint64      `json:"byte_size"`
	CreatedAt   int64       `json:"created_at"`
	Pinned      bool        `json:"pinned"`
}

// TextMimePriority lists text MIME types in descending preference order.
var TextMimePriority = []string{
	"text/plain;charset=utf-8",
	"text/plain",
	"UTF8_STRING",
	"STRING",
	"TEXT",
}

// ImageMimePriority lists image MIME types in descending preference order.
var ImageMimePriority = []string{
	"image/png",
	"image/jpeg",
	"image/webp",
	"image/gif",
	"image/bmp",
	"image/tiff",
}

// SelectBestMimeType picks the most useful MIME type out of those a
// compositor offered: images first, then text, then whatever came first.
func SelectBestMimeType(offered []string) (string, bool) {
	for _, want := range ImageMimePriority {
		for _, have := range offered {
			if have == want {
				return want, true
			}
		}
	}
	for _, want := range TextMimePriority {
		for _, have := range offered {
			if have == want {
				return want, true
			}
		}
	}
	if len(offered) > 0 {
		return offered[0], true
	}
	return "", false
}

// NewError builds an error Response.
func NewError(code ErrorCode, message string) Response {
	return Response{Type: ResponseError, Code: code, Message: message}
}

// NewNotFound builds the not_found error Response for an entry id.
func NewNotFound(id int64) Response {
	return NewError(ErrNotFound, fmt.Sprintf("entry %d not found", id))
}

// IsError reports whether r is an error Response.
func (r Response) IsError() bool {
	return r.Type == ResponseError
}

// EncodeRequest serializes req as a single newline-terminated JSON line.
func EncodeRequest(req Request) ([]byte, error) {
	b, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// EncodeResponse serializes resp as a single newline-terminated JSON line.
func EncodeResponse(resp Response) ([]byte, error) {
	b, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// DecodeRequest parses a single JSON request line (without its trailing
// newline).
func DecodeRequest(data []byte) (Request, error) {
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

// DecodeResponse parses a single JSON response line (without its trailing
// newline).
func DecodeResponse(data []byte) (Response, error) {
	var resp Response
	err := json.Unmarshal(data, &resp)
	return resp, err
}
