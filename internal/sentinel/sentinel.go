// Package sentinel implements the line framing used on the control channel
// shared with the parent process. Every frame is a fixed prefix, a colon and
// exactly one JSON object on a single line, so the parent can separate
// protocol frames from incidental diagnostic text on the same stream.
package sentinel

import (
	"encoding/json"
	"io"
	"sync"
)

// Frame prefixes. Command responses use PrefixResponse; the remaining
// prefixes are free-running event channels the parent may observe at any time.
const (
	PrefixResponse = "__RESPONSE__"
	PrefixReady    = "__READY__"
	PrefixError    = "__ERROR__"
	PrefixLog      = "__LOG__"
	PrefixRequest  = "__REQUEST__"
)

// RequestEntry is the per-request metadata frame emitted after each HTTP
// request. It deliberately carries no input feature values.
type RequestEntry struct {
	ID          string  `json:"id"`
	TimestampMS int64   `json:"timestamp"`
	Method      string  `json:"method"`
	Path        string  `json:"path"`
	StatusCode  int     `json:"status_code"`
	LatencyMS   float64 `json:"latency_ms"`
	BatchSize   int     `json:"batch_size"`
}

// Emitter serializes frames onto a single writer. Emits from concurrent
// request handlers are serialized so frames never interleave mid-line.
type Emitter struct {
	mu sync.Mutex
	w  io.Writer
}

// NewEmitter returns an Emitter writing frames to w.
func NewEmitter(w io.Writer) *Emitter { return &Emitter{w: w} }

// Emit writes one framed JSON object: prefix + ":" + object + "\n".
func (e *Emitter) Emit(prefix string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	line := make([]byte, 0, len(prefix)+1+len(b)+1)
	line = append(line, prefix...)
	line = append(line, ':')
	line = append(line, b...)
	line = append(line, '\n')
	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = e.w.Write(line)
	return err
}

// Response emits a command-response frame.
func (e *Emitter) Response(v any) error { return e.Emit(PrefixResponse, v) }

// Ready emits the one-shot ready announcement.
func (e *Emitter) Ready(v any) error { return e.Emit(PrefixReady, v) }

// Error emits an error event frame.
func (e *Emitter) Error(code, message string, details map[string]any) error {
	payload := map[string]any{"code": code, "message": message}
	if len(details) > 0 {
		payload["details"] = details
	}
	return e.Emit(PrefixError, payload)
}

// Log emits a free-form diagnostic message frame.
func (e *Emitter) Log(message string) error {
	return e.Emit(PrefixLog, map[string]string{"message": message})
}

// Request emits a request-metadata frame.
func (e *Emitter) Request(entry RequestEntry) error {
	return e.Emit(PrefixRequest, entry)
}
