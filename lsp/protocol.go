package lsp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"unicode/utf8"
)

// Message is one decoded JSON-RPC message from the analysis server. A
// response carries ID and Result/Error; a server notification carries Method
// and Params.
type Message struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int64           `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ResponseError  `json:"error,omitempty"`
}

// ResponseError is the error member of a JSON-RPC response.
type ResponseError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// request is an outbound JSON-RPC payload. A nil ID marks a notification.
type request struct {
	JSONRPC string `json:"jsonrpc"`
	ID      *int64 `json:"id,omitempty"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

// methodPublishDiagnostics is the one inbound notification this client
// interprets; every other message is decoded (to keep the stream in sync)
// and ignored.
const methodPublishDiagnostics = "textDocument/publishDiagnostics"

// publishDiagnosticsParams decodes each diagnostic lazily so one malformed
// entry degrades to a placeholder instead of discarding the whole batch.
type publishDiagnosticsParams struct {
	URI         string            `json:"uri"`
	Diagnostics []json.RawMessage `json:"diagnostics"`
}

// Diagnostic is a single issue reported by the server. Positions are
// 0-based on the wire.
type Diagnostic struct {
	Range   *Range `json:"range"`
	Message string `json:"message"`
}

// Range is the document span of a diagnostic; only the start matters here.
type Range struct {
	Start Position `json:"start"`
}

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// maxHeaderBytes bounds a frame header; anything larger means the stream is
// corrupt and the reader gives up.
const maxHeaderBytes = 4096

// ErrHeaderTooLarge reports a frame header exceeding maxHeaderBytes.
var ErrHeaderTooLarge = errors.New("frame header exceeds maximum size")

var contentLengthRe = regexp.MustCompile(`(?i)Content-Length:\s*(\d+)`)

// WriteFrame writes payload as one Content-Length-delimited frame.
func WriteFrame(w io.Writer, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	header := fmt.Sprintf("Content-Length: %d\r\n\r\n", len(body))
	if _, err := w.Write([]byte(header)); err != nil {
		return fmt.Errorf("failed to write frame header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("failed to write frame body: %w", err)
	}
	return nil
}

// ReadFrame reads one frame and returns the raw body, byte-exact regardless
// of how the underlying stream chunks its data. Header bytes are consumed
// one at a time, so no read-ahead can swallow part of the following body.
func ReadFrame(r io.Reader) ([]byte, error) {
	header := make([]byte, 0, 64)
	buf := make([]byte, 1)

	for !hasHeaderTerminator(header) {
		if _, err := io.ReadFull(r, buf); err != nil {
			return nil, err
		}
		header = append(header, buf[0])
		if len(header) > maxHeaderBytes {
			return nil, ErrHeaderTooLarge
		}
	}

	m := contentLengthRe.FindSubmatch(header)
	if m == nil {
		return nil, fmt.Errorf("frame header missing Content-Length: %q", header)
	}
	length, err := strconv.Atoi(string(m[1]))
	if err != nil || length < 0 {
		return nil, fmt.Errorf("invalid Content-Length %q", m[1])
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return body, nil
}

func hasHeaderTerminator(header []byte) bool {
	n := len(header)
	return n >= 4 && header[n-4] == '\r' && header[n-3] == '\n' &&
		header[n-2] == '\r' && header[n-1] == '\n'
}

// decodeMessage parses a frame body. Bad encoding or invalid JSON yields an
// error; the caller drops the message and keeps reading, since framing is
// self-delimiting and one bad body never desynchronizes the stream.
func decodeMessage(body []byte) (Message, error) {
	if !utf8.Valid(body) {
		return Message{}, errors.New("message body is not valid UTF-8")
	}

	var msg Message
	if err := json.Unmarshal(body, &msg); err != nil {
		return Message{}, fmt.Errorf("invalid message body: %w", err)
	}
	return msg, nil
}
