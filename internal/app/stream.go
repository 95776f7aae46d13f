package app

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

// The chat endpoint multiplexes two signals over one body: ephemeral
// "thinking" status lines and actual response text. Records are
// newline-delimited JSON objects:
//
//	{"type":"status","content":"🔍 Searching the web..."}
//	{"type":"token","content":"Hel"}
//	{"type":"done"}
//
// The transport may split or coalesce records arbitrarily, including in the
// middle of a multi-byte rune; the decoder buffers raw bytes and never
// interprets a record until its terminating newline has arrived.

type StreamEventType string

const (
	EventStatus StreamEventType = "status"
	EventToken  StreamEventType = "token"
	EventDone   StreamEventType = "done"
)

type StreamEvent struct {
	Type    StreamEventType `json:"type"`
	Content string          `json:"content,omitempty"`
}

// FramingError reports a malformed or truncated record in the chat stream.
type FramingError struct {
	Reason string
	Data   string
}

func (e *FramingError) Error() string {
	if e.Data == "" {
		return "stream framing: " + e.Reason
	}
	return fmt.Sprintf("stream framing: %s: %.80q", e.Reason, e.Data)
}

// StreamDecoder turns the raw chat response body into a sequence of complete
// StreamEvents. Next returns io.EOF once the stream is exhausted; a non-empty
// unterminated tail at end of stream is a *FramingError, not a silent drop.
type StreamDecoder struct {
	r    *bufio.Reader
	done bool
}

func NewStreamDecoder(r io.Reader) *StreamDecoder {
	return &StreamDecoder{r: bufio.NewReader(r)}
}

func (d *StreamDecoder) Next() (StreamEvent, error) {
	if d.done {
		return StreamEvent{}, io.EOF
	}
	for {
		line, err := d.r.ReadString('\n')
		if err != nil {
			d.done = true
			if !errors.Is(err, io.EOF) {
				return StreamEvent{}, err
			}
			if strings.TrimSpace(line) != "" {
				return StreamEvent{}, &FramingError{Reason: "stream ended mid-record", Data: line}
			}
			// The backend closes the body without an explicit terminator;
			// a clean EOF counts as end-of-exchange.
			return StreamEvent{}, io.EOF
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		ev, err := decodeStreamLine(line)
		if err != nil {
			d.done = true
			return StreamEvent{}, err
		}
		if ev == nil {
			// Unknown record type; skip for forward compatibility.
			continue
		}
		if ev.Type == EventDone {
			d.done = true
		}
		return *ev, nil
	}
}

func decodeStreamLine(line string) (*StreamEvent, error) {
	var ev StreamEvent
	if err := json.Unmarshal([]byte(line), &ev); err != nil {
		return nil, &FramingError{Reason: "invalid record", Data: line}
	}
	switch ev.Type {
	case EventStatus, EventToken, EventDone:
		return &ev, nil
	case "":
		return nil, &FramingError{Reason: "record missing type", Data: line}
	default:
		return nil, nil
	}
}

// EncodeStreamEvent renders one wire record, newline included. The mock
// backend and tests share this with the decoder so framing stays symmetric.
func EncodeStreamEvent(ev StreamEvent) []byte {
	payload, _ := json.Marshal(ev)
	return append(payload, '\n')
}
