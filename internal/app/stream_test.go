package app

import (
	"errors"
	"io"
	"strings"
	"testing"
)

// chunkReader hands out at most n bytes per Read so tests can force record
// boundaries anywhere, including inside a multi-byte rune.
type chunkReader struct {
	data []byte
	n    int
}

func (c *chunkReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.n
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func collectEvents(t *testing.T, r io.Reader) []StreamEvent {
	t.Helper()
	dec := NewStreamDecoder(r)
	var out []StreamEvent
	for {
		ev, err := dec.Next()
		if errors.Is(err, io.EOF) {
			return out
		}
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		out = append(out, ev)
	}
}

func TestStreamDecoder_Basic(t *testing.T) {
	var b strings.Builder
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventStatus, Content: "Thinking..."}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "Hi"}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: " there"}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventDone}))

	events := collectEvents(t, strings.NewReader(b.String()))
	want := []StreamEvent{
		{Type: EventStatus, Content: "Thinking..."},
		{Type: EventToken, Content: "Hi"},
		{Type: EventToken, Content: " there"},
		{Type: EventDone},
	}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d: %+v", len(events), len(want), events)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Fatalf("event %d = %+v, want %+v", i, events[i], want[i])
		}
	}
}

func TestStreamDecoder_ChunkBoundaries(t *testing.T) {
	// Multi-byte content so one-byte chunks split runes mid-sequence.
	var b strings.Builder
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventStatus, Content: "🔍 Searching the web..."}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "héllo "}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "wörld 🚀"}))
	b.Write(EncodeStreamEvent(StreamEvent{Type: EventDone}))
	raw := b.String()

	reference := collectEvents(t, strings.NewReader(raw))
	for _, size := range []int{1, 2, 3, 5, 7, 64} {
		events := collectEvents(t, &chunkReader{data: []byte(raw), n: size})
		if len(events) != len(reference) {
			t.Fatalf("chunk %d: got %d events, want %d", size, len(events), len(reference))
		}
		for i := range reference {
			if events[i] != reference[i] {
				t.Fatalf("chunk %d: event %d = %+v, want %+v", size, i, events[i], reference[i])
			}
		}
	}
}

func TestStreamDecoder_TruncatedTail(t *testing.T) {
	raw := string(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "ok"})) +
		`{"type":"token","content":"cut`

	dec := NewStreamDecoder(strings.NewReader(raw))
	if ev, err := dec.Next(); err != nil || ev.Type != EventToken {
		t.Fatalf("first event: %+v, %v", ev, err)
	}
	_, err := dec.Next()
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
	// The decoder is spent after a framing error.
	if _, err := dec.Next(); !errors.Is(err, io.EOF) {
		t.Fatalf("expected EOF after error, got %v", err)
	}
}

func TestStreamDecoder_MalformedRecord(t *testing.T) {
	dec := NewStreamDecoder(strings.NewReader("not json\n"))
	_, err := dec.Next()
	var fe *FramingError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FramingError, got %v", err)
	}
}

func TestStreamDecoder_UnknownTypeSkipped(t *testing.T) {
	raw := `{"type":"usage","content":"42"}` + "\n" +
		string(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "hi"})) +
		string(EncodeStreamEvent(StreamEvent{Type: EventDone}))
	events := collectEvents(t, strings.NewReader(raw))
	if len(events) != 2 || events[0].Content != "hi" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStreamDecoder_EmptyAndBlankLines(t *testing.T) {
	if events := collectEvents(t, strings.NewReader("")); len(events) != 0 {
		t.Fatalf("empty stream produced events: %+v", events)
	}
	raw := "\n\n" + string(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "x"})) + "\n"
	events := collectEvents(t, strings.NewReader(raw))
	if len(events) != 1 || events[0].Content != "x" {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestStreamDecoder_EOFWithoutDone(t *testing.T) {
	// The backend may close the body without an explicit done record.
	raw := string(EncodeStreamEvent(StreamEvent{Type: EventToken, Content: "fin"}))
	events := collectEvents(t, strings.NewReader(raw))
	if len(events) != 1 || events[0].Content != "fin" {
		t.Fatalf("unexpected events: %+v", events)
	}
}
