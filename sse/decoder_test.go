package sse

import (
	"slices"
	"strings"
	"testing"
)

func feedAll(d *Decoder, chunks ...string) ([]string, bool) {
	var out []string
	for _, c := range chunks {
		p, done := d.Feed([]byte(c))
		out = append(out, p...)
		if done {
			return out, true
		}
	}
	return append(out, d.Finish()...), false
}

func TestDecoder_SingleFrame(t *testing.T) {
	d := NewDecoder()
	payloads, done := d.Feed([]byte("data: hello\n\n"))

	if !slices.Equal(payloads, []string{"hello"}) {
		t.Errorf("payloads = %q, want [hello]", payloads)
	}
	if done {
		t.Error("done = true, want false")
	}
	if d.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", d.Buffered())
	}
}

func TestDecoder_NoSpaceAfterColon(t *testing.T) {
	payloads, sentinel := Decode([]byte("data:He\n\ndata:llo\n\ndata:[DONE]\n\n"))

	if !slices.Equal(payloads, []string{"He", "llo"}) {
		t.Errorf("payloads = %q, want [He llo]", payloads)
	}
	if !sentinel {
		t.Error("sentinel = false, want true")
	}
}

func TestDecoder_PartialFrameIsBuffered(t *testing.T) {
	d := NewDecoder()

	payloads, done := d.Feed([]byte("data: hel"))
	if len(payloads) != 0 || done {
		t.Fatalf("Feed(partial) = %q, %v; want nothing", payloads, done)
	}
	if d.Buffered() != len("data: hel") {
		t.Errorf("Buffered = %d, want %d", d.Buffered(), len("data: hel"))
	}

	payloads, done = d.Feed([]byte("lo\n"))
	if len(payloads) != 0 || done {
		t.Fatalf("Feed(half boundary) = %q, %v; want nothing", payloads, done)
	}

	payloads, done = d.Feed([]byte("\ndata: world\n\n"))
	if !slices.Equal(payloads, []string{"hello", "world"}) {
		t.Errorf("payloads = %q, want [hello world]", payloads)
	}
	if done {
		t.Error("done = true, want false")
	}
}

func TestDecoder_ChunkBoundaryIndependence(t *testing.T) {
	streams := []string{
		"data: a\n\ndata: b\n\ndata: c\n\n",
		"data: {\"type\":\"stdout\",\"data\":\"x\"}\n\n: comment\n\ndata: tail\n\n",
		"data: one\r\n\r\ndata: two\r\n\r\n",
		"data: héllo wörld ✓\n\ndata: 日本語\n\n",
		"event: delta\ndata: first\ndata: second\n\n\n\ndata: third\n\n",
		"data: a\n\ndata: [DONE]\n\ndata: never\n\n",
		"data: unterminated",
	}

	for _, stream := range streams {
		whole, wholeDone := Decode([]byte(stream))

		// Every two-way split.
		for i := 0; i <= len(stream); i++ {
			got, done := feedAll(NewDecoder(), stream[:i], stream[i:])
			if !slices.Equal(got, whole) || done != wholeDone {
				t.Fatalf("stream %q split at %d: got %q, %v; want %q, %v", stream, i, got, done, whole, wholeDone)
			}
		}

		// Byte at a time.
		chunks := make([]string, len(stream))
		for i := range stream {
			chunks[i] = stream[i : i+1]
		}
		got, done := feedAll(NewDecoder(), chunks...)
		if !slices.Equal(got, whole) || done != wholeDone {
			t.Errorf("stream %q byte-wise: got %q, %v; want %q, %v", stream, got, done, whole, wholeDone)
		}
	}
}

func TestDecoder_LargeFrameAcrossManyReads(t *testing.T) {
	big := strings.Repeat("x", 1<<20)
	stream := "data: " + big + "\n\ndata: next\n\n"

	d := NewDecoder()
	var got []string
	for i := 0; i < len(stream); i += 4096 {
		p, _ := d.Feed([]byte(stream[i:min(i+4096, len(stream))]))
		got = append(got, p...)
	}

	if len(got) != 2 {
		t.Fatalf("got %d payloads, want 2", len(got))
	}
	if got[0] != big {
		t.Errorf("first payload has %d bytes, want %d", len(got[0]), len(big))
	}
	if got[1] != "next" {
		t.Errorf("second payload = %q, want next", got[1])
	}
	if d.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", d.Buffered())
	}
}

func TestDecoder_BoundarySplitAfterCarriageReturn(t *testing.T) {
	d := NewDecoder()
	var got []string
	for _, c := range []string{"data: a\r", "\n\r", "\ndata: b\r\n", "\r\n"} {
		p, _ := d.Feed([]byte(c))
		got = append(got, p...)
	}
	if !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("payloads = %q, want [a b]", got)
	}
}

func TestDecoder_PayloadRoundTripsTrimmed(t *testing.T) {
	payloads := []string{
		"hello",
		"  padded  ",
		`{"type":"stderr","data":"boom"}`,
		"data: nested prefix",
		"[DONE] not quite",
		"",
	}
	for _, p := range payloads {
		got, sentinel := Decode([]byte("data: " + p + "\n\n"))
		if sentinel {
			t.Errorf("payload %q: sentinel = true", p)
		}
		if want := []string{strings.TrimSpace(p)}; !slices.Equal(got, want) {
			t.Errorf("payload %q: got %q, want %q", p, got, want)
		}
	}
}

func TestDecoder_SentinelStopsImmediately(t *testing.T) {
	d := NewDecoder()
	payloads, done := d.Feed([]byte("data: a\n\ndata: [DONE]\n\ndata: b\n\n"))

	if !slices.Equal(payloads, []string{"a"}) {
		t.Errorf("payloads = %q, want [a]", payloads)
	}
	if !done || !d.Done() {
		t.Error("expected decoder to be done after sentinel")
	}
	if d.Buffered() != 0 {
		t.Errorf("Buffered = %d, want 0", d.Buffered())
	}

	payloads, done = d.Feed([]byte("data: c\n\n"))
	if len(payloads) != 0 || !done {
		t.Errorf("Feed after sentinel = %q, %v; want nothing, true", payloads, done)
	}
	if rem := d.Finish(); len(rem) != 0 {
		t.Errorf("Finish after sentinel = %q, want nothing", rem)
	}
}

func TestDecoder_SentinelOnlyEmitsNothing(t *testing.T) {
	payloads, sentinel := Decode([]byte("data: [DONE]\n\n"))
	if len(payloads) != 0 {
		t.Errorf("payloads = %q, want none", payloads)
	}
	if !sentinel {
		t.Error("sentinel = false, want true")
	}
}

func TestDecoder_FinishEmitsUnterminatedRemainder(t *testing.T) {
	d := NewDecoder()
	payloads, _ := d.Feed([]byte("data: first\n\ndata: last words"))
	if !slices.Equal(payloads, []string{"first"}) {
		t.Errorf("payloads = %q, want [first]", payloads)
	}

	if rem := d.Finish(); !slices.Equal(rem, []string{"last words"}) {
		t.Errorf("Finish = %q, want [last words]", rem)
	}
	if !d.Done() {
		t.Error("Done = false after Finish")
	}

	// Exactly once.
	if rem := d.Finish(); len(rem) != 0 {
		t.Errorf("second Finish = %q, want nothing", rem)
	}
}

func TestDecoder_FinishSentinelRemainder(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: [DONE]"))
	if rem := d.Finish(); len(rem) != 0 {
		t.Errorf("Finish = %q, want nothing", rem)
	}
}

func TestDecoder_FinishWhitespaceRemainder(t *testing.T) {
	d := NewDecoder()
	d.Feed([]byte("data: x\n\n\n"))
	if rem := d.Finish(); len(rem) != 0 {
		t.Errorf("Finish = %q, want nothing", rem)
	}
}

func TestDecoder_MalformedFramesSkipped(t *testing.T) {
	stream := "garbage\n\n\n\n\n: keepalive\n\nid: 7\nretry: 10\n\ndata: ok\n\n"
	payloads, sentinel := Decode([]byte(stream))

	if !slices.Equal(payloads, []string{"ok"}) {
		t.Errorf("payloads = %q, want [ok]", payloads)
	}
	if sentinel {
		t.Error("sentinel = true, want false")
	}
}

func TestDecoder_MultipleDataLinesJoined(t *testing.T) {
	payloads, _ := Decode([]byte("data: line one\ndata: line two\n\n"))
	if want := []string{"line one\nline two"}; !slices.Equal(payloads, want) {
		t.Errorf("payloads = %q, want %q", payloads, want)
	}
}

func TestDecoder_SplitMultibyteRune(t *testing.T) {
	raw := []byte("data: ✓\n\n")
	d := NewDecoder()

	// Split inside the three-byte encoding of the check mark.
	first, _ := d.Feed(raw[:7])
	second, _ := d.Feed(raw[7:])

	if len(first) != 0 {
		t.Errorf("first = %q, want nothing", first)
	}
	if !slices.Equal(second, []string{"✓"}) {
		t.Errorf("second = %q, want [✓]", second)
	}
}

func TestDecoder_InvalidUTF8Replaced(t *testing.T) {
	payloads, _ := Decode([]byte("data: a\xffb\n\n"))
	if want := []string{"a\uFFFDb"}; !slices.Equal(payloads, want) {
		t.Errorf("payloads = %q, want %q", payloads, want)
	}
}

func TestDecoder_EmptyInput(t *testing.T) {
	d := NewDecoder()
	payloads, done := d.Feed(nil)
	if len(payloads) != 0 || done {
		t.Errorf("Feed(nil) = %q, %v; want nothing", payloads, done)
	}
	if rem := d.Finish(); len(rem) != 0 {
		t.Errorf("Finish = %q, want nothing", rem)
	}
}
