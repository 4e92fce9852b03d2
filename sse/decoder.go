// Package sse implements incremental Server-Sent-Events framing.
//
// A frame is a block of lines terminated by a blank line. Only "data:"
// lines carry payload; every other line is ignored. The literal payload
// Sentinel marks the application-level end of a stream.
package sse

import (
	"bytes"
	"strings"
)

// Sentinel is the in-band payload that terminates a stream.
const Sentinel = "[DONE]"

// dataPrefix is the only significant field name within a frame.
const dataPrefix = "data:"

var (
	frameBoundary = []byte("\n\n")
	crlf          = []byte("\r\n")
	lf            = []byte("\n")
)

// Decoder reassembles SSE frames from arbitrarily split chunks.
//
// A Decoder owns its carry-over buffer and must not be shared between
// concurrent streams; create one per stream.
type Decoder struct {
	buf  []byte
	done bool

	// scan is the offset in buf where the boundary search resumes.
	// Bytes before it are known not to start a boundary.
	scan int
}

// NewDecoder creates a decoder with an empty buffer.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Feed appends chunk to the buffer and extracts every complete frame.
// Returns the decoded payloads in arrival order and whether the sentinel
// was seen. Once the sentinel is seen, the remaining buffer is discarded
// and every later call yields nothing.
//
// Malformed input never produces an error: frames without a data line
// are dropped.
func (d *Decoder) Feed(chunk []byte) ([]string, bool) {
	if d.done {
		return nil, true
	}
	// A CR left at the end of the buffer may pair with a LF in chunk, so
	// normalization starts one byte back and the search two bytes back.
	tail := max(len(d.buf)-1, 0)
	d.scan = min(d.scan, max(tail-1, 0))
	d.buf = append(d.buf, chunk...)
	if bytes.IndexByte(d.buf[tail:], '\r') >= 0 {
		d.buf = append(d.buf[:tail], normalize(d.buf[tail:])...)
	}

	var payloads []string
	for {
		idx := bytes.Index(d.buf[d.scan:], frameBoundary)
		if idx < 0 {
			d.scan = max(len(d.buf)-len(frameBoundary)+1, 0)
			break
		}
		idx += d.scan
		frame := d.buf[:idx]
		d.buf = d.buf[idx+len(frameBoundary):]
		d.scan = 0

		payload, ok := parseFrame(frame)
		if !ok {
			continue
		}
		if payload == Sentinel {
			d.done = true
			d.buf = nil
			d.scan = 0
			return payloads, true
		}
		payloads = append(payloads, payload)
	}

	// Reclaim consumed prefix so long-lived streams do not pin old chunks.
	if len(d.buf) == 0 {
		d.buf = nil
	}
	return payloads, false
}

// Finish handles end of stream. A non-empty remainder is extracted as a
// single frame, which covers servers that omit the final blank line.
// The decoder is complete afterwards regardless of what the remainder held.
func (d *Decoder) Finish() []string {
	if d.done {
		return nil
	}
	d.done = true
	rem := d.buf
	d.buf = nil
	d.scan = 0

	if len(bytes.TrimSpace(rem)) == 0 {
		return nil
	}
	payload, ok := parseFrame(rem)
	if !ok || payload == Sentinel {
		return nil
	}
	return []string{payload}
}

// Done reports whether the sentinel was seen or Finish was called.
func (d *Decoder) Done() bool {
	return d.done
}

// Buffered returns the number of bytes awaiting a frame boundary.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// Decode frames a complete byte stream in one pass.
// It is equivalent to a single Feed followed by Finish when no sentinel
// was seen.
func Decode(data []byte) (payloads []string, sentinel bool) {
	d := NewDecoder()
	payloads, sentinel = d.Feed(data)
	if !sentinel {
		payloads = append(payloads, d.Finish()...)
	}
	return payloads, sentinel
}

// parseFrame extracts the payload of a single frame.
// Multiple data lines are joined with a newline. Returns false when the
// frame carries no data line.
func parseFrame(frame []byte) (string, bool) {
	var (
		parts []string
		found bool
	)
	for line := range bytes.SplitSeq(frame, lf) {
		line = bytes.TrimSpace(line)
		if !bytes.HasPrefix(line, []byte(dataPrefix)) {
			continue
		}
		found = true
		value := bytes.TrimSpace(line[len(dataPrefix):])
		parts = append(parts, strings.ToValidUTF8(string(value), "\uFFFD"))
	}
	if !found {
		return "", false
	}
	if len(parts) == 1 {
		return parts[0], true
	}
	return strings.Join(parts, "\n"), true
}

// normalize rewrites CRLF line endings to LF. A trailing lone CR is kept
// so that a CRLF split across chunks is normalized on the next Feed.
func normalize(buf []byte) []byte {
	return bytes.ReplaceAll(buf, crlf, lf)
}
