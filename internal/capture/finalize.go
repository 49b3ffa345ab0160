package capture

import (
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/encoding/unicode"

	"pkt.systems/loopster/internal/artifact"
	"pkt.systems/loopster/internal/transcript"
)

// finish decodes the accumulated output and writes the artifacts. It runs
// after every capture, timed out or not.
func (s *session) finish() (Result, error) {
	res := Result{
		SessionID: s.id,
		TimedOut:  s.timedOut,
		Bytes:     len(s.raw),
		Duration:  time.Since(s.started),
	}
	text := decode(s.raw)
	writer := artifact.NewWriter(s.log)

	if s.req.RawPath != "" {
		// Raw output is a convenience copy; failures are logged by the writer.
		_ = writer.Write(s.req.RawPath, text)
	}

	cleaned := transcript.Sanitize(text)
	if header := s.req.Header; header != "" {
		if !strings.HasSuffix(header, "\n") {
			header += "\n"
		}
		cleaned = header + cleaned
	}
	if err := writer.Write(s.req.OutputPath, cleaned); err != nil {
		return res, fmt.Errorf("write transcript: %w", err)
	}
	return res, nil
}

// decode converts raw bytes to UTF-8, replacing invalid sequences with U+FFFD.
func decode(raw []byte) string {
	out, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}
