// Package transcript turns raw terminal output into a readable, append-only
// text transcript.
//
// Sanitize models a small virtual screen: it interprets the cursor movement,
// carriage return and erase sequences interactive programs use to redraw
// spinners and prompts, and drops styling, window titles and anything it does
// not recognise. It is a readability transform, not a terminal emulator:
// rows that have been emitted are never revisited.
package transcript

import "strings"

// Sanitize converts raw terminal output into cleaned text. It never fails;
// malformed or unknown sequences are skipped.
func Sanitize(raw string) string {
	if !strings.ContainsRune(raw, esc) {
		return normalizeNewlines(raw)
	}

	in := []rune(raw)
	s := newScreen()
	i := 0
	for i < len(in) {
		r := in[i]
		if r == esc {
			next, ok := s.escape(in, i)
			if !ok {
				break
			}
			i = next
			continue
		}
		switch {
		case r == '\n':
			s.lineFeed()
		case r == '\r':
			s.carriageReturn()
		case r == '\b':
			s.backspace()
		case r == '\t':
			s.tab()
		case r < 0x20 || r == 0x7f:
			// remaining controls carry nothing for a transcript
		default:
			s.print(r)
		}
		i++
	}
	s.finalize()
	return s.String()
}

// escape consumes the escape sequence at in[i] and returns the index to resume
// from. It reports false when the rest of the stream must be discarded.
func (s *screen) escape(in []rune, i int) (int, bool) {
	if i+1 < len(in) {
		switch in[i+1] {
		case 'M', '7', '8':
			return i + 2, true
		case ']':
			return scanOSC(in, i)
		}
	}
	seq, ok := scanCSI(in, i)
	if !ok {
		return i + 1, true
	}
	s.dispatch(seq)
	return seq.end, true
}

func (s *screen) dispatch(seq csiSeq) {
	switch seq.final {
	case 'H', 'f':
		s.cursorTo(seq.count(0)-1, seq.count(1)-1)
	case 'G':
		s.columnTo(seq.count(0) - 1)
	case 'C':
		s.forward(seq.count(0))
	case 'D':
		s.back(seq.count(0))
	case 'E':
		s.nextLine(seq.count(0))
	case 'F':
		s.previousLine()
	case 'J':
		s.frameBreak()
	case 'm', 'K':
		// Styling is not represented, and erasing would delete history.
	}
}

func normalizeNewlines(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	return strings.ReplaceAll(text, "\r", "\n")
}
