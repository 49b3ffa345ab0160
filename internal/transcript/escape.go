package transcript

import (
	"errors"
	"strconv"
	"strings"
)

const (
	esc = '\x1b'
	bel = '\x07'

	// maxParam caps numeric parameters, bounding row and column growth.
	maxParam = 9999
)

// csiSeq is a parsed control sequence: ESC [ params intermediates final.
type csiSeq struct {
	params string
	final  rune
	end    int
}

// param returns the n-th non-empty parameter, or def when there are fewer
// or it is not a number. Empty fields are skipped, so ESC[;5H addresses row 5.
func (c csiSeq) param(n, def int) int {
	fields := c.fields()
	if n >= len(fields) {
		return def
	}
	v, err := strconv.Atoi(fields[n])
	if errors.Is(err, strconv.ErrRange) && !strings.HasPrefix(fields[n], "-") {
		return maxParam
	}
	if err != nil {
		return def
	}
	return min(v, maxParam)
}

func (c csiSeq) fields() []string {
	var fields []string
	for _, field := range strings.Split(c.params, ";") {
		if field != "" {
			fields = append(fields, field)
		}
	}
	return fields
}

// count returns the n-th parameter as a repeat count (at least 1).
func (c csiSeq) count(n int) int {
	return max(1, c.param(n, 1))
}

type csiState int

const (
	csiParams csiState = iota
	csiIntermediate
)

func isParamRune(r rune) bool {
	return (r >= '0' && r <= '9') || r == ';' || r == '?' || r == '<' || r == '>' || r == '='
}

func isIntermediateRune(r rune) bool {
	return r >= 0x20 && r <= 0x2f
}

func isFinalRune(r rune) bool {
	return r >= 0x40 && r <= 0x7e
}

// scanCSI matches a control sequence starting at in[i] (the ESC). It reports
// false when the input at i is not a complete sequence.
func scanCSI(in []rune, i int) (csiSeq, bool) {
	if i+1 >= len(in) || in[i] != esc || in[i+1] != '[' {
		return csiSeq{}, false
	}
	start := i + 2
	paramsEnd := start
	state := csiParams
	for j := start; j < len(in); j++ {
		r := in[j]
		switch state {
		case csiParams:
			if isParamRune(r) {
				paramsEnd = j + 1
				continue
			}
			state = csiIntermediate
			fallthrough
		case csiIntermediate:
			if isIntermediateRune(r) {
				continue
			}
			if isFinalRune(r) {
				return csiSeq{params: string(in[start:paramsEnd]), final: r, end: j + 1}, true
			}
			return csiSeq{}, false
		}
	}
	return csiSeq{}, false
}

// scanOSC returns the index just past the terminator of the operating system
// command starting at in[i]. The earliest of BEL or ESC \ ends it. It reports
// false when the sequence runs off the end of the input.
func scanOSC(in []rune, i int) (int, bool) {
	for j := i + 2; j < len(in); j++ {
		if in[j] == bel {
			return j + 1, true
		}
		if in[j] == esc && j+1 < len(in) && in[j+1] == '\\' {
			return j + 2, true
		}
	}
	return len(in), false
}
