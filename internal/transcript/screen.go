package transcript

import (
	"strings"
	"unicode"
)

const tabWidth = 8

// screen is the append-only virtual terminal a single Sanitize call renders
// into. Rows and columns grow on demand and are blank-filled.
type screen struct {
	lines [][]rune

	// crActive marks rows that saw a carriage return since their last line
	// break; crMax is the furthest column written on that row since then.
	crActive []bool
	crMax    []int

	row, col int

	// suppress drops printable writes while the stream repaints rows above
	// the cursor. A line break clears it.
	suppress bool
}

func newScreen() *screen {
	s := &screen{}
	s.ensureLine(0)
	return s
}

func (s *screen) ensureLine(row int) {
	for len(s.lines) <= row {
		s.lines = append(s.lines, nil)
		s.crActive = append(s.crActive, false)
		s.crMax = append(s.crMax, 0)
	}
}

func (s *screen) ensureCol(row, col int) {
	s.ensureLine(row)
	for len(s.lines[row]) <= col {
		s.lines[row] = append(s.lines[row], ' ')
	}
}

// put stores r at (row, col). A blank never replaces a non-blank cell.
func (s *screen) put(row, col int, r rune) {
	s.ensureCol(row, col)
	if r == ' ' && s.lines[row][col] != ' ' {
		return
	}
	s.lines[row][col] = r
}

func (s *screen) print(r rune) {
	if s.suppress {
		return
	}
	s.put(s.row, s.col, r)
	if s.crActive[s.row] && s.col+1 > s.crMax[s.row] {
		s.crMax[s.row] = s.col + 1
	}
	s.col++
}

func (s *screen) lineFeed() {
	if s.crActive[s.row] {
		s.truncate(s.row, s.crMax[s.row])
		s.crActive[s.row] = false
		s.crMax[s.row] = 0
	}
	s.row++
	s.col = 0
	s.suppress = false
	s.ensureLine(s.row)
}

func (s *screen) carriageReturn() {
	s.col = 0
	s.crActive[s.row] = true
	s.crMax[s.row] = 0
}

func (s *screen) backspace() {
	s.col = max(0, s.col-1)
}

func (s *screen) tab() {
	next := (s.col/tabWidth + 1) * tabWidth
	for s.col < next {
		s.put(s.row, s.col, ' ')
		s.col++
	}
}

// truncate cuts a row to width. Zero means nothing was written after the
// carriage return, so the row is left intact.
func (s *screen) truncate(row, width int) {
	if width <= 0 || width >= len(s.lines[row]) {
		return
	}
	s.lines[row] = s.lines[row][:width]
}

// cursorTo handles CUP/HVP. Moving above the current row never revisits
// emitted rows; it only parks the cursor and suppresses the repaint.
func (s *screen) cursorTo(row, col int) {
	if row < s.row {
		s.suppress = true
		s.col = 0
		return
	}
	s.row = row
	s.col = col
	s.ensureCol(s.row, s.col)
}

func (s *screen) columnTo(col int) {
	s.col = col
	s.ensureCol(s.row, s.col)
}

func (s *screen) forward(n int) {
	s.col += n
	s.ensureCol(s.row, s.col)
}

func (s *screen) back(n int) {
	s.col = max(0, s.col-n)
}

func (s *screen) nextLine(n int) {
	s.row += n
	s.col = 0
	s.suppress = false
	s.ensureLine(s.row)
}

func (s *screen) previousLine() {
	s.suppress = true
	s.col = 0
}

// frameBreak renders an erase-display as a separator instead of data loss.
func (s *screen) frameBreak() {
	if len(s.lines[s.row]) == 0 {
		return
	}
	s.row++
	s.col = 0
	s.ensureLine(s.row)
}

// finalize applies pending carriage-return truncation for rows the stream
// left mid-update.
func (s *screen) finalize() {
	for row, active := range s.crActive {
		if active {
			s.truncate(row, s.crMax[row])
		}
	}
}

func (s *screen) String() string {
	var b strings.Builder
	for i, line := range s.lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strings.TrimRightFunc(string(line), unicode.IsSpace))
	}
	return b.String()
}
