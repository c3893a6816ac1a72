// Package console implements the VGA-text-mode-shaped 80x25 grid from
// spec.md §6: a (ascii, color) cell array, cursor port semantics on
// 0x3D4/0x3D5, newline/backspace handling, and ANSI SGR foreground-color
// escapes. In hosted mode the "physical address 0xB8000" is just a Go
// slice; the port-level cursor protocol is still modeled for fidelity and
// so the cursor ports can be exercised over a ports.Bus like every other
// chip in this kernel.
package console

import (
	"strings"
	"sync"

	"github.com/charmbracelet/x/ansi"
)

const (
	// Cols and Rows are the classic 80x25 text mode dimensions.
	Cols = 80
	Rows = 25

	cursorIndexPort uint16 = 0x3D4
	cursorDataPort  uint16 = 0x3D5
	cursorHighIndex byte   = 0x0E
	cursorLowIndex  byte   = 0x0F

	defaultFG = White
	defaultBG = Black
)

// Color is one of the 16 standard VGA text-mode palette entries.
type Color byte

const (
	Black Color = iota
	Blue
	Green
	Cyan
	Red
	Magenta
	Brown
	LightGrey
	DarkGrey
	LightBlue
	LightGreen
	LightCyan
	LightRed
	LightMagenta
	Yellow
	White
)

// Cell is one character position: the glyph and its bg<<4|fg color byte.
type Cell struct {
	Ascii byte
	Color byte
}

func packColor(fg, bg Color) byte {
	return byte(bg)<<4 | byte(fg)
}

// Console is the hosted VGA text-mode console: an 80x25 grid, a cursor
// position, and the small ANSI SGR subset spec.md §6 requires (30-37
// normal, 90-97 bright, 0 resets; anything else passes through unconsumed).
type Console struct {
	mu sync.Mutex

	cells       [Rows][Cols]Cell
	cursorRow   int
	cursorCol   int
	curFG, curBG Color

	// ansiState accumulates bytes belonging to a not-yet-complete escape
	// sequence across successive WriteByte calls, mirroring how a real
	// UART/console driver must handle a control sequence arriving one byte
	// at a time.
	ansiState byte
	pending   []byte

	cursorHigh bool // true once 0x0E has been selected via cursorIndexPort
}

// New returns a blank console with the default (white-on-black) color.
func New() *Console {
	c := &Console{curFG: defaultFG, curBG: defaultBG}
	c.Clear()
	return c
}

// Clear fills the grid with blank cells in the current color and homes the
// cursor.
func (c *Console) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clearLocked()
}

func (c *Console) clearLocked() {
	blank := Cell{Ascii: ' ', Color: packColor(c.curFG, c.curBG)}
	for r := range c.cells {
		for col := range c.cells[r] {
			c.cells[r][col] = blank
		}
	}
	c.cursorRow, c.cursorCol = 0, 0
}

// WriteByte processes a single console byte: control bytes (\n, backspace),
// ANSI SGR sequence bytes, or a plain glyph written at the cursor with
// auto-advance and scroll. It never returns an error — a VGA console cannot
// reject a write.
func (c *Console) WriteByte(b byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.pending) > 0 || b == 0x1B {
		c.pending = append(c.pending, b)
		seq, _, n, newState := ansi.DecodeSequence(c.pending, c.ansiState, nil)
		c.ansiState = newState
		if n == 0 {
			// Incomplete sequence: wait for more bytes.
			return
		}
		if len(seq) > 0 {
			c.applySGR(seq)
		}
		c.pending = nil
		return
	}

	switch b {
	case '\n':
		c.newlineLocked()
	case 0x08:
		c.backspaceLocked()
	default:
		c.putGlyphLocked(b)
	}
}

// WriteStr writes each byte of s via WriteByte, in order.
func (c *Console) WriteStr(s string) {
	for i := 0; i < len(s); i++ {
		c.WriteByte(s[i])
	}
}

// WriteString implements klog.Sink and io.StringWriter so the console can
// serve as the fatal-diagnostic sink.
func (c *Console) WriteString(s string) (int, error) {
	c.WriteStr(s)
	return len(s), nil
}

func (c *Console) putGlyphLocked(b byte) {
	c.cells[c.cursorRow][c.cursorCol] = Cell{Ascii: b, Color: packColor(c.curFG, c.curBG)}
	c.cursorCol++
	if c.cursorCol >= Cols {
		c.cursorCol = 0
		c.newlineAdvanceLocked()
	}
}

func (c *Console) newlineLocked() {
	c.cursorCol = 0
	c.newlineAdvanceLocked()
}

func (c *Console) newlineAdvanceLocked() {
	c.cursorRow++
	if c.cursorRow >= Rows {
		c.scrollLocked()
		c.cursorRow = Rows - 1
	}
}

func (c *Console) scrollLocked() {
	for r := 1; r < Rows; r++ {
		c.cells[r-1] = c.cells[r]
	}
	blank := Cell{Ascii: ' ', Color: packColor(c.curFG, c.curBG)}
	for col := range c.cells[Rows-1] {
		c.cells[Rows-1][col] = blank
	}
}

func (c *Console) backspaceLocked() {
	if c.cursorCol > 0 {
		c.cursorCol--
	} else if c.cursorRow > 0 {
		c.cursorRow--
		c.cursorCol = Cols - 1
	}
	c.cells[c.cursorRow][c.cursorCol] = Cell{Ascii: ' ', Color: packColor(c.curFG, c.curBG)}
}

// applySGR interprets the SGR codes of a complete CSI ... 'm' sequence.
// Codes outside {0, 30-37, 90-97} pass through unconsumed, per spec.md §6.
func (c *Console) applySGR(seq []byte) {
	s := string(seq)
	if !strings.HasSuffix(s, "m") || len(s) < 3 {
		return
	}
	body := strings.TrimSuffix(strings.TrimPrefix(s, "\x1b["), "m")
	if body == "" {
		body = "0"
	}
	for _, field := range strings.Split(body, ";") {
		code := 0
		for _, r := range field {
			if r < '0' || r > '9' {
				code = -1
				break
			}
			code = code*10 + int(r-'0')
		}
		switch {
		case code == 0:
			c.curFG, c.curBG = defaultFG, defaultBG
		case code >= 30 && code <= 37:
			c.curFG = normalFG[code-30]
		case code >= 90 && code <= 97:
			c.curFG = brightFG[code-90]
		default:
			// Unhandled SGR code: pass through (no-op), matching spec.md §6.
		}
	}
}

var normalFG = [8]Color{Black, Red, Green, Brown, Blue, Magenta, Cyan, LightGrey}
var brightFG = [8]Color{DarkGrey, LightRed, LightGreen, Yellow, LightBlue, LightMagenta, LightCyan, White}

// Snapshot returns a copy of the current grid, for tests.
func (c *Console) Snapshot() [Rows][Cols]Cell {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cells
}

// CursorPosition returns the current (row, col), for tests.
func (c *Console) CursorPosition() (row, col int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursorRow, c.cursorCol
}

// IOPorts implements ports.Device for the cursor index/data ports.
func (c *Console) IOPorts() []uint16 {
	return []uint16{cursorIndexPort, cursorDataPort}
}

// ReadIOPort implements ports.Device; the cursor ports are write-only on
// real hardware but report the selected index byte if read back.
func (c *Console) ReadIOPort(port uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range data {
		switch port {
		case cursorIndexPort:
			data[i] = boolToByte(c.cursorHigh)
		case cursorDataPort:
			pos := c.cursorRow*Cols + c.cursorCol
			if c.cursorHigh {
				data[i] = byte(pos >> 8)
			} else {
				data[i] = byte(pos)
			}
		}
	}
	return nil
}

// WriteIOPort implements ports.Device: writing cursorHighIndex/cursorLowIndex
// to the index port selects which half of the linear cursor offset the next
// data-port write supplies, matching the real CRTC register protocol.
func (c *Console) WriteIOPort(port uint16, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range data {
		switch port {
		case cursorIndexPort:
			c.cursorHigh = v == cursorHighIndex
			_ = cursorLowIndex
		case cursorDataPort:
			pos := c.cursorRow*Cols + c.cursorCol
			if c.cursorHigh {
				pos = (pos & 0x00FF) | int(v)<<8
			} else {
				pos = (pos & 0xFF00) | int(v)
			}
			c.cursorRow = pos / Cols
			c.cursorCol = pos % Cols
		}
	}
	return nil
}

func boolToByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
