package console

import "testing"

func TestWriteStrAdvancesCursor(t *testing.T) {
	c := New()
	c.WriteStr("hi")
	row, col := c.CursorPosition()
	if row != 0 || col != 2 {
		t.Fatalf("cursor = (%d,%d), want (0,2)", row, col)
	}
	grid := c.Snapshot()
	if grid[0][0].Ascii != 'h' || grid[0][1].Ascii != 'i' {
		t.Fatalf("unexpected glyphs: %q %q", grid[0][0].Ascii, grid[0][1].Ascii)
	}
}

func TestNewlineAndScroll(t *testing.T) {
	c := New()
	for i := 0; i < Rows+1; i++ {
		c.WriteStr("x\n")
	}
	row, col := c.CursorPosition()
	if row != Rows-1 || col != 0 {
		t.Fatalf("cursor = (%d,%d), want (%d,0)", row, col, Rows-1)
	}
}

func TestBackspaceErasesGlyph(t *testing.T) {
	c := New()
	c.WriteStr("ab")
	c.WriteByte(0x08)
	grid := c.Snapshot()
	if grid[0][1].Ascii != ' ' {
		t.Fatalf("expected erased glyph, got %q", grid[0][1].Ascii)
	}
	_, col := c.CursorPosition()
	if col != 1 {
		t.Fatalf("cursor col = %d, want 1", col)
	}
}

func TestSGRChangesForeground(t *testing.T) {
	c := New()
	c.WriteStr("\x1b[31m")
	c.WriteByte('x')
	grid := c.Snapshot()
	fg := Color(grid[0][0].Color & 0x0F)
	if fg != Red {
		t.Fatalf("fg = %v, want Red", fg)
	}

	c.WriteStr("\x1b[0m")
	c.WriteByte('y')
	grid = c.Snapshot()
	fg = Color(grid[0][1].Color & 0x0F)
	if fg != defaultFG {
		t.Fatalf("fg after reset = %v, want default", fg)
	}
}

func TestCursorPortRoundTrip(t *testing.T) {
	c := New()
	c.WriteStr("abc")
	if err := c.WriteIOPort(cursorIndexPort, []byte{cursorHighIndex}); err != nil {
		t.Fatal(err)
	}
	pos := 0*Cols + 3
	if err := c.WriteIOPort(cursorDataPort, []byte{byte(pos >> 8)}); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteIOPort(cursorIndexPort, []byte{cursorLowIndex}); err != nil {
		t.Fatal(err)
	}
	if err := c.WriteIOPort(cursorDataPort, []byte{byte(pos)}); err != nil {
		t.Fatal(err)
	}
	row, col := c.CursorPosition()
	if row != 0 || col != 3 {
		t.Fatalf("cursor = (%d,%d), want (0,3)", row, col)
	}
}
