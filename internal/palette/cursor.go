package palette

// PageStep is how far PageUp and PageDown move.
const PageStep = 10

// Cursor is the selected index in a list of n results. The index is always
// within [0, n-1], or 0 when the list is empty.
type Cursor struct {
	index int
	n     int
}

// NewCursor creates a cursor at the top of a list of n results.
func NewCursor(n int) *Cursor {
	return &Cursor{n: max(n, 0)}
}

// Reset moves to the top of a new list of n results.
func (c *Cursor) Reset(n int) {
	c.n = max(n, 0)
	c.index = 0
}

// Index returns the selected index.
func (c *Cursor) Index() int { return c.index }

// Len returns the list length.
func (c *Cursor) Len() int { return c.n }

// Up moves one entry up.
func (c *Cursor) Up() { c.move(-1) }

// Down moves one entry down.
func (c *Cursor) Down() { c.move(1) }

// PageUp moves PageStep entries up.
func (c *Cursor) PageUp() { c.move(-PageStep) }

// PageDown moves PageStep entries down.
func (c *Cursor) PageDown() { c.move(PageStep) }

// Home selects the first entry.
func (c *Cursor) Home() { c.index = 0 }

// End selects the last entry.
func (c *Cursor) End() { c.index = max(c.n-1, 0) }

// Set selects i, clamped to the list.
func (c *Cursor) Set(i int) {
	c.index = clamp(i, c.n)
}

func (c *Cursor) move(delta int) {
	c.index = clamp(c.index+delta, c.n)
}

func clamp(i, n int) int {
	if n <= 0 || i < 0 {
		return 0
	}
	return min(i, n-1)
}
