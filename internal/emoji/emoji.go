package emoji

// Glyphs is the default picker palette.
var Glyphs = []string{
	"😀", "😂", "😊", "😍", "🤔", "😅", "😢", "😡",
	"👍", "👎", "👏", "🙏", "💪", "🤝", "👌", "✅",
	"🌽", "🌾", "🌱", "🍅", "🥔", "🐄", "🐔", "🚜",
	"☀️", "🌧️", "⛅", "💧", "🔥", "🎉", "❤️", "📦",
}

// Insert appends glyph to the input buffer verbatim.
func Insert(buffer, glyph string) string {
	return buffer + glyph
}

// Picker tracks the emoji panel. Selecting a glyph leaves it open so several
// can be chosen in a row.
type Picker struct {
	glyphs  []string
	columns int
	cursor  int
	open    bool
}

func NewPicker(glyphs []string, columns int) *Picker {
	if len(glyphs) == 0 {
		glyphs = Glyphs
	}
	if columns <= 0 {
		columns = 8
	}
	return &Picker{glyphs: glyphs, columns: columns}
}

func (p *Picker) Open() {
	p.open = true
}

func (p *Picker) Close() {
	p.open = false
}

func (p *Picker) Toggle() {
	p.open = !p.open
}

func (p *Picker) IsOpen() bool {
	return p.open
}

func (p *Picker) Cursor() int {
	return p.cursor
}

func (p *Picker) Columns() int {
	return p.columns
}

func (p *Picker) Glyphs() []string {
	return p.glyphs
}

// Move shifts the cursor by dx columns and dy rows, clamped to the palette.
func (p *Picker) Move(dx, dy int) {
	next := p.cursor + dx + dy*p.columns
	if next < 0 {
		next = 0
	}
	if next >= len(p.glyphs) {
		next = len(p.glyphs) - 1
	}
	p.cursor = next
}

// Select returns the glyph under the cursor.
func (p *Picker) Select() string {
	if len(p.glyphs) == 0 {
		return ""
	}
	return p.glyphs[p.cursor]
}
