package corpus

const growBlock = 1024

// Corpus is the in-memory cell array plus its sentence offset index. The
// offset index always holds one entry more than the number of sentences: the
// last value is the position just past the final terminator.
type Corpus struct {
	cells   []Cell
	offsets []uint32
	readPtr int
}

// New returns an empty corpus ready for AddWord.
func New() *Corpus {
	return &Corpus{
		cells:   make([]Cell, 0, growBlock),
		offsets: append(make([]uint32, 0, growBlock), 0),
	}
}

// AddWord appends a cell. Adding the terminator closes the current sentence
// and records the start of the next one.
func (c *Corpus) AddWord(word WordID, flags uint8) {
	c.cells = append(c.cells, Cell{Word: word, Flags: flags})
	if word == Terminator {
		c.offsets = append(c.offsets, uint32(len(c.cells)))
	}
}

// EndSentence appends the terminator cell.
func (c *Corpus) EndSentence() {
	c.AddWord(Terminator, 0)
}

// Cells exposes the backing cell slice. Callers must not modify it.
func (c *Corpus) Cells() []Cell {
	return c.cells
}

// Offsets exposes the sentence offset index, nil for a corpus loaded without
// its index.
func (c *Corpus) Offsets() []uint32 {
	return c.offsets
}

// Sentences returns the number of complete sentences.
func (c *Corpus) Sentences() int {
	if len(c.offsets) == 0 {
		return 0
	}
	return len(c.offsets) - 1
}

// Sentence returns sentence i including its terminator.
func (c *Corpus) Sentence(i int) ([]Cell, bool) {
	if i < 0 || i+1 >= len(c.offsets) {
		return nil, false
	}
	return c.cells[c.offsets[i]:c.offsets[i+1]], true
}

// RebuildOffsets regenerates the offset index by scanning for terminators.
func (c *Corpus) RebuildOffsets() {
	offsets := make([]uint32, 1, len(c.offsets)+1)
	for i, cell := range c.cells {
		if cell.Word == Terminator {
			offsets = append(offsets, uint32(i+1))
		}
	}
	c.offsets = offsets
}

// MaxWordID returns the largest word id present, 0 for an empty corpus.
func (c *Corpus) MaxWordID() WordID {
	var top WordID
	for _, cell := range c.cells {
		top = max(top, cell.Word)
	}
	return top
}

// FirstSentence rewinds the read cursor and returns the first sentence.
func (c *Corpus) FirstSentence() ([]Cell, bool) {
	c.readPtr = 0
	if len(c.cells) == 0 {
		return nil, false
	}
	return c.cells[:sentenceEnd(c.cells, 0)], true
}

// NextSentence advances the cursor past the current terminator. At the end of
// the data the cursor resets to the start and ok is false.
func (c *Corpus) NextSentence() ([]Cell, bool) {
	p := c.readPtr
	n := len(c.cells)
	for p < n && c.cells[p].Word != Terminator {
		p++
	}
	if p >= n-1 {
		c.readPtr = 0
		return nil, false
	}
	p++
	c.readPtr = p
	return c.cells[p:sentenceEnd(c.cells, p)], true
}

// sentenceEnd returns the index just past the terminator of the sentence
// starting at from, or len(cells) when it is unterminated.
func sentenceEnd(cells []Cell, from int) int {
	for i := from; i < len(cells); i++ {
		if cells[i].Word == Terminator {
			return i + 1
		}
	}
	return len(cells)
}

// SentenceLength counts the cells before the first terminator.
func SentenceLength(cells []Cell) int {
	for i, cell := range cells {
		if cell.Word == Terminator {
			return i
		}
	}
	return len(cells)
}
