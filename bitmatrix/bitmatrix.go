// Package bitmatrix implements the packed rows×cols bit matrix used as the
// per-tree in-bag mask. It is built once per tree and read concurrently
// (never written concurrently) during prediction, so there is no internal
// locking — callers serialize writes per (row, tree).
package bitmatrix

import "math/bits"

const wordBits = 64

// Matrix is a packed rows×cols bit matrix, row-major: bit (r, c) lives in
// word r*wordsPerRow + c/64.
type Matrix struct {
	rows, cols  int
	wordsPerRow int
	words       []uint64
}

// New allocates a zeroed rows×cols matrix.
func New(rows, cols int) *Matrix {
	wordsPerRow := (cols + wordBits - 1) / wordBits
	if wordsPerRow == 0 {
		wordsPerRow = 1
	}
	return &Matrix{
		rows:        rows,
		cols:        cols,
		wordsPerRow: wordsPerRow,
		words:       make([]uint64, rows*wordsPerRow),
	}
}

// Rows returns the number of rows.
func (m *Matrix) Rows() int { return m.rows }

// Cols returns the number of columns.
func (m *Matrix) Cols() int { return m.cols }

func (m *Matrix) index(r, c int) (word, bit int) {
	word = r*m.wordsPerRow + c/wordBits
	bit = c % wordBits
	return
}

// Get reports whether bit (r, c) is set.
func (m *Matrix) Get(r, c int) bool {
	word, bit := m.index(r, c)
	return m.words[word]&(uint64(1)<<uint(bit)) != 0
}

// Set sets bit (r, c) to 1.
func (m *Matrix) Set(r, c int) {
	word, bit := m.index(r, c)
	m.words[word] |= uint64(1) << uint(bit)
}

// Clear sets bit (r, c) to 0.
func (m *Matrix) Clear(r, c int) {
	word, bit := m.index(r, c)
	m.words[word] &^= uint64(1) << uint(bit)
}

// CountCol returns the number of set bits in column c (e.g. in-bag count
// for tree c).
func (m *Matrix) CountCol(c int) int {
	n := 0
	for r := 0; r < m.rows; r++ {
		if m.Get(r, c) {
			n++
		}
	}
	return n
}

// CountRowWord is an internal helper exposed for tests: it returns the
// popcount of whole words, used to sanity-check Set/Get against a
// reference popcount.
func (m *Matrix) CountRowWord(r int) int {
	n := 0
	base := r * m.wordsPerRow
	for w := 0; w < m.wordsPerRow; w++ {
		n += bits.OnesCount64(m.words[base+w])
	}
	return n
}

// Words exposes the packed backing storage for serialization.
func (m *Matrix) Words() []uint64 {
	return m.words
}

// WordsPerRow returns the row stride in 64-bit words, needed to
// reconstruct a Matrix from persisted Words().
func (m *Matrix) WordsPerRow() int {
	return m.wordsPerRow
}

// FromWords reconstructs a Matrix from a previously persisted Words()
// slice; the caller must supply the same rows/cols/WordsPerRow used to
// produce it.
func FromWords(rows, cols, wordsPerRow int, words []uint64) *Matrix {
	return &Matrix{rows: rows, cols: cols, wordsPerRow: wordsPerRow, words: words}
}
