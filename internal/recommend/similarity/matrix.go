// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package similarity

import (
	"fmt"
	"sort"

	"github.com/tomtom215/animerec/internal/recommend"
)

// Entry is one neighbor of a row.
type Entry struct {
	Index int     `json:"index"`
	Score float64 `json:"score"`
}

// Matrix is an immutable sparse square similarity matrix.
//
// Each row keeps its non-zero off-diagonal entries ranked by descending
// score with ties broken by ascending index. The diagonal is implicit.
type Matrix struct {
	n      int
	ptr    []int
	ranked []Entry
	// byIndex[ptr[a]:ptr[a+1]] are positions into ranked ordered by Index.
	byIndex []int
	// positive[a] is the number of leading entries of row a with Score > 0.
	positive []int
	self     []bool
}

// fromRows builds a Matrix from per-row entries sorted by index.
func fromRows(rows [][]Entry, self []bool) *Matrix {
	n := len(rows)
	m := &Matrix{
		n:        n,
		ptr:      make([]int, n+1),
		positive: make([]int, n),
		self:     self,
	}

	total := 0
	for _, r := range rows {
		total += len(r)
	}
	m.ranked = make([]Entry, 0, total)
	m.byIndex = make([]int, total)

	for a, r := range rows {
		lo := len(m.ranked)
		m.ranked = append(m.ranked, r...)
		row := m.ranked[lo:]
		sort.SliceStable(row, func(i, j int) bool {
			return rankLess(row[i], row[j])
		})
		m.ptr[a+1] = len(m.ranked)

		pos := m.byIndex[lo:m.ptr[a+1]]
		for k := range pos {
			pos[k] = lo + k
		}
		sort.Slice(pos, func(i, j int) bool {
			return m.ranked[pos[i]].Index < m.ranked[pos[j]].Index
		})

		m.positive[a] = sort.Search(len(row), func(k int) bool { return row[k].Score <= 0 })
	}
	return m
}

func rankLess(x, y Entry) bool {
	if x.Score != y.Score {
		return x.Score > y.Score
	}
	return x.Index < y.Index
}

// Size returns the number of rows.
func (m *Matrix) Size() int {
	return m.n
}

// NonZero returns the number of stored off-diagonal entries.
func (m *Matrix) NonZero() int {
	return len(m.ranked)
}

// At returns the similarity of rows a and b.
func (m *Matrix) At(a, b int) float64 {
	if a == b {
		if m.self[a] {
			return 1
		}
		return 0
	}
	lo, hi := m.ptr[a], m.ptr[a+1]
	pos := m.byIndex[lo:hi]
	k := sort.Search(len(pos), func(k int) bool { return m.ranked[pos[k]].Index >= b })
	if k < len(pos) && m.ranked[pos[k]].Index == b {
		return m.ranked[pos[k]].Score
	}
	return 0
}

// Neighbors returns every non-zero neighbor of a, ranked. The slice aliases
// internal storage and must not be modified.
func (m *Matrix) Neighbors(a int) []Entry {
	return m.ranked[m.ptr[a]:m.ptr[a+1]]
}

// Positive returns the ranked neighbors of a with a strictly positive score.
func (m *Matrix) Positive(a int) []Entry {
	lo := m.ptr[a]
	return m.ranked[lo : lo+m.positive[a]]
}

// TopK returns at most k positive neighbors of a.
func (m *Matrix) TopK(a, k int) []Entry {
	p := m.Positive(a)
	if k >= 0 && len(p) > k {
		return p[:k]
	}
	return p
}

// CSR exports the matrix in row-compressed form, rows ordered by index.
func (m *Matrix) CSR() (ptr, idx []int, score []float64, self []bool) {
	ptr = make([]int, len(m.ptr))
	copy(ptr, m.ptr)
	idx = make([]int, len(m.ranked))
	score = make([]float64, len(m.ranked))
	for k, p := range m.byIndex {
		idx[k] = m.ranked[p].Index
		score[k] = m.ranked[p].Score
	}
	self = make([]bool, len(m.self))
	copy(self, m.self)
	return ptr, idx, score, self
}

// FromCSR rebuilds a Matrix exported by CSR.
func FromCSR(ptr, idx []int, score []float64, self []bool) (*Matrix, error) {
	if len(ptr) == 0 || len(ptr)-1 != len(self) || len(idx) != len(score) || ptr[len(ptr)-1] != len(idx) {
		return nil, fmt.Errorf("%w: malformed similarity matrix", recommend.ErrValidation)
	}
	n := len(self)
	rows := make([][]Entry, n)
	for a := 0; a < n; a++ {
		if ptr[a] > ptr[a+1] {
			return nil, fmt.Errorf("%w: malformed similarity row %d", recommend.ErrValidation, a)
		}
		row := make([]Entry, 0, ptr[a+1]-ptr[a])
		for k := ptr[a]; k < ptr[a+1]; k++ {
			if idx[k] < 0 || idx[k] >= n {
				return nil, fmt.Errorf("%w: similarity index %d out of range", recommend.ErrValidation, idx[k])
			}
			row = append(row, Entry{Index: idx[k], Score: score[k]})
		}
		rows[a] = row
	}
	selfCopy := make([]bool, n)
	copy(selfCopy, self)
	return fromRows(rows, selfCopy), nil
}
