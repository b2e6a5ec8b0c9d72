// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package ratings holds the sparse user-item rating matrix every model is
// fit on.
//
// A Store is built once from a slice of interactions and is immutable
// afterwards. It keeps the matrix twice, row-compressed by user and
// column-compressed by item, so both neighborhood directions walk contiguous
// memory. External identifiers are remapped to dense indices assigned in
// ascending id order, which makes every index-ordered tie-break also an
// id-ordered one.
package ratings

import (
	"fmt"
	"math"
	"sort"

	"github.com/tomtom215/animerec/internal/recommend"
)

// IDMap is a bijection between external identifiers and dense indices [0, N).
type IDMap struct {
	ids   []int
	index map[int]int
}

// NewIDMap builds a map over the distinct values of ids, indexed in ascending order.
func NewIDMap(ids []int) IDMap {
	sorted := make([]int, len(ids))
	copy(sorted, ids)
	sort.Ints(sorted)

	distinct := sorted[:0]
	for i, id := range sorted {
		if i == 0 || id != sorted[i-1] {
			distinct = append(distinct, id)
		}
	}

	m := IDMap{
		ids:   distinct,
		index: make(map[int]int, len(distinct)),
	}
	for idx, id := range distinct {
		m.index[id] = idx
	}
	return m
}

// Index returns the dense index of id.
func (m IDMap) Index(id int) (int, bool) {
	idx, ok := m.index[id]
	return idx, ok
}

// ID returns the external identifier at idx. It panics when idx is out of range.
func (m IDMap) ID(idx int) int {
	return m.ids[idx]
}

// Len returns the number of identifiers.
func (m IDMap) Len() int {
	return len(m.ids)
}

// IDs returns a copy of the identifiers in index order.
func (m IDMap) IDs() []int {
	out := make([]int, len(m.ids))
	copy(out, m.ids)
	return out
}

// Store is an immutable sparse rating matrix.
//
// Row and column slices returned by UserRow and ItemColumn alias internal
// storage and must not be modified.
type Store struct {
	scale recommend.RatingScale
	users IDMap
	items IDMap

	// CSR by user: items of user u are colIdx[rowPtr[u]:rowPtr[u+1]], ascending.
	rowPtr  []int
	colIdx  []int
	rowVals []float64

	// CSC by item: users of item i are rowIdx[colPtr[i]:colPtr[i+1]], ascending.
	colPtr  []int
	rowIdx  []int
	colVals []float64

	userMeans  []float64
	duplicates int
}

type cell struct {
	user, item int
	rating     float64
}

// New validates interactions and builds a Store.
//
// Every rating must be finite and inside scale. A (user, item) pair that
// appears more than once keeps its last occurrence; Duplicates reports how
// many earlier occurrences were dropped.
func New(interactions []recommend.Interaction, scale recommend.RatingScale) (*Store, error) {
	if err := scale.Validate(); err != nil {
		return nil, err
	}
	if len(interactions) == 0 {
		return nil, recommend.ErrEmptyDataset
	}

	userIDs := make([]int, len(interactions))
	itemIDs := make([]int, len(interactions))
	for i, in := range interactions {
		if math.IsNaN(in.Rating) || !scale.Contains(in.Rating) {
			return nil, fmt.Errorf("%w: interaction %d (user %d, item %d) has rating %v outside [%v, %v]",
				recommend.ErrValidation, i, in.UserID, in.ItemID, in.Rating, scale.Min, scale.Max)
		}
		userIDs[i] = in.UserID
		itemIDs[i] = in.ItemID
	}

	s := &Store{
		scale: scale,
		users: NewIDMap(userIDs),
		items: NewIDMap(itemIDs),
	}

	type pair struct{ user, item int }
	last := make(map[pair]int, len(interactions))
	for i, in := range interactions {
		last[pair{in.UserID, in.ItemID}] = i
	}
	s.duplicates = len(interactions) - len(last)

	cells := make([]cell, 0, len(last))
	for p, pos := range last {
		u, _ := s.users.Index(p.user)
		it, _ := s.items.Index(p.item)
		cells = append(cells, cell{user: u, item: it, rating: interactions[pos].Rating})
	}
	sort.Slice(cells, func(a, b int) bool {
		if cells[a].user != cells[b].user {
			return cells[a].user < cells[b].user
		}
		return cells[a].item < cells[b].item
	})

	s.build(cells)
	return s, nil
}

// build fills the CSR and CSC arrays from cells sorted by (user, item).
func (s *Store) build(cells []cell) {
	nUsers, nItems, nnz := s.users.Len(), s.items.Len(), len(cells)

	s.rowPtr = make([]int, nUsers+1)
	s.colIdx = make([]int, nnz)
	s.rowVals = make([]float64, nnz)
	s.colPtr = make([]int, nItems+1)

	for k, c := range cells {
		s.rowPtr[c.user+1]++
		s.colPtr[c.item+1]++
		s.colIdx[k] = c.item
		s.rowVals[k] = c.rating
	}
	for u := 0; u < nUsers; u++ {
		s.rowPtr[u+1] += s.rowPtr[u]
	}
	for i := 0; i < nItems; i++ {
		s.colPtr[i+1] += s.colPtr[i]
	}

	// Cells arrive in user order, so each column is filled with ascending users.
	s.rowIdx = make([]int, nnz)
	s.colVals = make([]float64, nnz)
	next := make([]int, nItems)
	copy(next, s.colPtr[:nItems])
	for _, c := range cells {
		pos := next[c.item]
		s.rowIdx[pos] = c.user
		s.colVals[pos] = c.rating
		next[c.item]++
	}

	s.userMeans = make([]float64, nUsers)
	for u := 0; u < nUsers; u++ {
		vals := s.rowVals[s.rowPtr[u]:s.rowPtr[u+1]]
		var sum float64
		for _, v := range vals {
			sum += v
		}
		s.userMeans[u] = sum / float64(len(vals))
	}
}

// Scale returns the rating scale the store was validated against.
func (s *Store) Scale() recommend.RatingScale {
	return s.scale
}

// Users returns the user identifier map.
func (s *Store) Users() IDMap {
	return s.users
}

// Items returns the item identifier map.
func (s *Store) Items() IDMap {
	return s.items
}

// NumUsers returns the number of distinct users.
func (s *Store) NumUsers() int {
	return s.users.Len()
}

// NumItems returns the number of distinct items.
func (s *Store) NumItems() int {
	return s.items.Len()
}

// Len returns the number of stored ratings after duplicate removal.
func (s *Store) Len() int {
	return len(s.colIdx)
}

// Duplicates returns the number of dropped duplicate interactions.
func (s *Store) Duplicates() int {
	return s.duplicates
}

// UserIndex returns the dense index of a user id.
func (s *Store) UserIndex(userID int) (int, bool) {
	return s.users.Index(userID)
}

// ItemIndex returns the dense index of an item id.
func (s *Store) ItemIndex(itemID int) (int, bool) {
	return s.items.Index(itemID)
}

// UserID returns the external id of user index u.
func (s *Store) UserID(u int) int {
	return s.users.ID(u)
}

// ItemID returns the external id of item index i.
func (s *Store) ItemID(i int) int {
	return s.items.ID(i)
}

// Rating returns the stored rating of itemID by userID.
// Unknown ids and absent pairs report false.
func (s *Store) Rating(userID, itemID int) (float64, bool) {
	u, ok := s.users.Index(userID)
	if !ok {
		return 0, false
	}
	i, ok := s.items.Index(itemID)
	if !ok {
		return 0, false
	}
	return s.RatingAt(u, i)
}

// RatingAt returns the rating at dense indices (u, i).
func (s *Store) RatingAt(u, i int) (float64, bool) {
	lo, hi := s.rowPtr[u], s.rowPtr[u+1]
	k := lo + sort.SearchInts(s.colIdx[lo:hi], i)
	if k < hi && s.colIdx[k] == i {
		return s.rowVals[k], true
	}
	return 0, false
}

// InteractionsOf returns the item indices rated by userID in ascending order.
// An unknown user yields an empty slice.
func (s *Store) InteractionsOf(userID int) []int {
	u, ok := s.users.Index(userID)
	if !ok {
		return []int{}
	}
	items, _ := s.UserRow(u)
	out := make([]int, len(items))
	copy(out, items)
	return out
}

// UserRow returns the item indices and ratings of user index u.
func (s *Store) UserRow(u int) (items []int, values []float64) {
	lo, hi := s.rowPtr[u], s.rowPtr[u+1]
	return s.colIdx[lo:hi], s.rowVals[lo:hi]
}

// ItemColumn returns the user indices and ratings of item index i.
func (s *Store) ItemColumn(i int) (users []int, values []float64) {
	lo, hi := s.colPtr[i], s.colPtr[i+1]
	return s.rowIdx[lo:hi], s.colVals[lo:hi]
}

// UserMean returns the mean rating of user index u.
func (s *Store) UserMean(u int) float64 {
	return s.userMeans[u]
}

// UserMeans returns a copy of every user's mean rating, by index.
func (s *Store) UserMeans() []float64 {
	out := make([]float64, len(s.userMeans))
	copy(out, s.userMeans)
	return out
}

// UserCount returns the number of ratings of user index u.
func (s *Store) UserCount(u int) int {
	return s.rowPtr[u+1] - s.rowPtr[u]
}

// ItemCount returns the number of ratings of item index i.
func (s *Store) ItemCount(i int) int {
	return s.colPtr[i+1] - s.colPtr[i]
}

// ItemCounts returns the number of ratings per item index.
func (s *Store) ItemCounts() []int {
	counts := make([]int, s.items.Len())
	for i := range counts {
		counts[i] = s.ItemCount(i)
	}
	return counts
}

// Interactions returns the stored ratings in (user, item) ascending order.
func (s *Store) Interactions() []recommend.Interaction {
	out := make([]recommend.Interaction, 0, s.Len())
	for u := 0; u < s.users.Len(); u++ {
		userID := s.users.ID(u)
		for k := s.rowPtr[u]; k < s.rowPtr[u+1]; k++ {
			out = append(out, recommend.Interaction{
				UserID: userID,
				ItemID: s.items.ID(s.colIdx[k]),
				Rating: s.rowVals[k],
			})
		}
	}
	return out
}
