// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"sort"

	"github.com/tomtom215/animerec/internal/recommend"
)

// accumulator holds per-item weighted sums for one vectorized recommend pass.
//
// Contributions must be offered per item in the same order Predict visits
// neighbors, so that the capped sums match Predict bit for bit.
type accumulator struct {
	k     int
	num   []float64
	den   []float64
	count []int
}

func newAccumulator(items, k int) *accumulator {
	return &accumulator{
		k:     k,
		num:   make([]float64, items),
		den:   make([]float64, items),
		count: make([]int, items),
	}
}

func (a *accumulator) add(item int, sim, rating float64) {
	if a.count[item] >= a.k {
		return
	}
	a.num[item] += sim * rating
	a.den[item] += sim
	a.count[item]++
}

// rank turns the sums into the top n items, skipping masked ones.
func (n *neighborhood) rank(acc *accumulator, limit int, mask []bool) []recommend.ScoredItem {
	scale := n.store.Scale()
	top := newTopN(limit)
	for i := range acc.num {
		if acc.count[i] == 0 || (mask != nil && mask[i]) {
			continue
		}
		p := weightedAverage(acc.num[i], acc.den[i], scale)
		if !p.OK() {
			continue
		}
		top.offer(i, p.Rating)
	}
	return top.items(n.store)
}

// Recommend returns the top n items for userID.
//
// Neighbor rows are gathered once and every item is scored in a single
// pass: each positive neighbor, in similarity order, adds its ratings to
// the items it rated until an item has K contributions.
func (m *UserBasedCF) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if m.store == nil || n <= 0 {
		return []recommend.ScoredItem{}
	}
	u, ok := m.store.UserIndex(userID)
	if !ok {
		return []recommend.ScoredItem{}
	}

	acc := newAccumulator(m.store.NumItems(), m.config.K)
	for _, e := range m.sim.Positive(u) {
		items, values := m.store.UserRow(e.Index)
		for k, i := range items {
			acc.add(i, e.Score, values[k])
		}
	}

	var mask []bool
	if excludeRated {
		mask = ratedMask(m.store, u)
	}
	return m.rank(acc, n, mask)
}

// contribution is one (rated item j -> candidate item) edge.
type contribution struct {
	item   int
	source int
	sim    float64
	rating float64
}

// Recommend returns the top n items for userID.
//
// Every positive neighbor of every item the user rated is a candidate.
// Contributions are sorted per candidate by (similarity desc, source index
// asc), the order Predict walks the candidate's own neighbor list, and then
// accumulated with the K cap.
func (m *ItemBasedCF) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if m.store == nil || n <= 0 {
		return []recommend.ScoredItem{}
	}
	u, ok := m.store.UserIndex(userID)
	if !ok {
		return []recommend.ScoredItem{}
	}

	rated, values := m.store.UserRow(u)
	var edges []contribution
	for k, j := range rated {
		for _, e := range m.sim.Positive(j) {
			edges = append(edges, contribution{item: e.Index, source: j, sim: e.Score, rating: values[k]})
		}
	}
	sort.Slice(edges, func(a, b int) bool {
		x, y := edges[a], edges[b]
		if x.item != y.item {
			return x.item < y.item
		}
		if x.sim != y.sim {
			return x.sim > y.sim
		}
		return x.source < y.source
	})

	acc := newAccumulator(m.store.NumItems(), m.config.K)
	for _, c := range edges {
		acc.add(c.item, c.sim, c.rating)
	}

	var mask []bool
	if excludeRated {
		mask = ratedMask(m.store, u)
	}
	return m.rank(acc, n, mask)
}
