// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package similarity computes sparse user-user and item-item similarity
// matrices over a ratings.Store.
//
// Dot products are accumulated sparse-sparse: for row a, every stored value
// x(a,k) is multiplied into each row b that also holds k. Terms are added in
// ascending k for every pair, so At(a,b) and At(b,a) are bit-for-bit equal.
//
// Adjusted cosine subtracts each user's mean rating from every rating of
// that user before the dot products. The centered values are a private copy;
// the Store is never modified.
package similarity

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// Axis selects which entities are compared.
type Axis int

const (
	// UserAxis compares users by the items they rated.
	UserAxis Axis = iota
	// ItemAxis compares items by the users who rated them.
	ItemAxis
)

// String returns the axis name.
func (a Axis) String() string {
	if a == ItemAxis {
		return "item"
	}
	return "user"
}

// Metric is a similarity function.
type Metric string

const (
	// Cosine is plain cosine similarity of raw rating vectors.
	Cosine Metric = "cosine"
	// AdjustedCosine is cosine similarity of user-mean-centered rating vectors.
	AdjustedCosine Metric = "adjusted_cosine"
)

// ParseMetric converts a configuration string into a Metric.
func ParseMetric(s string) (Metric, error) {
	switch Metric(s) {
	case Cosine, AdjustedCosine:
		return Metric(s), nil
	default:
		return "", fmt.Errorf("%w: unknown similarity metric %q", recommend.ErrValidation, s)
	}
}

// Options configures Compute.
type Options struct {
	Axis   Axis
	Metric Metric

	// MinSupport treats rows with fewer ratings than this as empty.
	MinSupport int

	// Workers bounds the number of goroutines. Zero uses GOMAXPROCS.
	Workers int
}

// sparse is a compressed row matrix.
type sparse struct {
	ptr []int
	idx []int
	val []float64
}

func (s *sparse) row(a int) ([]int, []float64) {
	return s.idx[s.ptr[a]:s.ptr[a+1]], s.val[s.ptr[a]:s.ptr[a+1]]
}

// Compute builds the similarity matrix of store along opts.Axis.
func Compute(ctx context.Context, store *ratings.Store, opts Options) (*Matrix, error) {
	if opts.Metric == "" {
		opts.Metric = Cosine
	}
	if _, err := ParseMetric(string(opts.Metric)); err != nil {
		return nil, err
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	rows, cols := vectors(store, opts.Axis, opts.Metric == AdjustedCosine)
	n := len(rows.ptr) - 1

	active := make([]bool, n)
	norms := make([]float64, n)
	for a := 0; a < n; a++ {
		idx, val := rows.row(a)
		if len(idx) == 0 || len(idx) < opts.MinSupport {
			continue
		}
		active[a] = true
		var sq float64
		for _, v := range val {
			sq += v * v
		}
		norms[a] = math.Sqrt(sq)
	}

	out := make([][]Entry, n)
	chunk := (n + workers - 1) / workers
	if chunk < 64 {
		chunk = 64
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		g.Go(func() error {
			acc := make([]float64, n)
			seen := make([]bool, n)
			touched := make([]int, 0, 256)
			for a := start; a < end; a++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				if !active[a] || norms[a] == 0 {
					continue
				}
				out[a] = computeRow(a, &rows, &cols, active, norms, acc, seen, touched[:0])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("compute %s similarity: %w", opts.Axis, err)
	}

	self := make([]bool, n)
	for a := 0; a < n; a++ {
		self[a] = active[a] && norms[a] > 0
	}
	return fromRows(out, self), nil
}

// computeRow returns the non-zero similarities of row a, excluding a itself.
func computeRow(a int, rows, cols *sparse, active []bool, norms, acc []float64, seen []bool, touched []int) []Entry {
	idx, val := rows.row(a)
	for p, k := range idx {
		x := val[p]
		others, ys := cols.row(k)
		for q, b := range others {
			if b == a || !active[b] {
				continue
			}
			if !seen[b] {
				seen[b] = true
				touched = append(touched, b)
			}
			acc[b] += x * ys[q]
		}
	}

	entries := make([]Entry, 0, len(touched))
	for _, b := range touched {
		dot := acc[b]
		acc[b] = 0
		seen[b] = false
		if norms[b] == 0 {
			continue
		}
		score := dot / (norms[a] * norms[b])
		if score > 1 {
			score = 1
		} else if score < -1 {
			score = -1
		}
		if score != 0 {
			entries = append(entries, Entry{Index: b, Score: score})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return entries
}

// vectors returns the rows to compare and their transpose, centered by user
// mean when centered is set.
func vectors(store *ratings.Store, axis Axis, centered bool) (rows, cols sparse) {
	users := compress(store.NumUsers(), store.Len(), func(u int) ([]int, []float64) {
		items, vals := store.UserRow(u)
		if !centered {
			return items, vals
		}
		mean := store.UserMean(u)
		out := make([]float64, len(vals))
		for k, v := range vals {
			out[k] = v - mean
		}
		return items, out
	})
	items := compress(store.NumItems(), store.Len(), func(i int) ([]int, []float64) {
		us, vals := store.ItemColumn(i)
		if !centered {
			return us, vals
		}
		out := make([]float64, len(vals))
		for k, v := range vals {
			out[k] = v - store.UserMean(us[k])
		}
		return us, out
	})

	if axis == ItemAxis {
		return items, users
	}
	return users, items
}

func compress(n, nnz int, row func(int) ([]int, []float64)) sparse {
	s := sparse{
		ptr: make([]int, n+1),
		idx: make([]int, 0, nnz),
		val: make([]float64, 0, nnz),
	}
	for a := 0; a < n; a++ {
		idx, val := row(a)
		s.idx = append(s.idx, idx...)
		s.val = append(s.val, val...)
		s.ptr[a+1] = len(s.idx)
	}
	return s
}
