// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package split

import (
	"errors"
	"sort"
	"testing"

	"github.com/tomtom215/animerec/internal/recommend"
)

// dataset gives user u exactly counts[u-1] ratings on items 1..n.
func dataset(counts ...int) []recommend.Interaction {
	var out []recommend.Interaction
	for u, n := range counts {
		for i := 1; i <= n; i++ {
			out = append(out, recommend.Interaction{UserID: u + 1, ItemID: i, Rating: float64(i%10 + 1)})
		}
	}
	return out
}

func sorted(in []recommend.Interaction) []recommend.Interaction {
	out := append([]recommend.Interaction(nil), in...)
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ItemID < out[j].ItemID
	})
	return out
}

func TestByUser_Partition(t *testing.T) {
	t.Parallel()
	input := dataset(10, 4, 5, 23)
	s, err := ByUser(input, DefaultOptions())
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}

	union := sorted(append(append([]recommend.Interaction(nil), s.Train...), s.Test...))
	want := sorted(input)
	if len(union) != len(want) {
		t.Fatalf("union has %d rows, want %d", len(union), len(want))
	}
	for k := range want {
		if union[k] != want[k] {
			t.Fatalf("union[%d] = %+v, want %+v", k, union[k], want[k])
		}
	}

	testPerUser := make(map[int]int)
	for _, in := range s.Test {
		testPerUser[in.UserID]++
	}
	// floor(n*0.2) clamped to [1, n-1]; user 2 is below MinRatings.
	wantPerUser := map[int]int{1: 2, 3: 1, 4: 4}
	if len(testPerUser) != len(wantPerUser) {
		t.Errorf("test users = %v, want %v", testPerUser, wantPerUser)
	}
	for u, n := range wantPerUser {
		if testPerUser[u] != n {
			t.Errorf("user %d has %d test rows, want %d", u, testPerUser[u], n)
		}
	}
}

func TestByUser_KeepsTrainHistory(t *testing.T) {
	t.Parallel()
	s, err := ByUser(dataset(2, 2, 3), Options{TestRatio: 0.9, MinRatings: 2, Seed: 1})
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	train := make(map[int]int)
	for _, in := range s.Train {
		train[in.UserID]++
	}
	for _, in := range s.Test {
		if train[in.UserID] == 0 {
			t.Errorf("test user %d has no training rows", in.UserID)
		}
	}
}

func TestByUser_Deterministic(t *testing.T) {
	t.Parallel()
	input := dataset(12, 30, 7, 9, 15)

	first, err := ByUser(input, DefaultOptions())
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	second, err := ByUser(dataset(12, 30, 7, 9, 15), DefaultOptions())
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	if len(first.Test) != len(second.Test) {
		t.Fatalf("test sizes differ: %d vs %d", len(first.Test), len(second.Test))
	}
	for k := range first.Test {
		if first.Test[k] != second.Test[k] {
			t.Fatalf("Test[%d] differs: %+v vs %+v", k, first.Test[k], second.Test[k])
		}
	}

	other, err := ByUser(dataset(12, 30, 7, 9, 15), Options{TestRatio: 0.2, MinRatings: 5, Seed: 7})
	if err != nil {
		t.Fatalf("ByUser() error = %v", err)
	}
	same := true
	for k := range first.Test {
		if first.Test[k] != other.Test[k] {
			same = false
			break
		}
	}
	if same {
		t.Error("different seeds produced identical test sets")
	}
}

func TestByUser_Validation(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		input   []recommend.Interaction
		opts    Options
		wantErr error
	}{
		{"zero ratio", dataset(5), Options{TestRatio: 0, MinRatings: 5}, recommend.ErrValidation},
		{"ratio of one", dataset(5), Options{TestRatio: 1, MinRatings: 5}, recommend.ErrValidation},
		{"min ratings below two", dataset(5), Options{TestRatio: 0.2, MinRatings: 1}, recommend.ErrValidation},
		{"empty input", nil, DefaultOptions(), recommend.ErrEmptyDataset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ByUser(tt.input, tt.opts); !errors.Is(err, tt.wantErr) {
				t.Errorf("ByUser() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
