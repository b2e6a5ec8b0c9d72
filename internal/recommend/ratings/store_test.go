// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package ratings

import (
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/tomtom215/animerec/internal/recommend"
)

func sampleInteractions() []recommend.Interaction {
	return []recommend.Interaction{
		{UserID: 30, ItemID: 7, Rating: 8},
		{UserID: 10, ItemID: 5, Rating: 6},
		{UserID: 10, ItemID: 7, Rating: 9},
		{UserID: 20, ItemID: 9, Rating: 4},
		{UserID: 30, ItemID: 5, Rating: 10},
	}
}

func TestNew_Validation(t *testing.T) {
	scale := recommend.DefaultRatingScale()

	tests := []struct {
		name         string
		interactions []recommend.Interaction
		scale        recommend.RatingScale
		wantErr      error
	}{
		{
			name:    "empty input",
			scale:   scale,
			wantErr: recommend.ErrEmptyDataset,
		},
		{
			name:         "rating above scale",
			interactions: []recommend.Interaction{{UserID: 1, ItemID: 1, Rating: 11}},
			scale:        scale,
			wantErr:      recommend.ErrValidation,
		},
		{
			name:         "rating below scale",
			interactions: []recommend.Interaction{{UserID: 1, ItemID: 1, Rating: 0.5}},
			scale:        scale,
			wantErr:      recommend.ErrValidation,
		},
		{
			name:         "NaN rating",
			interactions: []recommend.Interaction{{UserID: 1, ItemID: 1, Rating: math.NaN()}},
			scale:        scale,
			wantErr:      recommend.ErrValidation,
		},
		{
			name:         "inverted scale",
			interactions: []recommend.Interaction{{UserID: 1, ItemID: 1, Rating: 5}},
			scale:        recommend.RatingScale{Min: 10, Max: 1},
			wantErr:      recommend.ErrValidation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.interactions, tt.scale)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("New() error = %v, want %v", err, tt.wantErr)
			}
		})
	}

	t.Run("empty dataset is a validation error", func(t *testing.T) {
		if !errors.Is(recommend.ErrEmptyDataset, recommend.ErrValidation) {
			t.Error("ErrEmptyDataset should match ErrValidation")
		}
	})
}

func TestNew_AscendingIndices(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := s.Users().IDs(); !reflect.DeepEqual(got, []int{10, 20, 30}) {
		t.Errorf("user ids = %v, want [10 20 30]", got)
	}
	if got := s.Items().IDs(); !reflect.DeepEqual(got, []int{5, 7, 9}) {
		t.Errorf("item ids = %v, want [5 7 9]", got)
	}
	if s.NumUsers() != 3 || s.NumItems() != 3 || s.Len() != 5 {
		t.Errorf("shape = %d users, %d items, %d ratings", s.NumUsers(), s.NumItems(), s.Len())
	}

	idx, ok := s.UserIndex(30)
	if !ok || idx != 2 {
		t.Errorf("UserIndex(30) = %d, %v; want 2, true", idx, ok)
	}
	if _, ok := s.ItemIndex(42); ok {
		t.Error("ItemIndex(42) should report false")
	}
	if s.ItemID(1) != 7 {
		t.Errorf("ItemID(1) = %d, want 7", s.ItemID(1))
	}
}

func TestStore_Rating(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	tests := []struct {
		name   string
		user   int
		item   int
		want   float64
		wantOK bool
	}{
		{"present", 10, 7, 9, true},
		{"present other column", 30, 5, 10, true},
		{"absent pair", 20, 5, 0, false},
		{"unknown user", 99, 5, 0, false},
		{"unknown item", 10, 99, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := s.Rating(tt.user, tt.item)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Rating(%d, %d) = %v, %v; want %v, %v", tt.user, tt.item, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestStore_InteractionsOf(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if got := s.InteractionsOf(30); !reflect.DeepEqual(got, []int{0, 1}) {
		t.Errorf("InteractionsOf(30) = %v, want [0 1]", got)
	}
	if got := s.InteractionsOf(404); got == nil || len(got) != 0 {
		t.Errorf("InteractionsOf(unknown) = %v, want empty non-nil slice", got)
	}

	got := s.InteractionsOf(10)
	got[0] = 99
	if again := s.InteractionsOf(10); again[0] != 0 {
		t.Error("InteractionsOf should return a copy")
	}
}

func TestStore_ColumnsMatchRows(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 0; i < s.NumItems(); i++ {
		users, values := s.ItemColumn(i)
		for k, u := range users {
			if k > 0 && users[k-1] >= u {
				t.Errorf("column %d users not ascending: %v", i, users)
			}
			r, ok := s.RatingAt(u, i)
			if !ok || r != values[k] {
				t.Errorf("column %d user %d = %v, row says %v (%v)", i, u, values[k], r, ok)
			}
		}
	}

	if got := s.ItemCounts(); !reflect.DeepEqual(got, []int{2, 2, 1}) {
		t.Errorf("ItemCounts() = %v, want [2 2 1]", got)
	}
}

func TestStore_Duplicates(t *testing.T) {
	interactions := []recommend.Interaction{
		{UserID: 1, ItemID: 1, Rating: 3},
		{UserID: 1, ItemID: 2, Rating: 5},
		{UserID: 1, ItemID: 1, Rating: 7},
		{UserID: 1, ItemID: 1, Rating: 9},
	}

	s, err := New(interactions, recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if s.Duplicates() != 2 {
		t.Errorf("Duplicates() = %d, want 2", s.Duplicates())
	}
	if r, _ := s.Rating(1, 1); r != 9 {
		t.Errorf("Rating(1, 1) = %v, want last occurrence 9", r)
	}
	if s.Len() != 2 {
		t.Errorf("Len() = %d, want 2", s.Len())
	}
}

func TestStore_UserMeans(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	want := []float64{7.5, 4, 9}
	if got := s.UserMeans(); !reflect.DeepEqual(got, want) {
		t.Errorf("UserMeans() = %v, want %v", got, want)
	}
}

func TestStore_InteractionsRoundTrip(t *testing.T) {
	s, err := New(sampleInteractions(), recommend.DefaultRatingScale())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	rebuilt, err := New(s.Interactions(), s.Scale())
	if err != nil {
		t.Fatalf("New(Interactions()) error = %v", err)
	}

	if !reflect.DeepEqual(s.Interactions(), rebuilt.Interactions()) {
		t.Error("round trip through Interactions() changed the store")
	}
	if first := s.Interactions()[0]; first.UserID != 10 || first.ItemID != 5 {
		t.Errorf("first interaction = %+v, want user 10 item 5", first)
	}
}
