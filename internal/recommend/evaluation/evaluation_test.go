// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package evaluation

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/split"
)

// fakePredictor answers from functions.
type fakePredictor struct {
	predict   func(userID, itemID int) recommend.Prediction
	recommend func(userID, n int) []recommend.ScoredItem
}

func (f *fakePredictor) Name() string { return "fake" }

func (f *fakePredictor) Predict(userID, itemID int) recommend.Prediction {
	return f.predict(userID, itemID)
}

func (f *fakePredictor) Recommend(userID, n int, _ bool) []recommend.ScoredItem {
	if f.recommend == nil {
		return []recommend.ScoredItem{}
	}
	return f.recommend(userID, n)
}

func fixture() split.Split {
	return split.Split{
		Train: []recommend.Interaction{
			{UserID: 1, ItemID: 1, Rating: 8},
			{UserID: 1, ItemID: 2, Rating: 4},
			{UserID: 2, ItemID: 1, Rating: 9},
			{UserID: 2, ItemID: 3, Rating: 6},
		},
		Test: []recommend.Interaction{
			{UserID: 1, ItemID: 3, Rating: 9},
			{UserID: 2, ItemID: 2, Rating: 5},
			{UserID: 2, ItemID: 4, Rating: 7},
		},
	}
}

func lookup(s split.Split, offset float64) func(int, int) recommend.Prediction {
	return func(u, i int) recommend.Prediction {
		for _, in := range s.Test {
			if in.UserID == u && in.ItemID == i {
				return recommend.Predicted(in.Rating + offset)
			}
		}
		return recommend.Unknown()
	}
}

func TestEvaluate_AlwaysSentinel(t *testing.T) {
	t.Parallel()
	p := &fakePredictor{predict: func(int, int) recommend.Prediction { return recommend.Unknown() }}

	report, err := Evaluate(context.Background(), p, fixture(), DefaultOptions())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	for name, v := range report.Metrics() {
		if v != 0 || math.IsNaN(v) {
			t.Errorf("%s = %v, want 0", name, v)
		}
	}
	if report.EvaluatedUsers != 0 || report.Predicted != 0 || report.Attempted != 3 {
		t.Errorf("counts = %d users, %d/%d predicted", report.EvaluatedUsers, report.Predicted, report.Attempted)
	}
}

func TestEvaluate_PredictionError(t *testing.T) {
	t.Parallel()
	s := fixture()

	tests := []struct {
		name     string
		offset   float64
		wantRMSE float64
		wantMAE  float64
	}{
		{"exact", 0, 0, 0},
		{"off by one", 1, 1, 1},
		{"off by minus two", -2, 2, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := &fakePredictor{predict: lookup(s, tt.offset)}
			report, err := Evaluate(context.Background(), p, s, DefaultOptions())
			if err != nil {
				t.Fatalf("Evaluate() error = %v", err)
			}
			if math.Abs(report.RMSE-tt.wantRMSE) > 1e-12 || math.Abs(report.MAE-tt.wantMAE) > 1e-12 {
				t.Errorf("RMSE, MAE = %v, %v, want %v, %v", report.RMSE, report.MAE, tt.wantRMSE, tt.wantMAE)
			}
			if report.PredictionCoverage != 1 {
				t.Errorf("PredictionCoverage = %v, want 1", report.PredictionCoverage)
			}
		})
	}
}

func TestEvaluate_PartialCoverage(t *testing.T) {
	t.Parallel()
	s := fixture()
	p := &fakePredictor{predict: func(u, i int) recommend.Prediction {
		if u == 1 {
			return recommend.Predicted(7)
		}
		return recommend.Insufficient()
	}}

	report, err := Evaluate(context.Background(), p, s, DefaultOptions())
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if math.Abs(report.PredictionCoverage-1.0/3) > 1e-12 {
		t.Errorf("PredictionCoverage = %v, want 1/3", report.PredictionCoverage)
	}
	if report.RMSE != 2 || report.MAE != 2 {
		t.Errorf("RMSE, MAE = %v, %v, want 2, 2", report.RMSE, report.MAE)
	}
}

func TestScoreList(t *testing.T) {
	t.Parallel()
	recs := []recommend.ScoredItem{{ItemID: 10}, {ItemID: 20}, {ItemID: 30}}
	relevant := map[int]bool{10: true, 30: true, 40: true}

	got := scoreList(recs, relevant, 3)

	idcg := 1 + 1/math.Log2(3) + 0.5
	want := listScore{
		precision: 2.0 / 3,
		recall:    2.0 / 3,
		ndcg:      1.5 / idcg,
		ap:        (1 + 2.0/3) / 3,
		f1:        2.0 / 3,
	}
	check := func(name string, got, want float64) {
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("%s = %v, want %v", name, got, want)
		}
	}
	check("precision", got.precision, want.precision)
	check("recall", got.recall, want.recall)
	check("ndcg", got.ndcg, want.ndcg)
	check("ap", got.ap, want.ap)
	check("f1", got.f1, want.f1)
}

func TestEvaluate_RankingAndCatalog(t *testing.T) {
	t.Parallel()
	s := fixture()
	// Everyone gets items 3 and 4: user 1 hits item 3, user 2 hits item 4.
	p := &fakePredictor{
		predict: lookup(s, 0),
		recommend: func(int, int) []recommend.ScoredItem {
			return []recommend.ScoredItem{{ItemID: 3, Score: 9}, {ItemID: 4, Score: 8}}
		},
	}
	opts := DefaultOptions()
	opts.K = 2

	report, err := Evaluate(context.Background(), p, s, opts)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}

	if report.EvaluatedUsers != 2 {
		t.Errorf("EvaluatedUsers = %d, want 2", report.EvaluatedUsers)
	}
	if report.PrecisionAtK != 0.5 || report.RecallAtK != 1 {
		t.Errorf("precision, recall = %v, %v, want 0.5, 1", report.PrecisionAtK, report.RecallAtK)
	}
	// Train covers items 1..3; item 4 is outside the catalog.
	if math.Abs(report.CatalogCoverage-1.0/3) > 1e-12 {
		t.Errorf("CatalogCoverage = %v, want 1/3", report.CatalogCoverage)
	}
	if report.Diversity != 1 {
		t.Errorf("Diversity = %v, want 1", report.Diversity)
	}
	// Only item 3 is known to train: 1 of 4 ratings.
	if math.Abs(report.Novelty-2) > 1e-12 {
		t.Errorf("Novelty = %v, want 2", report.Novelty)
	}
}

func TestEvaluate_Validation(t *testing.T) {
	t.Parallel()
	p := &fakePredictor{predict: func(int, int) recommend.Prediction { return recommend.Unknown() }}

	if _, err := Evaluate(context.Background(), p, split.Split{Train: fixture().Train}, DefaultOptions()); !errors.Is(err, recommend.ErrValidation) {
		t.Errorf("empty test error = %v, want ErrValidation", err)
	}
	opts := DefaultOptions()
	opts.K = 0
	if _, err := Evaluate(context.Background(), p, fixture(), opts); !errors.Is(err, recommend.ErrValidation) {
		t.Errorf("K=0 error = %v, want ErrValidation", err)
	}
}

func TestEvaluate_Cancelled(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p := &fakePredictor{predict: func(int, int) recommend.Prediction { return recommend.Unknown() }}

	if _, err := Evaluate(ctx, p, fixture(), DefaultOptions()); !errors.Is(err, context.Canceled) {
		t.Errorf("Evaluate() error = %v, want context.Canceled", err)
	}
}

func TestCompare(t *testing.T) {
	t.Parallel()
	reports := map[string]*Report{
		"item_based_cf": {RMSE: 1.2, MAE: 0.9, PrecisionAtK: 0.10, Novelty: 7, Predicted: 100},
		"user_based_cf": {RMSE: 1.1, MAE: 0.9, PrecisionAtK: 0.05, Novelty: 9, Predicted: 100},
		"empty":         {PrecisionAtK: 0},
	}

	best := Compare(reports)
	want := map[string]string{
		MetricRMSE:      "user_based_cf",
		MetricMAE:       "item_based_cf",
		MetricPrecision: "item_based_cf",
		MetricNovelty:   "user_based_cf",
	}
	for metric, name := range want {
		if best[metric] != name {
			t.Errorf("best %s = %q, want %q", metric, best[metric], name)
		}
	}
}
