// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

// Package evaluation measures a fitted predictor on a held-out split:
// rating error, ranking quality, and catalog-level behavior.
package evaluation

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/split"
	"github.com/tomtom215/animerec/internal/validation"
)

// Options configures Evaluate. Zero sample sizes disable the sampled metric.
type Options struct {
	// K is the list length of the ranking metrics. Default: 10.
	K int `json:"k" koanf:"k" validate:"min=1"`

	// RelevanceThreshold marks a test rating as relevant. Default: 7.
	RelevanceThreshold float64 `json:"relevance_threshold" koanf:"relevance_threshold"`

	// PredictionSample caps the test ratings scored for RMSE and MAE. Default: 10000.
	PredictionSample int `json:"prediction_sample" koanf:"prediction_sample" validate:"min=0"`

	// RankingUsers caps the users scored for the @K metrics. Default: 50.
	RankingUsers int `json:"ranking_users" koanf:"ranking_users" validate:"min=0"`

	// CoverageUsers caps the users whose lists count towards catalog coverage. Default: 100.
	CoverageUsers int `json:"coverage_users" koanf:"coverage_users" validate:"min=0"`

	// ListUsers caps the users scored for diversity and novelty. Default: 50.
	ListUsers int `json:"list_users" koanf:"list_users" validate:"min=0"`

	Seed int64 `json:"seed" koanf:"seed"`
}

// DefaultOptions returns the standard evaluation protocol.
func DefaultOptions() Options {
	return Options{
		K:                  10,
		RelevanceThreshold: 7,
		PredictionSample:   10000,
		RankingUsers:       50,
		CoverageUsers:      100,
		ListUsers:          50,
		Seed:               42,
	}
}

// Report holds every metric of one evaluation run. A metric with nothing to
// average over is 0.
type Report struct {
	RMSE               float64 `json:"rmse"`
	MAE                float64 `json:"mae"`
	PredictionCoverage float64 `json:"prediction_coverage"`

	PrecisionAtK float64 `json:"precision_at_k"`
	RecallAtK    float64 `json:"recall_at_k"`
	NDCGAtK      float64 `json:"ndcg_at_k"`
	MAPAtK       float64 `json:"map_at_k"`
	F1AtK        float64 `json:"f1_at_k"`

	CatalogCoverage float64 `json:"catalog_coverage"`
	Diversity       float64 `json:"diversity"`
	Novelty         float64 `json:"novelty"`

	K              int `json:"k"`
	EvaluatedUsers int `json:"evaluated_users"`
	Predicted      int `json:"predicted"`
	Attempted      int `json:"attempted"`
}

// Metric names used by Report.Metrics and Compare.
const (
	MetricRMSE               = "rmse"
	MetricMAE                = "mae"
	MetricPredictionCoverage = "prediction_coverage"
	MetricPrecision          = "precision_at_k"
	MetricRecall             = "recall_at_k"
	MetricNDCG               = "ndcg_at_k"
	MetricMAP                = "map_at_k"
	MetricF1                 = "f1_at_k"
	MetricCatalogCoverage    = "catalog_coverage"
	MetricDiversity          = "diversity"
	MetricNovelty            = "novelty"
)

// Metrics flattens the report into named values.
func (r *Report) Metrics() map[string]float64 {
	return map[string]float64{
		MetricRMSE:               r.RMSE,
		MetricMAE:                r.MAE,
		MetricPredictionCoverage: r.PredictionCoverage,
		MetricPrecision:          r.PrecisionAtK,
		MetricRecall:             r.RecallAtK,
		MetricNDCG:               r.NDCGAtK,
		MetricMAP:                r.MAPAtK,
		MetricF1:                 r.F1AtK,
		MetricCatalogCoverage:    r.CatalogCoverage,
		MetricDiversity:          r.Diversity,
		MetricNovelty:            r.Novelty,
	}
}

// Evaluate scores p on s. The predictor is expected to have been fit on
// s.Train. It returns ErrValidation for bad options or an empty test set.
func Evaluate(ctx context.Context, p recommend.Predictor, s split.Split, opts Options) (*Report, error) {
	if verr := validation.ValidateStruct(&opts); verr != nil {
		return nil, fmt.Errorf("%w: %s", recommend.ErrValidation, verr.Error())
	}
	if len(s.Test) == 0 {
		return nil, fmt.Errorf("%w: empty test set", recommend.ErrValidation)
	}

	rng := rand.New(rand.NewSource(opts.Seed)) //nolint:gosec // reproducible sampling
	report := &Report{K: opts.K}

	if err := predictionMetrics(ctx, p, s.Test, opts, rng, report); err != nil {
		return nil, err
	}

	train := indexTrain(s.Train)
	if err := rankingMetrics(ctx, p, s.Test, train, opts, rng, report); err != nil {
		return nil, err
	}
	if err := catalogMetrics(ctx, p, train, opts, rng, report); err != nil {
		return nil, err
	}
	return report, nil
}

func predictionMetrics(ctx context.Context, p recommend.Predictor, test []recommend.Interaction, opts Options, rng *rand.Rand, report *Report) error {
	sample := test
	if opts.PredictionSample > 0 && len(test) > opts.PredictionSample {
		sample = make([]recommend.Interaction, opts.PredictionSample)
		for k, idx := range rng.Perm(len(test))[:opts.PredictionSample] {
			sample[k] = test[idx]
		}
	}

	var sq, abs float64
	predicted := 0
	for k, in := range sample {
		if k%1000 == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		pred := p.Predict(in.UserID, in.ItemID)
		if !pred.OK() {
			continue
		}
		d := pred.Rating - in.Rating
		sq += d * d
		abs += math.Abs(d)
		predicted++
	}

	report.Attempted = len(sample)
	report.Predicted = predicted
	report.PredictionCoverage = float64(predicted) / float64(len(sample))
	if predicted > 0 {
		report.RMSE = math.Sqrt(sq / float64(predicted))
		report.MAE = abs / float64(predicted)
	}
	return nil
}

// trainIndex summarizes the training split.
type trainIndex struct {
	users      []int
	seen       map[int]bool
	itemCounts map[int]int
	total      int
}

func indexTrain(train []recommend.Interaction) trainIndex {
	idx := trainIndex{seen: make(map[int]bool), itemCounts: make(map[int]int), total: len(train)}
	for _, in := range train {
		if !idx.seen[in.UserID] {
			idx.seen[in.UserID] = true
			idx.users = append(idx.users, in.UserID)
		}
		idx.itemCounts[in.ItemID]++
	}
	sort.Ints(idx.users)
	return idx
}

// sampleUsers draws at most n of users; n == 0 or n >= len(users) keeps all.
func sampleUsers(users []int, n int, rng *rand.Rand) []int {
	if n <= 0 || n >= len(users) {
		return users
	}
	out := make([]int, n)
	for k, idx := range rng.Perm(len(users))[:n] {
		out[k] = users[idx]
	}
	return out
}

func rankingMetrics(ctx context.Context, p recommend.Predictor, test []recommend.Interaction, train trainIndex, opts Options, rng *rand.Rand, report *Report) error {
	relevant := make(map[int]map[int]bool)
	for _, in := range test {
		if in.Rating < opts.RelevanceThreshold || !train.seen[in.UserID] {
			continue
		}
		if relevant[in.UserID] == nil {
			relevant[in.UserID] = make(map[int]bool)
		}
		relevant[in.UserID][in.ItemID] = true
	}
	eligible := make([]int, 0, len(relevant))
	for u := range relevant {
		eligible = append(eligible, u)
	}
	sort.Ints(eligible)

	var precisions, recalls, ndcgs, aps, f1s []float64
	for _, u := range sampleUsers(eligible, opts.RankingUsers, rng) {
		if err := ctx.Err(); err != nil {
			return err
		}
		recs := p.Recommend(u, opts.K, true)
		if len(recs) == 0 {
			continue
		}
		rel := relevant[u]
		m := scoreList(recs, rel, opts.K)
		precisions = append(precisions, m.precision)
		recalls = append(recalls, m.recall)
		ndcgs = append(ndcgs, m.ndcg)
		aps = append(aps, m.ap)
		f1s = append(f1s, m.f1)
	}

	report.EvaluatedUsers = len(precisions)
	report.PrecisionAtK = mean(precisions)
	report.RecallAtK = mean(recalls)
	report.NDCGAtK = mean(ndcgs)
	report.MAPAtK = mean(aps)
	report.F1AtK = mean(f1s)
	return nil
}

type listScore struct {
	precision, recall, ndcg, ap, f1 float64
}

// scoreList computes the @K metrics of one ranked list with binary relevance.
func scoreList(recs []recommend.ScoredItem, relevant map[int]bool, k int) listScore {
	var hits int
	var dcg, apSum float64
	for pos, it := range recs {
		if pos == k {
			break
		}
		if !relevant[it.ItemID] {
			continue
		}
		hits++
		dcg += 1 / math.Log2(float64(pos+2))
		apSum += float64(hits) / float64(pos+1)
	}

	var idcg float64
	ideal := min(len(relevant), k)
	for pos := 0; pos < ideal; pos++ {
		idcg += 1 / math.Log2(float64(pos+2))
	}

	s := listScore{
		precision: float64(hits) / float64(k),
		recall:    float64(hits) / float64(len(relevant)),
	}
	if idcg > 0 {
		s.ndcg = dcg / idcg
	}
	if ideal > 0 {
		s.ap = apSum / float64(ideal)
	}
	if s.precision+s.recall > 0 {
		s.f1 = 2 * s.precision * s.recall / (s.precision + s.recall)
	}
	return s
}

func catalogMetrics(ctx context.Context, p recommend.Predictor, train trainIndex, opts Options, rng *rand.Rand, report *Report) error {
	recommended := make(map[int]bool)
	for _, u := range sampleUsers(train.users, opts.CoverageUsers, rng) {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, it := range p.Recommend(u, opts.K, true) {
			if train.itemCounts[it.ItemID] > 0 {
				recommended[it.ItemID] = true
			}
		}
	}
	if len(train.itemCounts) > 0 {
		report.CatalogCoverage = float64(len(recommended)) / float64(len(train.itemCounts))
	}

	var diversities, novelties []float64
	for _, u := range sampleUsers(train.users, opts.ListUsers, rng) {
		if err := ctx.Err(); err != nil {
			return err
		}
		recs := p.Recommend(u, opts.K, true)
		if len(recs) >= 2 {
			distinct := make(map[int]bool, len(recs))
			for _, it := range recs {
				distinct[it.ItemID] = true
			}
			diversities = append(diversities, float64(len(distinct))/float64(len(recs)))
		}
		for _, it := range recs {
			if c := train.itemCounts[it.ItemID]; c > 0 {
				novelties = append(novelties, -math.Log2(float64(c)/float64(train.total)))
			}
		}
	}
	report.Diversity = mean(diversities)
	report.Novelty = mean(novelties)
	return nil
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	return stat.Mean(xs, nil)
}

// lowerIsBetter lists the error metrics.
var lowerIsBetter = map[string]bool{MetricRMSE: true, MetricMAE: true}

// Compare names the best model per metric. Errors prefer the lowest value
// and everything else the highest. Ties go to the alphabetically first model.
func Compare(reports map[string]*Report) map[string]string {
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	best := make(map[string]string)
	bestValue := make(map[string]float64)
	for _, name := range names {
		for metric, v := range reports[name].Metrics() {
			// A zero error over zero predictions is not a result.
			if lowerIsBetter[metric] && reports[name].Predicted == 0 {
				continue
			}
			cur, seen := bestValue[metric]
			better := !seen ||
				(lowerIsBetter[metric] && v < cur) ||
				(!lowerIsBetter[metric] && v > cur)
			if better {
				best[metric] = name
				bestValue[metric] = v
			}
		}
	}
	return best
}
