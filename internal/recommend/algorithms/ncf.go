// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package algorithms

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/tomtom215/animerec/internal/recommend"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
)

// EpochReport summarizes one NCF training epoch.
type EpochReport struct {
	Epoch     int     `json:"epoch"`
	Epochs    int     `json:"epochs"`
	TrainLoss float64 `json:"train_loss"`
	// ValLoss is zero when no validation slice was held out.
	ValLoss  float64 `json:"val_loss"`
	Improved bool    `json:"improved"`
}

// NeuralCF is neural collaborative filtering: a GMF path (elementwise
// product of user and item embeddings) and an MLP path (concatenated
// embeddings through Linear -> ReLU -> BatchNorm -> Dropout blocks), joined
// by a final linear layer into one rating.
//
// Training minimizes MSE with Adam on mini-batches. A seeded share of the
// training ratings is held out; training stops after Patience epochs
// without validation improvement and the best weights are restored.
type NeuralCF struct {
	BaseAlgorithm
	config NCFConfig
	logger zerolog.Logger

	onEpoch  func(EpochReport)
	batchLog rate.Sometimes

	store *ratings.Store
	net   *ncfNet

	bestValLoss float64
	epochsRun   int
}

// NewNeuralCF creates an untrained NCF model.
//
//nolint:gocritic // config and logger passed by value are intentional
func NewNeuralCF(cfg NCFConfig, logger zerolog.Logger) *NeuralCF {
	return &NeuralCF{
		BaseAlgorithm: NewBaseAlgorithm(NameNeuralCF),
		config:        cfg,
		logger:        logger.With().Str("model", NameNeuralCF).Logger(),
		batchLog:      rate.Sometimes{Interval: 5 * time.Second},
	}
}

// OnEpoch registers a callback invoked after every epoch. Set it before Fit.
func (m *NeuralCF) OnEpoch(fn func(EpochReport)) {
	m.onEpoch = fn
}

// Config returns the hyperparameters.
func (m *NeuralCF) Config() NCFConfig {
	return m.config
}

// Store returns the rating store the model was fit on.
func (m *NeuralCF) Store() *ratings.Store {
	return m.store
}

// Info describes the training data.
func (m *NeuralCF) Info() recommend.ModelInfo {
	return storeInfo(m.name, m.store)
}

// BestValLoss returns the validation MSE of the restored weights, zero when
// no validation slice was used.
func (m *NeuralCF) BestValLoss() float64 {
	return m.bestValLoss
}

// EpochsRun returns the number of epochs the last Fit ran.
func (m *NeuralCF) EpochsRun() int {
	return m.epochsRun
}

// sample is one training rating by dense index.
type sample struct {
	user, item int
	rating     float64
}

// Fit trains the network on store.
func (m *NeuralCF) Fit(ctx context.Context, store *ratings.Store) error {
	if err := m.config.Validate(); err != nil {
		return err
	}
	if store == nil || store.Len() == 0 {
		return recommend.ErrEmptyDataset
	}

	rng := rand.New(rand.NewSource(m.config.Seed)) //nolint:gosec // deterministic training, not security sensitive
	net := newNCFNet(store.NumUsers(), store.NumItems(), &m.config, rng)

	all := make([]sample, 0, store.Len())
	var sum float64
	for u := 0; u < store.NumUsers(); u++ {
		items, values := store.UserRow(u)
		for k, i := range items {
			all = append(all, sample{user: u, item: i, rating: values[k]})
			sum += values[k]
		}
	}
	// Start the output at the mean rating so early epochs fit residuals.
	net.out.b.val[0] = sum / float64(len(all))

	rng.Shuffle(len(all), func(a, b int) { all[a], all[b] = all[b], all[a] })
	nVal := int(float64(len(all)) * m.config.ValidationRatio)
	if nVal >= len(all) {
		nVal = 0
	}
	val, train := all[:nVal], all[nVal:]

	m.logger.Info().
		Int("users", store.NumUsers()).
		Int("items", store.NumItems()).
		Int("train", len(train)).
		Int("validation", len(val)).
		Msg("training neural collaborative filtering")

	opt := newAdam(m.config.LearningRate)
	best := math.Inf(1)
	var bestWeights [][]float64
	stale := 0
	epochs := 0

	for epoch := 1; epoch <= m.config.Epochs; epoch++ {
		trainLoss, err := m.runEpoch(ctx, net, opt, train, rng, epoch)
		if err != nil {
			return err
		}
		epochs = epoch

		report := EpochReport{Epoch: epoch, Epochs: m.config.Epochs, TrainLoss: trainLoss}
		if len(val) > 0 {
			report.ValLoss = validationLoss(net, val)
			if report.ValLoss < best {
				best = report.ValLoss
				bestWeights = net.snapshot()
				stale = 0
				report.Improved = true
			} else {
				stale++
			}
		}

		m.logger.Debug().
			Int("epoch", epoch).
			Float64("train_loss", trainLoss).
			Float64("val_loss", report.ValLoss).
			Msg("epoch complete")
		if m.onEpoch != nil {
			m.onEpoch(report)
		}

		if len(val) > 0 && stale >= m.config.Patience {
			m.logger.Info().Int("epoch", epoch).Msg("early stopping")
			break
		}
	}

	if bestWeights != nil {
		net.load(bestWeights)
		m.bestValLoss = best
	}

	m.store = store
	m.net = net
	m.epochsRun = epochs
	m.markTrained()
	return nil
}

// runEpoch makes one shuffled pass over train and returns the mean batch loss.
func (m *NeuralCF) runEpoch(ctx context.Context, net *ncfNet, opt *adam, train []sample, rng *rand.Rand, epoch int) (float64, error) {
	rng.Shuffle(len(train), func(a, b int) { train[a], train[b] = train[b], train[a] })

	users := make([]int, 0, m.config.BatchSize)
	items := make([]int, 0, m.config.BatchSize)
	var lossSum float64
	batches := 0

	for start := 0; start < len(train); start += m.config.BatchSize {
		if ContextCancelled(ctx) {
			return 0, ctx.Err()
		}
		end := min(start+m.config.BatchSize, len(train))
		// BatchNorm needs at least two rows.
		if end-start < 2 {
			continue
		}

		users, items = users[:0], items[:0]
		for _, s := range train[start:end] {
			users = append(users, s.user)
			items = append(items, s.item)
		}

		pred := net.forward(users, items, true, rng)
		n := float64(len(pred))
		dout := make([]float64, len(pred))
		var loss float64
		for r, p := range pred {
			diff := p - train[start+r].rating
			loss += diff * diff
			dout[r] = 2 * diff / n
		}
		loss /= n

		net.backward(users, items, dout)
		net.step(opt)

		lossSum += loss
		batches++
		m.batchLog.Do(func() {
			m.logger.Debug().
				Int("epoch", epoch).
				Int("batch", batches).
				Float64("loss", loss).
				Msg("training batch")
		})
	}

	if batches == 0 {
		return 0, fmt.Errorf("%w: %d training ratings cannot fill a batch", recommend.ErrInsufficientData, len(train))
	}
	return lossSum / float64(batches), nil
}

const evalBatchSize = 1024

func validationLoss(net *ncfNet, val []sample) float64 {
	var sum float64
	for start := 0; start < len(val); start += evalBatchSize {
		end := min(start+evalBatchSize, len(val))
		users := make([]int, 0, end-start)
		items := make([]int, 0, end-start)
		for _, s := range val[start:end] {
			users = append(users, s.user)
			items = append(items, s.item)
		}
		for r, p := range net.forward(users, items, false, nil) {
			d := p - val[start+r].rating
			sum += d * d
		}
	}
	return sum / float64(len(val))
}

// Predict estimates the rating of itemID by userID.
func (m *NeuralCF) Predict(userID, itemID int) recommend.Prediction {
	if m.net == nil {
		return recommend.Unknown()
	}
	u, okU := m.store.UserIndex(userID)
	i, okI := m.store.ItemIndex(itemID)
	if !okU || !okI {
		return recommend.Unknown()
	}
	out := m.net.forward([]int{u}, []int{i}, false, nil)
	return recommend.Predicted(m.store.Scale().Clip(out[0]))
}

// Recommend scores every item for userID in batched forward passes.
func (m *NeuralCF) Recommend(userID, n int, excludeRated bool) []recommend.ScoredItem {
	if m.net == nil || n <= 0 {
		return []recommend.ScoredItem{}
	}
	u, ok := m.store.UserIndex(userID)
	if !ok {
		return []recommend.ScoredItem{}
	}

	var mask []bool
	if excludeRated {
		mask = ratedMask(m.store, u)
	}

	scale := m.store.Scale()
	top := newTopN(n)
	nItems := m.store.NumItems()
	for start := 0; start < nItems; start += evalBatchSize {
		end := min(start+evalBatchSize, nItems)
		users := make([]int, 0, end-start)
		items := make([]int, 0, end-start)
		for i := start; i < end; i++ {
			if mask != nil && mask[i] {
				continue
			}
			users = append(users, u)
			items = append(items, i)
		}
		if len(items) == 0 {
			continue
		}
		for k, p := range m.net.forward(users, items, false, nil) {
			top.offer(items[k], scale.Clip(p))
		}
	}
	return top.items(m.store)
}

// weights exports the learned arrays for persistence.
func (m *NeuralCF) weights() [][]float64 {
	if m.net == nil {
		return nil
	}
	return m.net.snapshot()
}

// restoreNeuralCF rebuilds a fitted model from persisted weights.
//
//nolint:gocritic // config and logger passed by value are intentional
func restoreNeuralCF(cfg NCFConfig, logger zerolog.Logger, store *ratings.Store, weights [][]float64, bestValLoss float64) (*NeuralCF, error) {
	m := NewNeuralCF(cfg, logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	rng := rand.New(rand.NewSource(cfg.Seed)) //nolint:gosec // weights are overwritten below
	net := newNCFNet(store.NumUsers(), store.NumItems(), &m.config, rng)
	if !net.load(weights) {
		return nil, fmt.Errorf("%w: neural_cf weights do not match %d users, %d items",
			recommend.ErrValidation, store.NumUsers(), store.NumItems())
	}
	m.store = store
	m.net = net
	m.bestValLoss = bestValLoss
	m.markTrained()
	return m, nil
}
