// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

package training

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/animerec/internal/recommend/algorithms"
	"github.com/tomtom215/animerec/internal/recommend/ratings"
	"github.com/tomtom215/animerec/internal/recommend/storage"
)

// RestoreLatest loads the newest stored artifact of every trainable model and
// hands it to the publisher without changing the active model. When at least
// one model was restored and the publisher serves a fallback, a popularity
// ranking is rebuilt from the rating source. A broken artifact is logged and
// skipped. It returns the number of restored models.
func (o *Orchestrator) RestoreLatest(ctx context.Context) (int, error) {
	if o.deps.Publisher == nil {
		return 0, nil
	}

	restored := 0
	for _, name := range o.deps.Trainers.Names() {
		if err := ctx.Err(); err != nil {
			return restored, err
		}
		var state storage.ModelState
		meta, err := o.deps.Artifacts.Latest(ctx, name, &state)
		if errors.Is(err, storage.ErrModelNotFound) {
			continue
		}
		if err != nil {
			o.logger.Warn().Err(err).Str("model", name).Msg("skipping unreadable model artifact")
			continue
		}
		model, err := algorithms.Restore(&state, o.logger)
		if err != nil {
			o.logger.Warn().Err(err).Str("model", name).Int("version", meta.Version).Msg("skipping corrupt model artifact")
			continue
		}
		if err := o.deps.Publisher.Publish(model, meta.Version, false); err != nil {
			return restored, fmt.Errorf("publish restored %s: %w", name, err)
		}
		restored++
		o.logger.Info().Str("model", name).Int("version", meta.Version).Msg("restored model artifact")
	}

	if restored == 0 {
		return 0, nil
	}
	fs, ok := o.deps.Publisher.(FallbackSetter)
	if !ok {
		return restored, nil
	}
	interactions, err := o.deps.Source.LoadInteractions(ctx)
	if err != nil || len(interactions) == 0 {
		o.logger.Warn().Err(err).Msg("popularity fallback not rebuilt")
		return restored, nil
	}
	store, err := ratings.New(interactions, o.cfg.Scale)
	if err != nil {
		return restored, fmt.Errorf("build fallback store: %w", err)
	}
	pop := algorithms.NewPopularity(algorithms.PopularityConfig{})
	if err := pop.Fit(ctx, store); err != nil {
		return restored, fmt.Errorf("fit popularity fallback: %w", err)
	}
	fs.SetFallback(pop)
	return restored, nil
}
