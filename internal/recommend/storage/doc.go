// Animerec - Collaborative Filtering Recommendation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/animerec

/*
Package storage persists fitted recommendation models as versioned files.

Each save of a model name writes the next version:

	/data/models/
	  item_based_cf_v1.gob.gz
	  item_based_cf_v2.gob.gz   <- latest
	  neural_cf_v1.gob.gz

A file holds the ModelMetadata and the gzip-compressed gob encoding of a
ModelState. The metadata carries a SHA-256 checksum of the uncompressed
payload which Load verifies before decoding. Files are written to a
temporary name and renamed into place.

# Usage

	store, err := storage.NewStore("/data/models")
	if err != nil {
	    return err
	}

	meta, err := store.Save(ctx, "item_based_cf", state, storage.ModelMetadata{
	    JobID:     jobID,
	    TrainedAt: time.Now(),
	})

	var loaded storage.ModelState
	meta, err = store.Latest(ctx, "item_based_cf", &loaded)

	// Keep the three newest versions.
	removed, err := store.Prune(ctx, "item_based_cf", 3)

ModelState is a plain data record: KNN models store their training ratings
and similarity matrix in row-compressed form, NCF stores its ratings and
every learned array, and hybrids nest the states of their components.
Conversion between fitted models and states lives in the algorithms
package (Snapshot and Restore).

All Store methods are safe for concurrent use.
*/
package storage
