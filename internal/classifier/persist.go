package classifier

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/jbrukh/bayesian"
)

// formatVersion is bumped whenever the stored envelope changes shape.
const formatVersion = 1

// envelope wraps the serialised naive Bayes model with the feature schema it
// was trained on.
type envelope struct {
	TrainedAt time.Time
	Schema    []string
	Model     []byte
	Version   int
	Samples   int
	Positives int
	Negatives int
}

// Save persists the active model under the configured key.
func (c *Classifier) Save(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("%w: no model store configured", common.ErrModelPersistence)
	}

	c.mu.RLock()
	nb, meta := c.nb, c.meta
	c.mu.RUnlock()
	if nb == nil {
		return fmt.Errorf("%w: no trained model to save", common.ErrModelPersistence)
	}

	data, err := encodeEnvelope(nb, meta)
	if err != nil {
		return err
	}
	if err := c.store.Put(ctx, c.config.ModelKey, data); err != nil {
		return fmt.Errorf("%w: failed to store model %q: %w", common.ErrModelPersistence, c.config.ModelKey, err)
	}

	common.LogDebug("Saved match classifier", common.Fields{
		"key":   c.config.ModelKey,
		"bytes": len(data),
	})
	return nil
}

// Load replaces the active model with the one stored under the configured
// key. A stored model trained on a different feature schema is rejected
// with ErrFeatureSchemaMismatch and the current model is kept.
func (c *Classifier) Load(ctx context.Context) error {
	if c.store == nil {
		return fmt.Errorf("%w: no model store configured", common.ErrModelPersistence)
	}

	data, err := c.store.Get(ctx, c.config.ModelKey)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return err
		}
		return fmt.Errorf("%w: failed to read model %q: %w", common.ErrModelPersistence, c.config.ModelKey, err)
	}

	nb, meta, err := decodeEnvelope(data)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.nb = nb
	c.meta = meta
	c.mu.Unlock()
	return nil
}

// LoadIfExists loads the stored model if there is one. A missing model is
// not an error; the classifier stays untrained.
func (c *Classifier) LoadIfExists(ctx context.Context) (bool, error) {
	if c.store == nil {
		return false, nil
	}
	if err := c.Load(ctx); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func encodeEnvelope(nb *bayesian.Classifier, meta Metadata) ([]byte, error) {
	var modelBuf bytes.Buffer
	if err := nb.WriteTo(&modelBuf); err != nil {
		return nil, fmt.Errorf("%w: failed to serialise model: %w", common.ErrModelPersistence, err)
	}

	env := envelope{
		TrainedAt: meta.TrainedAt,
		Schema:    meta.Schema,
		Model:     modelBuf.Bytes(),
		Version:   formatVersion,
		Samples:   meta.Samples,
		Positives: meta.Positives,
		Negatives: meta.Negatives,
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(env); err != nil {
		return nil, fmt.Errorf("%w: failed to encode model envelope: %w", common.ErrModelPersistence, err)
	}
	return buf.Bytes(), nil
}

func decodeEnvelope(data []byte) (*bayesian.Classifier, Metadata, error) {
	var env envelope
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&env); err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: corrupt model envelope: %w", common.ErrModelPersistence, err)
	}
	if env.Version != formatVersion {
		return nil, Metadata{}, fmt.Errorf("%w: unsupported model format version %d", common.ErrModelPersistence, env.Version)
	}
	if !model.SchemaEqual(env.Schema) {
		return nil, Metadata{}, fmt.Errorf("%w: stored model uses %v, want %v",
			common.ErrFeatureSchemaMismatch, env.Schema, model.FeatureSchema())
	}

	nb, err := bayesian.NewClassifierFromReader(bytes.NewReader(env.Model))
	if err != nil {
		return nil, Metadata{}, fmt.Errorf("%w: corrupt model data: %w", common.ErrModelPersistence, err)
	}

	return nb, Metadata{
		TrainedAt: env.TrainedAt,
		Schema:    env.Schema,
		Samples:   env.Samples,
		Positives: env.Positives,
		Negatives: env.Negatives,
	}, nil
}
