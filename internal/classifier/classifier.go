// Package classifier learns match confidence from reviewed candidates and
// falls back to the heuristic scorer until a model has been trained.
package classifier

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/matcher"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/Veraticus/the-books-must-balance/internal/scoring"
	"github.com/jbrukh/bayesian"
)

// State reports whether a model is available.
type State string

// Classifier states.
const (
	StateUntrained State = "UNTRAINED"
	StateTrained   State = "TRAINED"
)

// Model classes.
const (
	ClassMatch   bayesian.Class = "match"
	ClassNoMatch bayesian.Class = "no_match"
)

// Config holds configuration options for the classifier.
type Config struct {
	ModelKey           string
	MinTrainingSamples int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		ModelKey:           "match-classifier",
		MinTrainingSamples: 5,
	}
}

// Metadata describes the active model.
type Metadata struct {
	TrainedAt time.Time
	Schema    []string
	Samples   int
	Positives int
	Negatives int
}

// Classifier scores feature vectors with a trained naive Bayes model, or with
// the heuristic scorer while untrained. It is safe for concurrent use.
type Classifier struct {
	store     BlobStore
	selector  *matcher.Selector
	nb        *bayesian.Classifier
	meta      Metadata
	heuristic scoring.Heuristic
	config    Config
	mu        sync.RWMutex
}

// New creates an untrained classifier persisting to store with default configuration.
func New(store BlobStore) *Classifier {
	return NewWithConfig(store, matcher.New(nil), DefaultConfig())
}

// NewWithConfig creates an untrained classifier with custom configuration.
// A nil store disables persistence.
func NewWithConfig(store BlobStore, selector *matcher.Selector, config Config) *Classifier {
	if selector == nil {
		selector = matcher.New(nil)
	}
	if config.ModelKey == "" {
		config.ModelKey = DefaultConfig().ModelKey
	}
	if config.MinTrainingSamples <= 0 {
		config.MinTrainingSamples = DefaultConfig().MinTrainingSamples
	}
	return &Classifier{
		store:    store,
		selector: selector,
		config:   config,
	}
}

// State returns the current classifier state.
func (c *Classifier) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.nb == nil {
		return StateUntrained
	}
	return StateTrained
}

// Metadata returns a copy of the active model's metadata.
func (c *Classifier) Metadata() Metadata {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta := c.meta
	meta.Schema = append([]string(nil), c.meta.Schema...)
	return meta
}

// Score implements scoring.Scorer. Per-field scores and notes always come
// from the heuristic; a trained model replaces the combined confidence.
func (c *Classifier) Score(v model.FeatureVector, cfg model.ScoringConfig) (scoring.Breakdown, error) {
	b, err := c.heuristic.Score(v, cfg)
	if err != nil {
		return scoring.Breakdown{}, err
	}

	if p, ok := c.Probability(v); ok {
		b.Combined = p
		b.ScoredBy = model.ScoredByClassifier
	}
	return b, nil
}

// Probability returns the model's match probability for v. The second
// result is false while untrained.
func (c *Classifier) Probability(v model.FeatureVector) (float64, bool) {
	c.mu.RLock()
	nb := c.nb
	c.mu.RUnlock()
	if nb == nil {
		return 0, false
	}
	return matchProbability(nb, v), true
}

// GenerateMatches selects matches at the given threshold using this classifier
// as the scorer.
func (c *Classifier) GenerateMatches(bank, ledger []model.Transaction, threshold float64, cfg model.ScoringConfig) ([]model.MatchCandidate, error) {
	cfg.ScoreThreshold = threshold
	return c.selector.Select(bank, ledger, c, cfg)
}

// Train fits a new model from labelled feedback and persists it. With fewer
// than the minimum samples it returns ErrInsufficientTrainingData and the
// current model, if any, stays active.
func (c *Classifier) Train(ctx context.Context, records []model.FeedbackRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range records {
		if !model.SchemaEqual(r.Schema) {
			return fmt.Errorf("%w: feedback for %s/%s has schema %v, want %v",
				common.ErrFeatureSchemaMismatch, r.BankID, r.LedgerID, r.Schema, model.FeatureSchema())
		}
		if r.Label != model.LabelMatched && r.Label != model.LabelRejected {
			return common.NewInvalidInput(string(model.SideBank), r.BankID, fmt.Sprintf("unknown feedback label %d", r.Label))
		}
	}
	if len(records) < c.config.MinTrainingSamples {
		return fmt.Errorf("%w: have %d samples, need %d",
			common.ErrInsufficientTrainingData, len(records), c.config.MinTrainingSamples)
	}

	nb, meta := fit(records)

	c.mu.Lock()
	c.nb = nb
	c.meta = meta
	c.mu.Unlock()

	common.LogDebug("Trained match classifier", common.Fields{
		"samples":   meta.Samples,
		"positives": meta.Positives,
		"negatives": meta.Negatives,
	})

	if c.store == nil {
		return nil
	}
	return c.Save(ctx)
}

// fit builds a naive Bayes model with add-one smoothing over the full
// token vocabulary so both classes always have a non-zero prior.
func fit(records []model.FeedbackRecord) (*bayesian.Classifier, Metadata) {
	nb := bayesian.NewClassifier(ClassMatch, ClassNoMatch)
	for _, word := range vocabulary() {
		nb.Observe(word, 1, ClassMatch)
		nb.Observe(word, 1, ClassNoMatch)
	}

	meta := Metadata{
		TrainedAt: time.Now().UTC(),
		Schema:    model.FeatureSchema(),
		Samples:   len(records),
	}
	for _, r := range records {
		class := ClassNoMatch
		if r.Confirmed() {
			class = ClassMatch
			meta.Positives++
		} else {
			meta.Negatives++
		}
		nb.Learn(tokens(r.Features), class)
	}
	return nb, meta
}

func matchProbability(nb *bayesian.Classifier, v model.FeatureVector) float64 {
	return documentProbability(nb, tokens(v))
}

// documentProbability returns P(match | doc). When the direct product
// underflows it is recomputed from the log scores.
func documentProbability(nb *bayesian.Classifier, doc []string) float64 {
	match := -1
	for i, class := range nb.Classes {
		if class == ClassMatch {
			match = i
		}
	}
	if match < 0 {
		return 0
	}

	scores, _, _, err := nb.SafeProbScores(doc)
	if err == nil && !math.IsNaN(scores[match]) {
		return math.Max(0, math.Min(1, scores[match]))
	}

	logs, _, _ := nb.LogScores(doc)
	var sum float64
	for _, l := range logs {
		sum += math.Exp(l - logs[match])
	}
	return 1 / sum
}
