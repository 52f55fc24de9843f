package config

import (
	"fmt"

	"github.com/Veraticus/the-books-must-balance/internal/classifier"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/model"
	"github.com/spf13/viper"
)

// DefaultDatabasePath is used when database.path is not configured.
const DefaultDatabasePath = "$HOME/.local/share/balance/balance.db"

// Config is the resolved application configuration.
type Config struct {
	Database DatabaseConfig
	Model    ModelConfig
	Logging  LoggingConfig
	Scoring  model.ScoringConfig
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// ModelConfig controls classifier persistence and training.
type ModelConfig struct {
	Dir                string // empty stores the model in the database
	Key                string
	MinTrainingSamples int
}

// LoggingConfig selects the slog level and handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// SetDefaults registers default values for every key Load reads.
func SetDefaults(v *viper.Viper) {
	scoring := model.DefaultScoringConfig()
	clf := classifier.DefaultConfig()

	v.SetDefault("database.path", DefaultDatabasePath)

	v.SetDefault("matching.uniqueness", string(scoring.Uniqueness))
	v.SetDefault("matching.amount_tolerance", scoring.AmountTolerance)
	v.SetDefault("matching.amount_percentage_tolerance", scoring.AmountPercentageTolerance)
	v.SetDefault("matching.date_tolerance_days", scoring.DateToleranceDays)
	v.SetDefault("matching.description_similarity_threshold", scoring.DescriptionSimilarityThreshold)
	v.SetDefault("matching.score_threshold", scoring.ScoreThreshold)
	v.SetDefault("matching.high_confidence_threshold", scoring.HighConfidenceThreshold)
	v.SetDefault("matching.medium_confidence_threshold", scoring.MediumConfidenceThreshold)
	v.SetDefault("matching.max_combinations", scoring.MaxCombinations)

	v.SetDefault("model.dir", "")
	v.SetDefault("model.key", clf.ModelKey)
	v.SetDefault("model.min_training_samples", clf.MinTrainingSamples)
	v.SetDefault("model.retrain_threshold", scoring.RetrainThreshold)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}

// Load reads the configuration from v, applying defaults for unset keys and
// expanding paths. The scoring section is validated.
func Load(v *viper.Viper) (Config, error) {
	SetDefaults(v)

	cfg := Config{
		Database: DatabaseConfig{
			Path: ExpandPath(v.GetString("database.path")),
		},
		Model: ModelConfig{
			Dir:                ExpandPath(v.GetString("model.dir")),
			Key:                v.GetString("model.key"),
			MinTrainingSamples: v.GetInt("model.min_training_samples"),
		},
		Logging: LoggingConfig{
			Level:  v.GetString("logging.level"),
			Format: v.GetString("logging.format"),
		},
		Scoring: model.ScoringConfig{
			Uniqueness:                     model.Uniqueness(v.GetString("matching.uniqueness")),
			AmountTolerance:                v.GetFloat64("matching.amount_tolerance"),
			AmountPercentageTolerance:      v.GetFloat64("matching.amount_percentage_tolerance"),
			DateToleranceDays:              v.GetInt("matching.date_tolerance_days"),
			DescriptionSimilarityThreshold: v.GetFloat64("matching.description_similarity_threshold"),
			ScoreThreshold:                 v.GetFloat64("matching.score_threshold"),
			HighConfidenceThreshold:        v.GetFloat64("matching.high_confidence_threshold"),
			MediumConfidenceThreshold:      v.GetFloat64("matching.medium_confidence_threshold"),
			MaxCombinations:                v.GetInt("matching.max_combinations"),
			RetrainThreshold:               v.GetInt("model.retrain_threshold"),
		},
	}

	if cfg.Database.Path == "" {
		return Config{}, fmt.Errorf("%w: database.path is empty", common.ErrInvalidConfig)
	}
	if cfg.Model.MinTrainingSamples <= 0 {
		return Config{}, fmt.Errorf("%w: model.min_training_samples must be positive", common.ErrInvalidConfig)
	}
	if err := cfg.Scoring.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Classifier returns the classifier configuration.
func (c Config) Classifier() classifier.Config {
	return classifier.Config{
		ModelKey:           c.Model.Key,
		MinTrainingSamples: c.Model.MinTrainingSamples,
	}
}
