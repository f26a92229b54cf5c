package config

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/viper"

	"model-pipeline/internal/core/domain"
	"model-pipeline/internal/model"
)

type Config struct {
	Tracking   TrackingConfig
	Artifacts  ArtifactsConfig
	Model      ModelConfig
	Evaluation EvaluationConfig
	Features   FeaturesConfig
	Logger     LoggerConfig
	Server     ServerConfig
}

// TrackingConfig is the registry/tracking store connection.
type TrackingConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

func (c TrackingConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode)
}

// ArtifactsConfig is the object store holding model artifacts.
type ArtifactsConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type ModelConfig struct {
	Name            string
	Hyperparameters model.Hyperparameters
}

type EvaluationConfig struct {
	// Thresholds maps metric name to its required bound.
	Thresholds map[string]float64
	// Directions optionally overrides the bound direction per metric
	// ("min" or "max"). Error-type metrics default to max.
	Directions        map[string]string
	PrimaryMetric     string
	BaselineTolerance float64
	Attribution       bool
}

type FeaturesConfig struct {
	TrainingFeatures []string
	TargetColumn     string
}

type LoggerConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	Host string
	Port int
}

// errorTypeMetrics default to a maximum bound: lower is better.
var errorTypeMetrics = map[string]bool{
	"log_loss": true,
	"rmse":     true,
	"mae":      true,
}

// Load reads and validates the configuration file. Every operation starts
// from an explicit validated structure; missing required keys fail here
// rather than deep inside training or evaluation.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: config file path is required", domain.ErrConfigInvalid)
	}

	v := viper.New()
	v.SetConfigFile(path)

	// Defaults
	v.SetDefault("tracking.host", "localhost")
	v.SetDefault("tracking.port", 5432)
	v.SetDefault("tracking.sslmode", "disable")
	v.SetDefault("tracking.max_open_conns", 10)
	v.SetDefault("tracking.max_idle_conns", 2)
	v.SetDefault("tracking.conn_max_lifetime", "30m")
	v.SetDefault("artifacts.use_ssl", false)
	v.SetDefault("evaluation.baseline_tolerance", 0.0)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	// Connection secrets may come from the environment instead of the file.
	_ = v.BindEnv("tracking.password", "TRACKING_PASSWORD")
	_ = v.BindEnv("artifacts.access_key", "ARTIFACTS_ACCESS_KEY")
	_ = v.BindEnv("artifacts.secret_key", "ARTIFACTS_SECRET_KEY")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfigInvalid, path, err)
	}

	thresholds, err := toFloatMap(v.GetStringMap("evaluation.thresholds"))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Tracking: TrackingConfig{
			Host:            v.GetString("tracking.host"),
			Port:            v.GetInt("tracking.port"),
			User:            v.GetString("tracking.user"),
			Password:        v.GetString("tracking.password"),
			Database:        v.GetString("tracking.database"),
			SSLMode:         v.GetString("tracking.sslmode"),
			MaxOpenConns:    v.GetInt("tracking.max_open_conns"),
			MaxIdleConns:    v.GetInt("tracking.max_idle_conns"),
			ConnMaxLifetime: v.GetDuration("tracking.conn_max_lifetime"),
		},
		Artifacts: ArtifactsConfig{
			Endpoint:  v.GetString("artifacts.endpoint"),
			AccessKey: v.GetString("artifacts.access_key"),
			SecretKey: v.GetString("artifacts.secret_key"),
			Bucket:    v.GetString("artifacts.bucket"),
			UseSSL:    v.GetBool("artifacts.use_ssl"),
		},
		Model: ModelConfig{
			Name: v.GetString("model.name"),
			Hyperparameters: model.Hyperparameters{
				Booster:               v.GetString("model.booster"),
				Objective:             v.GetString("model.objective"),
				EvalMetrics:           v.GetStringSlice("model.eval_metrics"),
				Device:                v.GetString("model.device"),
				LearningRate:          v.GetFloat64("model.learning_rate"),
				Rounds:                v.GetInt("model.rounds"),
				EarlyStoppingPatience: v.GetInt("model.early_stopping_patience"),
				TrainTestSplit:        v.GetFloat64("model.train_test_split"),
				RandomState:           v.GetInt64("model.random_state"),
				Lambda:                v.GetFloat64("model.lambda"),
			},
		},
		Evaluation: EvaluationConfig{
			Thresholds:        thresholds,
			Directions:        v.GetStringMapString("evaluation.directions"),
			PrimaryMetric:     v.GetString("evaluation.primary_metric"),
			BaselineTolerance: v.GetFloat64("evaluation.baseline_tolerance"),
			Attribution:       v.GetBool("evaluation.attribution"),
		},
		Features: FeaturesConfig{
			TrainingFeatures: v.GetStringSlice("features.training_features"),
			TargetColumn:     v.GetString("features.target_column"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("logger.level"),
			Format: v.GetString("logger.format"),
		},
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch {
	case c.Tracking.User == "":
		return fmt.Errorf("%w: tracking.user is required", domain.ErrConfigInvalid)
	case c.Tracking.Database == "":
		return fmt.Errorf("%w: tracking.database is required", domain.ErrConfigInvalid)
	case c.Artifacts.Endpoint == "":
		return fmt.Errorf("%w: artifacts.endpoint is required", domain.ErrConfigInvalid)
	case c.Artifacts.Bucket == "":
		return fmt.Errorf("%w: artifacts.bucket is required", domain.ErrConfigInvalid)
	case c.Model.Name == "":
		return fmt.Errorf("%w: model.name is required", domain.ErrConfigInvalid)
	case c.Features.TargetColumn == "":
		return fmt.Errorf("%w: features.target_column is required", domain.ErrConfigInvalid)
	case len(c.Features.TrainingFeatures) == 0:
		return fmt.Errorf("%w: features.training_features must not be empty", domain.ErrConfigInvalid)
	}

	for metric, dir := range c.Evaluation.Directions {
		if dir != string(domain.DirectionMin) && dir != string(domain.DirectionMax) {
			return fmt.Errorf("%w: evaluation.directions.%s must be %q or %q, got %q",
				domain.ErrConfigInvalid, metric, domain.DirectionMin, domain.DirectionMax, dir)
		}
		if _, ok := c.Evaluation.Thresholds[metric]; !ok {
			return fmt.Errorf("%w: evaluation.directions.%s has no matching threshold",
				domain.ErrConfigInvalid, metric)
		}
	}

	if len(c.Evaluation.Thresholds) > 0 && c.Evaluation.PrimaryMetric == "" {
		return fmt.Errorf("%w: evaluation.primary_metric is required when thresholds are set",
			domain.ErrConfigInvalid)
	}

	return nil
}

// GatePolicy builds the promotion policy in force from the evaluation
// section, with thresholds in deterministic metric order.
func (c *Config) GatePolicy() domain.GatePolicy {
	metrics := make([]string, 0, len(c.Evaluation.Thresholds))
	for m := range c.Evaluation.Thresholds {
		metrics = append(metrics, m)
	}
	sort.Strings(metrics)

	thresholds := make([]domain.Threshold, 0, len(metrics))
	for _, m := range metrics {
		dir := domain.DirectionMin
		if errorTypeMetrics[m] {
			dir = domain.DirectionMax
		}
		if override, ok := c.Evaluation.Directions[m]; ok {
			dir = domain.ThresholdDirection(override)
		}
		thresholds = append(thresholds, domain.Threshold{
			Metric:    m,
			Bound:     c.Evaluation.Thresholds[m],
			Direction: dir,
		})
	}

	return domain.GatePolicy{
		Thresholds:        thresholds,
		PrimaryMetric:     c.Evaluation.PrimaryMetric,
		BaselineTolerance: c.Evaluation.BaselineTolerance,
	}
}

// toFloatMap converts a parsed threshold map, rejecting non-numeric bounds.
// A malformed bound must fail the load: dropping it would weaken the gate
// the operator configured.
func toFloatMap(in map[string]interface{}) (map[string]float64, error) {
	out := make(map[string]float64, len(in))
	for k, raw := range in {
		switch v := raw.(type) {
		case float64:
			out[k] = v
		case int:
			out[k] = float64(v)
		case int64:
			out[k] = float64(v)
		default:
			return nil, fmt.Errorf("%w: evaluation.thresholds.%s must be numeric, got %v",
				domain.ErrConfigInvalid, k, raw)
		}
	}
	return out, nil
}
