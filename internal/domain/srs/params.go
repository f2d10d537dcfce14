package srs

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/phrazzld/scry-srs/internal/domain"
	"gopkg.in/yaml.v3"
)

// WeightCount is the number of model weights in a parameter set.
const WeightCount = 19

// DefaultWeights is the published FSRS-5 reference weight vector.
var DefaultWeights = [WeightCount]float64{
	0.40255, 1.18385, 3.173, 15.69105, 7.1949,
	0.5345, 1.4604, 0.0046, 1.54575, 0.1192,
	1.01925, 1.9395, 0.11, 0.29605, 2.2698,
	0.2315, 2.9898, 0.51655, 0.6621,
}

// ErrInvalidParams is returned when a parameter set cannot drive the scheduler.
var ErrInvalidParams = errors.New("invalid scheduler parameters")

// Params defines all configurable parameters of the scheduling model.
type Params struct {
	// Model weights, indexed as in the published parameter set.
	Weights [WeightCount]float64

	// Target probability of recall at the moment a card becomes due.
	RequestRetention float64

	// Upper bound for any interval, in days.
	MaximumInterval int

	// Spread day intervals to avoid clustering on identical dates.
	EnableFuzz bool

	// Difficulty bounds.
	MinDifficulty float64
	MaxDifficulty float64

	// Same-day steps used before a card graduates to Review.
	NewSteps        StepSet
	LearningSteps   StepSet
	RelearningSteps StepSet
}

// StepSet holds the minute-level delays of a short-term state. Good is only
// used for New cards; from Learning and Relearning a Good rating graduates.
type StepSet struct {
	Again int
	Hard  int
	Good  int
}

// ParamsConfig allows overriding the default parameters. Zero values keep the defaults.
type ParamsConfig struct {
	Weights          []float64 `yaml:"weights"`
	RequestRetention float64   `yaml:"request_retention"`
	MaximumInterval  int       `yaml:"maximum_interval"`
	EnableFuzz       *bool     `yaml:"enable_fuzz"`
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Weights:          DefaultWeights,
		RequestRetention: 0.9,
		MaximumInterval:  36500,
		EnableFuzz:       true,
		MinDifficulty:    domain.MinDifficulty,
		MaxDifficulty:    domain.MaxDifficulty,
		NewSteps:         StepSet{Again: 1, Hard: 5, Good: 10},
		LearningSteps:    StepSet{Again: 5, Hard: 10},
		RelearningSteps:  StepSet{Again: 5, Hard: 10},
	}
}

// NewParams creates a validated Params instance from config overrides.
func NewParams(config ParamsConfig) (*Params, error) {
	params := NewDefaultParams()

	if len(config.Weights) > 0 {
		if len(config.Weights) != WeightCount {
			return nil, fmt.Errorf("%w: expected %d weights, got %d",
				ErrInvalidParams, WeightCount, len(config.Weights))
		}
		copy(params.Weights[:], config.Weights)
	}
	if config.RequestRetention != 0 {
		params.RequestRetention = config.RequestRetention
	}
	if config.MaximumInterval != 0 {
		params.MaximumInterval = config.MaximumInterval
	}
	if config.EnableFuzz != nil {
		params.EnableFuzz = *config.EnableFuzz
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}
	return params, nil
}

// LoadParamsFile reads a YAML parameter set and applies it over the defaults.
func LoadParamsFile(path string) (*Params, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading parameter file: %w", err)
	}
	var cfg ParamsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrInvalidParams, path, err)
	}
	return NewParams(cfg)
}

// Validate checks that the parameter set satisfies the model's preconditions.
func (p *Params) Validate() error {
	if p.RequestRetention <= 0 || p.RequestRetention >= 1 {
		return fmt.Errorf("%w: request retention must be in (0, 1), got %v",
			ErrInvalidParams, p.RequestRetention)
	}
	if p.MaximumInterval < 1 {
		return fmt.Errorf("%w: maximum interval must be at least 1 day", ErrInvalidParams)
	}
	if p.MinDifficulty < domain.MinDifficulty || p.MaxDifficulty > domain.MaxDifficulty ||
		p.MaxDifficulty <= p.MinDifficulty {
		return fmt.Errorf("%w: difficulty bounds [%v, %v]",
			ErrInvalidParams, p.MinDifficulty, p.MaxDifficulty)
	}
	for i, w := range p.Weights {
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return fmt.Errorf("%w: weight %d is not finite", ErrInvalidParams, i)
		}
	}
	for i := 0; i < 4; i++ {
		if p.Weights[i] <= 0 {
			return fmt.Errorf("%w: initial stability weight %d must be positive", ErrInvalidParams, i)
		}
	}
	// Post-lapse stability is w11 * D^-w12 * ((S+1)^w13 - 1) * ..., positive
	// for every S > 0 only when both factors are.
	if p.Weights[11] <= 0 || p.Weights[13] <= 0 {
		return fmt.Errorf("%w: lapse stability weights w11 and w13 must be positive", ErrInvalidParams)
	}
	// Post-lapse stability is capped at S / e^(w17*w18), so the product must be
	// positive for a lapse to strictly reduce stability.
	if p.Weights[17]*p.Weights[18] <= 0 {
		return fmt.Errorf("%w: w17*w18 must be positive", ErrInvalidParams)
	}
	for _, set := range []StepSet{p.NewSteps, p.LearningSteps, p.RelearningSteps} {
		if set.Again < 1 || set.Hard < 1 {
			return fmt.Errorf("%w: learning steps must be at least one minute", ErrInvalidParams)
		}
	}
	if p.NewSteps.Good < 1 {
		return fmt.Errorf("%w: learning steps must be at least one minute", ErrInvalidParams)
	}
	return nil
}
