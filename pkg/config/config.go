package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned when parameters fail validation. Invalid
// parameters are fatal: the pipeline refuses to start with them.
var ErrInvalidConfig = errors.New("invalid configuration")

// validate is a singleton validator instance
var validate = validator.New()

// Config holds every tunable the binning engine accepts. Zero values are
// never run directly; callers start from Default and override.
type Config struct {
	// Fragments per contig used for pairwise scoring. Contigs with fewer
	// fragments use all they have.
	NFrags int `yaml:"n_frags" validate:"required,min=1"`

	// Candidate neighbors considered per contig before scoring.
	MaxNeighbors int `yaml:"max_neighbors" validate:"required,min=1"`

	// Minimum combined hit fraction for an edge to be retained.
	HitsThreshold float64 `yaml:"hits_threshold" validate:"gte=0,lte=1"`

	// Per-fragment-pair similarity cutoff counted as a hit.
	VoteThreshold float64 `yaml:"vote_threshold" validate:"gte=0,lte=1"`

	// Resolution for the coarse partitioning pass. Low values favor large
	// permissive communities.
	Gamma1 float64 `yaml:"gamma1" validate:"required,gt=0"`

	// Resolution for refinement inside coarse bins. Must exceed Gamma1 so
	// refinement only tightens.
	Gamma2 float64 `yaml:"gamma2" validate:"required,gtfield=Gamma1"`

	// Seed for the partitioner's random permutations. Identical seeds and
	// inputs reproduce identical partitions.
	Seed int64 `yaml:"seed"`

	// Worker goroutines for scoring and refinement. Zero means GOMAXPROCS.
	Workers int `yaml:"workers" validate:"gte=0"`

	// Node-movement sweeps allowed per optimization before returning the
	// best partition found so far.
	MaxIterations int `yaml:"max_iterations" validate:"required,min=1"`

	// Cap on fragment-pair comparisons per candidate pair; larger cross
	// products are stratified down to this. Zero disables the cap.
	MaxPairComparisons int `yaml:"max_pair_comparisons" validate:"gte=0"`

	// Combination rule for composition and coverage votes: "strict" or
	// "weighted".
	Combiner string `yaml:"combiner" validate:"oneof=strict weighted"`

	// Upstream fragment length in bp; carried for provenance in exports
	// only.
	FragmentLength int `yaml:"fragment_length" validate:"gte=0"`
}

// Default returns the engine's default parameters.
func Default() Config {
	return Config{
		NFrags:             50,
		MaxNeighbors:       250,
		HitsThreshold:      0.8,
		VoteThreshold:      0.5,
		Gamma1:             0.3,
		Gamma2:             0.75,
		Seed:               42,
		Workers:            0,
		MaxIterations:      100,
		MaxPairComparisons: 2500,
		Combiner:           "strict",
		FragmentLength:     1024,
	}
}

// Load reads a YAML config file over the defaults and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks all parameter ranges. Called before any work starts.
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return formatValidationError(err)
	}
	return nil
}

// formatValidationError converts validator errors to readable messages
func formatValidationError(err error) error {
	if err == nil {
		return nil
	}

	validationErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	// Return the first validation error in a user-friendly format
	for _, e := range validationErrs {
		field := e.Field()
		tag := e.Tag()
		param := e.Param()

		switch tag {
		case "required":
			return fmt.Errorf("%w: %s: field is required", ErrInvalidConfig, field)
		case "min", "gte":
			return fmt.Errorf("%w: %s: must be at least %s", ErrInvalidConfig, field, param)
		case "max", "lte":
			return fmt.Errorf("%w: %s: must not exceed %s", ErrInvalidConfig, field, param)
		case "gt":
			return fmt.Errorf("%w: %s: must be greater than %s", ErrInvalidConfig, field, param)
		case "gtfield":
			return fmt.Errorf("%w: %s: must be greater than %s", ErrInvalidConfig, field, param)
		case "oneof":
			return fmt.Errorf("%w: %s: must be one of [%s]", ErrInvalidConfig, field, param)
		default:
			return fmt.Errorf("%w: %s: failed %s validation", ErrInvalidConfig, field, tag)
		}
	}

	return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
}
