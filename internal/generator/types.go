package generator

import (
	"errors"
	"fmt"
)

// DefaultBatchSize is the number of passwords produced when a caller does
// not ask for a specific count
const DefaultBatchSize = 5

// ErrGenerationFailure marks faults that make generation impossible, such
// as an unreadable random source
var ErrGenerationFailure = errors.New("password generation failed")

// GenerationFailure wraps the underlying fault of a failed draw
type GenerationFailure struct {
	Op  string
	Err error
}

func (e *GenerationFailure) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrGenerationFailure, e.Op, e.Err)
}

func (e *GenerationFailure) Unwrap() error {
	return e.Err
}

// Is lets errors.Is match ErrGenerationFailure
func (e *GenerationFailure) Is(target error) bool {
	return target == ErrGenerationFailure
}

// Config contains generator tuning
type Config struct {
	BatchSize int `yaml:"batch_size" mapstructure:"batch_size"`
	Workers   int `yaml:"workers" mapstructure:"workers"`
}
