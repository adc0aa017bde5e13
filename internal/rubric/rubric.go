// Package rubric loads and validates the externally supplied scoring schema.
//
// A rubric is loaded once at process start and is read-only thereafter, so it
// is safely shared across concurrent scoring invocations without locking.
package rubric

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
)

// Criterion is one weighted, independently evaluated quality check.
// Keywords and alternative phrases keep their file order; evaluation order
// is part of the scoring contract.
type Criterion struct {
	ID          string `json:"id" validate:"required"`
	Description string `json:"description" validate:"required"`

	// Guideline is optional free text describing the expected behaviour.
	// When present it joins the fuzzy-eligible phrase pool for its criterion.
	Guideline string `json:"guideline,omitempty"`

	Keywords           []string `json:"keywords"`
	AlternativePhrases []string `json:"alternative_phrases"`

	// Score is the criterion's weight in points.
	Score int `json:"score" validate:"gt=0"`
}

// Rubric is the full scoring schema: an ordered sequence of criteria.
type Rubric struct {
	Criteria []Criterion `json:"criteria"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Valid reports whether c carries every field scoring requires. Malformed
// criteria are not an error anywhere in the system: the scorer treats them
// as zero-weight, never-passing entries.
func (c Criterion) Valid() bool {
	return validate.Struct(c) == nil
}

// Load reads the rubric JSON file at path. A missing file is not an error:
// scoring against an absent rubric degrades to zero criteria rather than
// failing the process, matching the scorer's fail-soft contract. Malformed
// JSON is an error — a present-but-unreadable rubric is a deployment
// mistake worth failing loudly at startup.
func Load(path string) (*Rubric, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Warn("rubric file not found, scoring with zero criteria", "path", path)
			return &Rubric{}, nil
		}
		return nil, fmt.Errorf("rubric: open %q: %w", path, err)
	}
	defer f.Close()

	r, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("rubric: parse %q: %w", path, err)
	}
	return r, nil
}

// Parse decodes a rubric from r. Useful in tests where rubrics are built
// from string literals.
func Parse(r io.Reader) (*Rubric, error) {
	rb := &Rubric{}
	dec := json.NewDecoder(r)
	if err := dec.Decode(rb); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	for i, c := range rb.Criteria {
		if !c.Valid() {
			slog.Warn("rubric criterion is malformed and will never pass",
				"index", i, "id", c.ID)
		}
	}
	return rb, nil
}
