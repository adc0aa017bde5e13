package config

import "reflect"

// ConfigDiff describes what changed between two configs.
// Only fields that can be safely hot-reloaded are tracked.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// PassingThresholdChanged is set when rubric.passing_threshold moved.
	PassingThresholdChanged bool
	NewPassingThreshold     float64

	// RubricPathChanged is set when rubric.path points somewhere else, which
	// requires reloading the rubric file.
	RubricPathChanged bool
	NewRubricPath     string

	// CoachChanged is set when any coach selection or entry changed. Coach
	// clients hold live connections, so this is applied by rebuilding the
	// provider chain rather than mutating it.
	CoachChanged bool
}

// Diff compares old and new configs and returns what changed.
// Only tracks changes that are safe to apply without restart.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}

	if old.Rubric.PassingThreshold != new.Rubric.PassingThreshold {
		d.PassingThresholdChanged = true
		d.NewPassingThreshold = new.Rubric.PassingThreshold
	}

	if old.Rubric.Path != new.Rubric.Path {
		d.RubricPathChanged = true
		d.NewRubricPath = new.Rubric.Path
	}

	if !reflect.DeepEqual(old.Coach, new.Coach) {
		d.CoachChanged = true
	}

	return d
}

// Empty reports whether the diff carries no changes.
func (d ConfigDiff) Empty() bool {
	return d == ConfigDiff{}
}
