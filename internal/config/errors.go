package config

import "errors"

// Configuration validation errors returned by Config.Validate and
// File.Validate. Callers compare them with errors.Is.
var (
	// ErrNoTarget is returned when neither a positional argument nor --list
	// provides a target.
	ErrNoTarget = errors.New("no target specified: provide a YouTube URL or use --list")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidBatchSize is returned when the batch size is not positive.
	ErrInvalidBatchSize = errors.New("invalid batch size: must be positive")

	// ErrInvalidDepth is returned when the video depth is negative.
	ErrInvalidDepth = errors.New("invalid depth: must be non-negative")

	// ErrInvalidFormat is returned for an unknown report format.
	ErrInvalidFormat = errors.New("invalid report format: use text, csv, markdown or json")

	// ErrInvalidPacing is returned when a rate or pause is negative.
	ErrInvalidPacing = errors.New("invalid pacing: rates and pauses must be non-negative")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidUnit is returned when a configured count unit has an empty
	// name or a non-positive multiplier.
	ErrInvalidUnit = errors.New("invalid unit: name must be non-empty and multiplier positive")

	// ErrInvalidLanguage is returned for a language tag that does not parse.
	ErrInvalidLanguage = errors.New("invalid language tag")

	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("configuration file not found")
)
