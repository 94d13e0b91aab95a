package models

import "errors"

var (
	// ErrUnrecognizedPattern is returned for any pattern kind without a rule,
	// including catalogue names that are declared but not implemented.
	ErrUnrecognizedPattern = errors.New("unrecognized pattern")
	// ErrPatternNotImplemented narrows ErrUnrecognizedPattern to declared kinds.
	ErrPatternNotImplemented = errors.New("pattern not implemented")
	// ErrEmptySeries separates "nothing to analyse" from "no matches found".
	ErrEmptySeries = errors.New("empty series")
	// ErrSeriesNotFound is returned by bar stores when a country has no data.
	ErrSeriesNotFound = errors.New("series not found")
	// ErrUnorderedSeries means dates are not strictly increasing.
	ErrUnorderedSeries = errors.New("series dates not strictly increasing")
	// ErrInvalidWindow rejects negative extrema window parameters.
	ErrInvalidWindow = errors.New("invalid extrema window")
	// ErrInvalidBar marks a bar with a NaN or infinite price.
	ErrInvalidBar = errors.New("invalid bar")
	// ErrNaNValue rejects NaN inputs to the quantile tracker.
	ErrNaNValue = errors.New("NaN value")
	// ErrInvalidRange means a requested start date falls after the end date.
	ErrInvalidRange = errors.New("invalid date range")
	// ErrInvalidQuantile rejects levels outside [0, 1].
	ErrInvalidQuantile = errors.New("invalid quantile level")
)
