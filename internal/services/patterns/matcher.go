package patterns

import (
	"fmt"

	"CandleScan/internal/domain/models"
)

// Evaluate returns every bar of a featured series that satisfies the rule
// for kind, in date order. The series is only read.
//
// Indices before the rule's span are never evaluated. An unknown or
// unimplemented kind is an error and no matches are returned with it.
func Evaluate(s models.Series, kind models.PatternKind) ([]models.PatternMatch, error) {
	e, err := lookup(kind)
	if err != nil {
		return nil, err
	}
	matches := make([]models.PatternMatch, 0)
	for i := e.span - 1; i < len(s); i++ {
		if !e.rule(s, i) {
			continue
		}
		bars := make([]models.Bar, e.span)
		copy(bars, s[i-e.span+1:i+1])
		matches = append(matches, models.PatternMatch{
			Date:  s[i].Date,
			Kind:  kind,
			Index: i,
			Bars:  bars,
		})
	}
	return matches, nil
}

// Span returns how many bars the rule for kind reads.
func Span(kind models.PatternKind) (int, error) {
	e, err := lookup(kind)
	if err != nil {
		return 0, err
	}
	return e.span, nil
}

func lookup(kind models.PatternKind) (entry, error) {
	e, ok := catalogue[kind]
	if !ok {
		return entry{}, fmt.Errorf("%w: %s", models.ErrUnrecognizedPattern, kind)
	}
	if e.rule == nil {
		return entry{}, fmt.Errorf("%w: %w: %s", models.ErrUnrecognizedPattern, models.ErrPatternNotImplemented, kind)
	}
	return e, nil
}
