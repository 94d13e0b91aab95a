package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PatternKind identifies one formation of the candlestick catalogue.
type PatternKind int

const (
	Hammer PatternKind = iota + 1
	InverseHammer
	BullishEngulfing
	PiercingLine
	MorningStar
	ThreeWhiteSoldiers
	HangingMan
	ShootingStar

	// Declared in the catalogue without a rule.
	BearishEngulfing
	EveningStar
	ThreeBlackCrows
	DarkCloudCover
	Doji
	SpinningTop
	FallingThreeMethods
	RisingThreeMethods
)

// PatternClass groups kinds by the market move they signal.
type PatternClass string

const (
	ClassBullishReversal     PatternClass = "bullish_reversal"
	ClassBullishContinuation PatternClass = "bullish_continuation"
	ClassBearishReversal     PatternClass = "bearish_reversal"
	ClassUnspecified         PatternClass = "unspecified"
)

var kindNames = map[PatternKind]string{
	Hammer:              "hammer",
	InverseHammer:       "inv_hammer",
	BullishEngulfing:    "bull_engulf",
	PiercingLine:        "piercing",
	MorningStar:         "morning",
	ThreeWhiteSoldiers:  "soldiers",
	HangingMan:          "hanging",
	ShootingStar:        "shooting",
	BearishEngulfing:    "bear_engulf",
	EveningStar:         "evening",
	ThreeBlackCrows:     "crows",
	DarkCloudCover:      "cloud",
	Doji:                "doji",
	SpinningTop:         "spinning",
	FallingThreeMethods: "falling",
	RisingThreeMethods:  "rising",
}

var kindsByName = func() map[string]PatternKind {
	m := make(map[string]PatternKind, len(kindNames))
	for k, n := range kindNames {
		m[n] = k
	}
	return m
}()

// AllPatternKinds lists the catalogue in declaration order.
func AllPatternKinds() []PatternKind {
	out := make([]PatternKind, 0, len(kindNames))
	for k := Hammer; k <= RisingThreeMethods; k++ {
		out = append(out, k)
	}
	return out
}

// ParsePatternKind resolves a catalogue identifier. Lookup is case-insensitive.
func ParsePatternKind(s string) (PatternKind, error) {
	if k, ok := kindsByName[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnrecognizedPattern, s)
}

func (k PatternKind) String() string {
	if n, ok := kindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("PatternKind(%d)", int(k))
}

// Valid reports whether k is part of the catalogue.
func (k PatternKind) Valid() bool {
	_, ok := kindNames[k]
	return ok
}

func (k PatternKind) MarshalJSON() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnrecognizedPattern, int(k))
	}
	return json.Marshal(k.String())
}

func (k *PatternKind) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	v, err := ParsePatternKind(s)
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// PatternMatch is one detection. Bars holds the contiguous bars the rule
// read, oldest first; the last one is the defining bar at Date.
type PatternMatch struct {
	Date  time.Time   `json:"date"`
	Kind  PatternKind `json:"pattern"`
	Index int         `json:"index"`
	Bars  []Bar       `json:"bars,omitempty"`
}

// PatternInfo describes a catalogue entry.
type PatternInfo struct {
	Kind        PatternKind  `json:"pattern"`
	Class       PatternClass `json:"class"`
	Span        int          `json:"span"`
	Implemented bool         `json:"implemented"`
	Description string       `json:"description"`
}
