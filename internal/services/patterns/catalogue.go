package patterns

import (
	"sort"

	"CandleScan/internal/domain/models"
)

type entry struct {
	class models.PatternClass
	span  int
	rule  rule
	desc  string
}

// catalogue maps every kind to its rule. Declared kinds without behaviour
// carry a nil rule and are rejected by Evaluate.
var catalogue = map[models.PatternKind]entry{
	models.Hammer: {models.ClassBullishReversal, 1, hammer,
		"short body with a long lower wick at the bottom of a downtrend"},
	models.InverseHammer: {models.ClassBullishReversal, 1, inverseHammer,
		"short lower wick and long upper wick at a local minimum"},
	models.BullishEngulfing: {models.ClassBullishReversal, 2, bullishEngulfing,
		"short red body engulfed by a larger green body"},
	models.PiercingLine: {models.ClassBullishReversal, 2, piercingLine,
		"long red bar, gap down, long green bar closing above the red midpoint"},
	models.MorningStar: {models.ClassBullishReversal, 3, morningStar,
		"short-bodied star between a long red and a long green bar"},
	models.ThreeWhiteSoldiers: {models.ClassBullishContinuation, 3, threeWhiteSoldiers,
		"three long green bars with small wicks opening and closing higher"},
	models.HangingMan: {models.ClassBearishReversal, 1, hangingMan,
		"hammer shape at the top of an uptrend"},
	models.ShootingStar: {models.ClassBearishReversal, 1, shootingStar,
		"red inverse hammer shape at a local maximum"},

	models.BearishEngulfing:    {class: models.ClassUnspecified},
	models.EveningStar:         {class: models.ClassUnspecified},
	models.ThreeBlackCrows:     {class: models.ClassUnspecified},
	models.DarkCloudCover:      {class: models.ClassUnspecified},
	models.Doji:                {class: models.ClassUnspecified},
	models.SpinningTop:         {class: models.ClassUnspecified},
	models.FallingThreeMethods: {class: models.ClassUnspecified},
	models.RisingThreeMethods:  {class: models.ClassUnspecified},
}

// Catalogue describes every known kind in declaration order.
func Catalogue() []models.PatternInfo {
	out := make([]models.PatternInfo, 0, len(catalogue))
	for k, e := range catalogue {
		out = append(out, models.PatternInfo{
			Kind:        k,
			Class:       e.class,
			Span:        e.span,
			Implemented: e.rule != nil,
			Description: e.desc,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Kind < out[j].Kind })
	return out
}

// Implemented lists the kinds Evaluate accepts, in declaration order.
func Implemented() []models.PatternKind {
	var out []models.PatternKind
	for _, info := range Catalogue() {
		if info.Implemented {
			out = append(out, info.Kind)
		}
	}
	return out
}
