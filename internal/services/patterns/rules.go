package patterns

import "CandleScan/internal/domain/models"

// A rule is evaluated at index i of a featured series. It may only read
// s[i-span+1 .. i]; the matcher guarantees those indices exist.
type rule func(s models.Series, i int) bool

const (
	longWick  = 1.5
	shortWick = 0.25
)

// Long lower wick under a short body at a local minimum.
func hammer(s models.Series, i int) bool {
	b := s[i]
	return b.LowerWick >= longWick*b.Body &&
		b.Body <= b.Q25Body &&
		b.IsLocalMin
}

// Short lower wick, long upper wick, at a local minimum.
func inverseHammer(s models.Series, i int) bool {
	b := s[i]
	return b.LowerWick <= shortWick*b.Body &&
		b.UpperWick >= longWick*b.Body &&
		b.IsLocalMin
}

// A short red bar wholly engulfed by the following green bar.
func bullishEngulfing(s models.Series, i int) bool {
	cur, prev := s[i], s[i-1]
	return cur.Green() &&
		prev.Red() &&
		prev.Body <= prev.Q50Body &&
		cur.Open < prev.Close &&
		cur.Close > prev.Open
}

// A long red bar, a gap down, then a long green bar closing above the
// midpoint of the red body. The gap is measured against the current bar's
// q25 band.
func piercingLine(s models.Series, i int) bool {
	cur, prev := s[i], s[i-1]
	return cur.Green() &&
		prev.Red() &&
		prev.Body >= prev.Q50Body &&
		cur.Body >= cur.Q50Body &&
		prev.Close-cur.Open >= cur.Q25Body &&
		cur.Close >= prev.Close+prev.Body/2
}

// Long red, short star, long green.
func morningStar(s models.Series, i int) bool {
	cur, star, first := s[i], s[i-1], s[i-2]
	return cur.Green() &&
		first.Red() &&
		first.Body >= first.Q50Body &&
		cur.Body >= cur.Q50Body &&
		star.Body <= star.Q25Body
}

// Three green bars with small wicks, each opening and closing higher.
func threeWhiteSoldiers(s models.Series, i int) bool {
	for k := 0; k < 3; k++ {
		b := s[i-k]
		if !b.Green() || b.UpperWick > shortWick*b.Body || b.LowerWick > shortWick*b.Body {
			return false
		}
	}
	c0, c1, c2 := s[i], s[i-1], s[i-2]
	return c0.Close > c1.Close && c1.Close > c2.Close &&
		c0.Open > c1.Open && c1.Open > c2.Open
}

// Hammer shape at a local maximum.
func hangingMan(s models.Series, i int) bool {
	b := s[i]
	return b.LowerWick >= longWick*b.Body &&
		b.Body <= b.Q25Body &&
		b.IsLocalMax
}

// Inverse hammer shape with a red body at a local maximum.
func shootingStar(s models.Series, i int) bool {
	b := s[i]
	return b.LowerWick <= shortWick*b.Body &&
		b.UpperWick >= longWick*b.Body &&
		b.IsLocalMax &&
		b.Red()
}
