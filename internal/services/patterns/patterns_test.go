package patterns

import (
	"errors"
	"testing"
	"time"

	"CandleScan/internal/domain/models"
	"CandleScan/internal/services/features"
)

func day(i int) time.Time {
	return time.Date(2021, 3, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
}

func raw(i int, o, h, l, c float64) models.Bar {
	return models.Bar{Date: day(i), Open: o, High: h, Low: l, Close: c}
}

// fb builds a bar whose derived fields are set by hand.
func fb(i int, o, h, l, c, q25, q50 float64) models.Bar {
	b := raw(i, o, h, l, c)
	b.Body = features.BodySize(b)
	b.LowerWick = features.LowerWick(b)
	b.UpperWick = features.UpperWick(b)
	b.Q25Body = q25
	b.Q50Body = q50
	return b
}

func matchedAt(t *testing.T, s models.Series, kind models.PatternKind) []int {
	t.Helper()
	ms, err := Evaluate(s, kind)
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", kind, err)
	}
	idx := make([]int, 0, len(ms))
	for _, m := range ms {
		idx = append(idx, m.Index)
	}
	return idx
}

func TestHammerScenario(t *testing.T) {
	s := models.Series{
		raw(0, 120, 121, 114, 115),
		raw(1, 115, 116, 109, 110),
		raw(2, 110, 111, 104, 105),
		raw(3, 107, 108, 101, 102),
		raw(4, 100, 101.5, 90, 101),
		raw(5, 101, 107, 100, 106),
	}
	featured, err := features.NewEngine().Featurize(s)
	if err != nil {
		t.Fatalf("featurize: %v", err)
	}
	h := featured[4]
	if h.Body != 1 || h.LowerWick != 10 || !h.IsLocalMin || h.Body > h.Q25Body {
		t.Fatalf("fixture is not a hammer: %+v", h)
	}
	got := matchedAt(t, featured, models.Hammer)
	if len(got) != 1 || got[0] != 4 {
		t.Fatalf("want hammer at 4, got %v", got)
	}
	ms, _ := Evaluate(featured, models.Hammer)
	if !ms[0].Date.Equal(day(4)) || len(ms[0].Bars) != 1 || ms[0].Kind != models.Hammer {
		t.Fatalf("unexpected match %+v", ms[0])
	}
}

func TestBullishEngulfingScenario(t *testing.T) {
	s := models.Series{
		raw(0, 150, 151, 129, 130),
		raw(1, 130, 131, 109, 110),
		raw(2, 110, 111, 99, 100),
		raw(3, 95, 121, 94, 120),
	}
	featured, err := features.NewEngine().Featurize(s)
	if err != nil {
		t.Fatalf("featurize: %v", err)
	}
	if featured[2].Body > featured[2].Q50Body {
		t.Fatalf("fixture: previous body %v above q50 %v", featured[2].Body, featured[2].Q50Body)
	}
	got := matchedAt(t, featured, models.BullishEngulfing)
	if len(got) != 1 || got[0] != 3 {
		t.Fatalf("want engulfing at 3, got %v", got)
	}
	ms, _ := Evaluate(featured, models.BullishEngulfing)
	if len(ms[0].Bars) != 2 || !ms[0].Bars[0].Date.Equal(day(2)) {
		t.Fatalf("match should carry bars 2..3, got %+v", ms[0].Bars)
	}
}

func TestBullishEngulfingUsesPreviousBand(t *testing.T) {
	prev := fb(0, 110, 111, 99, 100, 1, 9) // body 10 above its own q50
	cur := fb(1, 95, 121, 94, 120, 1, 50)
	if got := matchedAt(t, models.Series{prev, cur}, models.BullishEngulfing); len(got) != 0 {
		t.Fatalf("previous body above q50_1 must not match, got %v", got)
	}
}

func TestInverseHammer(t *testing.T) {
	b := fb(0, 100, 106, 99.9, 101, 2, 3) // body 1, lower 0.1, upper 5
	b.IsLocalMin = true
	if got := matchedAt(t, models.Series{b}, models.InverseHammer); len(got) != 1 {
		t.Fatalf("want inverse hammer, got %v", got)
	}
	b.IsLocalMin = false
	if got := matchedAt(t, models.Series{b}, models.InverseHammer); len(got) != 0 {
		t.Fatalf("inverse hammer requires a local minimum")
	}
}

func TestHangingManAndShootingStar(t *testing.T) {
	hang := fb(0, 100, 101.5, 90, 101, 2, 3)
	hang.IsLocalMax = true
	if got := matchedAt(t, models.Series{hang}, models.HangingMan); len(got) != 1 {
		t.Fatalf("want hanging man, got %v", got)
	}
	if got := matchedAt(t, models.Series{hang}, models.Hammer); len(got) != 0 {
		t.Fatalf("hammer needs a local minimum, got %v", got)
	}

	red := fb(0, 101, 106, 99.9, 100, 2, 3) // red, body 1, lower 0.1, upper 5
	red.IsLocalMax = true
	if got := matchedAt(t, models.Series{red}, models.ShootingStar); len(got) != 1 {
		t.Fatalf("want shooting star, got %v", got)
	}
	green := fb(0, 100, 106, 99.9, 101, 2, 3)
	green.IsLocalMax = true
	if got := matchedAt(t, models.Series{green}, models.ShootingStar); len(got) != 0 {
		t.Fatalf("shooting star requires a red body")
	}
}

func TestPiercingLine(t *testing.T) {
	prev := fb(0, 110, 111, 99, 100, 2, 8)
	cur := fb(1, 97, 107, 96, 106, 2, 8)
	if got := matchedAt(t, models.Series{prev, cur}, models.PiercingLine); len(got) != 1 || got[0] != 1 {
		t.Fatalf("want piercing at 1, got %v", got)
	}

	// The gap is compared against the current bar's q25, not the previous one.
	prev.Q25Body = 100
	if got := matchedAt(t, models.Series{prev, cur}, models.PiercingLine); len(got) != 1 {
		t.Fatalf("previous q25 must not affect the gap test, got %v", got)
	}
	cur.Q25Body = 4
	if got := matchedAt(t, models.Series{prev, cur}, models.PiercingLine); len(got) != 0 {
		t.Fatalf("gap 3 below current q25 4 must not match, got %v", got)
	}

	short := fb(1, 97, 105, 96, 104, 2, 6) // closes below the red midpoint 105
	if got := matchedAt(t, models.Series{fb(0, 110, 111, 99, 100, 2, 8), short}, models.PiercingLine); len(got) != 0 {
		t.Fatalf("close below midpoint must not match, got %v", got)
	}

	// Only the red bar's median moves: body 10 < q50 11.
	weak := fb(0, 110, 111, 99, 100, 2, 11)
	if got := matchedAt(t, models.Series{weak, fb(1, 97, 107, 96, 106, 2, 8)}, models.PiercingLine); len(got) != 0 {
		t.Fatalf("previous body below its q50 must not match, got %v", got)
	}
}

func TestMorningStar(t *testing.T) {
	s := models.Series{
		fb(0, 110, 111, 99, 100, 3, 8), // long red
		fb(1, 98, 99, 96, 97, 2, 8),    // star, body 1 <= q25 2
		fb(2, 99, 110, 98, 109, 3, 8),  // long green
	}
	if got := matchedAt(t, s, models.MorningStar); len(got) != 1 || got[0] != 2 {
		t.Fatalf("want morning star at 2, got %v", got)
	}
	s[0].Q50Body = 11 // first body 10 no longer long
	if got := matchedAt(t, s, models.MorningStar); len(got) != 0 {
		t.Fatalf("first body below its q50 must not match, got %v", got)
	}
	s[0].Q50Body = 8
	s[1].Q25Body = 0.5
	if got := matchedAt(t, s, models.MorningStar); len(got) != 0 {
		t.Fatalf("star body above its q25 must not match, got %v", got)
	}
}

func TestThreeWhiteSoldiers(t *testing.T) {
	s := models.Series{
		fb(0, 100, 104.2, 99.8, 104, 1, 2),
		fb(1, 102, 106.2, 101.8, 106, 1, 2),
		fb(2, 104, 108.2, 103.8, 108, 1, 2),
	}
	if got := matchedAt(t, s, models.ThreeWhiteSoldiers); len(got) != 1 || got[0] != 2 {
		t.Fatalf("want soldiers at 2, got %v", got)
	}
	s[1] = fb(1, 102, 108, 101.8, 106, 1, 2) // upper wick 2 > 0.25*4
	if got := matchedAt(t, s, models.ThreeWhiteSoldiers); len(got) != 0 {
		t.Fatalf("long wick must not match, got %v", got)
	}
}

func TestInsufficientHistoryIsNotAnError(t *testing.T) {
	s := models.Series{fb(0, 110, 111, 99, 100, 3, 8), fb(1, 98, 99, 96, 97, 2, 8)}
	got := matchedAt(t, s, models.MorningStar)
	if len(got) != 0 {
		t.Fatalf("two bars cannot hold a three-bar pattern, got %v", got)
	}
	ms, _ := Evaluate(nil, models.Hammer)
	if ms == nil {
		t.Fatalf("no matches should be an empty list, not nil")
	}
}

func TestUnrecognizedPattern(t *testing.T) {
	kind, err := models.ParsePatternKind("doji")
	if err != nil {
		t.Fatalf("doji is a catalogue name: %v", err)
	}
	ms, err := Evaluate(models.Series{fb(0, 1, 2, 0, 1.5, 1, 1)}, kind)
	if !errors.Is(err, models.ErrUnrecognizedPattern) {
		t.Fatalf("want ErrUnrecognizedPattern, got %v", err)
	}
	if !errors.Is(err, models.ErrPatternNotImplemented) {
		t.Fatalf("declared kind should also report ErrPatternNotImplemented, got %v", err)
	}
	if ms != nil {
		t.Fatalf("no partial list with an error, got %v", ms)
	}

	if _, err := models.ParsePatternKind("triple_top"); !errors.Is(err, models.ErrUnrecognizedPattern) {
		t.Fatalf("unknown name: want ErrUnrecognizedPattern, got %v", err)
	}
	if _, err := Evaluate(nil, models.PatternKind(99)); !errors.Is(err, models.ErrUnrecognizedPattern) {
		t.Fatalf("out-of-range kind: want ErrUnrecognizedPattern, got %v", err)
	}
}

func TestCatalogueComplete(t *testing.T) {
	for _, k := range models.AllPatternKinds() {
		if _, ok := catalogue[k]; !ok {
			t.Errorf("%s has no catalogue entry", k)
		}
	}
	impl := Implemented()
	if len(impl) != 8 {
		t.Fatalf("want 8 implemented kinds, got %d (%v)", len(impl), impl)
	}
	for _, info := range Catalogue() {
		if info.Implemented && (info.Span < 1 || info.Span > 3) {
			t.Errorf("%s: span %d out of range", info.Kind, info.Span)
		}
		if !info.Implemented && info.Span != 0 {
			t.Errorf("%s: declared kind should not carry a span", info.Kind)
		}
	}
}

func TestMatchesAreChronological(t *testing.T) {
	s := make(models.Series, 0, 6)
	for i := 0; i < 6; i++ {
		b := fb(i, 100, 101.5, 90, 101, 2, 3)
		b.IsLocalMin = i%2 == 0
		s = append(s, b)
	}
	got := matchedAt(t, s, models.Hammer)
	want := []int{0, 2, 4}
	if len(got) != len(want) {
		t.Fatalf("want %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}
