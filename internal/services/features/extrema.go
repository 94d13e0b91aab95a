package features

import (
	"fmt"

	talib "github.com/markcheno/go-talib"

	"CandleScan/internal/domain/models"
)

// RollingExtremum flags bars whose close equals the minimum (findMin) or
// maximum of the window [i-lookBack, i+lookForward].
//
// Every bar tied at the window extremum is flagged. Bars without a complete
// window, the first lookBack and the last lookForward, are flagged false.
//
// The flag for bar i depends on lookForward later closes, so in a streaming
// setting it only becomes known lookForward bars after the fact. This delay
// is inherent to the detector.
func RollingExtremum(closes []float64, lookBack, lookForward int, findMin bool) ([]bool, error) {
	if lookBack < 0 || lookForward < 0 {
		return nil, fmt.Errorf("%w: look_back=%d look_forward=%d", models.ErrInvalidWindow, lookBack, lookForward)
	}
	n := len(closes)
	flags := make([]bool, n)
	width := lookBack + lookForward + 1
	if n < width {
		return flags, nil
	}

	// talib windows trail: ext[end] covers [end-width+1, end], which is
	// bar i's window when end = i+lookForward.
	var ext []float64
	if findMin {
		ext = talib.Min(closes, width)
	} else {
		ext = talib.Max(closes, width)
	}
	for i := lookBack; i+lookForward < n; i++ {
		flags[i] = closes[i] == ext[i+lookForward]
	}
	return flags, nil
}
