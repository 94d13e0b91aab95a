package http

import (
	"net/http"
	"time"

	xutil "CandleScan/pkg/util"
)

// ParseDateParam parses a request date. Empty input yields the zero time
// and no error.
func ParseDateParam(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, ok := xutil.ParseDate(s)
	if !ok {
		return time.Time{}, Errorf(http.StatusBadRequest, CodeBadRequest, field, "%s: cannot parse date %q", field, s)
	}
	return t, nil
}
