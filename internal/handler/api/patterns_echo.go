package api

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"CandleScan/internal/domain/models"
	domrepo "CandleScan/internal/domain/repository"
	"CandleScan/internal/services/patterns"
	"CandleScan/internal/usecase"
	xhttp "CandleScan/pkg/http"
	xlogger "CandleScan/pkg/logger"
)

// PatternsEchoHandler serves the pattern catalogue and analyses over HTTP.
type PatternsEchoHandler struct {
	logger  *xlogger.Logger
	uc      *usecase.PatternAnalysis
	history domrepo.Storage
}

// NewPatternsEchoHandler creates the handler. history may be nil, in which
// case the stored-match route answers 404.
func NewPatternsEchoHandler(logger *xlogger.Logger, uc *usecase.PatternAnalysis, history domrepo.Storage) *PatternsEchoHandler {
	if logger == nil {
		logger = xlogger.Nop()
	}
	return &PatternsEchoHandler{logger: logger, uc: uc, history: history}
}

func (h *PatternsEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/patterns", h.Catalogue)
	g.GET("/patterns/scan", h.Scan)
	g.GET("/patterns/scan-all", h.ScanAll)
	g.GET("/series/features", h.Features)
	g.GET("/countries", h.Countries)
	g.GET("/matches", h.Matches)
}

func (h *PatternsEchoHandler) Catalogue(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderCacheControl, "public, max-age=3600")
	return xhttp.OK(c, patterns.Catalogue())
}

func (h *PatternsEchoHandler) Scan(c echo.Context) error {
	req := &models.ScanRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	kind, err := models.ParsePatternKind(req.Pattern)
	if err != nil {
		return h.fail(c, "scan", err)
	}
	start, end, err := dateRange(req.Start, req.End)
	if err != nil {
		return xhttp.Fail(c, err)
	}

	res, err := h.uc.Run(c.Request().Context(), usecase.AnalysisParams{
		Country:     req.Country,
		Kind:        kind,
		Start:       start,
		End:         end,
		LookBack:    req.LookBack,
		LookForward: req.LookForward,
	})
	if err != nil {
		return h.fail(c, "scan", err)
	}
	return xhttp.OK(c, res)
}

func (h *PatternsEchoHandler) ScanAll(c echo.Context) error {
	req := &models.ScanAllRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	start, end, err := dateRange(req.Start, req.End)
	if err != nil {
		return xhttp.Fail(c, err)
	}

	res, err := h.uc.ScanAll(c.Request().Context(), usecase.AnalysisParams{
		Country:     req.Country,
		Start:       start,
		End:         end,
		LookBack:    req.LookBack,
		LookForward: req.LookForward,
	})
	if err != nil {
		return h.fail(c, "scan_all", err)
	}
	return xhttp.OK(c, res)
}

// Features returns the newest Limit featured bars, oldest first, with the
// full series length as total.
func (h *PatternsEchoHandler) Features(c echo.Context) error {
	req := &models.FeaturesRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	start, end, err := dateRange(req.Start, req.End)
	if err != nil {
		return xhttp.Fail(c, err)
	}

	s, err := h.uc.Featured(c.Request().Context(), usecase.AnalysisParams{
		Country:     req.Country,
		Start:       start,
		End:         end,
		LookBack:    req.LookBack,
		LookForward: req.LookForward,
	})
	if err != nil {
		return h.fail(c, "features", err)
	}
	rows := s
	if len(rows) > req.Limit {
		rows = rows[len(rows)-req.Limit:]
	}
	return xhttp.List(c, rows, len(s))
}

func (h *PatternsEchoHandler) Countries(c echo.Context) error {
	list, err := h.uc.Countries(c.Request().Context())
	if err != nil {
		return h.fail(c, "countries", err)
	}
	return xhttp.List(c, list, len(list))
}

// Matches reads previously stored single-bar matches back from storage.
func (h *PatternsEchoHandler) Matches(c echo.Context) error {
	if h.history == nil {
		return xhttp.Fail(c, xhttp.Errorf(http.StatusNotFound, xhttp.CodeNotFound, "", "match history requires the clickhouse backend"))
	}
	req := &models.MatchesRequest{}
	if verr := xhttp.Bind(c, req); verr != nil {
		return xhttp.Invalid(c, verr)
	}
	kind, err := models.ParsePatternKind(req.Pattern)
	if err != nil {
		return h.fail(c, "matches", err)
	}
	start, end, err := dateRange(req.Start, req.End)
	if err != nil {
		return xhttp.Fail(c, err)
	}
	list, err := h.history.Query(c.Request().Context(), req.Country, kind, start, end)
	if err != nil {
		return h.fail(c, "matches", err)
	}
	return xhttp.List(c, list, len(list))
}

func (h *PatternsEchoHandler) fail(c echo.Context, op string, err error) error {
	appErr := domainErrors.Resolve(err)
	if appErr.Status >= http.StatusInternalServerError {
		h.logger.Error(op+" usecase error", xlogger.Error(err))
	} else {
		h.logger.Debug(op+" rejected", xlogger.String("code", appErr.Code), xlogger.Error(err))
	}
	return xhttp.Fail(c, appErr)
}

func dateRange(from, to string) (time.Time, time.Time, error) {
	start, err := xhttp.ParseDateParam("start", from)
	if err != nil {
		return start, time.Time{}, err
	}
	end, err := xhttp.ParseDateParam("end", to)
	if err != nil {
		return start, end, err
	}
	if !start.IsZero() && !end.IsZero() && start.After(end) {
		return start, end, xhttp.Errorf(http.StatusBadRequest, xhttp.CodeBadRequest, "start", "start %s is after end %s",
			start.Format(models.DateLayout), end.Format(models.DateLayout))
	}
	return start, end, nil
}

// domainErrors maps sentinels to responses. Not-implemented comes first
// since it also matches ErrUnrecognizedPattern.
var domainErrors = xhttp.ErrorMap{
	{Target: models.ErrPatternNotImplemented, Status: http.StatusBadRequest, Code: xhttp.CodeNotImplemented, Field: "pattern"},
	{Target: models.ErrUnrecognizedPattern, Status: http.StatusBadRequest, Code: xhttp.CodeUnrecognizedPattern, Field: "pattern"},
	{Target: models.ErrEmptySeries, Status: http.StatusNotFound, Code: xhttp.CodeEmptySeries},
	{Target: models.ErrSeriesNotFound, Status: http.StatusNotFound, Code: xhttp.CodeSeriesNotFound, Field: "country"},
	{Target: models.ErrInvalidRange, Status: http.StatusBadRequest, Code: xhttp.CodeBadRequest, Field: "start"},
}
