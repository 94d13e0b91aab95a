package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"CandleScan/internal/domain/models"
	drepo "CandleScan/internal/domain/repository"
	pkgkafka "CandleScan/pkg/kafka"
	applogger "CandleScan/pkg/logger"
	"CandleScan/pkg/util"
)

// ScanRequestHandler runs analyses requested over Kafka. A request with
// pattern "all" (or no pattern) scans the whole catalogue. Results leave
// through the MatchRouter.
type ScanRequestHandler struct {
	topic        string
	uc           *PatternAnalysis
	metrics      drepo.Metrics
	l            *applogger.Logger
	defaultStart time.Time
	defaultEnd   time.Time
}

func NewScanRequestHandler(topic string, uc *PatternAnalysis, metrics drepo.Metrics, l *applogger.Logger, start, end time.Time) *ScanRequestHandler {
	if l == nil {
		l = applogger.Nop()
	}
	return &ScanRequestHandler{topic: topic, uc: uc, metrics: metrics, l: l, defaultStart: start, defaultEnd: end}
}

func (h *ScanRequestHandler) Topic() string { return h.topic }

// Handle returns an error only for failures worth retrying. Malformed
// requests and unknown patterns are logged and dropped.
func (h *ScanRequestHandler) Handle(ctx context.Context, b []byte) error {
	var req models.ScanRequest
	if err := json.Unmarshal(b, &req); err != nil {
		h.reject("unmarshal", err)
		return nil
	}
	p, all, err := h.params(req)
	if err != nil {
		h.reject("params", err)
		return nil
	}

	if all {
		_, err = h.uc.ScanAll(ctx, p)
	} else {
		_, err = h.uc.Run(ctx, p)
	}
	if err == nil {
		return nil
	}
	if permanent(err) {
		h.reject("analysis", err)
		return nil
	}
	h.metrics.RecordError("consumer_analysis")
	return err
}

func (h *ScanRequestHandler) params(req models.ScanRequest) (AnalysisParams, bool, error) {
	p := AnalysisParams{
		Country:     strings.TrimSpace(req.Country),
		Start:       h.defaultStart,
		End:         h.defaultEnd,
		LookBack:    req.LookBack,
		LookForward: req.LookForward,
	}
	if p.Country == "" {
		return p, false, errors.New("country required")
	}
	if p.LookBack < 0 || p.LookForward < 0 {
		return p, false, models.ErrInvalidWindow
	}
	if req.Start != "" {
		t, ok := util.ParseDate(req.Start)
		if !ok {
			return p, false, fmt.Errorf("bad start %q", req.Start)
		}
		p.Start = t
	}
	if req.End != "" {
		t, ok := util.ParseDate(req.End)
		if !ok {
			return p, false, fmt.Errorf("bad end %q", req.End)
		}
		p.End = t
	}

	name := strings.TrimSpace(req.Pattern)
	if name == "" || strings.EqualFold(name, "all") {
		return p, true, nil
	}
	kind, err := models.ParsePatternKind(name)
	if err != nil {
		return p, false, err
	}
	p.Kind = kind
	return p, false, nil
}

func (h *ScanRequestHandler) reject(stage string, err error) {
	h.metrics.RecordError("request_invalid")
	h.l.Warn("scan request dropped",
		applogger.String("topic", h.topic),
		applogger.String("stage", stage),
		applogger.Error(err),
	)
}

func permanent(err error) bool {
	return errors.Is(err, models.ErrUnrecognizedPattern) ||
		errors.Is(err, models.ErrSeriesNotFound) ||
		errors.Is(err, models.ErrEmptySeries) ||
		errors.Is(err, models.ErrInvalidWindow) ||
		errors.Is(err, models.ErrInvalidRange) ||
		errors.Is(err, models.ErrInvalidBar) ||
		errors.Is(err, models.ErrUnorderedSeries)
}

var _ pkgkafka.MessageHandler = (*ScanRequestHandler)(nil)
