package models

// Requests for the pattern HTTP endpoints and the Kafka scan-request topic.

type ScanRequest struct {
	Country     string `query:"country" json:"country" validate:"required"`
	Pattern     string `query:"pattern" json:"pattern" validate:"required"`
	Start       string `query:"start" json:"start" default:"2000-01-01" validate:"datetime=2006-01-02"`
	End         string `query:"end" json:"end" default:"2025-01-01" validate:"datetime=2006-01-02"`
	LookBack    int    `query:"look_back" json:"look_back" default:"3" validate:"gte=1,lte=60"`
	LookForward int    `query:"look_forward" json:"look_forward" default:"1" validate:"gte=1,lte=60"`
}

type ScanAllRequest struct {
	Country     string `query:"country" json:"country" validate:"required"`
	Start       string `query:"start" json:"start" default:"2000-01-01" validate:"datetime=2006-01-02"`
	End         string `query:"end" json:"end" default:"2025-01-01" validate:"datetime=2006-01-02"`
	LookBack    int    `query:"look_back" json:"look_back" default:"3" validate:"gte=1,lte=60"`
	LookForward int    `query:"look_forward" json:"look_forward" default:"1" validate:"gte=1,lte=60"`
}

type FeaturesRequest struct {
	Country     string `query:"country" json:"country" validate:"required"`
	Start       string `query:"start" json:"start" default:"2000-01-01" validate:"datetime=2006-01-02"`
	End         string `query:"end" json:"end" default:"2025-01-01" validate:"datetime=2006-01-02"`
	LookBack    int    `query:"look_back" json:"look_back" default:"3" validate:"gte=1,lte=60"`
	LookForward int    `query:"look_forward" json:"look_forward" default:"1" validate:"gte=1,lte=60"`
	Limit       int    `query:"limit" json:"limit" default:"5000" validate:"gte=1,lte=50000"`
}

type MatchesRequest struct {
	Country string `query:"country" json:"country" validate:"required"`
	Pattern string `query:"pattern" json:"pattern" validate:"required"`
	Start   string `query:"start" json:"start" default:"2000-01-01" validate:"datetime=2006-01-02"`
	End     string `query:"end" json:"end" default:"2025-01-01" validate:"datetime=2006-01-02"`
}
