package http

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Envelope wraps every response body.
type Envelope struct {
	Status  int         `json:"status" example:"200"`
	Message string      `json:"message" example:"OK"`
	Data    interface{} `json:"data,omitempty"`
}

// ListData is the payload of list endpoints. Total may exceed len(Rows)
// when the handler truncates.
type ListData struct {
	Rows  interface{} `json:"rows"`
	Total int         `json:"total"`
}

// ValidationError describes one rejected request field.
type ValidationError struct {
	Code    string                 `json:"code,omitempty" example:"ERR_REQUIRED"`
	Field   string                 `json:"field,omitempty" example:"country"`
	Message string                 `json:"message,omitempty" example:"country is required"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Respond writes data in the envelope with the given status.
func Respond(c echo.Context, status int, data interface{}) error {
	return c.JSON(status, Envelope{Status: status, Message: http.StatusText(status), Data: data})
}

func OK(c echo.Context, data interface{}) error {
	return Respond(c, http.StatusOK, data)
}

func List(c echo.Context, rows interface{}, total int) error {
	return Respond(c, http.StatusOK, ListData{Rows: rows, Total: total})
}

// Invalid answers 400 with the field errors from Bind.
func Invalid(c echo.Context, errs []ValidationError) error {
	return Respond(c, http.StatusBadRequest, errs)
}

// Fail writes err. An *AppError is sent as a one-element list under its own
// status; anything else becomes a generic 500 so internals never leak.
func Fail(c echo.Context, err error) error {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return Respond(c, appErr.Status, []*AppError{appErr})
	}
	return Respond(c, http.StatusInternalServerError, "Something went wrong")
}
