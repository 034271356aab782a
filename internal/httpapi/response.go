package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/flightwx/internal/platform/apierr"
	"github.com/yungbote/flightwx/internal/platform/httpx"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, err error) {
	ae := apierr.From(err)
	msg := "unknown error"
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	c.JSON(ae.Status, ErrorEnvelope{
		Error: APIError{
			Message: msg,
			Code:    ae.Code,
		},
	})
}

func RespondOK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// upstreamError maps a failed upstream call onto the status the caller sees.
func upstreamError(err error) *apierr.Error {
	var ae *apierr.Error
	if errors.As(err, &ae) {
		return ae
	}
	if httpx.IsTimeout(err) {
		return apierr.New(http.StatusGatewayTimeout, "upstream_timeout", err)
	}
	switch code := httpx.StatusCode(err); {
	case code == http.StatusNotFound:
		return apierr.NotFound("not_found", err)
	case code == http.StatusBadRequest:
		return apierr.BadRequest("invalid_station", err)
	}
	return apierr.New(http.StatusBadGateway, "upstream_error", err)
}
