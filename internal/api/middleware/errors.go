package middleware

import (
	"errors"

	"github.com/emicklei/go-restful/v3"
	"github.com/rs/zerolog/log"
)

var ErrEmptyBody = errors.New("request body is missing or invalid")

type ErrorResponse struct {
	Error   string `json:"error" description:"Error message"`
	Code    int    `json:"code" description:"HTTP status code"`
	Details string `json:"details,omitempty" description:"Additional error details"`
}

// HandleError writes err as an ErrorResponse with the given status.
func HandleError(resp *restful.Response, err error, status int) {
	HandleErrorWithDetails(resp, err.Error(), "", status)
}

func HandleErrorWithDetails(resp *restful.Response, message string, details string, status int) {
	if werr := resp.WriteHeaderAndEntity(status, ErrorResponse{
		Error:   message,
		Code:    status,
		Details: details,
	}); werr != nil {
		log.Error().Err(werr).Int("status", status).Msg("Failed to write error response")
	}
}
