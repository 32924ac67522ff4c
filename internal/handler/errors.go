package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"fintrack-sync/internal/model"
	"fintrack-sync/internal/service"
	"fintrack-sync/pkg/apierror"
	"fintrack-sync/pkg/response"
)

// toAPIError maps coordinator errors onto HTTP errors.
func toAPIError(err error) *apierror.Error {
	var (
		validation *model.ValidationError
		notFound   *service.NotFoundError
		apiErr     *apierror.Error
	)

	switch {
	case errors.As(err, &apiErr):
		return apiErr
	case errors.As(err, &validation):
		return apierror.ValidationError("Invalid request", apierror.FieldError{
			Field:   validation.Field,
			Message: validation.Reason,
		})
	case errors.As(err, &notFound):
		return apierror.NotFound(notFound.Error())
	case errors.Is(err, service.ErrPartialJoin):
		return apierror.PartialFetch(err.Error(), nil)
	case errors.Is(err, context.DeadlineExceeded):
		return apierror.GatewayTimeout("")
	case errors.Is(err, service.ErrGateway):
		return apierror.BadGateway("")
	default:
		return apierror.InternalError("")
	}
}

// writeError logs err against the request logger and writes the mapped
// response.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := toAPIError(err)

	logger := zerolog.Ctx(r.Context())
	event := logger.Debug()
	if apiErr.StatusCode >= http.StatusInternalServerError {
		event = logger.Error()
	}
	event.Err(err).Str("code", apiErr.Code).Msg("request failed")

	response.Error(w, apiErr)
}
