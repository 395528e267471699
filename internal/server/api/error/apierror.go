// Package apierror builds the problem+json errors returned by API handlers.
package apierror

import (
	"errors"

	"github.com/Alia5/PadBridge/apitypes"
)

func ErrBadRequest(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 400, Title: "Bad Request", Detail: detail}
}
func ErrUnauthorized(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 401, Title: "Unauthorized", Detail: detail}
}
func ErrNotFound(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 404, Title: "Not Found", Detail: detail}
}
func ErrConflict(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 409, Title: "Conflict", Detail: detail}
}
func ErrInternal(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 500, Title: "Internal Server Error", Detail: detail}
}
func ErrUnavailable(detail string) apitypes.ApiError {
	return apitypes.ApiError{Status: 503, Title: "Service Unavailable", Detail: detail}
}

// WrapError normalizes any error into apitypes.ApiError.
func WrapError(err error) apitypes.ApiError {
	var pe *apitypes.ApiError
	if errors.As(err, &pe) {
		return *pe
	}
	var ve apitypes.ApiError
	if errors.As(err, &ve) {
		return ve
	}
	// Default wrap as internal error
	return ErrInternal(err.Error())
}
