package errors

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToHTTPStatus converts an error code to an HTTP status code.
func ToHTTPStatus(code string) int {
	switch code {
	case ErrValidation, ErrUnsupportedGateway:
		return http.StatusBadRequest
	case ErrNotFound:
		return http.StatusNotFound
	case ErrSignature:
		return http.StatusUnauthorized
	case ErrInvalidState, ErrConflict:
		return http.StatusConflict
	case ErrGateway:
		return http.StatusBadGateway
	case ErrGatewayUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ToHTTPError converts an error into an Echo HTTP error.
func ToHTTPError(err error) *echo.HTTPError {
	if err == nil {
		return nil
	}

	var appErr *AppError
	if As(err, &appErr) {
		return echo.NewHTTPError(ToHTTPStatus(appErr.Code()), appErr.Error())
	}

	if echoErr, ok := err.(*echo.HTTPError); ok {
		return echoErr
	}

	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
