package webserver

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/lachlan2k/school-portal/internal/api"
	"github.com/lachlan2k/school-portal/internal/auth"
)

var (
	errUnauthorized   = echo.NewHTTPError(http.StatusUnauthorized, "user not authenticated")
	errUnknownEntity  = echo.NewHTTPError(http.StatusNotFound, "unknown resource")
	errAPIUnreachable = echo.NewHTTPError(http.StatusBadGateway, "Unable to reach the server, please try again")
)

// fromAPIError turns a failed resource call into something the error handler can show
func fromAPIError(err error) error {
	var apiErr *api.Error
	if errors.As(err, &apiErr) {
		status := apiErr.Status
		if status < http.StatusBadRequest {
			status = http.StatusBadGateway
		}
		return echo.NewHTTPError(status, apiErr.Message).SetInternal(err)
	}

	return errAPIUnreachable.WithInternal(err)
}

func appHTTPErrorHandler(err error, c echo.Context) {
	var code int
	var message any

	var httpErr *echo.HTTPError
	var fieldErrs auth.FieldErrors

	switch {
	case errors.As(err, &httpErr):
		if httpErr.Internal != nil {
			c.Logger().Warnf("%s %s: %v", c.Request().Method, c.Request().URL.Path, httpErr.Internal)
			if herr, ok := httpErr.Internal.(*echo.HTTPError); ok {
				httpErr = herr
			}
		}
		code = httpErr.Code
		message = httpErr.Message
	case errors.As(err, &fieldErrs):
		code = http.StatusBadRequest
		message = echo.Map{"error": fieldErrs.Error(), "fields": fieldErrs}
	default: // any other error is a server error
		c.Logger().Error(err)
		code = http.StatusInternalServerError
		message = http.StatusText(http.StatusInternalServerError)
	}

	if c.Echo().Debug {
		message = echo.Map{"error": err.Error()}
	} else if m, ok := message.(string); ok {
		message = echo.Map{"error": m}
	}

	if !c.Response().Committed {
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, message)
		}
		if err != nil {
			c.Logger().Error(err)
		}
	}
}
