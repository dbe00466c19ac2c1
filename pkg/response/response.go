package response

import (
	"errors"
	"net/http"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/labstack/echo/v4"
)

type SuccessResponse struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data"`
}

type ErrorResponse struct {
	Status string      `json:"status"`
	Error  string      `json:"error"`
	Errors interface{} `json:"errors,omitempty"`
}

func WriteSuccessResponse(c echo.Context, message string, data interface{}) error {
	resp := SuccessResponse{}
	resp.Status = "success"
	resp.Message = message
	resp.Data = data

	return c.JSON(http.StatusOK, resp)
}

func WriteCreatedResponse(c echo.Context, message string, data interface{}) error {
	resp := SuccessResponse{}
	resp.Status = "success"
	resp.Message = message
	resp.Data = data

	return c.JSON(http.StatusCreated, resp)
}

// WriteErrorResponse falls back to the field errors carried by a
// ValidationErrors value when details is nil.
func WriteErrorResponse(c echo.Context, err error, details interface{}) error {
	statusCode := errs.GetErrorStatusCode(err)

	var fieldErrs errs.ValidationErrors
	if details == nil && errors.As(err, &fieldErrs) {
		details = fieldErrs
	}

	resp := ErrorResponse{}
	resp.Status = "error"
	resp.Error = err.Error()
	resp.Errors = details
	return c.JSON(statusCode, resp)
}
