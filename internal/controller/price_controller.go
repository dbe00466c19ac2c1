package controller

import (
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/authz"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/middleware"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/service"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type PriceController struct {
	service service.BulkPriceService
}

func CreatePriceController(g *echo.Group, service service.BulkPriceService, authorizer *middleware.Authorizer, writeLimiter echo.MiddlewareFunc) {
	c := PriceController{
		service: service,
	}
	g.POST("/admin/products/bulk-update-prices", c.BulkUpdatePrices, authorizer.Require(authz.ActionPricesWrite), writeLimiter)
}

// BulkUpdatePrices answers 200 with the report whenever the file could be
// parsed; row failures live inside the report.
func (c *PriceController) BulkUpdatePrices(e echo.Context) error {
	file, err := readFile(e, "file")
	if err != nil {
		log.Error().Err(err).Str("component", "BulkUpdatePrices").Msg("")
		return response.WriteErrorResponse(e, err, nil)
	}

	report, err := c.service.ReconcilePrices(e.Request().Context(), dto.BulkPriceRequest{
		File:        file,
		Mode:        e.FormValue("mode"),
		SelectedIDs: e.FormValue("selected_ids"),
	})
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", report)
}
