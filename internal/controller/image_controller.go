package controller

import (
	"fmt"
	"net/http"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/service"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const HeaderCache = "X-Cache"

type ImageController struct {
	service service.ImageOptimizerService
}

func CreateImageController(g *echo.Group, service service.ImageOptimizerService) {
	c := ImageController{
		service: service,
	}
	g.GET("/images/optimize", c.Optimize)
}

func (c *ImageController) Optimize(e echo.Context) error {
	payload := dto.OptimizeImageRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Error().Err(err).Str("component", "Optimize").Msg("")
		return response.WriteErrorResponse(e, fmt.Errorf("%w: invalid query", errs.ErrValidation), nil)
	}

	res, err := c.service.Optimize(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	cache := "MISS"
	if res.Cached {
		cache = "HIT"
	}
	e.Response().Header().Set(HeaderCache, cache)
	e.Response().Header().Set("Cache-Control", "public, max-age=86400")

	return e.Blob(http.StatusOK, res.ContentType, res.Data)
}
