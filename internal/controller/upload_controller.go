package controller

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/authz"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/middleware"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/service"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type UploadController struct {
	service service.UploadService
}

func CreateUploadController(g *echo.Group, service service.UploadService, authorizer *middleware.Authorizer, writeLimiter echo.MiddlewareFunc) {
	c := UploadController{
		service: service,
	}
	g.POST("/admin/uploads", c.Upload, authorizer.Require(authz.ActionUploadsWrite), writeLimiter)
	g.POST("/admin/uploads/presign", c.Presign, authorizer.Require(authz.ActionUploadsWrite), writeLimiter)
	g.GET("/admin/uploads/signed-url", c.SignedURL, authorizer.Require(authz.ActionUploadsRead))
	g.DELETE("/admin/uploads/*", c.DeleteObject, authorizer.Require(authz.ActionUploadsDelete))
}

func (c *UploadController) Upload(e echo.Context) error {
	file, err := readFile(e, "file")
	if err != nil {
		log.Error().Err(err).Str("component", "Upload").Msg("")
		return response.WriteErrorResponse(e, err, nil)
	}

	thumbnail := false
	if raw := e.FormValue("generate_thumbnail"); raw != "" {
		thumbnail, err = strconv.ParseBool(raw)
		if err != nil {
			return response.WriteErrorResponse(e, fmt.Errorf("%w: generate_thumbnail must be a boolean", errs.ErrValidation), nil)
		}
	}

	res, err := c.service.Upload(e.Request().Context(), dto.UploadRequest{
		Kind:              e.FormValue("kind"),
		File:              file,
		GenerateThumbnail: thumbnail,
	})
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteCreatedResponse(e, "", res)
}

func (c *UploadController) Presign(e echo.Context) error {
	payload := dto.PresignRequest{}
	err := e.Bind(&payload)
	if err != nil {
		log.Error().Err(err).Str("component", "Presign").Msg("")
		return response.WriteErrorResponse(e, fmt.Errorf("%w: invalid body", errs.ErrValidation), nil)
	}

	res, err := c.service.Presign(e.Request().Context(), payload)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", res)
}

func (c *UploadController) SignedURL(e echo.Context) error {
	ttl := 0
	if raw := e.QueryParam("ttl"); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 0 {
			return response.WriteErrorResponse(e, fmt.Errorf("%w: ttl must be a non-negative number of seconds", errs.ErrValidation), nil)
		}
		ttl = v
	}

	res, err := c.service.SignedURL(e.Request().Context(), e.QueryParam("key"), ttl)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", res)
}

func (c *UploadController) DeleteObject(e echo.Context) error {
	key, err := url.PathUnescape(e.Param("*"))
	if err != nil {
		return response.WriteErrorResponse(e, fmt.Errorf("%w: malformed key", errs.ErrValidation), nil)
	}
	if key == "" {
		key = e.QueryParam("key")
	}

	res, err := c.service.DeleteObject(e.Request().Context(), key)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", res)
}
