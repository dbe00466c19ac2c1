package controller

import (
	"fmt"
	"strconv"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/authz"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/middleware"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/service"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/response"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type ProductController struct {
	service service.ProductService
}

func CreateProductController(g *echo.Group, service service.ProductService, authorizer *middleware.Authorizer, writeLimiter echo.MiddlewareFunc) {
	c := ProductController{
		service: service,
	}
	g.GET("/admin/products", c.GetProducts, authorizer.Require(authz.ActionProductsRead))
	g.GET("/admin/products/:id", c.GetProduct, authorizer.Require(authz.ActionProductsRead))
	g.POST("/admin/products", c.SaveProduct, authorizer.Require(authz.ActionProductsWrite), writeLimiter)
	g.PUT("/admin/products/:id", c.UpdateProduct, authorizer.Require(authz.ActionProductsWrite), writeLimiter)
	g.DELETE("/admin/products/:id", c.DeleteProduct, authorizer.Require(authz.ActionProductsDelete))
}

func (c *ProductController) GetProducts(e echo.Context) error {
	filter := pkgdto.Filter{}
	err := e.Bind(&filter)
	if err != nil {
		log.Error().Err(err).Str("component", "GetProducts").Msg("")
		return response.WriteErrorResponse(e, fmt.Errorf("%w: invalid filter", errs.ErrValidation), nil)
	}

	res, err := c.service.GetProducts(e.Request().Context(), filter)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", res)
}

func (c *ProductController) GetProduct(e echo.Context) error {
	data, err := c.service.GetProduct(e.Request().Context(), e.Param("id"))
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", data)
}

// SaveProduct creates a product, or updates one when the form carries an id.
func (c *ProductController) SaveProduct(e echo.Context) error {
	form, err := readProductForm(e)
	if err != nil {
		log.Error().Err(err).Str("component", "SaveProduct").Msg("")
		return response.WriteErrorResponse(e, err, nil)
	}

	data, err := c.service.SaveProduct(e.Request().Context(), form)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	if form.ID == "" {
		return response.WriteCreatedResponse(e, "", data)
	}
	return response.WriteSuccessResponse(e, "", data)
}

func (c *ProductController) UpdateProduct(e echo.Context) error {
	form, err := readProductForm(e)
	if err != nil {
		log.Error().Err(err).Str("component", "UpdateProduct").Msg("")
		return response.WriteErrorResponse(e, err, nil)
	}

	form.ID = e.Param("id")
	data, err := c.service.SaveProduct(e.Request().Context(), form)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", data)
}

func (c *ProductController) DeleteProduct(e echo.Context) error {
	purge := false
	if raw := e.QueryParam("purge_assets"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return response.WriteErrorResponse(e, fmt.Errorf("%w: purge_assets must be a boolean", errs.ErrValidation), nil)
		}
		purge = v
	}

	err := c.service.DeleteProduct(e.Request().Context(), e.Param("id"), purge)
	if err != nil {
		return response.WriteErrorResponse(e, err, nil)
	}

	return response.WriteSuccessResponse(e, "", nil)
}
