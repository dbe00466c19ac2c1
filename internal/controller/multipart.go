package controller

import (
	"fmt"
	"io"
	"mime/multipart"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/labstack/echo/v4"
)

const (
	FieldImageFiles    = "imageFiles"
	FieldDocumentFiles = "documentFiles"
	FieldSpecFiles     = "specFiles"
)

func readFileHeader(fh *multipart.FileHeader) (dto.UploadedFile, error) {
	f, err := fh.Open()
	if err != nil {
		return dto.UploadedFile{}, fmt.Errorf("%w: cannot open %s", errs.ErrMalformedFile, fh.Filename)
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return dto.UploadedFile{}, fmt.Errorf("%w: cannot read %s", errs.ErrMalformedFile, fh.Filename)
	}

	return dto.UploadedFile{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Size:        fh.Size,
		Data:        data,
	}, nil
}

// readFiles returns every file part under field, in submission order.
func readFiles(form *multipart.Form, field string) ([]dto.UploadedFile, error) {
	if form == nil {
		return nil, nil
	}

	var files []dto.UploadedFile
	for _, fh := range form.File[field] {
		f, err := readFileHeader(fh)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}
	return files, nil
}

func readFile(e echo.Context, field string) (dto.UploadedFile, error) {
	fh, err := e.FormFile(field)
	if err != nil {
		return dto.UploadedFile{}, fmt.Errorf("%w: %s is required", errs.ErrValidation, field)
	}
	return readFileHeader(fh)
}

// readProductForm collects scalar fields and file parts from a multipart or
// url-encoded submission.
func readProductForm(e echo.Context) (form dto.ProductForm, err error) {
	params, err := e.FormParams()
	if err != nil {
		return form, fmt.Errorf("%w: unreadable form body", errs.ErrValidation)
	}

	form.Fields = map[string][]string(params)
	form.ID = params.Get("id")

	mf := e.Request().MultipartForm
	if form.ImageFiles, err = readFiles(mf, FieldImageFiles); err != nil {
		return form, err
	}
	if form.DocumentFiles, err = readFiles(mf, FieldDocumentFiles); err != nil {
		return form, err
	}
	if form.SpecFiles, err = readFiles(mf, FieldSpecFiles); err != nil {
		return form, err
	}

	return form, nil
}
