package service

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path"
	"strings"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/domain"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/imaging"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/storage"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/repository"
	pkgdto "github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/formschema"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/utils"
	"github.com/rs/zerolog/log"
)

var documentTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"text/plain": true,
	"text/csv":   true,
}

type ProductServiceImpl struct {
	repo      repository.ProductRepository
	storage   ObjectStorage
	imager    ImageProcessor
	publisher EventPublisher
	schema    formschema.Schema
	config    config.Config
}

func CreateProductService(repo repository.ProductRepository, storage ObjectStorage, imager ImageProcessor, publisher EventPublisher, config config.Config) ProductService {
	return &ProductServiceImpl{
		repo:      repo,
		storage:   storage,
		imager:    imager,
		publisher: publisher,
		schema:    productSchema(config.CatalogConfig.DefaultCurrency),
		config:    config,
	}
}

// uploadedAssets holds the URLs produced by one submission, in upload order.
type uploadedAssets struct {
	images         []string
	thumbnails     []string
	documents      domain.AssetList
	specifications domain.AssetList
}

// SaveProduct creates the product when form.ID is empty and updates it
// otherwise. Fields and files are fully validated before the first upload.
func (s *ProductServiceImpl) SaveProduct(ctx context.Context, form dto.ProductForm) (data domain.Product, err error) {
	mode := formschema.ModeCreate
	if form.ID != "" {
		mode = formschema.ModeUpdate
	}

	vals, err := s.schema.Coerce(form.Fields, mode)
	if err != nil {
		return data, err
	}

	// Pricing is checked against the merged record so an update that only
	// sends sale_price is still compared with the stored base_price.
	draft := s.newProduct()
	if mode == formschema.ModeUpdate {
		draft, err = s.repo.GetProductByID(ctx, form.ID)
		if err != nil {
			return data, err
		}
	}
	applyProductValues(&draft, vals)
	if err = pricingError(draft); err != nil {
		return data, err
	}

	if err = s.validateFiles(form); err != nil {
		return data, err
	}

	derivatives, err := s.processImages(ctx, form.ImageFiles)
	if err != nil {
		return data, err
	}

	assets, err := s.uploadAssets(ctx, form, derivatives)
	if err != nil {
		return data, err
	}

	if mode == formschema.ModeCreate {
		data, err = s.createProduct(ctx, draft, vals, assets)
	} else {
		data, err = s.updateProduct(ctx, form.ID, vals, assets)
	}
	if err != nil {
		return data, err
	}

	s.publish(ctx, data.ID, dto.KafkaMessage{
		EventType: dto.EventProductSaved,
		Data:      productEvent(data),
	})

	return data, nil
}

func (s *ProductServiceImpl) newProduct() domain.Product {
	return domain.Product{
		Currency:       s.config.CatalogConfig.DefaultCurrency,
		Status:         domain.StatusDraft,
		Images:         domain.StringList{},
		Documents:      domain.AssetList{},
		Specifications: domain.AssetList{},
	}
}

func (s *ProductServiceImpl) createProduct(ctx context.Context, p domain.Product, vals formschema.Values, assets uploadedAssets) (domain.Product, error) {
	mergeAssets(&p, vals, assets)
	if p.Slug == "" {
		p.Slug = utils.Slugify(p.Name)
	}

	return s.repo.AddProduct(ctx, p)
}

// updateProduct re-reads the row under lock so concurrent submissions append
// to the latest persisted lists.
func (s *ProductServiceImpl) updateProduct(ctx context.Context, id string, vals formschema.Values, assets uploadedAssets) (res domain.Product, err error) {
	err = s.repo.HandleTrx(ctx, func(ctx context.Context, repo repository.ProductRepository) error {
		current, err := repo.GetProductByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}

		applyProductValues(&current, vals)
		mergeAssets(&current, vals, assets)
		if current.Slug == "" {
			current.Slug = utils.Slugify(current.Name)
		}
		if err := pricingError(current); err != nil {
			return err
		}

		res, err = repo.UpdateProduct(ctx, current)
		return err
	})

	return res, err
}

// mergeAssets appends newly uploaded URLs to the base lists. existing_images,
// existing_documents and specifications replace the persisted base when they
// decode; otherwise the persisted lists are kept.
func mergeAssets(p *domain.Product, vals formschema.Values, assets uploadedAssets) {
	images := formschema.As[[]string](vals.Get("existing_images")).OrElse(p.Images)
	documents := formschema.As[[]domain.Asset](vals.Get("existing_documents")).OrElse(p.Documents)
	specifications := formschema.As[[]domain.Asset](vals.Get("specifications")).OrElse(p.Specifications)

	p.Images = append(append(domain.StringList{}, images...), assets.images...)
	p.Documents = append(append(domain.AssetList{}, documents...), assets.documents...)
	p.Specifications = append(append(domain.AssetList{}, specifications...), assets.specifications...)

	if p.Thumbnail == nil || *p.Thumbnail == "" {
		switch {
		case len(assets.thumbnails) > 0:
			p.Thumbnail = &assets.thumbnails[0]
		case len(p.Images) > 0:
			first := p.Images[0]
			p.Thumbnail = &first
		}
	}
}

func pricingError(p domain.Product) error {
	err := domain.ValidatePricing(p.BasePrice, p.SalePrice, p.CostPrice)
	if err == nil {
		return nil
	}

	var fieldErrs errs.ValidationErrors
	switch {
	case errors.Is(err, domain.ErrSalePriceAboveBase):
		fieldErrs.Add("sale_price", err.Error())
	default:
		fieldErrs.Add("base_price", err.Error())
	}
	return fieldErrs
}

func (s *ProductServiceImpl) validateFiles(form dto.ProductForm) error {
	for _, f := range form.ImageFiles {
		if err := s.imager.Validate(f.ContentType, f.Size); err != nil {
			return fmt.Errorf("%s: %w", f.Name, err)
		}
	}

	for _, f := range append(append([]dto.UploadedFile{}, form.DocumentFiles...), form.SpecFiles...) {
		if err := validateDocument(f, s.config.UploadConfig.DocumentMaxBytes); err != nil {
			return err
		}
	}

	return nil
}

func validateDocument(f dto.UploadedFile, maxBytes int64) error {
	contentType, _, _ := mime.ParseMediaType(f.ContentType)
	if !documentTypes[contentType] {
		return fmt.Errorf("%w: %s has type %q", errs.ErrUnsupportedMediaType, f.Name, f.ContentType)
	}
	if maxBytes > 0 && f.Size > maxBytes {
		return fmt.Errorf("%w: %s is %d bytes, limit is %d", errs.ErrPayloadTooLarge, f.Name, f.Size, maxBytes)
	}
	return nil
}

func (s *ProductServiceImpl) processImages(ctx context.Context, files []dto.UploadedFile) ([]imaging.Result, error) {
	if len(files) == 0 {
		return nil, nil
	}

	inputs := make([]imaging.Input, len(files))
	for i, f := range files {
		inputs[i] = imaging.Input{
			Name:        f.Name,
			Data:        f.Data,
			ContentType: f.ContentType,
			Options:     s.imager.DefaultOptions(true),
		}
	}

	results, err := s.imager.ProcessAll(ctx, inputs)
	if err != nil {
		log.Error().Err(err).Str("component", "SaveProduct").Msg("")
		return nil, err
	}

	return results, nil
}

func (s *ProductServiceImpl) uploadAssets(ctx context.Context, form dto.ProductForm, derivatives []imaging.Result) (assets uploadedAssets, err error) {
	for i, res := range derivatives {
		name := swapExt(form.ImageFiles[i].Name, res.Primary.Ext)
		key := s.storage.GenerateKey(name, storage.FolderImages)

		obj, err := s.storage.Put(ctx, key, res.Primary.Data, res.Primary.ContentType, originalNameMeta(form.ImageFiles[i].Name))
		if err != nil {
			return assets, err
		}
		assets.images = append(assets.images, obj.URL)

		if res.Thumbnail != nil {
			thumb, err := s.storage.Put(ctx, storage.ThumbnailKey(key), res.Thumbnail.Data, res.Thumbnail.ContentType, nil)
			if err != nil {
				return assets, err
			}
			assets.thumbnails = append(assets.thumbnails, thumb.URL)
		}
	}

	assets.documents, err = s.uploadFiles(ctx, form.DocumentFiles, storage.FolderDocuments)
	if err != nil {
		return assets, err
	}

	assets.specifications, err = s.uploadFiles(ctx, form.SpecFiles, storage.FolderSpecifications)
	if err != nil {
		return assets, err
	}

	return assets, nil
}

func (s *ProductServiceImpl) uploadFiles(ctx context.Context, files []dto.UploadedFile, folder string) (domain.AssetList, error) {
	list := domain.AssetList{}
	for _, f := range files {
		obj, err := s.storage.Put(ctx, s.storage.GenerateKey(f.Name, folder), f.Data, f.ContentType, originalNameMeta(f.Name))
		if err != nil {
			return nil, err
		}
		list = append(list, domain.Asset{URL: obj.URL, Name: f.Name, Type: f.ContentType})
	}
	return list, nil
}

// originalNameMeta escapes the client file name; object metadata travels as
// HTTP headers.
func originalNameMeta(name string) map[string]string {
	return map[string]string{"original-name": url.PathEscape(name)}
}

func swapExt(name, ext string) string {
	if ext == "" {
		return name
	}
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}

func (s *ProductServiceImpl) GetProduct(ctx context.Context, id string) (data domain.Product, err error) {
	return s.repo.GetProductByID(ctx, id)
}

func (s *ProductServiceImpl) GetProducts(ctx context.Context, filter pkgdto.Filter) (res pkgdto.PaginationResponse[domain.Product], err error) {
	filter.Normalize()

	data, err := s.repo.GetProducts(ctx, filter)
	if err != nil {
		return
	}

	total, err := s.repo.CountProducts(ctx, filter)
	if err != nil {
		return
	}

	if data == nil {
		data = []domain.Product{}
	}

	res.Records = data
	res.Metadata = pkgdto.PaginationMetadata{
		TotalCount: total,
		Page:       uint64(filter.Page),
		Limit:      filter.Limit,
		HasMore:    uint64(filter.Offset()+len(data)) < total,
	}

	return res, nil
}

// DeleteProduct removes the record. With purgeAssets every stored object the
// record references is deleted afterwards; failures there are only logged.
func (s *ProductServiceImpl) DeleteProduct(ctx context.Context, id string, purgeAssets bool) (err error) {
	var product domain.Product
	if purgeAssets {
		product, err = s.repo.GetProductByID(ctx, id)
		if err != nil {
			return err
		}
	}

	if err = s.repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	if purgeAssets {
		s.purgeAssets(ctx, product)
	}

	s.publish(ctx, id, dto.KafkaMessage{
		EventType: dto.EventProductDeleted,
		Data:      dto.ProductEvent{ProductID: id},
	})

	return nil
}

func (s *ProductServiceImpl) purgeAssets(ctx context.Context, p domain.Product) {
	seen := make(map[string]bool)
	var keys []string
	add := func(key string) {
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}

	for _, u := range p.AssetURLs() {
		key, ok := s.storage.KeyFromURL(u)
		if !ok {
			continue
		}
		add(key)
		if strings.HasPrefix(key, storage.FolderImages+"/") && !storage.IsThumbnailKey(key) {
			add(storage.ThumbnailKey(key))
		}
	}

	for _, key := range keys {
		if err := s.storage.Delete(ctx, key); err != nil {
			log.Error().Err(err).Str("component", "DeleteProduct").Str("key", key).Msg("")
		}
	}
}

func (s *ProductServiceImpl) publish(ctx context.Context, key string, msg dto.KafkaMessage) {
	if err := s.publisher.Publish(ctx, key, msg); err != nil {
		log.Error().Err(err).Str("component", "publish").Str("event_type", msg.EventType).Msg("")
	}
}

func productEvent(p domain.Product) dto.ProductEvent {
	ev := dto.ProductEvent{ProductID: p.ID, Status: p.Status}
	if p.SKU != nil {
		ev.SKU = *p.SKU
	}
	return ev
}
