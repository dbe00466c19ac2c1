package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/config"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/imaging"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/storage"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/rs/zerolog/log"
)

const DefaultSignedURLTTL = time.Hour

type UploadServiceImpl struct {
	storage   ObjectStorage
	imager    ImageProcessor
	publisher EventPublisher
	config    config.Config
}

func CreateUploadService(storage ObjectStorage, imager ImageProcessor, publisher EventPublisher, config config.Config) UploadService {
	return &UploadServiceImpl{
		storage:   storage,
		imager:    imager,
		publisher: publisher,
		config:    config,
	}
}

func uploadFolder(kind string) (string, error) {
	switch kind {
	case dto.UploadKindImage, "":
		return storage.FolderImages, nil
	case dto.UploadKindDocument:
		return storage.FolderDocuments, nil
	case dto.UploadKindSpecification:
		return storage.FolderSpecifications, nil
	}
	return "", fmt.Errorf("%w: kind must be one of image, document, specification", errs.ErrValidation)
}

// Upload stores one file. Images go through the derivative pipeline first.
func (s *UploadServiceImpl) Upload(ctx context.Context, req dto.UploadRequest) (res dto.UploadResponse, err error) {
	folder, err := uploadFolder(req.Kind)
	if err != nil {
		return res, err
	}
	if len(req.File.Data) == 0 {
		return res, fmt.Errorf("%w: file is required", errs.ErrValidation)
	}

	if folder != storage.FolderImages {
		if err = validateDocument(req.File, s.config.UploadConfig.DocumentMaxBytes); err != nil {
			return res, err
		}

		obj, err := s.storage.Put(ctx, s.storage.GenerateKey(req.File.Name, folder), req.File.Data, req.File.ContentType, originalNameMeta(req.File.Name))
		if err != nil {
			return res, err
		}
		return uploadResponse(obj), nil
	}

	results, err := s.imager.ProcessAll(ctx, []imaging.Input{{
		Name:        req.File.Name,
		Data:        req.File.Data,
		ContentType: req.File.ContentType,
		Options:     s.imager.DefaultOptions(req.GenerateThumbnail),
	}})
	if err != nil {
		return res, err
	}
	derivative := results[0]

	key := s.storage.GenerateKey(swapExt(req.File.Name, derivative.Primary.Ext), folder)
	obj, err := s.storage.Put(ctx, key, derivative.Primary.Data, derivative.Primary.ContentType, originalNameMeta(req.File.Name))
	if err != nil {
		return res, err
	}
	res = uploadResponse(obj)

	if derivative.Thumbnail != nil {
		thumb, err := s.storage.Put(ctx, storage.ThumbnailKey(key), derivative.Thumbnail.Data, derivative.Thumbnail.ContentType, nil)
		if err != nil {
			return res, err
		}
		res.ThumbnailKey = &thumb.Key
		res.ThumbnailURL = &thumb.URL
	}

	return res, nil
}

func uploadResponse(obj storage.StoredObject) dto.UploadResponse {
	return dto.UploadResponse{
		Key:         obj.Key,
		URL:         obj.URL,
		ContentType: obj.ContentType,
		Size:        obj.Size,
	}
}

// Presign issues a short-lived URL the browser can PUT the file to directly.
func (s *UploadServiceImpl) Presign(ctx context.Context, req dto.PresignRequest) (res dto.PresignResponse, err error) {
	folder, err := uploadFolder(req.Kind)
	if err != nil {
		return res, err
	}
	if strings.TrimSpace(req.Filename) == "" {
		return res, fmt.Errorf("%w: filename is required", errs.ErrValidation)
	}

	if folder == storage.FolderImages {
		err = s.imager.Validate(req.ContentType, 0)
	} else {
		err = validateDocument(dto.UploadedFile{Name: req.Filename, ContentType: req.ContentType}, 0)
	}
	if err != nil {
		return res, err
	}

	key := s.storage.GenerateKey(req.Filename, folder)
	uploadURL, err := s.storage.PresignedUploadURL(ctx, key, storage.DefaultUploadURLTTL)
	if err != nil {
		return res, err
	}

	return dto.PresignResponse{
		UploadURL: uploadURL,
		Key:       key,
		PublicURL: s.storage.PublicURL(key),
		ExpiresIn: int(storage.DefaultUploadURLTTL.Seconds()),
	}, nil
}

func (s *UploadServiceImpl) SignedURL(ctx context.Context, key string, ttlSeconds int) (res dto.SignedURLResponse, err error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return res, fmt.Errorf("%w: key is required", errs.ErrValidation)
	}

	ttl := DefaultSignedURLTTL
	if ttlSeconds > 0 {
		ttl = time.Duration(ttlSeconds) * time.Second
	}
	if ttl > storage.MaxSignedURLTTL {
		return res, fmt.Errorf("%w: ttl must not exceed %d seconds", errs.ErrValidation, int(storage.MaxSignedURLTTL.Seconds()))
	}

	signed, err := s.storage.SignedURL(ctx, key, ttl)
	if err != nil {
		return res, err
	}

	return dto.SignedURLResponse{URL: signed, ExpiresIn: int(ttl.Seconds())}, nil
}

// DeleteObject removes key and, for a product image, its thumbnail. Missing
// objects count as deleted.
func (s *UploadServiceImpl) DeleteObject(ctx context.Context, key string) (res dto.DeleteObjectResponse, err error) {
	key = strings.TrimPrefix(strings.TrimSpace(key), "/")
	if key == "" {
		return res, fmt.Errorf("%w: key is required", errs.ErrValidation)
	}

	if err = s.storage.Delete(ctx, key); err != nil {
		return res, err
	}

	if strings.HasPrefix(key, storage.FolderImages+"/") && !storage.IsThumbnailKey(key) {
		if err := s.storage.Delete(ctx, storage.ThumbnailKey(key)); err != nil {
			log.Error().Err(err).Str("component", "DeleteObject").Str("key", key).Msg("thumbnail cleanup failed")
		}
	}

	if err := s.publisher.Publish(ctx, key, dto.KafkaMessage{
		EventType: dto.EventObjectDeleted,
		Data:      dto.ObjectEvent{Key: key},
	}); err != nil {
		log.Error().Err(err).Str("component", "DeleteObject").Str("event_type", dto.EventObjectDeleted).Msg("")
	}

	return dto.DeleteObjectResponse{Success: true}, nil
}
