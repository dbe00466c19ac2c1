package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/dto"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/imaging"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/internal/infrastructure/metrics"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/errs"
	"github.com/alimikegami/point-of-sales/catalog-admin-service/pkg/ttlcache"
)

const (
	OptimizerCacheTTL     = 24 * time.Hour
	OptimizerCacheEntries = 100
)

type ImageOptimizerServiceImpl struct {
	storage ObjectStorage
	imager  ImageProcessor
	cache   *ttlcache.Cache[imaging.Derivative]
}

func CreateImageOptimizerService(storage ObjectStorage, imager ImageProcessor, opts ...ttlcache.Option[imaging.Derivative]) ImageOptimizerService {
	opts = append([]ttlcache.Option[imaging.Derivative]{ttlcache.WithMaxEntries[imaging.Derivative](OptimizerCacheEntries)}, opts...)

	return &ImageOptimizerServiceImpl{
		storage: storage,
		imager:  imager,
		cache:   ttlcache.New(OptimizerCacheTTL, opts...),
	}
}

// Optimize returns the stored image at key resized to the requested box.
// Results are cached per key and resolved options.
func (s *ImageOptimizerServiceImpl) Optimize(ctx context.Context, req dto.OptimizeImageRequest) (res dto.OptimizedImage, err error) {
	key := strings.TrimPrefix(strings.TrimSpace(req.Key), "/")
	if key == "" {
		return res, fmt.Errorf("%w: key is required", errs.ErrValidation)
	}

	opts, err := imaging.ResolveResizeOptions(req.Preset, imaging.ResizeOptions{
		Width:   req.Width,
		Height:  req.Height,
		Quality: req.Quality,
	})
	if err != nil {
		return res, err
	}

	cacheKey := fmt.Sprintf("%s|%dx%d|q%d", key, opts.Width, opts.Height, opts.Quality)
	if d, ok := s.cache.Get(cacheKey); ok {
		metrics.OptimizerCache.WithLabelValues("hit").Inc()
		return dto.OptimizedImage{Data: d.Data, ContentType: d.ContentType, Cached: true}, nil
	}
	metrics.OptimizerCache.WithLabelValues("miss").Inc()

	body, contentType, err := s.storage.Get(ctx, key)
	if err != nil {
		return res, err
	}

	d, err := s.imager.Resize(body, contentType, opts)
	if err != nil {
		return res, err
	}
	s.cache.Set(cacheKey, d)

	return dto.OptimizedImage{Data: d.Data, ContentType: d.ContentType}, nil
}

// SweepExpired drops cached results past their TTL.
func (s *ImageOptimizerServiceImpl) SweepExpired() int {
	return s.cache.Sweep()
}
