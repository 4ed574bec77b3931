// access.go — Access Resolver DRS-сервера: выдача AccessURL
// по паре (object_id, access_id).
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/drs-server/internal/domain/model"
	"github.com/bigkaa/drs-server/internal/repository"
	"github.com/bigkaa/drs-server/internal/signer"
)

// Prometheus-метрики Access Resolver.
var (
	accessResolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drs_access_resolve_total",
		Help: "Общее количество запросов ResolveAccess (по результату).",
	}, []string{"status"})
)

// AccessService — Access Resolver: обменивает access_id на AccessURL
// через Access Method Store (URLSigner).
type AccessService struct {
	store  repository.ObjectStore
	cache  *CacheService
	signer signer.URLSigner
	logger *slog.Logger
}

// NewAccessService создаёт Access Resolver.
func NewAccessService(
	store repository.ObjectStore,
	cache *CacheService,
	urlSigner signer.URLSigner,
	logger *slog.Logger,
) *AccessService {
	return &AccessService{
		store:  store,
		cache:  cache,
		signer: urlSigner,
		logger: logger.With(slog.String("component", "access_resolver")),
	}
}

// ResolveAccess возвращает AccessURL для пары (object_id, access_id).
//
// ErrNotFound возвращается в трёх неразличимых снаружи случаях:
// объект не существует, у объекта нет метода с таким access_id,
// либо метод прямой (access_url уже в метаданных — обменивать нечего).
func (s *AccessService) ResolveAccess(ctx context.Context, objectID, accessID string) (*model.AccessURL, error) {
	obj, err := s.getObject(ctx, objectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			accessResolveTotal.WithLabelValues("not_found").Inc()
		} else {
			accessResolveTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	method := obj.FindAccessMethod(accessID)
	if method == nil {
		accessResolveTotal.WithLabelValues("not_found").Inc()
		s.logger.Debug("access_id не найден у объекта",
			slog.String("object_id", objectID),
			slog.String("access_id", accessID),
		)
		return nil, fmt.Errorf("%w: access_id %q", ErrNotFound, accessID)
	}

	accessURL, err := s.signer.MaterializeURL(ctx, objectID, accessID)
	if err != nil {
		if errors.Is(err, signer.ErrUnknownAccessID) {
			accessResolveTotal.WithLabelValues("not_found").Inc()
			return nil, fmt.Errorf("%w: access_id %q", ErrNotFound, accessID)
		}
		accessResolveTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("материализация URL: %w", err)
	}

	accessResolveTotal.WithLabelValues("success").Inc()
	return accessURL, nil
}

// getObject получает DrsObject из кэша или Object Store.
func (s *AccessService) getObject(ctx context.Context, objectID string) (*model.DrsObject, error) {
	if obj, ok := s.cache.Get(objectID); ok {
		return obj, nil
	}

	obj, err := s.store.GetByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: объект %q", ErrNotFound, objectID)
		}
		return nil, fmt.Errorf("получение объекта из Object Store: %w", err)
	}

	s.cache.Set(objectID, obj)
	return obj, nil
}
