// resolver.go — Resolver DRS-сервера: получение DrsObject по идентификатору
// и рекурсивное раскрытие bundle (expand=true).
// Координирует Object Store, LRU cache и Prometheus-метрики.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/bigkaa/drs-server/internal/domain/model"
	"github.com/bigkaa/drs-server/internal/repository"
)

// Ошибки сервисного слоя.
var (
	// ErrNotFound — объект не найден.
	ErrNotFound = errors.New("объект не найден")
)

// CyclicBundleError — цикл в графе bundle (bundle прямо или транзитивно
// содержит сам себя). Признак повреждённых данных Object Store:
// наружу отдаётся 500, содержимое цикла клиенту не раскрывается.
type CyclicBundleError struct {
	// ObjectID — идентификатор bundle, замкнувшего цикл
	ObjectID string
}

func (e *CyclicBundleError) Error() string {
	return fmt.Sprintf("цикл в графе bundle: объект %q встречен повторно на пути раскрытия", e.ObjectID)
}

// Prometheus-метрики Resolver.
var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "drs_resolve_total",
		Help: "Общее количество запросов Resolve (по результату).",
	}, []string{"status"})
	resolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "drs_resolve_duration_seconds",
		Help:    "Длительность операций Resolve.",
		Buckets: prometheus.DefBuckets,
	})
	expandedEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "drs_bundle_expanded_entries_total",
		Help: "Количество записей contents, полученных при раскрытии bundle.",
	})
)

// ResolverService — Resolver DRS-сервера.
type ResolverService struct {
	store  repository.ObjectStore
	cache  *CacheService
	logger *slog.Logger
}

// NewResolverService создаёт Resolver.
func NewResolverService(
	store repository.ObjectStore,
	cache *CacheService,
	logger *slog.Logger,
) *ResolverService {
	return &ResolverService{
		store:  store,
		cache:  cache,
		logger: logger.With(slog.String("component", "resolver")),
	}
}

// Resolve возвращает DrsObject по идентификатору.
//
// Поведение по контракту DRS:
//   - blob возвращается как есть (expand игнорируется);
//   - bundle при expand=false — только прямые дочерние элементы;
//   - bundle при expand=true — полное рекурсивное раскрытие: contents
//     вложенных bundle подклеиваются в результат в порядке обхода
//     в глубину слева направо, каждый достижимый blob — ровно один раз.
//
// Цикл в графе bundle обнаруживается по повторному появлению идентификатора
// на текущем пути рекурсии и возвращается как *CyclicBundleError.
func (s *ResolverService) Resolve(ctx context.Context, objectID string, expand bool) (*model.DrsObject, error) {
	start := time.Now()

	obj, err := s.getObject(ctx, objectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			resolveTotal.WithLabelValues("not_found").Inc()
		} else {
			resolveTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	if !obj.IsBundle() || !expand {
		resolveTotal.WithLabelValues("success").Inc()
		resolveDuration.Observe(time.Since(start).Seconds())
		return obj, nil
	}

	// Полное раскрытие bundle
	onPath := map[string]bool{obj.ID: true}
	seen := map[string]bool{}
	contents, err := s.expandContents(ctx, obj.Contents, onPath, seen)
	if err != nil {
		var cycleErr *CyclicBundleError
		if errors.As(err, &cycleErr) {
			resolveTotal.WithLabelValues("cycle").Inc()
			s.logger.Error("Обнаружен цикл в графе bundle",
				slog.String("bundle_id", objectID),
				slog.String("cycle_at", cycleErr.ObjectID),
			)
		} else {
			resolveTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	// Исходный объект (в том числе в кэше) не мутируется —
	// раскрытые contents подставляются в копию.
	expanded := *obj
	expanded.Contents = contents

	expandedEntriesTotal.Add(float64(len(contents)))
	resolveTotal.WithLabelValues("success").Inc()
	resolveDuration.Observe(time.Since(start).Seconds())

	s.logger.Debug("Bundle раскрыт",
		slog.String("object_id", objectID),
		slog.Int("entries", len(contents)),
	)

	return &expanded, nil
}

// expandContents рекурсивно раскрывает записи contents в порядке обхода
// в глубину слева направо.
//
// onPath — идентификаторы bundle на текущем пути рекурсии (детект цикла).
// seen — уже добавленные в результат blob (дедупликация при ромбовидных
// ссылках: blob, достижимый по нескольким путям, попадает в результат
// один раз — при первом обходе).
func (s *ResolverService) expandContents(
	ctx context.Context,
	entries []model.ContentsObject,
	onPath map[string]bool,
	seen map[string]bool,
) ([]model.ContentsObject, error) {
	result := []model.ContentsObject{}

	for _, entry := range entries {
		// Reference-only запись: дочерний объект адресуется только через
		// drs_uri и не раскрывается локально.
		if entry.ID == "" {
			result = append(result, entry)
			continue
		}

		child, err := s.getObject(ctx, entry.ID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				// Ребёнок не в локальном Object Store — внешняя ссылка,
				// запись сохраняется без раскрытия.
				result = append(result, entry)
				continue
			}
			return nil, err
		}

		if !child.IsBundle() {
			if seen[entry.ID] {
				continue
			}
			seen[entry.ID] = true
			result = append(result, entry)
			continue
		}

		// Вложенный bundle: цикл — объект уже на текущем пути рекурсии
		if onPath[entry.ID] {
			return nil, &CyclicBundleError{ObjectID: entry.ID}
		}
		onPath[entry.ID] = true
		nested, err := s.expandContents(ctx, child.Contents, onPath, seen)
		if err != nil {
			return nil, err
		}
		delete(onPath, entry.ID)

		// Contents вложенного bundle подклеиваются на место записи
		result = append(result, nested...)
	}

	return result, nil
}

// getObject получает DrsObject из кэша или Object Store.
func (s *ResolverService) getObject(ctx context.Context, objectID string) (*model.DrsObject, error) {
	if obj, ok := s.cache.Get(objectID); ok {
		return obj, nil
	}

	obj, err := s.store.GetByID(ctx, objectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("получение объекта из Object Store: %w", err)
	}

	s.cache.Set(objectID, obj)
	return obj, nil
}
