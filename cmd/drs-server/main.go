// main.go — точка входа DRS-сервера.
// Последовательность старта: config → logger → service-info → OpenAPI →
// Object Store (inmem/postgres) → кэш → signer → сервисы → passport
// validator → handlers → HTTP-сервер.
package main

import (
	"context"
	"log"
	"log/slog"

	"github.com/jackc/pgx/v5/stdlib"

	"github.com/bigkaa/drs-server/internal/api/handlers"
	"github.com/bigkaa/drs-server/internal/api/middleware"
	"github.com/bigkaa/drs-server/internal/api/spec"
	"github.com/bigkaa/drs-server/internal/auth"
	"github.com/bigkaa/drs-server/internal/config"
	"github.com/bigkaa/drs-server/internal/database"
	"github.com/bigkaa/drs-server/internal/filestore"
	"github.com/bigkaa/drs-server/internal/repository"
	"github.com/bigkaa/drs-server/internal/server"
	"github.com/bigkaa/drs-server/internal/service"
	"github.com/bigkaa/drs-server/internal/serviceinfo"
	"github.com/bigkaa/drs-server/internal/signer"
)

func main() {
	ctx := context.Background()

	// 1. Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Ошибка загрузки конфигурации: %v", err)
	}

	// 2. Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("DRS-сервер запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("store", cfg.Store),
	)

	// 3. Документ service-info (валидация type.group/artifact — фатальная)
	svcInfo, err := serviceinfo.Load(cfg.ServiceInfoPath)
	if err != nil {
		logger.Error("Ошибка загрузки service-info", slog.String("error", err.Error()))
		log.Fatalf("Ошибка загрузки service-info: %v", err)
	}

	// 4. OpenAPI контракт: валидация при старте + JSON для /openapi.json
	openAPIDoc, err := spec.Load(ctx)
	if err != nil {
		logger.Error("Ошибка OpenAPI контракта", slog.String("error", err.Error()))
		log.Fatalf("Ошибка OpenAPI контракта: %v", err)
	}
	openAPIJSON, err := spec.JSON(openAPIDoc)
	if err != nil {
		log.Fatalf("Ошибка сериализации OpenAPI контракта: %v", err)
	}

	// 5. Object Store: PostgreSQL или in-memory
	var (
		store        repository.ObjectStore
		storeChecker handlers.ReadinessChecker
		dephealth    *service.DephealthService
	)

	switch cfg.Store {
	case config.StorePostgres:
		if err := database.Migrate(cfg, logger); err != nil {
			logger.Error("Ошибка миграций", slog.String("error", err.Error()))
			log.Fatalf("Ошибка миграций: %v", err)
		}

		pool, err := database.Connect(ctx, cfg, logger)
		if err != nil {
			logger.Error("Ошибка подключения к PostgreSQL", slog.String("error", err.Error()))
			log.Fatalf("Ошибка подключения к PostgreSQL: %v", err)
		}
		defer pool.Close()

		store = repository.NewObjectStore(pool, cfg.DRSURIBase)
		storeChecker = database.NewReadinessChecker(pool, cfg.HTTPReadTimeout)

		// Dephealth: PostgreSQL через существующий пул + Passport Broker
		if cfg.DephealthEnabled {
			db := stdlib.OpenDBFromPool(pool)
			dephealth, err = service.NewDephealthService(
				cfg.DephealthServiceID, cfg.DephealthGroup,
				db, cfg.DatabaseDSN(), cfg.PassportJWKSURL,
				cfg.DephealthCheckInterval, cfg.DephealthIsEntry, logger,
			)
			if err != nil {
				logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
				log.Fatalf("Ошибка инициализации dephealth: %v", err)
			}
		}

	case config.StoreInMem:
		inmem, err := repository.NewInMemStoreFromFile(cfg.SeedPath, cfg.DRSURIBase)
		if err != nil {
			logger.Error("Ошибка загрузки seed-данных", slog.String("error", err.Error()))
			log.Fatalf("Ошибка загрузки seed-данных: %v", err)
		}
		logger.Info("In-memory Object Store загружен", slog.Int("objects", inmem.Len()))
		store = inmem
		storeChecker = inmem

		if cfg.DephealthEnabled {
			dephealth, err = service.NewDephealthService(
				cfg.DephealthServiceID, cfg.DephealthGroup,
				nil, "", cfg.PassportJWKSURL,
				cfg.DephealthCheckInterval, cfg.DephealthIsEntry, logger,
			)
			if err != nil {
				logger.Error("Ошибка инициализации dephealth", slog.String("error", err.Error()))
				log.Fatalf("Ошибка инициализации dephealth: %v", err)
			}
		}
	}

	// 6. LRU-кэш метаданных
	cache := service.NewCacheService(cfg.CacheSize, cfg.CacheTTL)

	// 7. Signer подписанных URL и верификатор токенов скачивания
	var (
		urlSigner signer.URLSigner = signer.Disabled{}
		verifier  handlers.TokenVerifier
	)
	if cfg.SigningKey != "" {
		local, err := signer.New(cfg.BaseURL, cfg.SignedAccessID, []byte(cfg.SigningKey), cfg.SignedURLTTL)
		if err != nil {
			log.Fatalf("Ошибка инициализации signer: %v", err)
		}
		urlSigner = local
		verifier = local
	} else {
		logger.Warn("DRS_SIGNING_KEY не задан — access_id не обслуживаются, скачивание без токена")
	}

	// 8. Сервисный слой
	resolver := service.NewResolverService(store, cache, logger)
	access := service.NewAccessService(store, cache, urlSigner, logger)

	// 9. Passport validator (fail closed при отсутствии JWKS)
	var validator auth.Validator = auth.DenyAll{}
	if cfg.PassportJWKSURL != "" {
		validator, err = auth.New(
			cfg.PassportJWKSURL, cfg.PassportCACertPath, cfg.PassportIssuer,
			cfg.PassportJWKSTimeout, cfg.PassportJWKSRefresh, cfg.PassportLeeway,
			logger,
		)
		if err != nil {
			logger.Error("Ошибка инициализации passport validator", slog.String("error", err.Error()))
			log.Fatalf("Ошибка инициализации passport validator: %v", err)
		}
	} else {
		logger.Warn("DRS_PASSPORT_JWKS_URL не задан — passport-операции возвращают 401")
	}

	// 10. Файловое хранилище endpoint'а скачивания
	var files *filestore.Store
	if cfg.FilesDir != "" {
		files, err = filestore.New(cfg.FilesDir)
		if err != nil {
			logger.Error("Ошибка файлового хранилища", slog.String("error", err.Error()))
			log.Fatalf("Ошибка файлового хранилища: %v", err)
		}
	}

	// 11. Handlers
	healthHandler := handlers.NewHealthHandler(storeChecker)
	apiHandler := handlers.NewAPIHandler(
		resolver, access, validator, svcInfo,
		files, verifier, openAPIJSON,
		healthHandler, logger,
	)

	// 12. Dephealth — запуск фоновых проверок
	if dephealth != nil {
		if err := dephealth.Start(ctx); err != nil {
			logger.Error("Ошибка запуска dephealth", slog.String("error", err.Error()))
			log.Fatalf("Ошибка запуска dephealth: %v", err)
		}
		defer dephealth.Stop()
	}

	// 13. HTTP-сервер: metrics → logging → routes
	srv := server.New(cfg, logger, apiHandler,
		middleware.MetricsMiddleware(),
		middleware.RequestLogger(logger),
	)

	// 14. Запуск сервера (блокирующий вызов с graceful shutdown)
	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		log.Fatalf("Сервер завершился с ошибкой: %v", err)
	}

	logger.Info("DRS-сервер остановлен")
}
