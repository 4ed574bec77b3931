// Пакет auth — Authorization collaborator DRS-сервера: валидация
// GA4GH Passport (подписанный JWT со встроенными Visa).
// Ядро обращается с passport как с непрозрачной строкой; здесь проверяются
// только подпись (RS256 через JWKS издателя), срок действия и issuer.
// Семантика отдельных Visa — вне зоны ответственности mock-сервера.
package auth

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// Ошибки авторизации.
var (
	// ErrDenied — passport отсутствует, невалиден или недостаточен.
	ErrDenied = errors.New("доступ запрещён")
)

// Validator — интерфейс Authorization collaborator.
// Validate возвращает nil (Authorized) или ошибку с ErrDenied в цепочке (Denied).
type Validator interface {
	// Validate проверяет набор passport, переданных клиентом.
	Validate(ctx context.Context, passports []string) error
}

// PassportValidator — валидатор passport через JWKS издателя.
type PassportValidator struct {
	jwks   keyfunc.Keyfunc
	issuer string
	leeway time.Duration
	logger *slog.Logger
}

// New создаёт валидатор passport с JWKS издателя (Passport Broker).
// jwksURL — URL JWKS endpoint издателя.
// caCertPath — опциональный путь к CA-сертификату для TLS.
// issuer — ожидаемый issuer passport (пустая строка — issuer не проверяется).
// clientTimeout — таймаут HTTP-клиента JWKS.
// refreshInterval — интервал фонового обновления JWKS-ключей.
// leeway — допустимое отклонение времени при проверке JWT.
func New(
	jwksURL string,
	caCertPath string,
	issuer string,
	clientTimeout time.Duration,
	refreshInterval time.Duration,
	leeway time.Duration,
	logger *slog.Logger,
) (*PassportValidator, error) {
	httpClient := &http.Client{Timeout: clientTimeout}
	if caCertPath != "" {
		var err error
		httpClient, err = httpClientWithCA(caCertPath, clientTimeout)
		if err != nil {
			return nil, fmt.Errorf("загрузка CA-сертификата %s: %w", caCertPath, err)
		}
		logger.Info("CA-сертификат издателя passport добавлен в пул доверия",
			slog.String("ca_cert", caCertPath),
		)
	}

	// JWKS Storage с фоновым обновлением.
	// NoErrorReturnFirstHTTPReq — стартуем даже если издатель ещё недоступен.
	storage, err := jwkset.NewStorageFromHTTP(jwksURL, jwkset.HTTPClientStorageOptions{
		Client:                    httpClient,
		NoErrorReturnFirstHTTPReq: true,
		RefreshInterval:           refreshInterval,
		RefreshErrorHandler: func(_ context.Context, err error) {
			logger.Error("Ошибка обновления JWKS издателя passport",
				slog.String("error", err.Error()),
				slog.String("url", jwksURL),
			)
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWKS storage: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return NewWithKeyfunc(k, issuer, leeway, logger), nil
}

// NewWithKeyfunc создаёт валидатор с готовым keyfunc.
// Используется в тестах со статическим JWKS.
func NewWithKeyfunc(k keyfunc.Keyfunc, issuer string, leeway time.Duration, logger *slog.Logger) *PassportValidator {
	return &PassportValidator{
		jwks:   k,
		issuer: issuer,
		leeway: leeway,
		logger: logger.With(slog.String("component", "passport_validator")),
	}
}

// Validate проверяет набор passport клиента.
// Авторизация предоставляется, если хотя бы один passport проходит проверку
// подписи, срока действия и issuer. Пустой набор — отказ: объект не
// конструируется до успешной авторизации, чтобы не раскрывать факт
// существования объекта неавторизованному клиенту.
func (v *PassportValidator) Validate(ctx context.Context, passports []string) error {
	if len(passports) == 0 {
		return fmt.Errorf("%w: passport не передан", ErrDenied)
	}

	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(v.leeway),
	}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}

	var lastErr error
	for _, passport := range passports {
		claims := &jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(passport, claims, v.jwks.KeyfuncCtx(ctx), parserOpts...)
		if err != nil {
			v.logger.Debug("Passport не прошёл валидацию",
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}
		if !token.Valid {
			lastErr = fmt.Errorf("невалидный токен")
			continue
		}
		if claims.Subject == "" {
			lastErr = fmt.Errorf("отсутствует sub")
			continue
		}
		return nil
	}

	return fmt.Errorf("%w: ни один passport не прошёл валидацию: %v", ErrDenied, lastErr)
}

// DenyAll — валидатор, отклоняющий любые passport.
// Используется, когда JWKS издателя не сконфигурирован: сервер
// закрыт по умолчанию (fail closed), а не открыт.
type DenyAll struct{}

// Validate всегда возвращает отказ.
func (DenyAll) Validate(_ context.Context, _ []string) error {
	return fmt.Errorf("%w: валидация passport не сконфигурирована", ErrDenied)
}

// httpClientWithCA создаёт HTTP-клиент с кастомным CA-сертификатом.
func httpClientWithCA(caCertPath string, timeout time.Duration) (*http.Client, error) {
	caCert, err := os.ReadFile(caCertPath)
	if err != nil {
		return nil, err
	}

	caCertPool, err := x509.SystemCertPool()
	if err != nil {
		caCertPool = x509.NewCertPool()
	}
	caCertPool.AppendCertsFromPEM(caCert)

	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSClientConfig: &tls.Config{
				RootCAs: caCertPool,
			},
		},
	}, nil
}
