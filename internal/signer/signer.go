// Пакет signer — Access Method Store DRS-сервера: материализация
// скачиваемых URL для access methods с access_id.
// LocalSigner выпускает короткоживущие HS256-токены (golang-jwt) и строит
// подписанные URL на собственный /files endpoint. Прямые access_url
// никогда не проходят через signer — их клиент берёт из метаданных объекта.
package signer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// Ошибки signer.
var (
	// ErrUnknownAccessID — access_id не обслуживается этим signer.
	ErrUnknownAccessID = errors.New("неизвестный access_id")
	// ErrInvalidToken — токен скачивания невалиден или просрочен.
	ErrInvalidToken = errors.New("невалидный токен скачивания")
)

// tokenAudience — audience выпускаемых токенов скачивания.
const tokenAudience = "drs-access"

// URLSigner — интерфейс Access Method Store: материализация URL
// для access method с указанным access_id.
type URLSigner interface {
	// MaterializeURL возвращает скачиваемый URL и обязательные заголовки
	// для объекта objectID и способа доступа accessID.
	MaterializeURL(ctx context.Context, objectID, accessID string) (*model.AccessURL, error)
}

// LocalSigner — реализация URLSigner поверх локального files endpoint.
// Обслуживает единственный access_id (по умолчанию signed-http).
type LocalSigner struct {
	// baseURL — внешний базовый URL сервера без завершающего слэша
	baseURL string
	// accessID — обслуживаемый access_id
	accessID string
	// secret — ключ HMAC-подписи токенов
	secret []byte
	// ttl — время жизни выпускаемых токенов
	ttl time.Duration
	now func() time.Time
}

// New создаёт LocalSigner.
// baseURL — внешний URL сервера (DRS_BASE_URL), accessID — обслуживаемый
// access_id (DRS_SIGNED_ACCESS_ID), secret — ключ подписи (DRS_SIGNING_KEY),
// ttl — время жизни подписанного URL (DRS_SIGNED_URL_TTL).
func New(baseURL, accessID string, secret []byte, ttl time.Duration) (*LocalSigner, error) {
	if len(secret) == 0 {
		return nil, fmt.Errorf("пустой ключ подписи URL")
	}
	return &LocalSigner{
		baseURL:  baseURL,
		accessID: accessID,
		secret:   secret,
		ttl:      ttl,
		now:      time.Now,
	}, nil
}

// MaterializeURL выпускает подписанный URL на /files/{object_id}.
// Токен: HS256, sub = object_id, aud = drs-access, jti = uuid, exp = now+ttl.
// Тот же токен возвращается в заголовке Authorization — клиенты DRS
// могут передавать его любым из двух способов.
func (s *LocalSigner) MaterializeURL(_ context.Context, objectID, accessID string) (*model.AccessURL, error) {
	if accessID != s.accessID {
		return nil, ErrUnknownAccessID
	}

	now := s.now()
	claims := jwt.RegisteredClaims{
		Subject:   objectID,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("подпись токена скачивания: %w", err)
	}

	return &model.AccessURL{
		URL: fmt.Sprintf("%s/files/%s?token=%s", s.baseURL, objectID, token),
		Headers: map[string]string{
			"Authorization": "Bearer " + token,
		},
	}, nil
}

// Disabled — URLSigner, не обслуживающий ни одного access_id.
// Используется, когда ключ подписи не сконфигурирован: все access_id
// разрешаются в 404, прямые access_url продолжают работать.
type Disabled struct{}

// MaterializeURL всегда возвращает ErrUnknownAccessID.
func (Disabled) MaterializeURL(_ context.Context, _, _ string) (*model.AccessURL, error) {
	return nil, ErrUnknownAccessID
}

// Verify проверяет токен скачивания и возвращает object_id из sub.
// Используется files handler перед отдачей байт.
func (s *LocalSigner) Verify(tokenString string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(_ *jwt.Token) (any, error) { return s.secret, nil },
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return s.now() }),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: отсутствует sub", ErrInvalidToken)
	}
	return claims.Subject, nil
}
