package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log/slog"
	"math/big"
	"os"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
)

// testKeyID — идентификатор ключа для тестов.
const testKeyID = "test-key-drs"

// testIssuer — issuer тестового Passport Broker.
const testIssuer = "https://broker.test/oidc"

// generateTestKey генерирует RSA ключ для тестов.
func generateTestKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatal(err)
	}
	return key
}

// buildJWKSetJSON строит JWKS JSON из RSA публичного ключа.
func buildJWKSetJSON(pub *rsa.PublicKey, kid string) json.RawMessage {
	nB64 := base64.RawURLEncoding.EncodeToString(pub.N.Bytes())
	eB64 := base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes())

	jwks := map[string]any{
		"keys": []map[string]any{
			{
				"kty": "RSA",
				"kid": kid,
				"use": "sig",
				"alg": "RS256",
				"n":   nB64,
				"e":   eB64,
			},
		},
	}

	data, _ := json.Marshal(jwks)
	return data
}

// testLogger создаёт logger для тестов.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestValidator создаёт PassportValidator со статическим JWKS.
func newTestValidator(t *testing.T, key *rsa.PrivateKey) *PassportValidator {
	t.Helper()
	kf, err := keyfunc.NewJWKSetJSON(buildJWKSetJSON(&key.PublicKey, testKeyID))
	if err != nil {
		t.Fatalf("не удалось создать keyfunc: %v", err)
	}
	return NewWithKeyfunc(kf, testIssuer, time.Minute, testLogger())
}

// generatePassport генерирует подписанный passport JWT.
func generatePassport(t *testing.T, key *rsa.PrivateKey, issuer string, expired bool) string {
	t.Helper()

	exp := time.Now().Add(time.Hour)
	if expired {
		exp = time.Now().Add(-time.Hour)
	}

	claims := jwt.MapClaims{
		"sub":            "user-42",
		"iss":            issuer,
		"exp":            exp.Unix(),
		"iat":            time.Now().Add(-time.Minute).Unix(),
		"ga4gh_passport": []string{"visa-1"},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID

	signed, err := token.SignedString(key)
	if err != nil {
		t.Fatalf("не удалось подписать passport: %v", err)
	}
	return signed
}

// TestValidate_ValidPassport проверяет успешную авторизацию.
func TestValidate_ValidPassport(t *testing.T) {
	key := generateTestKey(t)
	v := newTestValidator(t, key)

	passport := generatePassport(t, key, testIssuer, false)
	if err := v.Validate(context.Background(), []string{passport}); err != nil {
		t.Errorf("Validate вернул ошибку для валидного passport: %v", err)
	}
}

// TestValidate_Empty проверяет отказ при отсутствии passport.
func TestValidate_Empty(t *testing.T) {
	key := generateTestKey(t)
	v := newTestValidator(t, key)

	err := v.Validate(context.Background(), nil)
	if !errors.Is(err, ErrDenied) {
		t.Errorf("ошибка = %v, ожидалась ErrDenied при пустом наборе passport", err)
	}
}

// TestValidate_Expired проверяет отказ для просроченного passport.
func TestValidate_Expired(t *testing.T) {
	key := generateTestKey(t)
	v := newTestValidator(t, key)

	passport := generatePassport(t, key, testIssuer, true)
	err := v.Validate(context.Background(), []string{passport})
	if !errors.Is(err, ErrDenied) {
		t.Errorf("ошибка = %v, ожидалась ErrDenied для просроченного passport", err)
	}
}

// TestValidate_WrongIssuer проверяет отказ при несовпадении issuer.
func TestValidate_WrongIssuer(t *testing.T) {
	key := generateTestKey(t)
	v := newTestValidator(t, key)

	passport := generatePassport(t, key, "https://evil.test", false)
	err := v.Validate(context.Background(), []string{passport})
	if !errors.Is(err, ErrDenied) {
		t.Errorf("ошибка = %v, ожидалась ErrDenied при чужом issuer", err)
	}
}

// TestValidate_WrongKey проверяет отказ для passport с чужой подписью.
func TestValidate_WrongKey(t *testing.T) {
	key := generateTestKey(t)
	otherKey := generateTestKey(t)
	v := newTestValidator(t, key)

	passport := generatePassport(t, otherKey, testIssuer, false)
	err := v.Validate(context.Background(), []string{passport})
	if !errors.Is(err, ErrDenied) {
		t.Errorf("ошибка = %v, ожидалась ErrDenied для чужой подписи", err)
	}
}

// TestValidate_OneOfMany проверяет, что достаточно одного валидного passport.
func TestValidate_OneOfMany(t *testing.T) {
	key := generateTestKey(t)
	v := newTestValidator(t, key)

	passports := []string{
		"not-a-jwt",
		generatePassport(t, key, testIssuer, false),
	}
	if err := v.Validate(context.Background(), passports); err != nil {
		t.Errorf("Validate вернул ошибку при одном валидном passport из набора: %v", err)
	}
}

// TestDenyAll проверяет fail-closed валидатор.
func TestDenyAll(t *testing.T) {
	err := DenyAll{}.Validate(context.Background(), []string{"anything"})
	if !errors.Is(err, ErrDenied) {
		t.Errorf("ошибка = %v, ожидалась ErrDenied от DenyAll", err)
	}
}
