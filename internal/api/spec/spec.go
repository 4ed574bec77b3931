// Пакет spec — встроенный OpenAPI контракт DRS API.
// Контракт валидируется при старте сервера (kin-openapi) и отдаётся
// клиентам на /openapi.json.
package spec

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"github.com/getkin/kin-openapi/openapi3"
)

//go:embed openapi.yaml
var openAPIYAML []byte

// Load загружает и валидирует встроенный OpenAPI контракт.
func Load(ctx context.Context) (*openapi3.T, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(openAPIYAML)
	if err != nil {
		return nil, fmt.Errorf("загрузка OpenAPI контракта: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("валидация OpenAPI контракта: %w", err)
	}
	return doc, nil
}

// JSON возвращает контракт в JSON для /openapi.json.
func JSON(doc *openapi3.T) ([]byte, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("сериализация OpenAPI контракта: %w", err)
	}
	return data, nil
}
