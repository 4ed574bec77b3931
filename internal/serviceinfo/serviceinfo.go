// Пакет serviceinfo — документ GA4GH service-info v1.0.0 DRS-сервера.
// Документ загружается из встроенного service_info.json или из внешнего
// файла (переопределение оператором) и валидируется при старте:
// type.group и type.artifact обязаны быть org.ga4gh / drs —
// некорректный документ является фатальной ошибкой конфигурации.
package serviceinfo

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// Обязательные значения type по спецификации DRS.
const (
	requiredGroup    = "org.ga4gh"
	requiredArtifact = "drs"
)

//go:embed service_info.json
var defaultServiceInfo []byte

// Load загружает и валидирует документ service-info.
// path — путь к внешнему JSON-файлу; пустая строка — встроенный документ.
func Load(path string) (*model.ServiceInfo, error) {
	data := defaultServiceInfo
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("чтение service-info из %s: %w", path, err)
		}
	}

	var info model.ServiceInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("разбор service-info: %w", err)
	}

	if err := validate(&info); err != nil {
		return nil, fmt.Errorf("валидация service-info: %w", err)
	}

	return &info, nil
}

// validate проверяет обязательные поля документа.
func validate(info *model.ServiceInfo) error {
	if info.ID == "" {
		return fmt.Errorf("поле id обязательно")
	}
	if info.Name == "" {
		return fmt.Errorf("поле name обязательно")
	}
	if info.Type.Group != requiredGroup {
		return fmt.Errorf("type.group = %q, для DRS-сервиса обязателен %q", info.Type.Group, requiredGroup)
	}
	if info.Type.Artifact != requiredArtifact {
		return fmt.Errorf("type.artifact = %q, для DRS-сервиса обязателен %q", info.Type.Artifact, requiredArtifact)
	}
	if info.Type.Version == "" {
		return fmt.Errorf("поле type.version обязательно")
	}
	return nil
}
