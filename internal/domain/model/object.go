// Пакет model — доменные модели DRS-сервера.
// DrsObject — объект данных по спецификации GA4GH DRS 1.2:
// blob (один скачиваемый файл) или bundle (именованная коллекция объектов).
package model

import "time"

// ChecksumType — алгоритм контрольной суммы (IANA Named Information Hash Algorithm Registry).
type ChecksumType string

// Поддерживаемые алгоритмы контрольных сумм.
const (
	ChecksumTypeSHA256 ChecksumType = "sha-256"
	ChecksumTypeSHA512 ChecksumType = "sha-512"
	ChecksumTypeSHA1   ChecksumType = "sha1"
	ChecksumTypeMD5    ChecksumType = "md5"
	ChecksumTypeCRC32C ChecksumType = "crc32c"
	ChecksumTypeETag   ChecksumType = "etag"
)

// Checksum — контрольная сумма содержимого объекта.
// Для blob обязательна минимум одна запись.
type Checksum struct {
	// Checksum — hex-значение контрольной суммы
	Checksum string `json:"checksum"`
	// Type — алгоритм (sha-256, md5, ...)
	Type ChecksumType `json:"type"`
}

// AccessMethodType — тип способа доступа к байтам объекта.
type AccessMethodType string

// Типы способов доступа по DRS 1.2.
const (
	AccessMethodHTTPS AccessMethodType = "https"
	AccessMethodGET   AccessMethodType = "get" //nolint:revive // историческое значение из ранних реализаций DRS
	AccessMethodS3    AccessMethodType = "s3"
	AccessMethodGS    AccessMethodType = "gs"
	AccessMethodFTP   AccessMethodType = "ftp"
	AccessMethodFile  AccessMethodType = "file"
)

// AccessURL — URL для скачивания байт объекта и необходимые заголовки.
type AccessURL struct {
	// URL — полный URL для получения байт объекта
	URL string `json:"url"`
	// Headers — заголовки, которые клиент обязан передать при запросе URL
	// (например, Authorization). Пустая map — заголовки не требуются.
	Headers map[string]string `json:"headers,omitempty"`
}

// AccessMethod — один способ получения байт объекта.
// Инвариант: заполнено ровно одно из AccessURL / AccessID.
// AccessID требует последующего вызова GET /objects/{id}/access/{access_id}.
type AccessMethod struct {
	// Type — тип доступа (https, s3, ...)
	Type AccessMethodType `json:"type"`
	// AccessURL — прямой URL (взаимоисключающе с AccessID)
	AccessURL *AccessURL `json:"access_url,omitempty"`
	// AccessID — непрозрачный идентификатор для отложенного получения URL
	AccessID string `json:"access_id,omitempty"`
	// Region — регион хранения (опционально, для облачных методов)
	Region string `json:"region,omitempty"`
}

// Direct возвращает true, если метод содержит прямой URL
// и не требует обращения к access endpoint.
func (m *AccessMethod) Direct() bool {
	return m.AccessURL != nil
}

// ContentsObject — ссылка на дочерний объект внутри bundle.
// Инвариант: если ID пустой, запись является reference-only узлом
// и обязана содержать хотя бы один DRSURI.
type ContentsObject struct {
	// Name — имя внутри родительского bundle
	Name string `json:"name"`
	// ID — идентификатор дочернего DrsObject (пустой для внешних ссылок)
	ID string `json:"id,omitempty"`
	// DRSURI — drs:// URI, указывающие на дочерний объект
	DRSURI []string `json:"drs_uri,omitempty"`
}

// DrsObject — объект данных DRS: blob или bundle.
// Blob: AccessMethods непустой, Contents отсутствует.
// Bundle: Contents присутствует (возможно пустой), AccessMethods отсутствует.
type DrsObject struct {
	// ID — уникальный неизменяемый идентификатор объекта
	ID string `json:"id"`
	// Name — отображаемое имя
	Name string `json:"name,omitempty"`
	// SelfURI — drs:// URI объекта, выводится из ID
	SelfURI string `json:"self_uri"`
	// Size — размер в байтах (0 для bundle без агрегации)
	Size int64 `json:"size"`
	// CreatedTime — время создания объекта
	CreatedTime time.Time `json:"created_time"`
	// UpdatedTime — время последнего изменения (опционально)
	UpdatedTime *time.Time `json:"updated_time,omitempty"`
	// Version — версия объекта (опционально)
	Version string `json:"version,omitempty"`
	// MimeType — MIME-тип содержимого (для blob)
	MimeType string `json:"mime_type,omitempty"`
	// Checksums — контрольные суммы; для blob минимум одна
	Checksums []Checksum `json:"checksums"`
	// Description — описание (опционально)
	Description string `json:"description,omitempty"`
	// Aliases — альтернативные идентификаторы (опционально)
	Aliases []string `json:"aliases,omitempty"`
	// AccessMethods — способы доступа; только для blob
	AccessMethods []AccessMethod `json:"access_methods,omitempty"`
	// Contents — дочерние объекты; только для bundle.
	// nil — объект является blob; непустой или пустой срез — bundle.
	Contents []ContentsObject `json:"contents,omitempty"`
}

// IsBundle возвращает true, если объект является bundle.
// Разграничение blob/bundle хранится в Object Store:
// у bundle поле Contents всегда не-nil (пустой bundle — пустой срез).
func (o *DrsObject) IsBundle() bool {
	return o.Contents != nil
}

// FindAccessMethod возвращает access method с указанным access_id.
// Методы с прямым URL не участвуют в поиске — они разрешаются
// клиентом из метаданных объекта и не проходят через access endpoint.
func (o *DrsObject) FindAccessMethod(accessID string) *AccessMethod {
	for i := range o.AccessMethods {
		m := &o.AccessMethods[i]
		if !m.Direct() && m.AccessID == accessID {
			return m
		}
	}
	return nil
}
