// service_info.go — модель документа GA4GH service-info v1.0.0.
// DRS-сервис обязан иметь type.group = org.ga4gh и type.artifact = drs
// (реестр типов ведёт Technical Alignment Sub Committee, TASC).
package model

import "time"

// ServiceType — тип сервиса в реестре GA4GH.
type ServiceType struct {
	// Group — группа в обратной доменной нотации (org.ga4gh)
	Group string `json:"group"`
	// Artifact — артефакт спецификации (drs)
	Artifact string `json:"artifact"`
	// Version — версия спецификации артефакта (1.2.0)
	Version string `json:"version"`
}

// ServiceOrganization — организация, эксплуатирующая сервис.
type ServiceOrganization struct {
	// Name — название организации
	Name string `json:"name"`
	// URL — сайт организации
	URL string `json:"url"`
}

// ServiceInfo — самоописание сервиса по GA4GH service-info v1.0.0.
type ServiceInfo struct {
	// ID — уникальный идентификатор сервиса в обратной доменной нотации
	ID string `json:"id"`
	// Name — человекочитаемое имя сервиса
	Name string `json:"name"`
	// Type — тип сервиса (org.ga4gh / drs)
	Type ServiceType `json:"type"`
	// Description — описание сервиса
	Description string `json:"description,omitempty"`
	// Organization — организация
	Organization ServiceOrganization `json:"organization"`
	// ContactURL — контакт для поддержки (mailto: или https:)
	ContactURL string `json:"contactUrl,omitempty"`
	// DocumentationURL — документация сервиса
	DocumentationURL string `json:"documentationUrl,omitempty"`
	// CreatedAt — время первого развёртывания
	CreatedAt *time.Time `json:"createdAt,omitempty"`
	// UpdatedAt — время последнего обновления
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	// Environment — окружение (prod, test, dev)
	Environment string `json:"environment,omitempty"`
	// Version — версия реализации сервиса
	Version string `json:"version"`
}
