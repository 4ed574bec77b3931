// inmem.go — in-memory реализация ObjectStore для mock-режима.
// Реестр объектов загружается из JSON seed-файла (embedded по умолчанию,
// DRS_SEED_PATH — переопределение оператором). Режим используется для
// разработки, демонстраций и conformance-тестов без PostgreSQL.
package repository

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

//go:embed seed.json
var defaultSeed []byte

// InMemStore — неизменяемый in-memory Object Store.
// После конструирования данные не мутируются, поэтому store безопасен
// для конкурентного чтения без блокировок.
type InMemStore struct {
	objects map[string]*model.DrsObject
}

// NewInMemStore создаёт store из готового набора объектов.
// drsURIBase — префикс drs:// URI; SelfURI выводится из ID, если не задан.
// Возвращает ошибку при нарушении инвариантов DrsObject.
func NewInMemStore(objects []model.DrsObject, drsURIBase string) (*InMemStore, error) {
	store := &InMemStore{objects: make(map[string]*model.DrsObject, len(objects))}
	for i := range objects {
		o := objects[i]
		if err := validateObject(&o); err != nil {
			return nil, fmt.Errorf("seed-объект %q: %w", o.ID, err)
		}
		if o.SelfURI == "" {
			o.SelfURI = drsURIBase + "/" + o.ID
		}
		if _, exists := store.objects[o.ID]; exists {
			return nil, fmt.Errorf("seed-объект %q: дублирующийся идентификатор", o.ID)
		}
		store.objects[o.ID] = &o
	}
	return store, nil
}

// NewInMemStoreFromSeed создаёт store из JSON seed-данных (массив DrsObject).
func NewInMemStoreFromSeed(data []byte, drsURIBase string) (*InMemStore, error) {
	var objects []model.DrsObject
	if err := json.Unmarshal(data, &objects); err != nil {
		return nil, fmt.Errorf("ошибка разбора seed JSON: %w", err)
	}
	return NewInMemStore(objects, drsURIBase)
}

// NewInMemStoreFromFile создаёт store из seed-файла оператора.
// Пустой путь — используется embedded seed с демонстрационными объектами.
func NewInMemStoreFromFile(path, drsURIBase string) (*InMemStore, error) {
	data := defaultSeed
	if path != "" {
		var err error
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения seed-файла %s: %w", path, err)
		}
	}
	return NewInMemStoreFromSeed(data, drsURIBase)
}

// GetByID возвращает объект по идентификатору или ErrNotFound.
func (s *InMemStore) GetByID(_ context.Context, objectID string) (*model.DrsObject, error) {
	o, ok := s.objects[objectID]
	if !ok {
		return nil, ErrNotFound
	}
	return o, nil
}

// Len возвращает количество объектов в реестре.
func (s *InMemStore) Len() int {
	return len(s.objects)
}

// CheckReady — проверка готовности для health endpoint.
// In-memory store готов всегда после успешного конструирования.
func (s *InMemStore) CheckReady() (status, message string) {
	return "ok", fmt.Sprintf("in-memory store: %d объектов", len(s.objects))
}

// validateObject проверяет инварианты DrsObject из контракта DRS.
func validateObject(o *model.DrsObject) error {
	if o.ID == "" {
		return fmt.Errorf("пустой идентификатор объекта")
	}

	if o.IsBundle() {
		if len(o.AccessMethods) > 0 {
			return fmt.Errorf("bundle не может иметь access_methods")
		}
		for i, c := range o.Contents {
			// Reference-only узел обязан содержать хотя бы один drs_uri
			if c.ID == "" && len(c.DRSURI) == 0 {
				return fmt.Errorf("contents[%d]: запись без id обязана содержать drs_uri", i)
			}
		}
		return nil
	}

	// Blob: минимум одна контрольная сумма и один access method
	if len(o.Checksums) == 0 {
		return fmt.Errorf("blob обязан иметь минимум одну контрольную сумму")
	}
	if len(o.AccessMethods) == 0 {
		return fmt.Errorf("blob обязан иметь минимум один access method")
	}
	for i, m := range o.AccessMethods {
		// Ровно одно из access_url / access_id
		if m.Direct() == (m.AccessID != "") {
			return fmt.Errorf("access_methods[%d]: заполняется ровно одно из access_url/access_id", i)
		}
	}
	return nil
}
