package service

import (
	"testing"
	"time"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// TestCacheService_GetSet проверяет базовые операции Get/Set.
func TestCacheService_GetSet(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	obj := &model.DrsObject{
		ID:       "HPA.csv",
		Name:     "HPA.csv",
		SelfURI:  "drs://localhost:8080/HPA.csv",
		Size:     367,
		MimeType: "text/csv",
	}

	// Cache miss
	_, ok := cache.Get("HPA.csv")
	if ok {
		t.Fatal("ожидался cache miss для нового ключа")
	}

	// Set + cache hit
	cache.Set("HPA.csv", obj)
	got, ok := cache.Get("HPA.csv")
	if !ok {
		t.Fatal("ожидался cache hit после Set")
	}
	if got.ID != "HPA.csv" {
		t.Errorf("ID = %q, ожидался %q", got.ID, "HPA.csv")
	}
	if got.MimeType != "text/csv" {
		t.Errorf("MimeType = %q, ожидался %q", got.MimeType, "text/csv")
	}
}

// TestCacheService_Delete проверяет удаление из кэша (инвалидация).
func TestCacheService_Delete(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	obj := &model.DrsObject{ID: "delete-me"}

	cache.Set("delete-me", obj)

	// Проверяем что запись есть
	_, ok := cache.Get("delete-me")
	if !ok {
		t.Fatal("ожидался cache hit перед удалением")
	}

	// Удаляем
	cache.Delete("delete-me")

	// Проверяем что записи больше нет
	_, ok = cache.Get("delete-me")
	if ok {
		t.Fatal("ожидался cache miss после Delete")
	}
}

// TestCacheService_TTLExpiration проверяет автоматическое истечение TTL.
func TestCacheService_TTLExpiration(t *testing.T) {
	// Короткий TTL = 50ms для теста
	cache := NewCacheService(100, 50*time.Millisecond)

	obj := &model.DrsObject{ID: "ttl-test"}

	cache.Set("ttl-test", obj)

	// Сразу после Set — должен быть hit
	_, ok := cache.Get("ttl-test")
	if !ok {
		t.Fatal("ожидался cache hit сразу после Set")
	}

	// Ждём истечения TTL
	time.Sleep(100 * time.Millisecond)

	// После истечения TTL — должен быть miss
	_, ok = cache.Get("ttl-test")
	if ok {
		t.Fatal("ожидался cache miss после истечения TTL")
	}
}

// TestCacheService_Eviction проверяет вытеснение при превышении maxSize.
func TestCacheService_Eviction(t *testing.T) {
	// Кэш на 2 записи
	cache := NewCacheService(2, 5*time.Minute)

	o1 := &model.DrsObject{ID: "o1"}
	o2 := &model.DrsObject{ID: "o2"}
	o3 := &model.DrsObject{ID: "o3"}

	cache.Set("o1", o1)
	cache.Set("o2", o2)

	// Обе записи в кэше
	if _, ok := cache.Get("o1"); !ok {
		t.Fatal("ожидался cache hit для o1")
	}
	if _, ok := cache.Get("o2"); !ok {
		t.Fatal("ожидался cache hit для o2")
	}

	// Добавляем третью — o1 должен быть вытеснен (LRU: последний Get был для o2)
	cache.Set("o3", o3)

	// o3 должна быть в кэше
	if _, ok := cache.Get("o3"); !ok {
		t.Fatal("ожидался cache hit для o3")
	}
}

// TestCacheService_Update проверяет обновление записи в кэше.
func TestCacheService_Update(t *testing.T) {
	cache := NewCacheService(100, 5*time.Minute)

	obj1 := &model.DrsObject{ID: "update-test", Name: "old.csv"}
	obj2 := &model.DrsObject{ID: "update-test", Name: "new.csv"}

	cache.Set("update-test", obj1)
	cache.Set("update-test", obj2)

	got, ok := cache.Get("update-test")
	if !ok {
		t.Fatal("ожидался cache hit после обновления")
	}
	if got.Name != "new.csv" {
		t.Errorf("Name = %q, ожидался %q", got.Name, "new.csv")
	}
}
