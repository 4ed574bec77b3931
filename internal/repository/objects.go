package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// objectColumns — список столбцов таблицы drs_objects для SELECT-запросов.
// DRY: одно место для всех SELECT'ов.
const objectColumns = `object_id, name, size, created_time, updated_time,
	version, mime_type, description, aliases, is_bundle`

// pgObjectStore — реализация ObjectStore через pgx.
// Сервер — read-only потребитель таблиц drs_*; наполнение реестра
// объектов выполняется внешними инструментами загрузки.
type pgObjectStore struct {
	db DBTX
	// drsURIBase — префикс для построения self_uri (например, drs://drs.example.org)
	drsURIBase string
}

// NewObjectStore создаёт PostgreSQL-репозиторий объектов.
// drsURIBase — префикс drs:// URI без завершающего слэша.
func NewObjectStore(db DBTX, drsURIBase string) ObjectStore {
	return &pgObjectStore{db: db, drsURIBase: drsURIBase}
}

// GetByID возвращает DrsObject по идентификатору или ErrNotFound.
// Для bundle заполняются только прямые дочерние элементы (ORDER BY ord —
// порядок contents является частью контракта API).
func (r *pgObjectStore) GetByID(ctx context.Context, objectID string) (*model.DrsObject, error) {
	query := fmt.Sprintf(`SELECT %s FROM drs_objects WHERE object_id = $1`, objectColumns)

	o := &model.DrsObject{}
	var isBundle bool
	err := r.db.QueryRow(ctx, query, objectID).Scan(
		&o.ID, &o.Name, &o.Size, &o.CreatedTime, &o.UpdatedTime,
		&o.Version, &o.MimeType, &o.Description, &o.Aliases, &isBundle,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения объекта: %w", err)
	}
	o.SelfURI = r.drsURIBase + "/" + o.ID

	if o.Checksums, err = r.loadChecksums(ctx, objectID); err != nil {
		return nil, err
	}

	if isBundle {
		if o.Contents, err = r.loadContents(ctx, objectID); err != nil {
			return nil, err
		}
		return o, nil
	}

	if o.AccessMethods, err = r.loadAccessMethods(ctx, objectID); err != nil {
		return nil, err
	}
	return o, nil
}

// loadChecksums возвращает контрольные суммы объекта.
func (r *pgObjectStore) loadChecksums(ctx context.Context, objectID string) ([]model.Checksum, error) {
	rows, err := r.db.Query(ctx,
		`SELECT type, checksum FROM drs_checksums WHERE object_id = $1 ORDER BY type`,
		objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения контрольных сумм: %w", err)
	}
	defer rows.Close()

	var result []model.Checksum
	for rows.Next() {
		var c model.Checksum
		if err := rows.Scan(&c.Type, &c.Checksum); err != nil {
			return nil, fmt.Errorf("ошибка сканирования контрольной суммы: %w", err)
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации контрольных сумм: %w", err)
	}
	return result, nil
}

// loadAccessMethods возвращает способы доступа blob в исходном порядке (ord).
// Инвариант «ровно одно из access_url/access_id» обеспечивается
// CHECK-ограничением таблицы drs_access_methods.
func (r *pgObjectStore) loadAccessMethods(ctx context.Context, objectID string) ([]model.AccessMethod, error) {
	rows, err := r.db.Query(ctx,
		`SELECT type, access_url, access_id, region
		 FROM drs_access_methods WHERE object_id = $1 ORDER BY ord`,
		objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения access methods: %w", err)
	}
	defer rows.Close()

	var result []model.AccessMethod
	for rows.Next() {
		var m model.AccessMethod
		var accessURL, accessID, region *string
		if err := rows.Scan(&m.Type, &accessURL, &accessID, &region); err != nil {
			return nil, fmt.Errorf("ошибка сканирования access method: %w", err)
		}
		if accessURL != nil {
			m.AccessURL = &model.AccessURL{URL: *accessURL}
		}
		if accessID != nil {
			m.AccessID = *accessID
		}
		if region != nil {
			m.Region = *region
		}
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации access methods: %w", err)
	}
	return result, nil
}

// loadContents возвращает прямые дочерние элементы bundle в исходном порядке (ord).
// Для bundle без детей возвращается пустой (но не-nil) срез —
// так сохраняется разграничение blob/bundle в модели.
func (r *pgObjectStore) loadContents(ctx context.Context, objectID string) ([]model.ContentsObject, error) {
	rows, err := r.db.Query(ctx,
		`SELECT name, child_id, drs_uris
		 FROM drs_contents WHERE parent_id = $1 ORDER BY ord`,
		objectID,
	)
	if err != nil {
		return nil, fmt.Errorf("ошибка получения contents: %w", err)
	}
	defer rows.Close()

	result := []model.ContentsObject{}
	for rows.Next() {
		var c model.ContentsObject
		var childID *string
		if err := rows.Scan(&c.Name, &childID, &c.DRSURI); err != nil {
			return nil, fmt.Errorf("ошибка сканирования contents: %w", err)
		}
		if childID != nil {
			c.ID = *childID
		}
		result = append(result, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ошибка итерации contents: %w", err)
	}
	return result, nil
}
