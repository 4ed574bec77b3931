// Пакет repository — Object Store DRS-сервера: доступ к метаданным DrsObject.
// Две реализации: PostgreSQL (pgx, чистый SQL без ORM) и in-memory (seed-данные).
// Ядро сервиса зависит только от интерфейса ObjectStore.
package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/bigkaa/drs-server/internal/domain/model"
)

// Ошибки слоя репозиториев.
var (
	// ErrNotFound — объект не найден.
	ErrNotFound = errors.New("объект не найден")
)

// ObjectStore — интерфейс Object Store: поиск DrsObject по идентификатору.
// Для bundle возвращаются только прямые дочерние элементы (без рекурсии) —
// рекурсивное раскрытие выполняет Resolver.
type ObjectStore interface {
	// GetByID возвращает объект по идентификатору или ErrNotFound.
	GetByID(ctx context.Context, objectID string) (*model.DrsObject, error)
}

// DBTX — интерфейс для выполнения SQL-запросов.
// Реализуется как *pgxpool.Pool, так и pgx.Tx, что позволяет
// использовать репозитории как внутри, так и вне транзакций.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}
