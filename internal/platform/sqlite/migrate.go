package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	migrate "github.com/golang-migrate/migrate/v4"
	msqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// LatestVersion - номер последней встроенной миграции.
const LatestVersion uint = 3

// MigrationInfo описывает состояние схемы локального хранилища.
type MigrationInfo struct {
	// Version - номер последней примененной миграции (0 - схемы нет)
	Version uint
	// Dirty - миграция прервана и схема требует ручного исправления
	Dirty bool
}

// newMigrate создает экземпляр golang-migrate поверх уже открытого *sql.DB.
// Источник миграций встроен в бинарник, поэтому путь к файлам не нужен.
//
// Экземпляр нельзя закрывать через m.Close(): драйвер закрыл бы и сам *sql.DB,
// а для in-memory базы это уничтожает схему. Закрывается только источник.
func newMigrate(db *sql.DB) (*migrate.Migrate, func(), error) {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return nil, nil, fmt.Errorf("open embedded migrations: %w", err)
	}

	drv, err := msqlite.WithInstance(db, &msqlite.Config{})
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("create migrate driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", src, "sqlite", drv)
	if err != nil {
		_ = src.Close()
		return nil, nil, fmt.Errorf("create migrate instance: %w", err)
	}
	return m, func() { _ = src.Close() }, nil
}

// Migrate применяет все встроенные миграции. Повторный вызов безопасен:
// migrate.ErrNoChange не считается ошибкой.
func Migrate(db *sql.DB) error {
	m, closeSrc, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer closeSrc()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// MigrateTo переводит схему на указанную версию (вверх или вниз).
// Используется в тестах, чтобы получить хранилище старой версии pgAgent.
func MigrateTo(db *sql.DB, version uint) error {
	m, closeSrc, err := newMigrate(db)
	if err != nil {
		return err
	}
	defer closeSrc()

	if err := m.Migrate(version); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migrate to version %d: %w", version, err)
	}
	return nil
}

// Version возвращает текущее состояние миграций. Отсутствие примененных
// миграций - не ошибка, а версия 0.
func Version(db *sql.DB) (MigrationInfo, error) {
	m, closeSrc, err := newMigrate(db)
	if err != nil {
		return MigrationInfo{}, err
	}
	defer closeSrc()

	v, dirty, err := m.Version()
	if err != nil {
		if errors.Is(err, migrate.ErrNilVersion) {
			return MigrationInfo{}, nil
		}
		return MigrationInfo{}, fmt.Errorf("get migration version: %w", err)
	}
	return MigrationInfo{Version: v, Dirty: dirty}, nil
}

// EnsureSchema создает схему в пустом хранилище. Существующее хранилище не
// обновляется: его версия - это версия "сервера", которую проверяет sync.
func EnsureSchema(ctx context.Context, db *sql.DB) (MigrationInfo, error) {
	var n int
	err := db.QueryRowContext(ctx,
		"SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = 'pga_job'").Scan(&n)
	if err != nil {
		return MigrationInfo{}, fmt.Errorf("inspect sqlite schema: %w", err)
	}
	if n == 0 {
		if err := Migrate(db); err != nil {
			return MigrationInfo{}, err
		}
	}
	return Version(db)
}
