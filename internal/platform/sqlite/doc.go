// Package sqlite предоставляет инфраструктуру локального хранилища pgAgent
// на SQLite (modernc.org/sqlite, без cgo).
//
// Локальное хранилище повторяет таблицы pgAgent без схемы pgagent и
// используется для офлайн-редактирования заданий и в тестах.
//
// Основные возможности:
//   - Открытие БД (файловой, только для чтения, in-memory)
//   - Транзакции с тем же контрактом, что и в пакете pg
//   - Встроенные миграции схемы (golang-migrate, источник iofs)
//   - Тестовые хелперы
//
// # Быстрый старт
//
//	db, err := sqlite.NewDB(ctx, "jobs.sqlite")
//	if err != nil {
//		return err
//	}
//	defer db.Close()
//
//	if _, err := sqlite.EnsureSchema(ctx, db); err != nil {
//		return err
//	}
//
// # Транзакции
//
//	runner := sqlite.NewTxRunner(db)
//	err = runner.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
//		_, err := tx.ExecContext(ctx, "DELETE FROM pga_job WHERE jobname = ?", "nightly_vacuum")
//		return err
//	})
//
// Транзакция записи открывается как BEGIN IMMEDIATE, поэтому пакет операций
// синхронизации не получает SQLITE_BUSY на середине. Повторных попыток нет.
//
// # Версии схемы
//
// Миграции соответствуют версиям pgAgent и записывают версию в pga_version:
//
//	1 - pgAgent 3.3 (без jstconnstr)
//	2 - pgAgent 4.0 (jstconnstr)
//	3 - 4.2 (таблица pga_extrarun)
//
// Тесты могут получить хранилище старой версии:
//
//	func TestSomething(t *testing.T) {
//		testDB := sqlite.NewTestDBInMemory(t, 2)
//		// testDB.DB, testDB.TxRunner доступны для использования
//	}
package sqlite
