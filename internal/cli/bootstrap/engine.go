package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/auth"
	"InspectVault/internal/cli/migration"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/cli/syncengine"
	"InspectVault/internal/cli/tracker"
	"InspectVault/internal/config"
)

// OpenStore открывает хранилище текущего пользователя,
// выполняет миграции и возвращает (store, cleanup, error).
// cleanup необходимо вызвать после окончания работы, чтобы закрыть соединение с БД.
func OpenStore() (*store.Store, func() error, error) {
	login, err := auth.LoadLastLogin()
	if err != nil {
		return nil, nil, fmt.Errorf("нет активного пользователя: выполните login/register: %w", err)
	}
	s, _, err := store.OpenForUser(login)
	if err != nil {
		return nil, nil, fmt.Errorf("open user db: %w", err)
	}
	if err := s.Migrate(); err != nil {
		_ = s.Close()
		return nil, nil, fmt.Errorf("migrate user db: %w", err)
	}
	cleanup := func() error { return s.Close() }
	return s, cleanup, nil
}

// BuildEngine собирает движок синхронизации над открытым хранилищем.
func BuildEngine(cfg *config.Config, s *store.Store) *syncengine.Engine {
	gw := api.NewGateway(cfg)
	return syncengine.New(s, gw, tracker.New(s), zap.NewNop().Sugar(), cfg)
}

// BuildMigrator собирает инструмент однократной миграции local-only записей.
func BuildMigrator(cfg *config.Config, s *store.Store) *migration.Migrator {
	return migration.New(s, api.NewGateway(cfg), zap.NewNop().Sugar())
}
