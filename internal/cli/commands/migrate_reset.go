package commands

import (
	"context"
	"fmt"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/config"
)

type migrateResetCmd struct{}

func (migrateResetCmd) Name() string { return "migrate-reset" }
func (migrateResetCmd) Description() string {
	return "Снять флаг завершённой миграции (оперативное восстановление)"
}
func (migrateResetCmd) Usage() string { return "migrate-reset" }

func (migrateResetCmd) Run(_ context.Context, cfg *config.Config, _ []string) error {
	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	if err := bootstrap.BuildMigrator(cfg, s).ResetMigrationStatus(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "✓ Флаг миграции снят: следующий `migrate` заново оценит локальные данные")
	return nil
}

func init() { RegisterCmd(migrateResetCmd{}) }
