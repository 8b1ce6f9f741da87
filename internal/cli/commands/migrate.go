package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/migration"
	"InspectVault/internal/config"
)

type migrateCmd struct{}

func (migrateCmd) Name() string { return "migrate" }
func (migrateCmd) Description() string {
	return "Однократно выгрузить накопленные на устройстве записи в облако"
}
func (migrateCmd) Usage() string { return "migrate [--dry-run]" }

func (migrateCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dryRun := fs.Bool("dry-run", false, "только проверить, нужна ли миграция")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()
	m := bootstrap.BuildMigrator(cfg, s)

	need, err := m.NeedsMigration()
	if err != nil {
		return err
	}
	if !need {
		fmt.Fprintln(Out, "• Миграция не требуется")
		return nil
	}
	if *dryRun {
		local, err := s.ListLocalOnly()
		if err != nil {
			return err
		}
		fmt.Fprintf(Out, "! Требуется миграция: %d локальных записей\n", len(local))
		return nil
	}

	fmt.Fprintln(Out, "→ Запуск миграции…")
	p, err := m.Migrate(ctx, func(pr migration.Progress) {
		fmt.Fprintf(Out, "  [%d/%d] %s\n", pr.Completed, pr.Total, pr.CurrentItem)
	})
	if err != nil {
		return err
	}
	if len(p.Failed) == 0 {
		fmt.Fprintf(Out, "✓ Миграция завершена: %d записей\n", p.Completed)
		return nil
	}
	fmt.Fprintf(Out, "× Не выгружено записей: %d из %d\n", len(p.Failed), p.Total)
	for _, f := range p.Failed {
		fmt.Fprintf(Out, "  %s/%s: %v\n", f.Kind, f.ID, f.Err)
	}
	fmt.Fprintln(Out, "• Повторный запуск `ivcli migrate` продолжит с неудачных записей")
	return nil
}

func init() { RegisterCmd(migrateCmd{}) }
