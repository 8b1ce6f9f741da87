package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/cli/syncengine"
	"InspectVault/internal/config"
)

type syncCmd struct{}

func (syncCmd) Name() string { return "sync" }
func (syncCmd) Description() string {
	return "Синхронизировать все записи с сервером"
}
func (syncCmd) Usage() string {
	return "sync [--resolve=local|remote]"
}

func (syncCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("sync", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	resolve := fs.String("resolve", "", "разрешить все накопленные конфликты: local|remote")
	if err := fs.Parse(args); err != nil {
		return ErrUsage
	}
	if *resolve != "" && *resolve != model.ResolveLocal && *resolve != model.ResolveRemote {
		return ErrUsage
	}

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()
	eng := bootstrap.BuildEngine(cfg, s)
	defer eng.Close()

	if *resolve != "" {
		conflicts, err := eng.Conflicts()
		if err != nil {
			return err
		}
		for _, c := range conflicts {
			if c.Resolution != "" {
				continue
			}
			if err := eng.Resolve(c.Kind, c.ItemID, *resolve); err != nil {
				return err
			}
		}
		if len(conflicts) > 0 {
			fmt.Fprintf(Out, "→ Конфликты будут разрешены как %s\n", *resolve)
		}
	}

	fmt.Fprintln(Out, "→ Запуск синхронизации…")
	res, err := eng.SyncCycle(ctx, syncengine.TriggerManual)
	if errors.Is(err, syncengine.ErrCycleRunning) {
		fmt.Fprintln(Out, "• Цикл уже идёт, триггер схлопнут")
		return nil
	}
	if err != nil {
		return err
	}
	printCycleSummary(res)
	return nil
}

func printCycleSummary(res *syncengine.CycleResult) {
	if res.Resolved > 0 {
		fmt.Fprintf(Out, "✓ Применено разрешений конфликтов: %d\n", res.Resolved)
	}
	if res.Pulled > 0 {
		fmt.Fprintf(Out, "• Получено записей с сервера: %d\n", res.Pulled)
	}
	if res.Pushed > 0 {
		fmt.Fprintf(Out, "✓ Отправлено записей: %d\n", res.Pushed)
	}
	if res.Purged > 0 {
		fmt.Fprintf(Out, "• Подтверждено удалений: %d\n", res.Purged)
	}
	if res.Conflicts > 0 {
		fmt.Fprintf(Out, "! Новых конфликтов: %d (см. `ivcli conflicts`)\n", res.Conflicts)
	}
	for _, id := range res.Oversized {
		fmt.Fprintf(Out, "! Вложение записи %s превышает лимит категории\n", id)
	}
	if res.Unauthorized {
		fmt.Fprintln(Out, "! Токен просрочен: выполните login")
	}
	if res.TransientFailures > 0 {
		fmt.Fprintf(Out, "× Временных ошибок: %d, записи останутся в очереди\n", res.TransientFailures)
	}
	if res.Pulled == 0 && res.Pushed == 0 && res.Purged == 0 && res.Conflicts == 0 && res.TransientFailures == 0 {
		fmt.Fprintln(Out, "• Синхронизация завершена: изменений нет")
	}
}

func init() { RegisterCmd(syncCmd{}) }
