package commands

import (
	"context"
	"errors"
	"fmt"
	"time"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/config"
)

type statusCmd struct{}

func (statusCmd) Name() string        { return "status" }
func (statusCmd) Description() string { return "Индикатор синхронизации и счётчик ожидающих правок" }
func (statusCmd) Usage() string       { return "status" }

func (statusCmd) Run(ctx context.Context, cfg *config.Config, _ []string) error {
	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()
	eng := bootstrap.BuildEngine(cfg, s)
	defer eng.Close()

	st, err := eng.Status()
	if err != nil {
		return err
	}
	meta, err := s.Meta()
	if err != nil {
		return err
	}

	// живость сервера: локальный статус не знает про сеть прямо сейчас
	gw := api.NewGateway(cfg)
	if err := gw.Ping(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			fmt.Fprintln(Out, "! Токен просрочен: выполните login")
		} else if st == model.StatusSynced || st == model.StatusNeedsSync {
			st = model.StatusOffline
		}
	}

	fmt.Fprintf(Out, "Status: %s\n", st)
	fmt.Fprintf(Out, "• Ожидает отправки: %d\n", meta.PendingChangeCount)
	if meta.LastSyncAt != "" {
		fmt.Fprintf(Out, "• Последняя синхронизация: %s\n", meta.LastSyncAt)
	}
	if meta.LastAttemptAt != 0 {
		fmt.Fprintf(Out, "• Последняя попытка: %s\n", time.Unix(meta.LastAttemptAt, 0).Format(time.RFC3339))
	}
	if meta.ConsecutiveFailures > 0 {
		fmt.Fprintf(Out, "! Неудачных циклов подряд: %d\n", meta.ConsecutiveFailures)
	}
	if meta.BackedOff() {
		fmt.Fprintln(Out, "! Авто-синхронизация приостановлена; запустите `ivcli sync` вручную")
	}
	return nil
}

func init() { RegisterCmd(statusCmd{}) }
