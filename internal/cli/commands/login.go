package commands

import (
	"context"
	"errors"
	"fmt"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/config"
)

type loginCmd struct{}

func (loginCmd) Name() string        { return "login" }
func (loginCmd) Description() string { return "Войти и сохранить auth cookie" }
func (loginCmd) Usage() string       { return "login <login> <password>" }

func (loginCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	gw := api.NewGateway(cfg)
	if err := gw.Login(ctx, args[0], args[1]); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return errors.New("invalid login or password")
		}
		return err
	}
	fmt.Fprintln(Out, "Logged in successfully")

	// вход на устройстве: принудительная полная выгрузка с сервера
	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()
	eng := bootstrap.BuildEngine(cfg, s)
	defer eng.Close()

	res, err := eng.OnLogin(ctx)
	if err != nil {
		fmt.Fprintf(Out, "× Начальная синхронизация не удалась: %v\n", err)
		return nil
	}
	fmt.Fprintf(Out, "• Получено записей с сервера: %d\n", res.Pulled)
	if res.Conflicts > 0 {
		fmt.Fprintf(Out, "! Обнаружено конфликтов: %d (см. `ivcli conflicts`)\n", res.Conflicts)
	}
	return nil
}

func init() { RegisterCmd(loginCmd{}) }
