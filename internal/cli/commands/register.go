package commands

import (
	"context"
	"fmt"

	"InspectVault/internal/cli/api"
	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/config"
)

type registerCmd struct{}

func (registerCmd) Name() string { return "register" }
func (registerCmd) Description() string {
	return "Зарегистрировать пользователя (опционально в существующей организации)"
}
func (registerCmd) Usage() string { return "register <login> <password> [org_id]" }

func (registerCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	orgID := ""
	if len(args) > 2 {
		orgID = args[2]
	}
	gw := api.NewGateway(cfg)
	if err := gw.Register(ctx, args[0], args[1], orgID); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Registered and logged in")

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()
	eng := bootstrap.BuildEngine(cfg, s)
	defer eng.Close()

	if res, err := eng.OnLogin(ctx); err == nil && res.Pulled > 0 {
		fmt.Fprintf(Out, "• Получено записей с сервера: %d\n", res.Pulled)
	}
	return nil
}

func init() { RegisterCmd(registerCmd{}) }
