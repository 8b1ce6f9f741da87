package commands

import (
	"context"
	"fmt"

	"InspectVault/internal/cli/auth"
	"InspectVault/internal/config"
)

type logoutCmd struct{}

func (logoutCmd) Name() string        { return "logout" }
func (logoutCmd) Description() string { return "Выйти: забыть токен и пользователя" }
func (logoutCmd) Usage() string       { return "logout" }

func (logoutCmd) Run(_ context.Context, _ *config.Config, _ []string) error {
	// локальная БД пользователя не трогается: данные доступны после повторного входа
	if err := auth.ClearToken(); err != nil {
		return err
	}
	if err := auth.ClearOrgID(); err != nil {
		return err
	}
	if err := auth.ClearLastLogin(); err != nil {
		return err
	}
	fmt.Fprintln(Out, "Logged out")
	return nil
}

func init() { RegisterCmd(logoutCmd{}) }
