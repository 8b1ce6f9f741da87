package commands

import (
	"context"
	"fmt"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/config"
)

type resolveCmd struct{}

func (resolveCmd) Name() string        { return "resolve" }
func (resolveCmd) Description() string { return "Зафиксировать выбор по конфликту (однократно)" }
func (resolveCmd) Usage() string       { return "resolve <kind> <id> <local|remote>" }

func (resolveCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) < 3 {
		return ErrUsage
	}
	kind, id, choice := args[0], args[1], args[2]
	if choice != model.ResolveLocal && choice != model.ResolveRemote {
		return ErrUsage
	}

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	if err := s.SetConflictResolution(kind, id, choice); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Конфликт %s/%s будет разрешён как %s при следующем цикле\n", kind, id, choice)
	return nil
}

func init() { RegisterCmd(resolveCmd{}) }
