package commands

import (
	"context"
	"errors"
	"fmt"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/config"
)

type deleteCmd struct{}

func (deleteCmd) Name() string        { return "delete" }
func (deleteCmd) Description() string { return "Удалить запись (tombstone уйдёт на сервер)" }
func (deleteCmd) Usage() string       { return "delete <kind> <id>" }

func (deleteCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || !knownKind(args[0]) {
		return ErrUsage
	}
	kind, id := args[0], args[1]

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	if err := s.Delete(kind, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("запись %s/%s не найдена", kind, id)
		}
		return err
	}
	fmt.Fprintf(Out, "✓ Запись %s/%s помечена удалённой\n", kind, id)

	maybeAutoSync(ctx, cfg, s)
	return nil
}

func init() { RegisterCmd(deleteCmd{}) }
