package commands

import (
	"context"
	"fmt"
	"time"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/config"
)

type conflictsCmd struct{}

func (conflictsCmd) Name() string        { return "conflicts" }
func (conflictsCmd) Description() string { return "Показать конфликты, ожидающие разрешения" }
func (conflictsCmd) Usage() string       { return "conflicts" }

func (conflictsCmd) Run(_ context.Context, cfg *config.Config, _ []string) error {
	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	conflicts, err := s.ListConflicts()
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		fmt.Fprintln(Out, "Конфликтов нет")
		return nil
	}
	for _, c := range conflicts {
		resolution := c.Resolution
		if resolution == "" {
			resolution = "—"
		}
		fmt.Fprintf(Out, "%s/%s\n", c.Kind, c.ItemID)
		fmt.Fprintf(Out, "  локальная правка:  %s\n", time.Unix(c.LocalUpdatedAt, 0).Format(time.RFC3339))
		fmt.Fprintf(Out, "  серверная версия:  %d (%s) %q\n",
			c.RemoteRevision, time.Unix(c.RemoteUpdatedAt, 0).Format(time.RFC3339), c.RemoteName)
		fmt.Fprintf(Out, "  решение:           %s\n", resolution)
	}
	fmt.Fprintln(Out, "\nРазрешение: ivcli resolve <kind> <id> <local|remote>")
	return nil
}

func init() { RegisterCmd(conflictsCmd{}) }
