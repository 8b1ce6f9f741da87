package commands

import (
	"context"
	"fmt"
	"time"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/config"
)

type listCmd struct{}

func (listCmd) Name() string        { return "list" }
func (listCmd) Description() string { return "Показать записи вида, свежие сверху" }
func (listCmd) Usage() string       { return "list <kind>" }

func (listCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) < 1 || !knownKind(args[0]) {
		return ErrUsage
	}
	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	records, err := s.ListAll(args[0])
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(Out, "Записей нет")
		return nil
	}
	for _, r := range records {
		marker := " "
		switch r.SyncState {
		case model.StateDirty, model.StateError:
			marker = "*" // ожидает отправки
		case model.StateConflict:
			marker = "!"
		case model.StatePushing:
			marker = ">"
		}
		blob := ""
		if r.HasBlob() {
			blob = " [" + r.BlobFilename + "]"
		}
		fmt.Fprintf(Out, "%s %s  %-30s %s%s\n",
			marker, r.ID, r.Name, time.Unix(r.UpdatedAt, 0).Format("2006-01-02 15:04"), blob)
	}
	return nil
}

func init() { RegisterCmd(listCmd{}) }
