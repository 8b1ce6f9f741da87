package commands

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/config"
)

type getCmd struct{}

func (getCmd) Name() string        { return "get" }
func (getCmd) Description() string { return "Показать запись; --save выгружает вложение в файл" }
func (getCmd) Usage() string       { return "get <kind> <id> [--save path]" }

func (getCmd) Run(_ context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 || !knownKind(args[0]) {
		return ErrUsage
	}
	kind, id := args[0], args[1]

	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	save := fs.String("save", "", "сохранить вложение в указанный файл")
	if err := fs.Parse(args[2:]); err != nil {
		return ErrUsage
	}

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	rec, err := s.Get(kind, id)
	if errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("запись %s/%s не найдена", kind, id)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(Out, "%s/%s\n", rec.Kind, rec.ID)
	fmt.Fprintf(Out, "  name:       %s\n", rec.Name)
	fmt.Fprintf(Out, "  state:      %s\n", rec.SyncState)
	fmt.Fprintf(Out, "  updated:    %s\n", time.Unix(rec.UpdatedAt, 0).Format(time.RFC3339))
	if rec.RemoteRevision != nil {
		fmt.Fprintf(Out, "  revision:   %d\n", *rec.RemoteRevision)
	} else {
		fmt.Fprintln(Out, "  revision:   — (ещё не на сервере)")
	}
	if len(rec.Payload) > 0 {
		fmt.Fprintf(Out, "  payload:    %s\n", rec.Payload)
	}
	if rec.HasBlob() {
		fmt.Fprintf(Out, "  вложение:   %s (%s)\n", rec.BlobFilename, rec.BlobCategory)
	}

	if *save != "" {
		if !rec.HasBlob() {
			return errors.New("у записи нет вложения")
		}
		data, err := s.GetBlob(kind, id)
		if errors.Is(err, store.ErrNotFound) {
			return errors.New("байты вложения ещё не скачаны: выполните sync")
		}
		if err != nil {
			return err
		}
		if err := os.WriteFile(*save, data, 0o600); err != nil {
			return err
		}
		fmt.Fprintf(Out, "✓ Вложение сохранено в %s (%d байт)\n", *save, len(data))
	}
	return nil
}

func init() { RegisterCmd(getCmd{}) }
