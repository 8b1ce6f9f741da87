package commands

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"InspectVault/internal/cli/auth"
	"InspectVault/internal/cli/bootstrap"
	"InspectVault/internal/cli/model"
	"InspectVault/internal/cli/store"
	"InspectVault/internal/cli/syncengine"
	"InspectVault/internal/config"
)

func knownKind(kind string) bool {
	for _, k := range model.KnownKinds {
		if k == kind {
			return true
		}
	}
	return false
}

type addCmd struct{}

func (addCmd) Name() string        { return "add" }
func (addCmd) Description() string { return "Создать запись (опционально с вложением)" }
func (addCmd) Usage() string {
	return "add <kind> <name> [--payload JSON] [--file path] [--vessel id] [--category c]"
}

func (addCmd) Run(ctx context.Context, cfg *config.Config, args []string) error {
	if len(args) < 2 {
		return ErrUsage
	}
	kind, name := args[0], args[1]
	if !knownKind(kind) || name == "" {
		return ErrUsage
	}

	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	payload := fs.String("payload", "", "доменные поля записи как JSON")
	file := fs.String("file", "", "путь к файлу вложения")
	vessel := fs.String("vessel", "", "id судна для пути вложения")
	category := fs.String("category", "", "категория вложения (лимит размера)")
	if err := fs.Parse(args[2:]); err != nil {
		return ErrUsage
	}
	if *payload != "" && !json.Valid([]byte(*payload)) {
		return errors.New("--payload must be valid JSON")
	}

	s, done, err := bootstrap.OpenStore()
	if err != nil {
		return err
	}
	defer done()

	login, _ := auth.LoadLastLogin()
	orgID, _ := auth.LoadOrgID()
	now := time.Now().Unix()
	rec := &model.Record{
		ID:        uuid.NewString(),
		Kind:      kind,
		OrgID:     orgID,
		CreatedBy: login,
		Name:      name,
		Payload:   []byte(*payload),
		VesselID:  *vessel,
		UpdatedAt: now,
		DirtyAt:   now,
		SyncState: model.StateDirty,
	}

	if *file != "" {
		if orgID == "" {
			return errors.New("организация неизвестна: выполните login перед добавлением вложений")
		}
		data, err := os.ReadFile(*file)
		if err != nil {
			return err
		}
		rec.BlobFilename = filepath.Base(*file)
		rec.BlobCategory = *category
		if rec.BlobCategory == "" {
			rec.BlobCategory = model.DefaultCategory(kind)
		}
		if rec.BlobCategory == "" {
			return errors.New("для этого вида записи укажите --category явно")
		}
		if err := s.PutBlob(kind, rec.ID, data); err != nil {
			return err
		}
	}

	if err := s.Put(rec); err != nil {
		return err
	}
	fmt.Fprintf(Out, "✓ Создана запись %s/%s\n", kind, rec.ID)

	maybeAutoSync(ctx, cfg, s)
	return nil
}

// maybeAutoSync выполняет авто-цикл после локальной мутации. Одноразовый
// процесс CLI не переживает дебаунс-таймер, поэтому цикл запускается сразу;
// подавление по backoff остаётся за движком.
func maybeAutoSync(ctx context.Context, cfg *config.Config, s *store.Store) {
	if !cfg.AutoSync {
		return
	}
	eng := bootstrap.BuildEngine(cfg, s)
	defer eng.Close()
	res, err := eng.SyncCycle(ctx, syncengine.TriggerAuto)
	if errors.Is(err, syncengine.ErrBackedOff) {
		fmt.Fprintln(Out, "• Авто-синхронизация приостановлена; запустите `ivcli sync` вручную")
		return
	}
	if err != nil {
		return
	}
	printCycleSummary(res)
}

func init() { RegisterCmd(addCmd{}) }
