package networkloader

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"abi_resolver/internal/app/port"
	"abi_resolver/internal/domain/entity"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DirLoader reads custom network definitions from *.json files in one directory,
// one definition per file.
type DirLoader struct {
	dir    string
	logger port.Logger
}

func NewDirLoader(dir string, logger port.Logger) *DirLoader {
	return &DirLoader{dir: dir, logger: logger}
}

// Load returns every valid definition in file name order.
// A missing directory yields no definitions; unreadable or invalid files are skipped.
func (l *DirLoader) Load() ([]entity.NetworkDefinition, error) {
	files, err := os.ReadDir(l.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			l.logger.Debug("Network seed directory not found, nothing to load", "path", l.dir)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read network directory %s: %w", l.dir, err)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name() < files[j].Name() })

	var defs []entity.NetworkDefinition
	seen := make(map[uint64]string)
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(strings.ToLower(file.Name()), ".json") {
			continue
		}
		filePath := filepath.Join(l.dir, file.Name())
		data, err := os.ReadFile(filePath)
		if err != nil {
			l.logger.Warn("Failed to read network file, skipping file.", "path", filePath, "error", err)
			continue
		}

		var def entity.NetworkDefinition
		if err := json.Unmarshal(data, &def); err != nil {
			l.logger.Warn("Failed to unmarshal network from file, skipping file.", "path", filePath, "error", err)
			continue
		}
		if err := def.Validate(); err != nil {
			l.logger.Warn("Invalid network definition in file, skipping file.", "path", filePath, "error", err)
			continue
		}
		if prev, dup := seen[def.ID]; dup {
			l.logger.Warn("Network file repeats a chain id, skipping file.", "path", filePath, "chainID", def.ID, "firstFile", prev)
			continue
		}
		seen[def.ID] = file.Name()
		def.Origin = entity.OriginCustom
		defs = append(defs, def)
	}

	l.logger.Info("Network definitions loaded from directory", "path", l.dir, "count", len(defs))
	return defs, nil
}

// SeededKey holds the chain ids Seed has already handled, so a seeded
// network the user removes stays removed across restarts.
const SeededKey = "networks:seeded"

// Seed adds every loaded definition whose chain id the registry does not know yet
// and that was not seeded before. It returns how many networks were added.
func Seed(ctx context.Context, registry port.ChainRegistry, store port.PersistentStore, defs []entity.NetworkDefinition, logger port.Logger) (int, error) {
	done, err := loadSeeded(ctx, store)
	if err != nil {
		return 0, err
	}

	added := 0
	changed := false
	var firstErr error
	for _, def := range defs {
		if _, ok := done[def.ID]; ok {
			logger.Debug("Network seeded before, skipping", "chainID", def.ID, "name", def.Name)
			continue
		}
		if _, err := registry.GetByID(def.ID); err == nil {
			logger.Debug("Seed network already registered, skipping", "chainID", def.ID, "name", def.Name)
		} else {
			err := registry.AddCustomNetwork(ctx, def)
			switch {
			case err == nil:
				added++
			case !errors.Is(err, entity.ErrConflict):
				firstErr = fmt.Errorf("failed to seed network %d: %w", def.ID, err)
			}
			if firstErr != nil {
				break
			}
		}
		done[def.ID] = struct{}{}
		changed = true
	}

	if changed {
		if err := saveSeeded(ctx, store, done); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return added, firstErr
}

func loadSeeded(ctx context.Context, store port.PersistentStore) (map[uint64]struct{}, error) {
	done := make(map[uint64]struct{})
	raw, ok, err := store.Get(ctx, SeededKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read seeded networks: %w", err)
	}
	if !ok {
		return done, nil
	}
	var ids []uint64
	if err := json.Unmarshal(raw, &ids); err != nil {
		return nil, fmt.Errorf("failed to decode seeded networks: %w", err)
	}
	for _, id := range ids {
		done[id] = struct{}{}
	}
	return done, nil
}

func saveSeeded(ctx context.Context, store port.PersistentStore, done map[uint64]struct{}) error {
	ids := make([]uint64, 0, len(done))
	for id := range done {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	if err := store.Set(ctx, SeededKey, raw); err != nil {
		return fmt.Errorf("failed to record seeded networks: %w", err)
	}
	return nil
}
