package mockapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

// ApplySeed registers the farmers listed in a JSON seed file. Entries whose
// phone number is already registered are skipped, so applying the same file
// repeatedly is safe.
func ApplySeed(ctx context.Context, store *Store, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var entries []api.Registration
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}

	for _, reg := range entries {
		if reg.Name == "" || reg.Phone == "" {
			continue
		}
		existing, err := store.FarmerByPhone(ctx, reg.Phone)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}
		if reg.LandSize <= 0 {
			reg.LandSize = 1.0
		}

		farmerID, err := store.CreateFarmer(ctx, reg)
		if err != nil {
			return err
		}
		seasonID, err := store.CreateSeason(ctx, farmerID, 1, reg.Crop, reg.LandSize)
		if err != nil {
			return err
		}
		if err := store.AppendContract(ctx, seasonID, "DRAFT", "Seed Registration"); err != nil {
			return err
		}
		if err := store.AppendContract(ctx, seasonID, "ACTIVE", "Contract Signed"); err != nil {
			return err
		}
		score, riskBand, factors := scoreSeason(reg.LandSize, reg.Age, len(stageDefs), 0)
		if err := store.SaveScorecard(ctx, seasonID, score, riskBand, factors); err != nil {
			return err
		}
		logger.Info("seed farmer registered", "farmer_id", farmerID, "name", reg.Name)
	}
	return nil
}

// WatchSeed applies the seed file once, then re-applies it on every write
// until ctx is cancelled. A missing file is not an error: the watcher picks
// it up when it appears.
func WatchSeed(ctx context.Context, store *Store, path string, logger *slog.Logger) error {
	if _, err := os.Stat(path); err == nil {
		if err := ApplySeed(ctx, store, path, logger); err != nil {
			logger.Warn("seed apply failed", "path", path, "error", err)
		}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watching the file itself breaks on editors that replace it; watch the
	// directory and filter on the name.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != filepath.Base(path) {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				if err := ApplySeed(ctx, store, path, logger); err != nil {
					logger.Warn("seed apply failed", "path", path, "error", err)
				}
			}

		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			// Watcher errors are non-fatal; continue watching.
		}
	}
}
