package config

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MarcMroz/open-voice-chat/internal/domain"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

// RoomsEnv holds an inline room catalog that takes precedence over the file.
const RoomsEnv = "ROOMS_JSON"

var ErrNoRooms = errors.New("room catalog is empty")

// ParseRooms decodes a JSON array of rooms.
func ParseRooms(data []byte) ([]domain.Room, error) {
	var rooms []domain.Room
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("decode rooms: %w", err)
	}
	out := rooms[:0]
	for _, r := range rooms {
		if r.ID == "" {
			log.Warn().Str("module", "config").Str("name", r.Name).Msg("room without id skipped")
			continue
		}
		if r.Name == "" {
			r.Name = string(r.ID)
		}
		out = append(out, r)
	}
	if len(out) == 0 {
		return nil, ErrNoRooms
	}
	return out, nil
}

func readRoomsFile(path string) ([]domain.Room, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseRooms(data)
}

// LoadRooms returns the room catalog from ROOMS_JSON, else from path. It never
// fails: unusable input yields the single default room.
func LoadRooms(path string) []domain.Room {
	if inline := os.Getenv(RoomsEnv); inline != "" {
		rooms, err := ParseRooms([]byte(inline))
		if err == nil {
			log.Info().Str("module", "config").Int("rooms", len(rooms)).Msg("loaded rooms from " + RoomsEnv)
			return rooms
		}
		log.Error().Err(err).Str("module", "config").Msg("bad " + RoomsEnv)
	}

	rooms, err := readRoomsFile(path)
	if err != nil {
		log.Error().Err(err).Str("module", "config").Str("file", path).Msg("rooms file unusable, falling back to default room")
		return []domain.Room{domain.DefaultRoom()}
	}
	log.Info().Str("module", "config").Str("file", path).Int("rooms", len(rooms)).Msg("loaded rooms")
	return rooms
}

// WatchRooms reloads the catalog whenever the rooms file changes and hands it
// to apply. A rewrite that does not parse keeps the current catalog. It
// returns when ctx is done.
func WatchRooms(ctx context.Context, path string, apply func([]domain.Room)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("rooms watcher: %w", err)
	}
	defer w.Close()

	// Editors replace files by rename, so watch the directory.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	target := filepath.Clean(path)
	log.Info().Str("module", "config").Str("file", target).Msg("watching rooms file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			rooms, err := readRoomsFile(path)
			if err != nil {
				log.Error().Err(err).Str("module", "config").Str("file", path).Msg("rooms reload failed, keeping current catalog")
				continue
			}
			apply(rooms)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Error().Err(err).Str("module", "config").Msg("rooms watcher")
		}
	}
}
