package markers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/enums"
)

type Config struct {
	Dir  string
	Size int
}

// Service renders marker icons once per key and keeps them in memory.
// The key space is bounded by enums.PlaceCategories × visited × favorite, so nothing is evicted.
type Service struct {
	dir    string
	size   int
	logger *zap.Logger

	mu    sync.RWMutex
	icons map[string][]byte
}

func NewService(cfg Config, logger *zap.Logger) *Service {
	if cfg.Size <= 0 {
		cfg.Size = 64
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		dir:    cfg.Dir,
		size:   cfg.Size,
		logger: logger,
		icons:  make(map[string][]byte),
	}
}

func Key(category enums.PlaceCategory, visited, favorite bool) string {
	return string(category) + "_" + flag(visited) + "_" + flag(favorite)
}

// Keys lists every marker key in render order.
func Keys() []string {
	keys := make([]string, 0, len(enums.PlaceCategories)*4)
	for _, category := range enums.PlaceCategories {
		for _, visited := range []bool{false, true} {
			for _, favorite := range []bool{false, true} {
				keys = append(keys, Key(category, visited, favorite))
			}
		}
	}
	return keys
}

// Warm renders every marker that is not cached yet.
func (s *Service) Warm(ctx context.Context) (int, error) {
	rendered := 0
	for _, category := range enums.PlaceCategories {
		for _, visited := range []bool{false, true} {
			for _, favorite := range []bool{false, true} {
				if err := ctx.Err(); err != nil {
					return rendered, err
				}
				if _, err := s.Icon(ctx, string(category), visited, favorite); err != nil {
					return rendered, err
				}
				rendered++
			}
		}
	}
	return rendered, nil
}

// Icon returns PNG bytes for the marker. Unknown categories fall back to "other".
func (s *Service) Icon(ctx context.Context, category string, visited, favorite bool) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	parsed := enums.ParsePlaceCategory(category)
	key := Key(parsed, visited, favorite)

	s.mu.RLock()
	icon, ok := s.icons[key]
	s.mu.RUnlock()
	if ok {
		return icon, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if icon, ok := s.icons[key]; ok {
		return icon, nil
	}

	icon, err := s.load(key)
	if err != nil {
		return nil, err
	}
	if icon == nil {
		icon, err = renderPin(s.size, parsed, visited, favorite)
		if err != nil {
			return nil, fmt.Errorf("render marker %s: %w", key, err)
		}
		if err := s.save(key, icon); err != nil {
			s.logger.Warn("marker save failed", zap.String("key", key), zap.Error(err))
		}
	}

	s.icons[key] = icon
	return icon, nil
}

func (s *Service) path(key string) string {
	return filepath.Join(s.dir, key+".png")
}

func (s *Service) load(key string) ([]byte, error) {
	if s.dir == "" {
		return nil, nil
	}
	data, err := os.ReadFile(s.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read marker %s: %w", key, err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	return data, nil
}

func (s *Service) save(key string, data []byte) error {
	if s.dir == "" {
		return nil
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create markers dir: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, key+"-*.part")
	if err != nil {
		return fmt.Errorf("create temp marker: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write temp marker: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close temp marker: %w", err)
	}
	if err := os.Rename(tmpName, s.path(key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("move marker into place: %w", err)
	}
	return nil
}

func flag(v bool) string {
	if v {
		return "1"
	}
	return "0"
}
