package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"regexp"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/ssmoliagin/weekendguide/internal/domain/model"
	"github.com/ssmoliagin/weekendguide/internal/domain/rules"
	"github.com/ssmoliagin/weekendguide/internal/services/geo"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("catalog entry not found")
)

var codePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

type Config struct {
	Prefix          string
	FallbackLang    string
	NearbyLimit     int
	NearbyLimitHard int
}

type NearbyPOI struct {
	POI       model.POI
	DistanceM float64
}

type Service struct {
	cache  *DiskCache
	cfg    Config
	logger *zap.Logger

	mu     sync.RWMutex
	parsed map[string]interface{}
}

func NewService(cache *DiskCache, cfg Config, logger *zap.Logger) *Service {
	cfg.Prefix = strings.Trim(strings.TrimSpace(cfg.Prefix), "/")
	if cfg.Prefix == "" {
		cfg.Prefix = "data/places"
	}
	if _, ok := rules.NormalizeLanguage(cfg.FallbackLang); !ok {
		cfg.FallbackLang = rules.DefaultLanguage
	}
	if cfg.NearbyLimit <= 0 {
		cfg.NearbyLimit = 50
	}
	if cfg.NearbyLimitHard < cfg.NearbyLimit {
		cfg.NearbyLimitHard = cfg.NearbyLimit
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		cache:  cache,
		cfg:    cfg,
		logger: logger,
		parsed: map[string]interface{}{},
	}
}

func (s *Service) Countries(ctx context.Context) ([]model.Country, error) {
	key := path.Join(s.cfg.Prefix, "countries.json")
	if cached, ok := s.memo(key); ok {
		return cached.([]model.Country), nil
	}

	var countries []model.Country
	if err := s.loadJSON(ctx, key, "countries", &countries); err != nil {
		return nil, err
	}
	for i := range countries {
		countries[i].Code = rules.NormalizeCode(countries[i].Code)
	}

	s.remember(key, countries)
	return countries, nil
}

func (s *Service) Regions(ctx context.Context, countryCode string) ([]model.Region, error) {
	country, err := normalizeCode(countryCode)
	if err != nil {
		return nil, err
	}

	key := path.Join(s.cfg.Prefix, country, "regions.json")
	if cached, ok := s.memo(key); ok {
		return cached.([]model.Region), nil
	}

	var regions []model.Region
	if err := s.loadJSON(ctx, key, "regions", &regions); err != nil {
		return nil, err
	}
	for i := range regions {
		regions[i].Code = rules.NormalizeCode(regions[i].Code)
		regions[i].CountryCode = country
	}

	s.remember(key, regions)
	return regions, nil
}

func (s *Service) Region(ctx context.Context, countryCode, regionCode string) (model.Region, error) {
	region, err := normalizeCode(regionCode)
	if err != nil {
		return model.Region{}, err
	}

	regions, err := s.Regions(ctx, countryCode)
	if err != nil {
		return model.Region{}, err
	}
	for _, r := range regions {
		if r.Code == region {
			return r, nil
		}
	}

	return model.Region{}, fmt.Errorf("region %s/%s: %w", countryCode, regionCode, ErrNotFound)
}

// POIs returns the region's points of interest in lang, falling back to the
// configured language when no file exists for lang.
func (s *Service) POIs(ctx context.Context, countryCode, regionCode, lang string) ([]model.POI, error) {
	country, err := normalizeCode(countryCode)
	if err != nil {
		return nil, err
	}
	region, err := normalizeCode(regionCode)
	if err != nil {
		return nil, err
	}

	normalizedLang, ok := rules.NormalizeLanguage(lang)
	if !ok {
		normalizedLang = s.cfg.FallbackLang
	}

	pois, err := s.loadPOIs(ctx, country, region, normalizedLang)
	if errors.Is(err, ErrNotFound) && normalizedLang != s.cfg.FallbackLang {
		s.logger.Debug("poi language missing, using fallback",
			zap.String("country", country),
			zap.String("region", region),
			zap.String("lang", normalizedLang),
		)
		pois, err = s.loadPOIs(ctx, country, region, s.cfg.FallbackLang)
	}
	if err != nil {
		return nil, err
	}

	return pois, nil
}

func (s *Service) POI(ctx context.Context, countryCode, regionCode, lang, poiID string) (model.POI, error) {
	poiID = strings.TrimSpace(poiID)
	if poiID == "" {
		return model.POI{}, fmt.Errorf("poi id is required: %w", ErrValidation)
	}

	pois, err := s.POIs(ctx, countryCode, regionCode, lang)
	if err != nil {
		return model.POI{}, err
	}
	for _, poi := range pois {
		if poi.ID == poiID {
			return poi, nil
		}
	}

	return model.POI{}, fmt.Errorf("poi %s: %w", poiID, ErrNotFound)
}

// Nearby orders the region's POIs by distance from the position.
func (s *Service) Nearby(ctx context.Context, countryCode, regionCode, lang string, lat, lon float64, limit int) ([]NearbyPOI, error) {
	if err := geo.ValidateCoordinates(lat, lon); err != nil {
		return nil, fmt.Errorf("%v: %w", err, ErrValidation)
	}
	if limit <= 0 {
		limit = s.cfg.NearbyLimit
	}
	if limit > s.cfg.NearbyLimitHard {
		limit = s.cfg.NearbyLimitHard
	}

	pois, err := s.POIs(ctx, countryCode, regionCode, lang)
	if err != nil {
		return nil, err
	}

	out := make([]NearbyPOI, 0, len(pois))
	for _, poi := range pois {
		out = append(out, NearbyPOI{
			POI:       poi,
			DistanceM: geo.DistanceMeters(lat, lon, poi.Lat, poi.Lon),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DistanceM < out[j].DistanceM
	})
	if len(out) > limit {
		out = out[:limit]
	}

	return out, nil
}

func (s *Service) loadPOIs(ctx context.Context, country, region, lang string) ([]model.POI, error) {
	key := path.Join(s.cfg.Prefix, country, region, "poi", lang+".csv")
	if cached, ok := s.memo(key); ok {
		return cached.([]model.POI), nil
	}

	local, err := s.fetch(ctx, key, "poi")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(local)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", key, err)
	}
	defer f.Close()

	pois, skipped, err := parsePOICSV(f, country, region)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", key, err)
	}
	if skipped > 0 {
		s.logger.Warn("skipped malformed poi rows", zap.String("key", key), zap.Int("skipped", skipped))
	}

	s.remember(key, pois)
	return pois, nil
}

func (s *Service) loadJSON(ctx context.Context, key, kind string, dst interface{}) error {
	local, err := s.fetch(ctx, key, kind)
	if err != nil {
		return err
	}

	raw, err := os.ReadFile(local)
	if err != nil {
		return fmt.Errorf("read %s: %w", key, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, key, kind string) (string, error) {
	if s.cache == nil {
		return "", fmt.Errorf("catalog cache is nil")
	}
	return s.cache.Path(ctx, key, kind)
}

func (s *Service) memo(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.parsed[key]
	return v, ok
}

func (s *Service) remember(key string, v interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.parsed[key] = v
}

func normalizeCode(raw string) (string, error) {
	code := rules.NormalizeCode(raw)
	if !codePattern.MatchString(code) {
		return "", fmt.Errorf("invalid code %q: %w", raw, ErrValidation)
	}
	return code, nil
}
