package wiki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	userAgent     = "weekendguide-backend/1.0"
	maxBodyBytes  = 1 << 20
	defaultTTL    = 24 * time.Hour
	cacheKeySpace = "wiki:"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotFound   = errors.New("article not found")
	ErrUpstream   = errors.New("wiki upstream error")
)

var langPattern = regexp.MustCompile(`^[a-z]{2,3}(-[a-z]{2,8})?$`)

type Summary struct {
	Title   string `json:"title"`
	Extract string `json:"extract"`
}

type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

type Config struct {
	// BaseURL has one %s verb for the language, e.g. https://%s.wikipedia.org/api/rest_v1/page/summary/
	BaseURL string
	RPS     float64
	Burst   int
	TTL     time.Duration
}

type Service struct {
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	cache   Cache
	ttl     time.Duration
	logger  *zap.Logger
}

func NewService(client *http.Client, cfg Config, logger *zap.Logger) *Service {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultTTL
	}

	limit := rate.Inf
	if cfg.RPS > 0 {
		limit = rate.Limit(cfg.RPS)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	return &Service{
		client:  client,
		baseURL: cfg.BaseURL,
		limiter: rate.NewLimiter(limit, cfg.Burst),
		ttl:     cfg.TTL,
		logger:  logger,
	}
}

func (s *Service) AttachCache(cache Cache) {
	s.cache = cache
}

func (s *Service) Summary(ctx context.Context, title, lang string) (Summary, error) {
	title = strings.ReplaceAll(strings.TrimSpace(title), " ", "_")
	lang = strings.ToLower(strings.TrimSpace(lang))
	if lang == "" {
		lang = "en"
	}
	if title == "" || len(title) > 256 {
		return Summary{}, fmt.Errorf("%w: title is required", ErrValidation)
	}
	if !langPattern.MatchString(lang) {
		return Summary{}, fmt.Errorf("%w: invalid lang", ErrValidation)
	}

	key := cacheKeySpace + lang + ":" + title
	if s.cache != nil {
		raw, ok, err := s.cache.Get(ctx, key)
		if err != nil {
			s.logger.Warn("wiki cache read failed", zap.String("key", key), zap.Error(err))
		} else if ok {
			return parseSummary(raw)
		}
	}

	raw, err := s.fetch(ctx, title, lang)
	if err != nil {
		return Summary{}, err
	}

	summary, err := parseSummary(raw)
	if err != nil {
		return Summary{}, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
			s.logger.Warn("wiki cache write failed", zap.String("key", key), zap.Error(err))
		}
	}

	return summary, nil
}

func (s *Service) fetch(ctx context.Context, title, lang string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("wait wiki rate limit: %w", err)
	}

	endpoint := fmt.Sprintf(s.baseURL, lang) + url.PathEscape(title)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build wiki request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrUpstream, err)
	}
	return raw, nil
}

func parseSummary(raw []byte) (Summary, error) {
	if !gjson.ValidBytes(raw) {
		return Summary{}, fmt.Errorf("%w: invalid json", ErrUpstream)
	}

	fields := gjson.GetManyBytes(raw, "title", "extract")
	summary := Summary{
		Title:   fields[0].String(),
		Extract: fields[1].String(),
	}
	if summary.Title == "" && summary.Extract == "" {
		return Summary{}, ErrNotFound
	}
	return summary, nil
}
