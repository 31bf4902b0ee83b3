package geo

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"sync"
	"time"

	"folio-analytics/internal/domain"
	"folio-analytics/internal/service"
	"folio-analytics/pkg/logger"
	"folio-analytics/pkg/redis"
)

// cacheTTL bounds how long one raw address stays memoized.
const cacheTTL = time.Hour

// maxMemoEntries caps the in-process fallback cache before a full sweep.
const maxMemoEntries = 4096

// apiResponse matches the ip-api.com JSON payload.
type apiResponse struct {
	Status  string `json:"status"`
	Country string `json:"country"`
	City    string `json:"city"`
}

type memoEntry struct {
	location domain.GeoLocation
	expires  time.Time
}

// Service resolves client addresses against an external ip-api style
// endpoint. Lookups are memoized per raw address: in Redis when a client is
// configured, in an expiring in-process map otherwise.
type Service struct {
	apiURL     string
	httpClient *http.Client
	cache      *redis.Client
	logger     *logger.Logger
	now        func() time.Time

	mu   sync.Mutex
	memo map[string]memoEntry
}

// NewService creates a new geo resolver. cache may be nil.
func NewService(apiURL string, timeout time.Duration, cache *redis.Client, logger *logger.Logger) service.GeoResolver {
	return &Service{
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		logger:     logger,
		now:        time.Now,
		memo:       make(map[string]memoEntry),
	}
}

// Resolve returns the location for rawAddress. It never returns an error:
// timeouts, lookup failures and private addresses all collapse to nil
// fields, so visit recording is never blocked on geolocation.
func (s *Service) Resolve(ctx context.Context, rawAddress string) domain.GeoLocation {
	if rawAddress == "" || isPrivateAddress(rawAddress) {
		return domain.GeoLocation{}
	}

	if loc, ok := s.fromCache(ctx, rawAddress); ok {
		return loc
	}

	loc, err := s.lookup(ctx, rawAddress)
	if err != nil {
		s.logger.WithError(err).Debug("Geo lookup failed, recording visit without location")
		return domain.GeoLocation{}
	}

	s.toCache(ctx, rawAddress, loc)
	return loc
}

// lookup queries the external endpoint with the client's hard timeout.
func (s *Service) lookup(ctx context.Context, rawAddress string) (domain.GeoLocation, error) {
	endpoint := fmt.Sprintf("%s/%s", s.apiURL, url.PathEscape(rawAddress))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return domain.GeoLocation{}, fmt.Errorf("failed to build geo request: %w", err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return domain.GeoLocation{}, fmt.Errorf("geo request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.GeoLocation{}, fmt.Errorf("geo endpoint returned status %d", resp.StatusCode)
	}

	var payload apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return domain.GeoLocation{}, fmt.Errorf("failed to decode geo response: %w", err)
	}

	if payload.Status != "success" {
		return domain.GeoLocation{}, fmt.Errorf("geo lookup unsuccessful for address")
	}

	var loc domain.GeoLocation
	if payload.Country != "" {
		country := payload.Country
		loc.Country = &country
	}
	if payload.City != "" {
		city := payload.City
		loc.City = &city
	}
	return loc, nil
}

func (s *Service) fromCache(ctx context.Context, rawAddress string) (domain.GeoLocation, bool) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyGeo(rawAddress))
		if err != nil {
			if !redis.IsNil(err) {
				s.logger.WithError(err).Debug("Geo cache read failed")
			}
			return domain.GeoLocation{}, false
		}
		var loc domain.GeoLocation
		if err := json.Unmarshal([]byte(raw), &loc); err != nil {
			return domain.GeoLocation{}, false
		}
		return loc, true
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.memo[rawAddress]
	if !ok || s.now().After(entry.expires) {
		delete(s.memo, rawAddress)
		return domain.GeoLocation{}, false
	}
	return entry.location, true
}

func (s *Service) toCache(ctx context.Context, rawAddress string, loc domain.GeoLocation) {
	if s.cache != nil {
		encoded, err := json.Marshal(loc)
		if err != nil {
			return
		}
		if err := s.cache.Set(ctx, s.cache.KeyBuilder.KeyGeo(rawAddress), encoded, cacheTTL); err != nil {
			s.logger.WithError(err).Debug("Geo cache write failed")
		}
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Sweep expired entries when the map grows too large.
	if len(s.memo) >= maxMemoEntries {
		now := s.now()
		for addr, entry := range s.memo {
			if now.After(entry.expires) {
				delete(s.memo, addr)
			}
		}
	}

	s.memo[rawAddress] = memoEntry{location: loc, expires: s.now().Add(cacheTTL)}
}

// isPrivateAddress reports whether the address can never resolve publicly.
func isPrivateAddress(rawAddress string) bool {
	ip := net.ParseIP(rawAddress)
	if ip == nil {
		return false
	}
	return ip.IsLoopback() || ip.IsPrivate() || ip.IsUnspecified() || ip.IsLinkLocalUnicast()
}
