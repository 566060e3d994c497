// backend/src/services/rate_service.go
package services

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"github.com/username/famfolio/backend/src/logger"
)

// erAPIResponse is the shape of an open.er-api.com latest-rates payload.
type erAPIResponse struct {
	Result   string             `json:"result"`
	BaseCode string             `json:"base_code"`
	Rates    map[string]float64 `json:"rates"`
}

// httpRateSource fetches rates from an exchangerate-api compatible endpoint.
// Rates come back per unit of the base currency, so the conversion into the
// quote currency is 1/rate.
type httpRateSource struct {
	baseURL    string
	httpClient *http.Client
}

// NewHTTPRateSource creates a RateSource backed by an open.er-api.com style
// endpoint.
func NewHTTPRateSource(baseURL string) RateSource {
	return &httpRateSource{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (s *httpRateSource) Rate(fromCurrency, toCurrency string) (decimal.Decimal, error) {
	url := fmt.Sprintf("%s/%s", s.baseURL, fromCurrency)
	resp, err := s.httpClient.Get(url)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s request failed: %v", ErrRateLookup, fromCurrency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("%w: provider returned %s for %s", ErrRateLookup, resp.Status, fromCurrency)
	}

	var payload erAPIResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return decimal.Zero, fmt.Errorf("%w: decoding response for %s: %v", ErrRateLookup, fromCurrency, err)
	}
	if payload.Result != "success" {
		return decimal.Zero, fmt.Errorf("%w: provider result %q for %s", ErrRateLookup, payload.Result, fromCurrency)
	}

	rate, ok := payload.Rates[toCurrency]
	if !ok || rate == 0 {
		return decimal.Zero, fmt.Errorf("%w: no %s rate in %s response", ErrRateLookup, toCurrency, fromCurrency)
	}
	return decimal.NewFromFloat(rate), nil
}

type rateServiceImpl struct {
	source       RateSource
	homeCurrency string
	rateCache    *cache.Cache
	cacheTTL     time.Duration
}

// NewRateService creates a RateService that caches provider lookups and keeps
// the last known rate as a fallback for provider outages.
func NewRateService(source RateSource, homeCurrency string, cacheTTL time.Duration) RateService {
	return &rateServiceImpl{
		source:       source,
		homeCurrency: strings.ToUpper(homeCurrency),
		rateCache:    cache.New(cacheTTL, 2*cacheTTL),
		cacheTTL:     cacheTTL,
	}
}

// RateToHome returns the multiplier converting one unit of the given currency
// into home currency. The home currency itself is always 1.
func (s *rateServiceImpl) RateToHome(currency string) (decimal.Decimal, error) {
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" || currency == s.homeCurrency {
		return decimal.NewFromInt(1), nil
	}

	cacheKey := fmt.Sprintf("rate-%s-%s", currency, s.homeCurrency)
	if cached, found := s.rateCache.Get(cacheKey); found {
		return cached.(decimal.Decimal), nil
	}

	rate, err := s.source.Rate(currency, s.homeCurrency)
	if err != nil {
		// Provider outage fallback: serve the last rate we ever saw, even if
		// its TTL has lapsed.
		staleKey := "stale-" + cacheKey
		if stale, found := s.rateCache.Get(staleKey); found {
			logger.L.Warn("Rate provider unavailable, serving last known rate", "currency", currency, "error", err)
			return stale.(decimal.Decimal), nil
		}
		return decimal.Zero, err
	}

	s.rateCache.Set(cacheKey, rate, s.cacheTTL)
	s.rateCache.Set("stale-"+cacheKey, rate, cache.NoExpiration)
	return rate, nil
}

func (s *rateServiceImpl) RateFunc() func(currency string) (decimal.Decimal, error) {
	return s.RateToHome
}
