package services

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingRateSource wraps a fixed answer and records how often it is asked.
type countingRateSource struct {
	rate  decimal.Decimal
	err   error
	calls int
}

func (s *countingRateSource) Rate(fromCurrency, toCurrency string) (decimal.Decimal, error) {
	s.calls++
	if s.err != nil {
		return decimal.Zero, s.err
	}
	return s.rate, nil
}

func TestRateToHomeReturnsOneForHomeCurrency(t *testing.T) {
	source := &countingRateSource{rate: decimal.NewFromInt(30)}
	svc := NewRateService(source, "TWD", time.Minute)

	rate, err := svc.RateToHome("TWD")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	rate, err = svc.RateToHome("")
	require.NoError(t, err)
	assert.True(t, rate.Equal(decimal.NewFromInt(1)))

	assert.Zero(t, source.calls, "home currency must not trigger a provider lookup")
}

func TestRateToHomeCachesProviderLookups(t *testing.T) {
	source := &countingRateSource{rate: decimal.NewFromFloat(30.5)}
	svc := NewRateService(source, "TWD", time.Minute)

	first, err := svc.RateToHome("USD")
	require.NoError(t, err)
	second, err := svc.RateToHome("usd")
	require.NoError(t, err)

	assert.True(t, first.Equal(second))
	assert.Equal(t, 1, source.calls)
}

func TestRateToHomeServesStaleRateOnProviderOutage(t *testing.T) {
	source := &countingRateSource{rate: decimal.NewFromInt(31)}
	// Zero TTL: the fresh cache entry lapses immediately.
	svc := NewRateService(source, "TWD", time.Nanosecond)

	rate, err := svc.RateToHome("USD")
	require.NoError(t, err)
	assert.Equal(t, "31", rate.String())

	time.Sleep(2 * time.Millisecond)
	source.err = errors.New("provider down")

	rate, err = svc.RateToHome("USD")
	require.NoError(t, err)
	assert.Equal(t, "31", rate.String())
}

func TestRateToHomeFailsWithoutAnyKnownRate(t *testing.T) {
	source := &countingRateSource{err: errors.New("provider down")}
	svc := NewRateService(source, "TWD", time.Minute)

	_, err := svc.RateToHome("USD")
	assert.Error(t, err)
}

func TestHTTPRateSourceParsesProviderPayload(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/USD", r.URL.Path)
		w.Write([]byte(`{"result":"success","base_code":"USD","rates":{"TWD":30.25,"EUR":0.92}}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	rate, err := source.Rate("USD", "TWD")
	require.NoError(t, err)
	assert.Equal(t, "30.25", rate.String())
}

func TestHTTPRateSourceRejectsFailureResult(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"error"}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	_, err := source.Rate("USD", "TWD")
	assert.ErrorIs(t, err, ErrRateLookup)
}

func TestHTTPRateSourceRejectsMissingQuoteCurrency(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"result":"success","rates":{"EUR":0.92}}`))
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	_, err := source.Rate("USD", "TWD")
	assert.ErrorIs(t, err, ErrRateLookup)
}

func TestHTTPRateSourceRejectsHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	source := NewHTTPRateSource(server.URL)
	_, err := source.Rate("USD", "TWD")
	assert.ErrorIs(t, err, ErrRateLookup)
}
