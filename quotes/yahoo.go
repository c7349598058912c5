// Package quotes looks up current market quotes for the journal's holdings.
package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PaesslerAG/jsonpath"
	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/metrics"
	"github.com/patrickmn/go-cache"
)

// DefaultURL is the Yahoo Finance quote endpoint.
const DefaultURL = "https://query1.finance.yahoo.com/v7/finance/quote"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Yahoo is a tj.QuoteProvider over the Yahoo Finance quote API. Quotes are
// cached for TTL.
type Yahoo struct {
	URL    string
	Client *http.Client
	cache  *cache.Cache
	logger *slog.Logger
}

var _ tj.QuoteProvider = (*Yahoo)(nil)

// NewYahoo returns a provider querying addr, DefaultURL when empty.
func NewYahoo(addr string, ttl time.Duration, logger *slog.Logger) *Yahoo {
	if addr == "" {
		addr = DefaultURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Yahoo{
		URL:    addr,
		Client: &http.Client{Timeout: 20 * time.Second},
		cache:  cache.New(ttl, 2*ttl),
		logger: logger,
	}
}

// GetQuotes implements tj.QuoteProvider. Cached symbols are not requested again.
func (y *Yahoo) GetQuotes(ctx context.Context, symbols []string) (map[string]tj.Quote, error) {
	res := make(map[string]tj.Quote, len(symbols))
	var missing []string
	for _, s := range symbols {
		if q, ok := y.cache.Get(s); ok {
			res[s] = q.(tj.Quote)
			metrics.QuoteRequests.WithLabelValues("hit").Inc()
			continue
		}
		missing = append(missing, s)
	}
	if len(missing) == 0 {
		return res, nil
	}
	fetched, err := y.fetch(ctx, missing)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues("error").Inc()
		return res, err
	}
	for s, q := range fetched {
		y.cache.SetDefault(s, q)
		res[s] = q
		metrics.QuoteRequests.WithLabelValues("miss").Inc()
	}
	return res, nil
}

func (y *Yahoo) fetch(ctx context.Context, symbols []string) (map[string]tj.Quote, error) {
	addr := y.URL + "?symbols=" + url.QueryEscape(strings.Join(symbols, ","))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, addr, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)
	resp, err := y.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cannot get quotes: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("cannot http GET %v%v: %v", resp.Request.URL.Host, resp.Request.URL.Path, resp.Status)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, resp.Body); err != nil {
		return nil, err
	}
	y.logger.Debug("quotes fetched", "symbols", len(symbols), "status", resp.Status)
	return parseQuotes(buf.Bytes())
}

// parseQuotes reads a quote API response.
func parseQuotes(body []byte) (map[string]tj.Quote, error) {
	var jobj any
	if err := json.Unmarshal(body, &jobj); err != nil {
		return nil, fmt.Errorf("invalid quote response: %w", err)
	}
	jval, err := jsonpath.Get("$.quoteResponse.result", jobj)
	if err != nil {
		return nil, fmt.Errorf("invalid quote response: %w", err)
	}
	results, ok := jval.([]any)
	if !ok {
		return nil, fmt.Errorf("invalid quote response: result is not a list")
	}
	res := make(map[string]tj.Quote, len(results))
	for _, r := range results {
		symbol, _ := get[string](r, "$.symbol")
		price, ok := get[float64](r, "$.regularMarketPrice")
		if symbol == "" || !ok {
			continue
		}
		cur, _ := get[string](r, "$.currency")
		if cur == "" {
			cur = tj.DefaultCurrency
		}
		cur = strings.ToUpper(cur)
		change, _ := get[float64](r, "$.regularMarketChange")
		high, _ := get[float64](r, "$.regularMarketDayHigh")
		low, _ := get[float64](r, "$.regularMarketDayLow")
		volume, _ := get[float64](r, "$.regularMarketVolume")
		state, _ := get[string](r, "$.marketState")
		res[symbol] = tj.Quote{
			Symbol:      symbol,
			Price:       tj.M(price, cur),
			Change:      tj.M(change, cur),
			DayHigh:     tj.M(high, cur),
			DayLow:      tj.M(low, cur),
			Volume:      int64(volume),
			MarketState: state,
		}
	}
	return res, nil
}

// get reads a single value at path.
func get[T any](jobj any, path string) (T, bool) {
	var zero T
	jval, err := jsonpath.Get(path, jobj)
	if err != nil {
		return zero, false
	}
	// jsonpath may return a list of one answer
	if jlist, ok := jval.([]any); ok && len(jlist) > 0 {
		jval = jlist[0]
	}
	v, ok := jval.(T)
	return v, ok
}
