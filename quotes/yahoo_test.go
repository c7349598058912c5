package quotes

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tj "github.com/etnz/tradejournal"
)

const response = `{"quoteResponse":{"result":[
	{"symbol":"AAPL","currency":"USD","regularMarketPrice":190.5,"regularMarketChange":-1.25,
	 "regularMarketDayHigh":192,"regularMarketDayLow":189,"regularMarketVolume":51000000,"marketState":"REGULAR"},
	{"symbol":"NOPRICE"}
],"error":null}}`

func TestParseQuotes(t *testing.T) {
	got, err := parseQuotes([]byte(response))
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("parseQuotes() returned %d quotes, want 1", len(got))
	}
	q := got["AAPL"]
	if !q.Price.Equal(tj.M(190.5, "USD")) || !q.Change.Equal(tj.M(-1.25, "USD")) || q.Volume != 51000000 || q.MarketState != "REGULAR" {
		t.Errorf("AAPL quote = %+v", q)
	}
}

func TestParseQuotes_Invalid(t *testing.T) {
	for _, body := range []string{`not json`, `{"quoteResponse":{"result":"x"}}`, `{}`} {
		if _, err := parseQuotes([]byte(body)); err == nil {
			t.Errorf("parseQuotes(%q) succeeded, want an error", body)
		}
	}
}

func TestYahoo_GetQuotesCaches(t *testing.T) {
	calls := 0
	var requested string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		requested = r.URL.Query().Get("symbols")
		w.Write([]byte(response))
	}))
	defer srv.Close()

	y := NewYahoo(srv.URL, time.Minute, nil)
	ctx := context.Background()
	for range 2 {
		got, err := y.GetQuotes(ctx, []string{"AAPL"})
		if err != nil {
			t.Fatal(err)
		}
		if _, ok := got["AAPL"]; !ok {
			t.Fatalf("GetQuotes() = %v, want AAPL", got)
		}
	}
	if calls != 1 {
		t.Errorf("server called %d times, want 1", calls)
	}

	if _, err := y.GetQuotes(ctx, []string{"AAPL", "MSFT"}); err != nil {
		t.Fatal(err)
	}
	if requested != "MSFT" || calls != 2 {
		t.Errorf("requested %q in %d calls, want only MSFT in a second call", requested, calls)
	}
}

func TestYahoo_GetQuotesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "too many requests", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := NewYahoo(srv.URL, time.Minute, nil).GetQuotes(context.Background(), []string{"AAPL"})
	if err == nil || !strings.Contains(err.Error(), "429") {
		t.Errorf("GetQuotes() = %v, want a 429 error", err)
	}
}
