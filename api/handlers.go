package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/logger"
)

func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.svc.Accounts(r.Context(), s.userID)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if accounts == nil {
		accounts = []tj.Account{}
	}
	sendJSON(w, http.StatusOK, accounts)
}

func (s *Server) createAccount(w http.ResponseWriter, r *http.Request) {
	var a tj.Account
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		sendError(w, r, badRequest{fmt.Errorf("invalid account: %w", err)})
		return
	}
	a.UserID = s.userID
	a, err := s.svc.CreateAccount(r.Context(), a)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusCreated, a)
}

func (s *Server) importFile(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	content, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxUploadBytes))
	if err != nil {
		sendJSONError(w, r, fmt.Sprintf("cannot read upload: %v", err), http.StatusRequestEntityTooLarge)
		return
	}
	res, err := s.svc.ImportFile(r.Context(), content, s.userID, account, r.URL.Query().Get("format"))
	// A failed import may still have touched the journal.
	s.reports.Flush()
	if err != nil {
		sendError(w, r, err)
		return
	}
	logger.FromContext(r.Context()).Info("file imported", "account", account, "trades", res.ImportedCount)
	sendJSON(w, http.StatusOK, res)
}

func (s *Server) listTrades(w http.ResponseWriter, r *http.Request) {
	account, rg, err := scope(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	trades, err := s.svc.Trades(r.Context(), tj.Filter{UserID: s.userID, AccountID: account, Symbol: r.URL.Query().Get("symbol"), Range: rg})
	if err != nil {
		sendError(w, r, err)
		return
	}
	if trades == nil {
		trades = []tj.Trade{}
	}
	sendJSON(w, http.StatusOK, trades)
}

// decodeTrade reads a trade of the request's account from the body.
func (s *Server) decodeTrade(r *http.Request) (tj.Trade, error) {
	account, err := pathInt(r, "account")
	if err != nil {
		return tj.Trade{}, err
	}
	var t tj.Trade
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		return tj.Trade{}, badRequest{fmt.Errorf("invalid trade: %w", err)}
	}
	t.UserID, t.AccountID = s.userID, account
	return t, nil
}

func (s *Server) addTrade(w http.ResponseWriter, r *http.Request) {
	t, err := s.decodeTrade(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	t, err = s.svc.AddTrade(r.Context(), t)
	if err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	sendJSON(w, http.StatusCreated, t)
}

func (s *Server) updateTrade(w http.ResponseWriter, r *http.Request) {
	t, err := s.decodeTrade(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if t.ID, err = pathInt(r, "id"); err != nil {
		sendError(w, r, err)
		return
	}
	t, err = s.svc.UpdateTrade(r.Context(), t)
	if err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	sendJSON(w, http.StatusOK, t)
}

func (s *Server) deleteTrade(w http.ResponseWriter, r *http.Request) {
	id, err := pathInt(r, "id")
	if err != nil {
		sendError(w, r, err)
		return
	}
	if err := s.svc.DeleteTrade(r.Context(), s.userID, id); err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteAllTrades(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	n, err := s.svc.DeleteAllTrades(r.Context(), s.userID, account)
	if err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	sendJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) dedupe(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	n, err := s.svc.CleanupDuplicates(r.Context(), s.userID, account)
	if err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	sendJSON(w, http.StatusOK, map[string]int{"deleted": n})
}

func (s *Server) positions(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	positions, err := s.svc.Positions(r.Context(), s.userID, account)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if positions == nil {
		positions = []tj.Position{}
	}
	sendJSON(w, http.StatusOK, positions)
}

func (s *Server) recalculate(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	if err := s.svc.RecalculatePositions(r.Context(), s.userID, account); err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) spreads(w http.ResponseWriter, r *http.Request) {
	account, rg, err := scope(r)
	if err != nil {
		sendError(w, r, err)
		return
	}
	groups, err := s.svc.Spreads(r.Context(), s.userID, account, rg)
	if err != nil {
		sendError(w, r, err)
		return
	}
	if groups == nil {
		groups = []tj.SpreadGroup{}
	}
	sendJSON(w, http.StatusOK, groups)
}

func (s *Server) detectSpreads(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	groups, err := s.svc.DetectSpreads(r.Context(), s.userID, account)
	if err != nil {
		sendError(w, r, err)
		return
	}
	s.reports.Flush()
	if groups == nil {
		groups = []tj.SpreadGroup{}
	}
	sendJSON(w, http.StatusOK, groups)
}

// report serves a cached report of the request's scope.
func (s *Server) report(name string, compute func(r *http.Request, account int64, rg date.Range) (any, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account, rg, err := scope(r)
		if err != nil {
			sendError(w, r, err)
			return
		}
		key := fmt.Sprintf("%s:%d:%d:%s", name, s.userID, account, rg)
		v, err := s.cached(key, func() (any, error) { return compute(r, account, rg) })
		if err != nil {
			sendError(w, r, err)
			return
		}
		sendJSON(w, http.StatusOK, v)
	}
}

func (s *Server) summary(w http.ResponseWriter, r *http.Request) {
	s.report("summary", func(r *http.Request, account int64, rg date.Range) (any, error) {
		return s.svc.ComputeSummary(r.Context(), s.userID, account, rg)
	})(w, r)
}

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request) {
	s.report("dashboard", func(r *http.Request, account int64, rg date.Range) (any, error) {
		return s.svc.ComputeDashboardMetrics(r.Context(), s.userID, account, rg)
	})(w, r)
}

func (s *Server) dividends(w http.ResponseWriter, r *http.Request) {
	s.report("dividends", func(r *http.Request, account int64, rg date.Range) (any, error) {
		return s.svc.DividendSummary(r.Context(), s.userID, account, rg)
	})(w, r)
}

// holdings are never cached: quotes move.
func (s *Server) holdings(w http.ResponseWriter, r *http.Request) {
	account, err := pathInt(r, "account")
	if err != nil {
		sendError(w, r, err)
		return
	}
	pf, err := s.svc.PortfolioWithQuotes(r.Context(), s.userID, account)
	if err != nil {
		sendError(w, r, err)
		return
	}
	sendJSON(w, http.StatusOK, pf)
}
