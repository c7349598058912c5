// Package store implements the persistence collaborators of the journal: an
// in-memory store for tests and tools, and a SQLite store.
package store

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
)

type positionKey struct {
	userID, accountID int64
	symbol            string
}

// Memory is a Store that keeps everything in maps.
type Memory struct {
	mu        sync.Mutex
	lastID    int64
	accounts  map[int64]tj.Account
	trades    map[int64]tj.Trade
	dividends map[int64]tj.Dividend
	positions map[positionKey]tj.Position
}

var _ tj.Store = (*Memory)(nil)

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		accounts:  make(map[int64]tj.Account),
		trades:    make(map[int64]tj.Trade),
		dividends: make(map[int64]tj.Dividend),
		positions: make(map[positionKey]tj.Position),
	}
}

func (m *Memory) nextID() int64 {
	m.lastID++
	return m.lastID
}

func byDateThenID[T any](on func(T) date.Date, id func(T) int64) func(a, b T) int {
	return func(a, b T) int {
		if c := on(a).Compare(on(b)); c != 0 {
			return c
		}
		return cmp.Compare(id(a), id(b))
	}
}

// ListTrades implements tj.TradeStore.
func (m *Memory) ListTrades(_ context.Context, f tj.Filter) ([]tj.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []tj.Trade
	for _, t := range m.trades {
		if f.Match(t.UserID, t.AccountID, t.Symbol, t.Date) {
			res = append(res, t)
		}
	}
	slices.SortFunc(res, byDateThenID(
		func(t tj.Trade) date.Date { return t.Date },
		func(t tj.Trade) int64 { return t.ID }))
	return res, nil
}

// GetTrade implements tj.TradeStore.
func (m *Memory) GetTrade(_ context.Context, userID, id int64) (tj.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return tj.Trade{}, fmt.Errorf("trade %d: %w", id, tj.ErrNotFound)
	}
	return t, nil
}

// SaveTrades implements tj.TradeStore. Either every trade is saved or none is.
func (m *Memory) SaveTrades(_ context.Context, trades []tj.Trade) ([]tj.Trade, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkTrades(trades); err != nil {
		return nil, err
	}
	return m.putTrades(trades), nil
}

func (m *Memory) checkTrades(trades []tj.Trade) error {
	for _, t := range trades {
		if t.ID == 0 {
			continue
		}
		if old, ok := m.trades[t.ID]; !ok || old.UserID != t.UserID {
			return fmt.Errorf("trade %d: %w", t.ID, tj.ErrNotFound)
		}
	}
	return nil
}

func (m *Memory) putTrades(trades []tj.Trade) []tj.Trade {
	res := slices.Clone(trades)
	for i := range res {
		if res[i].ID == 0 {
			res[i].ID = m.nextID()
		}
		m.trades[res[i].ID] = res[i]
	}
	return res
}

// DeleteTrade implements tj.TradeStore.
func (m *Memory) DeleteTrade(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.trades[id]
	if !ok || t.UserID != userID {
		return fmt.Errorf("trade %d: %w", id, tj.ErrNotFound)
	}
	delete(m.trades, id)
	return nil
}

// DeleteAllTrades implements tj.TradeStore.
func (m *Memory) DeleteAllTrades(_ context.Context, userID, accountID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, t := range m.trades {
		if t.UserID == userID && t.AccountID == accountID {
			delete(m.trades, id)
			n++
		}
	}
	return n, nil
}

// ApplySpreadPatches implements tj.TradeStore. Either every patch is applied or none is.
func (m *Memory) ApplySpreadPatches(_ context.Context, userID int64, patches []tj.SpreadPatch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range patches {
		if t, ok := m.trades[p.TradeID]; !ok || t.UserID != userID {
			return fmt.Errorf("trade %d: %w", p.TradeID, tj.ErrNotFound)
		}
	}
	for _, p := range patches {
		m.trades[p.TradeID] = p.Apply(m.trades[p.TradeID])
	}
	return nil
}

// ListDividends implements tj.DividendStore.
func (m *Memory) ListDividends(_ context.Context, f tj.Filter) ([]tj.Dividend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []tj.Dividend
	for _, d := range m.dividends {
		if f.Match(d.UserID, d.AccountID, d.Symbol, d.PaymentDate) {
			res = append(res, d)
		}
	}
	slices.SortFunc(res, byDateThenID(
		func(d tj.Dividend) date.Date { return d.PaymentDate },
		func(d tj.Dividend) int64 { return d.ID }))
	return res, nil
}

// SaveDividends implements tj.DividendStore.
func (m *Memory) SaveDividends(_ context.Context, dividends []tj.Dividend) ([]tj.Dividend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkDividends(dividends); err != nil {
		return nil, err
	}
	return m.putDividends(dividends), nil
}

func (m *Memory) checkDividends(dividends []tj.Dividend) error {
	for _, d := range dividends {
		if d.ID == 0 {
			continue
		}
		if old, ok := m.dividends[d.ID]; !ok || old.UserID != d.UserID {
			return fmt.Errorf("dividend %d: %w", d.ID, tj.ErrNotFound)
		}
	}
	return nil
}

func (m *Memory) putDividends(dividends []tj.Dividend) []tj.Dividend {
	res := slices.Clone(dividends)
	for i := range res {
		if res[i].ID == 0 {
			res[i].ID = m.nextID()
		}
		m.dividends[res[i].ID] = res[i]
	}
	return res
}

// SaveBatch implements tj.BatchStore. Every row is checked before any is saved.
func (m *Memory) SaveBatch(_ context.Context, trades []tj.Trade, dividends []tj.Dividend) ([]tj.Trade, []tj.Dividend, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.checkTrades(trades); err != nil {
		return nil, nil, err
	}
	if err := m.checkDividends(dividends); err != nil {
		return nil, nil, err
	}
	return m.putTrades(trades), m.putDividends(dividends), nil
}

// DeleteDividend implements tj.DividendStore.
func (m *Memory) DeleteDividend(_ context.Context, userID, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.dividends[id]
	if !ok || d.UserID != userID {
		return fmt.Errorf("dividend %d: %w", id, tj.ErrNotFound)
	}
	delete(m.dividends, id)
	return nil
}

// DeleteAllDividends implements tj.DividendStore.
func (m *Memory) DeleteAllDividends(_ context.Context, userID, accountID int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, d := range m.dividends {
		if d.UserID == userID && d.AccountID == accountID {
			delete(m.dividends, id)
			n++
		}
	}
	return n, nil
}

// UpsertPosition implements tj.PositionStore.
func (m *Memory) UpsertPosition(_ context.Context, p tj.Position) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[positionKey{p.UserID, p.AccountID, p.Symbol}] = p
	return nil
}

// DeletePosition implements tj.PositionStore.
func (m *Memory) DeletePosition(_ context.Context, userID, accountID int64, symbol string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.positions, positionKey{userID, accountID, symbol})
	return nil
}

// ListPositions implements tj.PositionStore. accountID 0 lists every account.
func (m *Memory) ListPositions(_ context.Context, userID, accountID int64) ([]tj.Position, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []tj.Position
	for k, p := range m.positions {
		if k.userID == userID && (accountID == 0 || k.accountID == accountID) {
			res = append(res, p)
		}
	}
	slices.SortFunc(res, func(a, b tj.Position) int {
		if c := cmp.Compare(a.AccountID, b.AccountID); c != 0 {
			return c
		}
		return cmp.Compare(a.Symbol, b.Symbol)
	})
	return res, nil
}

// GetAccount implements tj.AccountStore.
func (m *Memory) GetAccount(_ context.Context, userID, accountID int64) (tj.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[accountID]
	if !ok || a.UserID != userID {
		return tj.Account{}, fmt.Errorf("account %d: %w", accountID, tj.ErrAccountNotFound)
	}
	return a, nil
}

// ListAccounts implements tj.AccountStore.
func (m *Memory) ListAccounts(_ context.Context, userID int64) ([]tj.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var res []tj.Account
	for _, a := range m.accounts {
		if a.UserID == userID {
			res = append(res, a)
		}
	}
	slices.SortFunc(res, func(a, b tj.Account) int { return cmp.Compare(a.ID, b.ID) })
	return res, nil
}

// CreateAccount implements tj.AccountStore.
func (m *Memory) CreateAccount(_ context.Context, a tj.Account) (tj.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.ID = m.nextID()
	m.accounts[a.ID] = a
	return a, nil
}
