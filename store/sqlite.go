package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	tj "github.com/etnz/tradejournal"
	"github.com/etnz/tradejournal/date"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLite is a Store backed by a SQLite database.
type SQLite struct {
	db     *sql.DB
	logger *slog.Logger
}

var _ tj.Store = (*SQLite)(nil)

// OpenSQLite opens (or creates) the database at path and applies pending migrations.
func OpenSQLite(path string, logger *slog.Logger) (*SQLite, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(on)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database at %s: %w", path, err)
	}
	// SQLite serializes writers anyway.
	db.SetMaxOpenConns(1)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	s := &SQLite{db: db, logger: logger}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("could not read migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("could not create sqlite migration driver: %w", err)
	}
	// m is not closed: it would close s.db.
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("migration instance creation failed: %w", err)
	}
	switch err := m.Up(); {
	case errors.Is(err, migrate.ErrNoChange):
		s.logger.Debug("no new database migrations to apply")
	case err != nil:
		return fmt.Errorf("failed to apply migrations: %w", err)
	default:
		s.logger.Info("database migrations applied")
	}
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error { return s.db.Close() }

// dateValue stores the zero date as an empty string.
func dateValue(d date.Date) string {
	if d.IsZero() {
		return ""
	}
	return d.String()
}

func scanDate(s string) (date.Date, error) {
	if s == "" {
		return date.Date{}, nil
	}
	return date.Parse(s)
}

// where renders a filter as a WHERE clause over a table whose date column is on.
func where(f tj.Filter, on string) (string, []any) {
	conds := []string{"user_id = ?"}
	args := []any{f.UserID}
	if f.AccountID != 0 {
		conds = append(conds, "account_id = ?")
		args = append(args, f.AccountID)
	}
	if f.Symbol != "" {
		conds = append(conds, "symbol = ?")
		args = append(args, f.Symbol)
	}
	if !f.Range.From.IsZero() {
		conds = append(conds, on+" >= ?")
		args = append(args, f.Range.From.String())
	}
	if !f.Range.To.IsZero() {
		conds = append(conds, on+" <= ?")
		args = append(args, f.Range.To.String())
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

const tradeColumns = `id, user_id, account_id, symbol, class, action, quantity, price, fee, currency,
	trade_date, notes, option_class, strike, expiration, underlying, multiplier, opening,
	spread_type, spread_group_id, spread_leg`

type scanner interface{ Scan(dest ...any) error }

func scanTrade(row scanner) (tj.Trade, error) {
	var (
		t                      tj.Trade
		qty, price, fee        decimal.Decimal
		strike                 decimal.Decimal
		cur, on, optionClass   string
		expiration, underlying string
		multiplier             int
	)
	err := row.Scan(&t.ID, &t.UserID, &t.AccountID, &t.Symbol, &t.Class, &t.Action, &qty, &price, &fee, &cur,
		&on, &t.Notes, &optionClass, &strike, &expiration, &underlying, &multiplier, &t.Opening,
		&t.SpreadType, &t.SpreadGroupID, &t.SpreadLeg)
	if err != nil {
		return tj.Trade{}, err
	}
	t.Quantity, t.Price, t.Fee = tj.Q(qty), tj.M(price, cur), tj.M(fee, cur)
	if t.Date, err = scanDate(on); err != nil {
		return tj.Trade{}, fmt.Errorf("trade %d: %w", t.ID, err)
	}
	if t.Class == tj.Option {
		exp, err := scanDate(expiration)
		if err != nil {
			return tj.Trade{}, fmt.Errorf("trade %d: %w", t.ID, err)
		}
		t.Option = &tj.OptionContract{
			Class:      tj.OptionClass(optionClass),
			Strike:     strike,
			Expiration: exp,
			Underlying: underlying,
			Multiplier: multiplier,
		}
	}
	return t, nil
}

// tradeArgs returns the values of every column but id, in tradeColumns order.
func tradeArgs(t tj.Trade) []any {
	var (
		optionClass, expiration, underlying string
		strike                              = decimal.Zero
		multiplier                          int
	)
	if t.Option != nil {
		optionClass = string(t.Option.Class)
		strike = t.Option.Strike
		expiration = dateValue(t.Option.Expiration)
		underlying = t.Option.Underlying
		multiplier = t.Option.Multiplier
	}
	return []any{t.UserID, t.AccountID, t.Symbol, string(t.Class), string(t.Action),
		t.Quantity.Decimal(), t.Price.Decimal(), t.Fee.Decimal(), t.Currency(),
		dateValue(t.Date), t.Notes, optionClass, strike, expiration, underlying, multiplier, t.Opening,
		string(t.SpreadType), t.SpreadGroupID, t.SpreadLeg}
}

// ListTrades implements tj.TradeStore.
func (s *SQLite) ListTrades(ctx context.Context, f tj.Filter) ([]tj.Trade, error) {
	cond, args := where(f, "trade_date")
	rows, err := s.db.QueryContext(ctx, "SELECT "+tradeColumns+" FROM trades"+cond+" ORDER BY trade_date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("could not query trades: %w", err)
	}
	defer rows.Close()
	var res []tj.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan trade: %w", err)
		}
		res = append(res, t)
	}
	return res, rows.Err()
}

// GetTrade implements tj.TradeStore.
func (s *SQLite) GetTrade(ctx context.Context, userID, id int64) (tj.Trade, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+tradeColumns+" FROM trades WHERE id = ? AND user_id = ?", id, userID)
	t, err := scanTrade(row)
	if errors.Is(err, sql.ErrNoRows) {
		return tj.Trade{}, fmt.Errorf("trade %d: %w", id, tj.ErrNotFound)
	}
	return t, err
}

// inTx runs fn in a transaction, rolled back when fn fails.
func (s *SQLite) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// updated turns a zero-row update into ErrNotFound.
func updated(res sql.Result, what string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", what, id, tj.ErrNotFound)
	}
	return nil
}

// SaveTrades implements tj.TradeStore.
func (s *SQLite) SaveTrades(ctx context.Context, trades []tj.Trade) ([]tj.Trade, error) {
	res := slices.Clone(trades)
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return saveTrades(ctx, tx, res) }); err != nil {
		return nil, err
	}
	return res, nil
}

// saveTrades inserts or updates trades, setting the ID of inserted ones.
func saveTrades(ctx context.Context, tx *sql.Tx, res []tj.Trade) error {
	for i, t := range res {
		args := tradeArgs(t)
		if t.ID == 0 {
			r, err := tx.ExecContext(ctx, `INSERT INTO trades (user_id, account_id, symbol, class, action,
				quantity, price, fee, currency, trade_date, notes, option_class, strike, expiration,
				underlying, multiplier, opening, spread_type, spread_group_id, spread_leg)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, args...)
			if err != nil {
				return fmt.Errorf("could not insert trade %s: %w", t.Symbol, err)
			}
			if res[i].ID, err = r.LastInsertId(); err != nil {
				return err
			}
			continue
		}
		r, err := tx.ExecContext(ctx, `UPDATE trades SET account_id = ?, symbol = ?, class = ?, action = ?,
			quantity = ?, price = ?, fee = ?, currency = ?, trade_date = ?, notes = ?, option_class = ?,
			strike = ?, expiration = ?, underlying = ?, multiplier = ?, opening = ?, spread_type = ?,
			spread_group_id = ?, spread_leg = ? WHERE id = ? AND user_id = ?`,
			append(args[1:], t.ID, t.UserID)...)
		if err != nil {
			return fmt.Errorf("could not update trade %d: %w", t.ID, err)
		}
		if err := updated(r, "trade", t.ID); err != nil {
			return err
		}
	}
	return nil
}

// DeleteTrade implements tj.TradeStore.
func (s *SQLite) DeleteTrade(ctx context.Context, userID, id int64) error {
	r, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("could not delete trade %d: %w", id, err)
	}
	return updated(r, "trade", id)
}

// DeleteAllTrades implements tj.TradeStore.
func (s *SQLite) DeleteAllTrades(ctx context.Context, userID, accountID int64) (int, error) {
	r, err := s.db.ExecContext(ctx, "DELETE FROM trades WHERE user_id = ? AND account_id = ?", userID, accountID)
	if err != nil {
		return 0, fmt.Errorf("could not delete trades: %w", err)
	}
	n, err := r.RowsAffected()
	return int(n), err
}

// ApplySpreadPatches implements tj.TradeStore.
func (s *SQLite) ApplySpreadPatches(ctx context.Context, userID int64, patches []tj.SpreadPatch) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `UPDATE trades SET spread_type = ?, spread_group_id = ?, spread_leg = ?,
			notes = ? WHERE id = ? AND user_id = ?`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for _, p := range patches {
			r, err := stmt.ExecContext(ctx, string(p.Type), p.GroupID, p.Leg, p.Notes, p.TradeID, userID)
			if err != nil {
				return fmt.Errorf("could not patch trade %d: %w", p.TradeID, err)
			}
			if err := updated(r, "trade", p.TradeID); err != nil {
				return err
			}
		}
		return nil
	})
}

const dividendColumns = `id, user_id, account_id, symbol, amount, tax_withheld, currency, type,
	payment_date, ex_date, record_date, notes`

func scanDividend(row scanner) (tj.Dividend, error) {
	var (
		d                     tj.Dividend
		amount, tax           decimal.Decimal
		cur, paid, ex, record string
	)
	err := row.Scan(&d.ID, &d.UserID, &d.AccountID, &d.Symbol, &amount, &tax, &cur, &d.Type,
		&paid, &ex, &record, &d.Notes)
	if err != nil {
		return tj.Dividend{}, err
	}
	d.Amount, d.TaxWithheld = tj.M(amount, cur), tj.M(tax, cur)
	for _, f := range []struct {
		s string
		d *date.Date
	}{{paid, &d.PaymentDate}, {ex, &d.ExDate}, {record, &d.RecordDate}} {
		if *f.d, err = scanDate(f.s); err != nil {
			return tj.Dividend{}, fmt.Errorf("dividend %d: %w", d.ID, err)
		}
	}
	return d, nil
}

// ListDividends implements tj.DividendStore.
func (s *SQLite) ListDividends(ctx context.Context, f tj.Filter) ([]tj.Dividend, error) {
	cond, args := where(f, "payment_date")
	rows, err := s.db.QueryContext(ctx, "SELECT "+dividendColumns+" FROM dividends"+cond+" ORDER BY payment_date, id", args...)
	if err != nil {
		return nil, fmt.Errorf("could not query dividends: %w", err)
	}
	defer rows.Close()
	var res []tj.Dividend
	for rows.Next() {
		d, err := scanDividend(rows)
		if err != nil {
			return nil, fmt.Errorf("could not scan dividend: %w", err)
		}
		res = append(res, d)
	}
	return res, rows.Err()
}

// SaveDividends implements tj.DividendStore.
func (s *SQLite) SaveDividends(ctx context.Context, dividends []tj.Dividend) ([]tj.Dividend, error) {
	res := slices.Clone(dividends)
	if err := s.inTx(ctx, func(tx *sql.Tx) error { return saveDividends(ctx, tx, res) }); err != nil {
		return nil, err
	}
	return res, nil
}

// saveDividends inserts or updates dividends, setting the ID of inserted ones.
func saveDividends(ctx context.Context, tx *sql.Tx, res []tj.Dividend) error {
	for i, d := range res {
		cur := d.Amount.Currency()
		if cur == "" {
			cur = tj.DefaultCurrency
		}
		args := []any{d.AccountID, d.Symbol, d.Amount.Decimal(), d.TaxWithheld.Decimal(), cur, string(d.Type),
			dateValue(d.PaymentDate), dateValue(d.ExDate), dateValue(d.RecordDate), d.Notes}
		if d.ID == 0 {
			r, err := tx.ExecContext(ctx, `INSERT INTO dividends (user_id, account_id, symbol, amount,
				tax_withheld, currency, type, payment_date, ex_date, record_date, notes)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`, append([]any{d.UserID}, args...)...)
			if err != nil {
				return fmt.Errorf("could not insert dividend %s: %w", d.Symbol, err)
			}
			if res[i].ID, err = r.LastInsertId(); err != nil {
				return err
			}
			continue
		}
		r, err := tx.ExecContext(ctx, `UPDATE dividends SET account_id = ?, symbol = ?, amount = ?,
			tax_withheld = ?, currency = ?, type = ?, payment_date = ?, ex_date = ?, record_date = ?,
			notes = ? WHERE id = ? AND user_id = ?`, append(args, d.ID, d.UserID)...)
		if err != nil {
			return fmt.Errorf("could not update dividend %d: %w", d.ID, err)
		}
		if err := updated(r, "dividend", d.ID); err != nil {
			return err
		}
	}
	return nil
}

// SaveBatch implements tj.BatchStore.
func (s *SQLite) SaveBatch(ctx context.Context, trades []tj.Trade, dividends []tj.Dividend) ([]tj.Trade, []tj.Dividend, error) {
	ts, ds := slices.Clone(trades), slices.Clone(dividends)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		if err := saveTrades(ctx, tx, ts); err != nil {
			return err
		}
		return saveDividends(ctx, tx, ds)
	})
	if err != nil {
		return nil, nil, err
	}
	return ts, ds, nil
}

// DeleteDividend implements tj.DividendStore.
func (s *SQLite) DeleteDividend(ctx context.Context, userID, id int64) error {
	r, err := s.db.ExecContext(ctx, "DELETE FROM dividends WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("could not delete dividend %d: %w", id, err)
	}
	return updated(r, "dividend", id)
}

// DeleteAllDividends implements tj.DividendStore.
func (s *SQLite) DeleteAllDividends(ctx context.Context, userID, accountID int64) (int, error) {
	r, err := s.db.ExecContext(ctx, "DELETE FROM dividends WHERE user_id = ? AND account_id = ?", userID, accountID)
	if err != nil {
		return 0, fmt.Errorf("could not delete dividends: %w", err)
	}
	n, err := r.RowsAffected()
	return int(n), err
}

// UpsertPosition implements tj.PositionStore.
func (s *SQLite) UpsertPosition(ctx context.Context, p tj.Position) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO positions (user_id, account_id, symbol, quantity, average_price,
		cost_basis, currency, multiplier) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, account_id, symbol) DO UPDATE SET quantity = excluded.quantity,
		average_price = excluded.average_price, cost_basis = excluded.cost_basis,
		currency = excluded.currency, multiplier = excluded.multiplier`,
		p.UserID, p.AccountID, p.Symbol, p.Quantity.Decimal(), p.AveragePrice.Decimal(), p.CostBasis.Decimal(),
		p.CostBasis.Currency(), p.Multiplier)
	if err != nil {
		return fmt.Errorf("could not save position %s: %w", p.Symbol, err)
	}
	return nil
}

// DeletePosition implements tj.PositionStore.
func (s *SQLite) DeletePosition(ctx context.Context, userID, accountID int64, symbol string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM positions WHERE user_id = ? AND account_id = ? AND symbol = ?",
		userID, accountID, symbol)
	if err != nil {
		return fmt.Errorf("could not delete position %s: %w", symbol, err)
	}
	return nil
}

// ListPositions implements tj.PositionStore. accountID 0 lists every account.
func (s *SQLite) ListPositions(ctx context.Context, userID, accountID int64) ([]tj.Position, error) {
	cond, args := where(tj.Filter{UserID: userID, AccountID: accountID}, "")
	rows, err := s.db.QueryContext(ctx, `SELECT user_id, account_id, symbol, quantity, average_price, cost_basis,
		currency, multiplier FROM positions`+cond+" ORDER BY account_id, symbol", args...)
	if err != nil {
		return nil, fmt.Errorf("could not query positions: %w", err)
	}
	defer rows.Close()
	var res []tj.Position
	for rows.Next() {
		var (
			p               tj.Position
			qty, avg, basis decimal.Decimal
			cur             string
		)
		if err := rows.Scan(&p.UserID, &p.AccountID, &p.Symbol, &qty, &avg, &basis, &cur, &p.Multiplier); err != nil {
			return nil, fmt.Errorf("could not scan position: %w", err)
		}
		p.Quantity, p.AveragePrice, p.CostBasis = tj.Q(qty), tj.M(avg, cur), tj.M(basis, cur)
		res = append(res, p)
	}
	return res, rows.Err()
}

// GetAccount implements tj.AccountStore.
func (s *SQLite) GetAccount(ctx context.Context, userID, accountID int64) (tj.Account, error) {
	var a tj.Account
	err := s.db.QueryRowContext(ctx, "SELECT id, user_id, name, broker FROM accounts WHERE id = ? AND user_id = ?",
		accountID, userID).Scan(&a.ID, &a.UserID, &a.Name, &a.Broker)
	if errors.Is(err, sql.ErrNoRows) {
		return tj.Account{}, fmt.Errorf("account %d: %w", accountID, tj.ErrAccountNotFound)
	}
	return a, err
}

// ListAccounts implements tj.AccountStore.
func (s *SQLite) ListAccounts(ctx context.Context, userID int64) ([]tj.Account, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id, user_id, name, broker FROM accounts WHERE user_id = ? ORDER BY id", userID)
	if err != nil {
		return nil, fmt.Errorf("could not query accounts: %w", err)
	}
	defer rows.Close()
	var res []tj.Account
	for rows.Next() {
		var a tj.Account
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Broker); err != nil {
			return nil, err
		}
		res = append(res, a)
	}
	return res, rows.Err()
}

// CreateAccount implements tj.AccountStore.
func (s *SQLite) CreateAccount(ctx context.Context, a tj.Account) (tj.Account, error) {
	r, err := s.db.ExecContext(ctx, "INSERT INTO accounts (user_id, name, broker) VALUES (?, ?, ?)", a.UserID, a.Name, a.Broker)
	if err != nil {
		return tj.Account{}, fmt.Errorf("could not create account %q: %w", a.Name, err)
	}
	a.ID, err = r.LastInsertId()
	return a, err
}
