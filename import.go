package tradejournal

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/etnz/tradejournal/metrics"
)

// Import formats.
const (
	FormatAuto    = ""
	FormatBroker  = "broker"
	FormatGeneric = "generic"
)

// duplicate tolerances.
const (
	quantityTolerance = 0.001
	priceTolerance    = 0.001
	amountTolerance   = 0.01
)

// ImportResult reports what an import did. Row level problems never fail an import,
// they are counted and described in Errors.
type ImportResult struct {
	Format                 string   `json:"format"`
	ImportedCount          int      `json:"imported_count"`
	DividendsImportedCount int      `json:"dividends_imported_count"`
	SkippedCount           int      `json:"skipped_count"`
	ErrorCount             int      `json:"error_count"`
	Errors                 []string `json:"errors"`
	SpreadsDetected        int      `json:"spreads_detected"`
}

// DetectFormat guesses the dialect of an import file.
func DetectFormat(content []byte) (string, error) {
	if len(bytes.TrimSpace(content)) == 0 {
		return "", ErrEmptyFile
	}
	r := newCSVReader(content)
	for {
		record, err := r.Read()
		if err != nil {
			return "", ErrUnknownFormat
		}
		if isBrokerHeader(record) {
			return FormatBroker, nil
		}
		if _, ok := genericHeader(record); ok {
			return FormatGeneric, nil
		}
	}
}

// parseImport parses an import file in the given format into rows.
func parseImport(content []byte, format string) ([]importRow, string, error) {
	if format == FormatAuto {
		f, err := DetectFormat(content)
		if err != nil {
			return nil, "", err
		}
		format = f
	}
	var rows []importRow
	var err error
	switch strings.ToLower(format) {
	case FormatBroker:
		rows, err = parseBroker(content)
	case FormatGeneric:
		rows, err = parseGeneric(content)
	default:
		return nil, "", fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
	return rows, format, err
}

// IsDuplicateTrade reports whether two trades are the same execution: same symbol,
// day and action, quantity and price within tolerance.
func IsDuplicateTrade(a, b Trade) bool {
	return a.Symbol == b.Symbol && a.Date == b.Date && a.Action == b.Action &&
		a.Quantity.Near(b.Quantity, quantityTolerance) && a.Price.Near(b.Price, priceTolerance)
}

// IsDuplicateDividend reports whether two dividends are the same payment.
func IsDuplicateDividend(a, b Dividend) bool {
	return a.Symbol == b.Symbol && a.PaymentDate == b.PaymentDate && a.Amount.Near(b.Amount, amountTolerance)
}

// Importer turns import files into persisted trades and dividends.
type Importer struct {
	Accounts   AccountStore
	Trades     TradeStore
	Dividends  DividendStore
	Batches    BatchStore
	Aggregator *Aggregator
	Detector   *SpreadDetector
	Logger     *slog.Logger
}

// Import parses content and persists the new trades and dividends of the account.
//
// The account is checked first: if it does not belong to the user nothing is read.
// Rows matching an already persisted trade or dividend are skipped. After the batch
// is saved, the positions of the account are recalculated and its new option legs
// grouped.
func (im *Importer) Import(ctx context.Context, content []byte, userID, accountID int64, format string) (ImportResult, error) {
	logger := im.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if _, err := im.Accounts.GetAccount(ctx, userID, accountID); err != nil {
		return ImportResult{}, fmt.Errorf("account %d: %w", accountID, err)
	}
	rows, format, err := parseImport(content, format)
	if err != nil {
		return ImportResult{}, err
	}
	res := ImportResult{Format: format, Errors: []string{}}

	scope := Filter{UserID: userID, AccountID: accountID}
	existingTrades, err := im.Trades.ListTrades(ctx, scope)
	if err != nil {
		return res, fmt.Errorf("could not list trades: %w", err)
	}
	existingDividends, err := im.Dividends.ListDividends(ctx, scope)
	if err != nil {
		return res, fmt.Errorf("could not list dividends: %w", err)
	}

	var trades []Trade
	var dividends []Dividend
	for _, row := range rows {
		switch {
		case row.err != nil:
			res.ErrorCount++
			res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", row.line, row.err))
			metrics.ImportedRows.WithLabelValues("error").Inc()

		case row.skip:
			res.SkippedCount++
			metrics.ImportedRows.WithLabelValues("skipped").Inc()

		case row.trade != nil:
			t := *row.trade
			t.UserID, t.AccountID = userID, accountID
			if containsFunc(existingTrades, t, IsDuplicateTrade) {
				res.SkippedCount++
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: duplicate trade %s %s %s on %s", row.line, t.Action, t.Quantity, t.Symbol, t.Date))
				metrics.ImportedRows.WithLabelValues("skipped").Inc()
				continue
			}
			if err := t.Validate(); err != nil {
				res.ErrorCount++
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %v", row.line, err))
				metrics.ImportedRows.WithLabelValues("error").Inc()
				continue
			}
			trades = append(trades, t)
			metrics.ImportedRows.WithLabelValues("trade").Inc()

		case row.dividend != nil:
			d := *row.dividend
			d.UserID, d.AccountID = userID, accountID
			if containsFunc(existingDividends, d, IsDuplicateDividend) {
				res.SkippedCount++
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: duplicate dividend %s %s on %s", row.line, d.Amount, d.Symbol, d.PaymentDate))
				metrics.ImportedRows.WithLabelValues("skipped").Inc()
				continue
			}
			if i := reinvestmentOf(dividends, d); i >= 0 {
				// cash dividend and its reinvestment are the same payment
				dividends[i].Type = ReinvestedDividend
				res.SkippedCount++
				res.Errors = append(res.Errors, fmt.Sprintf("row %d: %s dividend on %s merged with its reinvestment", row.line, d.Symbol, d.PaymentDate))
				metrics.ImportedRows.WithLabelValues("skipped").Inc()
				continue
			}
			dividends = append(dividends, d)
			metrics.ImportedRows.WithLabelValues("dividend").Inc()
		}
	}

	if len(trades) > 0 || len(dividends) > 0 {
		if _, _, err := im.Batches.SaveBatch(ctx, trades, dividends); err != nil {
			return res, fmt.Errorf("could not save import: %w", err)
		}
	}
	res.ImportedCount, res.DividendsImportedCount = len(trades), len(dividends)

	if im.Aggregator != nil {
		if err := im.Aggregator.Recalculate(ctx, userID, accountID); err != nil {
			return res, err
		}
	}
	if im.Detector != nil {
		groups, err := im.Detector.DetectAndGroup(ctx, userID, accountID)
		if err != nil {
			return res, err
		}
		res.SpreadsDetected = len(groups)
	}
	logger.Info("import done", "user", userID, "account", accountID, "format", res.Format,
		"trades", res.ImportedCount, "dividends", res.DividendsImportedCount,
		"skipped", res.SkippedCount, "errors", res.ErrorCount)
	return res, nil
}

func containsFunc[T any](list []T, x T, same func(a, b T) bool) bool {
	for _, y := range list {
		if same(x, y) {
			return true
		}
	}
	return false
}

// reinvestmentOf returns the index of the staged dividend that d pays or reinvests, or -1.
func reinvestmentOf(staged []Dividend, d Dividend) int {
	for i, s := range staged {
		if (s.Type == ReinvestedDividend) == (d.Type == ReinvestedDividend) {
			continue
		}
		if IsDuplicateDividend(s, d) {
			return i
		}
	}
	return -1
}
