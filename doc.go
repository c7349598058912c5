// Package tradejournal is the accounting core of a personal trading journal.
//
// It ingests broker exports, keeps an immutable log of trades and dividends,
// and derives everything else from that log on demand:
//   - Lot matching: a FIFO engine that turns buy and sell events into realized
//     profit and loss and the remaining open lots.
//   - Positions: current holdings per account and symbol, recomputed wholesale
//     from the trade log after every mutation.
//   - Import: a broker CSV dialect and a generic CSV dialect, normalized into
//     canonical trades and dividends with duplicate detection.
//   - Spreads: grouping of option legs traded together into named strategies
//     (verticals, iron condors, straddles, butterflies, calendars...).
//   - Statistics: profit factor, expectancy, Kelly, drawdown, streaks and
//     period breakdowns computed from the realized profit and loss series.
//
// The core is synchronous and free of I/O; storage, quotes and presentation are
// collaborators reached through the interfaces in store.go. The [Service] ties
// them together and is what the `tj` command line tool and the HTTP adapter use.
package tradejournal
