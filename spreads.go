package tradejournal

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/etnz/tradejournal/date"
	"github.com/etnz/tradejournal/metrics"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SpreadGroup is a set of option legs classified as one strategy.
type SpreadGroup struct {
	ID         string          `json:"id"`
	Type       SpreadType      `json:"type"`
	Name       string          `json:"name"`
	Legs       []Trade         `json:"legs"` // in leg number order
	NetPremium decimal.Decimal `json:"net_premium"`
}

// Credit reports whether the strategy was opened for a net credit.
func (g SpreadGroup) Credit() bool { return g.NetPremium.IsPositive() }

// Underlying returns the underlying of the group.
func (g SpreadGroup) Underlying() string { return g.Legs[0].Root() }

// Date returns the trade date of the group.
func (g SpreadGroup) Date() date.Date { return g.Legs[0].Date }

// SpreadPatch is the change the detector makes to one trade.
type SpreadPatch struct {
	TradeID int64      `json:"trade_id"`
	Type    SpreadType `json:"type"`
	GroupID string     `json:"group_id"`
	Leg     int        `json:"leg"`
	Notes   string     `json:"notes"`
}

// Apply returns t with the patch applied.
func (p SpreadPatch) Apply(t Trade) Trade {
	t.SpreadType, t.SpreadGroupID, t.SpreadLeg, t.Notes = p.Type, p.GroupID, p.Leg, p.Notes
	return t
}

// NetPremium sums price × quantity × multiplier over the legs, sells counting
// positive and buys negative. A positive net premium is a credit.
func NetPremium(legs []Trade) decimal.Decimal {
	net := decimal.Zero
	for _, t := range legs {
		v := t.Price.Decimal().Mul(t.Quantity.Decimal()).Mul(decimal.NewFromInt(int64(t.Multiplier())))
		if t.Action.IsBuy() {
			v = v.Neg()
		}
		net = net.Add(v)
	}
	return net
}

// isSpreadCandidate reports whether a trade can be grouped: an ungrouped option
// buy or sell.
func isSpreadCandidate(t Trade) bool {
	return t.IsOption() && t.SpreadGroupID == "" && (t.Action.IsBuy() || t.Action.IsSell())
}

// legKey is the grouping key of the passes. Each pass fills only the fields it groups on.
type legKey struct {
	Date       date.Date
	Underlying string
	Expiration date.Date
	Class      OptionClass
	Strike     string
	Opening    bool
}

// partition groups trades by key, groups and their content in first seen order.
func partition(pool []Trade, key func(Trade) legKey) [][]Trade {
	index := make(map[legKey]int)
	var groups [][]Trade
	for _, t := range pool {
		k := key(t)
		i, ok := index[k]
		if !ok {
			i = len(groups)
			index[k] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], t)
	}
	return groups
}

func byExpiration(t Trade) legKey {
	return legKey{Date: t.Date, Underlying: t.Root(), Expiration: t.Option.Expiration, Opening: t.Opening}
}

func byExpirationAndClass(t Trade) legKey {
	k := byExpiration(t)
	k.Class = t.Option.Class
	return k
}

func byStrikeAndClass(t Trade) legKey {
	return legKey{Date: t.Date, Underlying: t.Root(), Class: t.Option.Class, Strike: t.Option.Strike.String()}
}

func byClass(t Trade) legKey {
	return legKey{Date: t.Date, Underlying: t.Root(), Class: t.Option.Class}
}

// legStats counts the shape of a set of legs.
type legStats struct {
	calls, puts          int
	callBuys, callSells  int
	putBuys, putSells    int
	buys, sells          int
	buyQty, sellQty      decimal.Decimal
	strikes, expirations int
}

func statsOf(legs []Trade) legStats {
	var s legStats
	strikes := make(map[string]bool)
	exps := make(map[date.Date]bool)
	for _, t := range legs {
		buy := t.Action.IsBuy()
		if buy {
			s.buys++
			s.buyQty = s.buyQty.Add(t.Quantity.Decimal())
		} else {
			s.sells++
			s.sellQty = s.sellQty.Add(t.Quantity.Decimal())
		}
		if t.Option.Class == Call {
			s.calls++
			if buy {
				s.callBuys++
			} else {
				s.callSells++
			}
		} else {
			s.puts++
			if buy {
				s.putBuys++
			} else {
				s.putSells++
			}
		}
		strikes[t.Option.Strike.String()] = true
		exps[t.Option.Expiration] = true
	}
	s.strikes, s.expirations = len(strikes), len(exps)
	return s
}

// spreadPass finds groups in the unclaimed pool. It must not return a trade twice.
type spreadPass func(pool []Trade) []SpreadGroup

// spreadPasses run in this order, a pass only sees the legs no earlier pass claimed.
var spreadPasses = []spreadPass{
	ironCondorPass,
	verticalPass,
	straddlePass,
	butterflyPass,
	calendarPass,
	diagonalPass,
	customPass,
	singlePass,
}

func newGroup(t SpreadType, name string, legs []Trade) SpreadGroup {
	return SpreadGroup{Type: t, Name: name, Legs: legs, NetPremium: NetPremium(legs)}
}

func ironCondorPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byExpiration) {
		s := statsOf(legs)
		if len(legs) != 4 || s.calls != 2 || s.puts != 2 ||
			s.callBuys != 1 || s.callSells != 1 || s.putBuys != 1 || s.putSells != 1 {
			continue
		}
		g := newGroup(IronCondor, "Iron Condor", legs)
		if !g.Credit() {
			g.Name = "Reverse Iron Condor"
		}
		res = append(res, g)
	}
	return res
}

func verticalPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byExpirationAndClass) {
		s := statsOf(legs)
		if len(legs) != 2 || s.buys != 1 || s.sells != 1 || s.strikes != 2 {
			continue
		}
		class := legs[0].Option.Class.Title()
		g := newGroup(CreditSpread, "Credit "+class+" Spread", legs)
		if !g.Credit() {
			g.Type, g.Name = DebitSpread, "Debit "+class+" Spread"
		}
		res = append(res, g)
	}
	return res
}

func straddlePass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byExpiration) {
		s := statsOf(legs)
		if len(legs) != 2 || s.calls != 1 || s.puts != 1 || (s.buys != 2 && s.sells != 2) {
			continue
		}
		direction := "Long"
		if s.sells == 2 {
			direction = "Short"
		}
		if s.strikes == 1 {
			res = append(res, newGroup(Straddle, direction+" Straddle", legs))
		} else {
			res = append(res, newGroup(Strangle, direction+" Strangle", legs))
		}
	}
	return res
}

func butterflyPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byExpiration) {
		s := statsOf(legs)
		if len(legs) != 3 || (s.calls != 3 && s.puts != 3) {
			continue
		}
		g := newGroup(Butterfly, "", legs)
		direction := "Long"
		if g.Credit() {
			direction = "Short"
		}
		g.Name = direction + " " + legs[0].Option.Class.Title() + " Butterfly"
		res = append(res, g)
	}
	return res
}

func calendarPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byStrikeAndClass) {
		s := statsOf(legs)
		if len(legs) != 2 || s.expirations != 2 || s.buys != 1 || s.sells != 1 {
			continue
		}
		res = append(res, newGroup(Calendar, "Calendar "+legs[0].Option.Class.Title()+" Spread", legs))
	}
	return res
}

// diagonalPass catches the calendars whose strikes differ.
func diagonalPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byClass) {
		s := statsOf(legs)
		if len(legs) != 2 || s.expirations != 2 || s.strikes != 2 || s.buys != 1 || s.sells != 1 {
			continue
		}
		res = append(res, newGroup(Diagonal, "Diagonal "+legs[0].Option.Class.Title()+" Spread", legs))
	}
	return res
}

func customPass(pool []Trade) (res []SpreadGroup) {
	for _, legs := range partition(pool, byExpiration) {
		if len(legs) < 2 {
			continue
		}
		res = append(res, newGroup(Custom, customName(legs), legs))
	}
	return res
}

// customName is a best effort label for shapes no other pass recognized.
func customName(legs []Trade) string {
	s := statsOf(legs)
	two := decimal.NewFromInt(2)
	switch {
	case (s.calls == 0 || s.puts == 0) && s.strikes == 2 && s.buys > 0 && s.sells > 0 &&
		(s.sellQty.Equal(s.buyQty.Mul(two)) || s.buyQty.Equal(s.sellQty.Mul(two))):
		class := legs[0].Option.Class.Title()
		return "Ratio " + class + " Spread (1x2)"
	case len(legs) == 4 && s.calls == 2 && s.puts == 2 && s.strikes == 3:
		return "Iron Butterfly"
	case len(legs) == 3 && s.calls == 2 && s.puts == 1:
		return "Jade Lizard"
	case len(legs) == 3 && s.calls == 1 && s.puts == 2:
		return "Twisted Sister"
	}
	return fmt.Sprintf("Custom (%d-leg)", len(legs))
}

func singlePass(pool []Trade) (res []SpreadGroup) {
	for _, t := range pool {
		direction := "Long"
		if t.Action.IsSell() {
			direction = "Short"
		}
		res = append(res, newGroup(Single, direction+" "+t.Option.Class.Title(), []Trade{t}))
	}
	return res
}

// DetectSpreads classifies the candidate legs among trades into groups. Trades
// already grouped, stock trades and option settlements are ignored. Trades must
// have distinct IDs. Group IDs are not assigned.
func DetectSpreads(trades []Trade) []SpreadGroup {
	var pool []Trade
	for _, t := range trades {
		if isSpreadCandidate(t) {
			pool = append(pool, t)
		}
	}
	slices.SortStableFunc(pool, func(a, b Trade) int {
		if c := a.Date.Compare(b.Date); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	var groups []SpreadGroup
	for _, pass := range spreadPasses {
		found := pass(pool)
		claimed := make(map[int64]bool)
		for i := range found {
			sortLegs(found[i].Legs)
			for _, t := range found[i].Legs {
				claimed[t.ID] = true
			}
		}
		pool = slices.DeleteFunc(pool, func(t Trade) bool { return claimed[t.ID] })
		groups = append(groups, found...)
	}
	return groups
}

// sortLegs orders legs by strike, calls before puts, then ID.
func sortLegs(legs []Trade) {
	slices.SortFunc(legs, func(a, b Trade) int {
		if c := a.Option.Strike.Cmp(b.Option.Strike); c != 0 {
			return c
		}
		if c := cmp.Compare(a.Option.Class, b.Option.Class); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// strategyMarker prefixes the annotation added to the notes of grouped legs.
const strategyMarker = "Strategy:"

// annotate appends the strategy description to notes, once.
func annotate(notes string, g SpreadGroup) string {
	if strings.Contains(notes, strategyMarker) {
		return notes
	}
	a := fmt.Sprintf("%s %s | Net premium: %s", strategyMarker, g.Name, M(g.NetPremium, g.Legs[0].Currency()))
	if notes == "" {
		return a
	}
	return notes + " | " + a
}

// PlanSpreads detects the groups among trades and returns the patches to apply,
// with fresh group IDs from newID.
func PlanSpreads(trades []Trade, newID func() string) ([]SpreadGroup, []SpreadPatch) {
	groups := DetectSpreads(trades)
	var patches []SpreadPatch
	for i := range groups {
		g := &groups[i]
		g.ID = newID()
		for n := range g.Legs {
			leg := &g.Legs[n]
			p := SpreadPatch{TradeID: leg.ID, Type: g.Type, GroupID: g.ID, Leg: n + 1, Notes: annotate(leg.Notes, *g)}
			*leg = p.Apply(*leg)
			patches = append(patches, p)
		}
	}
	return groups, patches
}

// SpreadDetector groups the option legs of an account into strategies.
type SpreadDetector struct {
	Trades     TradeStore
	NewGroupID func() string
	Logger     *slog.Logger
}

// NewSpreadDetector returns a detector that uses random UUIDs for group IDs.
func NewSpreadDetector(trades TradeStore, logger *slog.Logger) *SpreadDetector {
	if logger == nil {
		logger = slog.Default()
	}
	return &SpreadDetector{Trades: trades, NewGroupID: uuid.NewString, Logger: logger}
}

// DetectAndGroup groups the ungrouped option legs of an account and persists all
// the patches in one batch. Grouped trades are never regrouped, running it twice
// is a no-op.
func (d *SpreadDetector) DetectAndGroup(ctx context.Context, userID, accountID int64) ([]SpreadGroup, error) {
	trades, err := d.Trades.ListTrades(ctx, Filter{UserID: userID, AccountID: accountID})
	if err != nil {
		return nil, fmt.Errorf("could not list trades: %w", err)
	}
	newID := d.NewGroupID
	if newID == nil {
		newID = uuid.NewString
	}
	groups, patches := PlanSpreads(trades, newID)
	if len(patches) == 0 {
		return nil, nil
	}
	if err := d.Trades.ApplySpreadPatches(ctx, userID, patches); err != nil {
		return nil, fmt.Errorf("could not save spread groups: %w", err)
	}
	for _, g := range groups {
		metrics.SpreadsDetected.WithLabelValues(string(g.Type)).Inc()
	}
	d.Logger.Info("spreads detected", "user", userID, "account", accountID, "groups", len(groups), "legs", len(patches))
	return groups, nil
}
