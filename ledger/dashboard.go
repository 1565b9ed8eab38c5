package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PeriodSummary aggregates one calendar month.
type PeriodSummary struct {
	Income           decimal.Decimal `json:"income"`
	Expense          decimal.Decimal `json:"expense"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
}

// Trends holds the percentage change of each metric against the previous
// month, rounded to the nearest integer.
type Trends struct {
	Income  int `json:"income"`
	Expense int `json:"expense"`
	Balance int `json:"balance"`
}

// CategorySummary is one row of the category breakdown.
type CategorySummary struct {
	Type     string          `json:"type"`
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// MonthPoint is one point of the trailing monthly trend.
type MonthPoint struct {
	Month   time.Month      `json:"month"`
	Year    int             `json:"year"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Dashboard is the guest-mode equivalent of the backend dashboard response.
type Dashboard struct {
	CurrentMonth  PeriodSummary     `json:"currentMonth"`
	PreviousMonth PeriodSummary     `json:"previousMonth"`
	Trends        Trends            `json:"trends"`
	Categories    []CategorySummary `json:"categories"`
	MonthlyTrend  []MonthPoint      `json:"monthlyTrend"`
	Recent        []Transaction     `json:"recent"`
}

// Dashboard computes the dashboard aggregation for the given month: current
// and previous month totals, their trends, the category breakdown, a
// six-point trailing monthly trend and the five most recent transactions of
// the current month.
func (s *Store) Dashboard(month time.Month, year int) (*Dashboard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.load()
	if err != nil {
		return nil, err
	}

	prevMonth, prevYear := previousMonth(month, year)

	current := summarizeMonth(list, month, year)
	previous := summarizeMonth(list, prevMonth, prevYear)

	d := &Dashboard{
		CurrentMonth:  current,
		PreviousMonth: previous,
		Trends: Trends{
			Income:  trendPercent(current.Income, previous.Income),
			Expense: trendPercent(current.Expense, previous.Expense),
			Balance: trendPercent(current.Balance, previous.Balance),
		},
		Categories:   categoryBreakdown(list, month, year),
		MonthlyTrend: monthlyTrend(list, month, year, 6),
		Recent:       recentTransactions(list, month, year, 5),
	}
	return d, nil
}

func previousMonth(month time.Month, year int) (time.Month, int) {
	if month == time.January {
		return time.December, year - 1
	}
	return month - 1, year
}

func inMonth(tx Transaction, month time.Month, year int) bool {
	return tx.Date.Month() == month && tx.Date.Year() == year
}

func summarizeMonth(list []Transaction, month time.Month, year int) PeriodSummary {
	summary := PeriodSummary{
		Income:  decimal.Zero,
		Expense: decimal.Zero,
		Balance: decimal.Zero,
	}
	for _, tx := range list {
		if !inMonth(tx, month, year) {
			continue
		}
		summary.TransactionCount++
		if tx.Type == TypeIncome {
			summary.Income = summary.Income.Add(tx.Amount)
		} else {
			summary.Expense = summary.Expense.Add(tx.Amount)
		}
	}
	summary.Balance = summary.Income.Sub(summary.Expense)
	return summary
}

// trendPercent computes (current-previous)/previous*100 rounded to the
// nearest integer. A zero previous baseline counts as a 100% increase when
// the current value is positive, else 0%. This mirrors the backend's trend
// rule and is kept identical for parity between guest and authenticated
// modes.
func trendPercent(current, previous decimal.Decimal) int {
	if previous.IsZero() {
		if current.IsPositive() {
			return 100
		}
		return 0
	}
	pct := current.Sub(previous).Div(previous).Mul(decimal.NewFromInt(100))
	return int(pct.Round(0).IntPart())
}

func categoryBreakdown(list []Transaction, month time.Month, year int) []CategorySummary {
	type groupKey struct {
		txType   string
		category string
	}

	groups := map[groupKey]*CategorySummary{}
	order := []groupKey{}
	for _, tx := range list {
		if !inMonth(tx, month, year) {
			continue
		}
		key := groupKey{txType: tx.Type, category: tx.Category}
		g, ok := groups[key]
		if !ok {
			g = &CategorySummary{Type: tx.Type, Category: tx.Category, Total: decimal.Zero}
			groups[key] = g
			order = append(order, key)
		}
		g.Total = g.Total.Add(tx.Amount)
		g.Count++
	}

	result := make([]CategorySummary, 0, len(order))
	for _, key := range order {
		g := groups[key]
		g.Total = g.Total.Round(2)
		result = append(result, *g)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].Total.GreaterThan(result[j].Total)
	})
	return result
}

// monthlyTrend returns points oldest first, rolling back across year
// boundaries.
func monthlyTrend(list []Transaction, month time.Month, year int, points int) []MonthPoint {
	result := make([]MonthPoint, points)

	m, y := month, year
	for i := points - 1; i >= 0; i-- {
		point := MonthPoint{Month: m, Year: y, Income: decimal.Zero, Expense: decimal.Zero}
		for _, tx := range list {
			if !inMonth(tx, m, y) {
				continue
			}
			if tx.Type == TypeIncome {
				point.Income = point.Income.Add(tx.Amount)
			} else {
				point.Expense = point.Expense.Add(tx.Amount)
			}
		}
		result[i] = point
		m, y = previousMonth(m, y)
	}
	return result
}

func recentTransactions(list []Transaction, month time.Month, year int, limit int) []Transaction {
	recent := make([]Transaction, 0, limit)
	for _, tx := range list {
		if inMonth(tx, month, year) {
			recent = append(recent, tx)
		}
	}
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].Date.After(recent[j].Date)
	})
	if len(recent) > limit {
		recent = recent[:limit]
	}
	return recent
}
