// Package alert evaluates threshold rules against portfolio figures.
package alert

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/newthinker/theta/internal/core"
)

// Severity levels.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Figure names a rule expression can reference.
const (
	FigureTotalPremium     = "total_premium"
	FigureTotalBuyingPower = "total_buying_power"
	FigureTotalNotional    = "total_notional"
	FigureReturnOnCapital  = "avg_return_on_capital"
	FigureMonthlyReturn    = "monthly_return"
	FigureAnnualizedReturn = "annualized_return"
	FigureTradeCount       = "trade_count"
	FigureSkipped          = "skipped"
	FigureNonConverged     = "non_converged"
)

// "metric op value"; two-character operators are listed first.
var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule defines an alert rule.
type Rule struct {
	Name     string `mapstructure:"name" json:"name"`
	Expr     string `mapstructure:"expr" json:"expr"`
	Severity string `mapstructure:"severity" json:"severity"`
	Message  string `mapstructure:"message" json:"message"`
}

// Alert is a rule that fired.
type Alert struct {
	Rule     string  `json:"rule"`
	Severity string  `json:"severity"`
	Message  string  `json:"message"`
	Value    float64 `json:"value"`
}

type condition struct {
	figure    string
	op        string
	threshold float64
}

func (r Rule) parse() (condition, error) {
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return condition{}, fmt.Errorf("rule %s: expression %q is not \"figure op value\"", r.Name, r.Expr)
	}
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return condition{}, fmt.Errorf("rule %s: threshold: %w", r.Name, err)
	}
	return condition{figure: matches[1], op: matches[2], threshold: threshold}, nil
}

// Validate checks that the rule parses and references a known figure.
func (r Rule) Validate() error {
	if r.Name == "" {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("alert rule name cannot be empty"))
	}
	c, err := r.parse()
	if err != nil {
		return core.WrapError(core.ErrConfigInvalid, err)
	}
	if !isFigure(c.figure) {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("rule %s: unknown figure %q", r.Name, c.figure))
	}
	switch r.Severity {
	case SeverityInfo, SeverityWarning, SeverityCritical:
	default:
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("rule %s: unknown severity %q", r.Name, r.Severity))
	}
	return nil
}

// Evaluate reports whether the rule fires for figures, and the value it read.
// A rule that does not parse, or reads a figure that is absent, never fires.
func (r Rule) Evaluate(figures map[string]float64) (bool, float64) {
	c, err := r.parse()
	if err != nil {
		return false, 0
	}
	value, ok := figures[c.figure]
	if !ok {
		return false, 0
	}

	switch c.op {
	case ">":
		return value > c.threshold, value
	case "<":
		return value < c.threshold, value
	case ">=":
		return value >= c.threshold, value
	case "<=":
		return value <= c.threshold, value
	case "==":
		return value == c.threshold, value
	case "!=":
		return value != c.threshold, value
	default:
		return false, value
	}
}

// FormatMessage formats the alert message with the value the rule read.
func (r Rule) FormatMessage(value float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), r.Name, r.Message)
	if c, err := r.parse(); err == nil {
		msg += fmt.Sprintf(" (%s = %g)", c.figure, value)
	}
	return msg
}

// Check evaluates every rule and returns the ones that fired, in rule order.
func Check(rules []Rule, figures map[string]float64) []Alert {
	var fired []Alert
	for _, r := range rules {
		ok, value := r.Evaluate(figures)
		if !ok {
			continue
		}
		fired = append(fired, Alert{
			Rule:     r.Name,
			Severity: r.Severity,
			Message:  r.FormatMessage(value),
			Value:    value,
		})
	}
	return fired
}

// Figures flattens portfolio totals and per-evaluation counts into the
// names rule expressions use.
func Figures(m core.PortfolioMetrics, skipped, nonConverged int) map[string]float64 {
	return map[string]float64{
		FigureTotalPremium:     m.TotalPremium,
		FigureTotalBuyingPower: m.TotalBuyingPower,
		FigureTotalNotional:    m.TotalNotional,
		FigureReturnOnCapital:  m.AvgReturnOnCapital,
		FigureMonthlyReturn:    m.MonthlyReturn,
		FigureAnnualizedReturn: m.AnnualizedReturn,
		FigureTradeCount:       float64(m.TradeCount),
		FigureSkipped:          float64(skipped),
		FigureNonConverged:     float64(nonConverged),
	}
}

// FigureNames lists the figures a rule may reference.
func FigureNames() []string {
	names := make([]string, 0, 9)
	for name := range Figures(core.PortfolioMetrics{}, 0, 0) {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func isFigure(name string) bool {
	_, ok := Figures(core.PortfolioMetrics{}, 0, 0)[name]
	return ok
}

// DefaultRules returns the stock portfolio checks.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "strike_search_capped",
			Expr:     "non_converged > 0",
			Severity: SeverityWarning,
			Message:  "strike search hit the iteration cap, strikes are best estimates",
		},
		{
			Name:     "assets_skipped",
			Expr:     "skipped > 0",
			Severity: SeverityInfo,
			Message:  "some assets have no position",
		},
		{
			Name:     "collateral_high",
			Expr:     "total_buying_power > 1000000",
			Severity: SeverityWarning,
			Message:  "portfolio collateral above one million",
		},
	}
}
