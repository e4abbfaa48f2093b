// Package classify maps categories to income-statement groups
package classify

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/bobmcallan/fieldledger/internal/models"
)

// Rule assigns Group to any category whose name has a word starting with one of Keywords.
// Keywords are written lower-case without accents.
type Rule struct {
	Group    models.StatementGroup
	Keywords []string
}

// Classifier resolves the statement group of a category. An explicit group on
// the category wins; otherwise the first matching rule for the kind applies,
// and a kind with no matching rule falls back to its default group.
type Classifier struct {
	income         []Rule
	expense        []Rule
	incomeDefault  models.StatementGroup
	expenseDefault models.StatementGroup
}

// DefaultIncomeRules are evaluated in order for income categories.
var DefaultIncomeRules = []Rule{
	{Group: models.GroupFinancialRevenue, Keywords: []string{"juros", "rendimento", "financeira", "tarifa"}},
}

// DefaultExpenseRules are evaluated in order for expense categories.
var DefaultExpenseRules = []Rule{
	{Group: models.GroupSalesTax, Keywords: []string{"imposto", "tributo", "iss", "icms", "simples"}},
	{Group: models.GroupCOGS, Keywords: []string{"custo", "cmv", "cpv", "mercadoria", "producao"}},
	{Group: models.GroupSellingExpense, Keywords: []string{"venda", "comissao", "marketing", "publicidade", "frete"}},
	{Group: models.GroupFinancialExpense, Keywords: []string{"juros", "tarifa", "taxa", "banco", "financeira"}},
}

// New returns a classifier with the default rule tables.
func New() *Classifier {
	return NewWithRules(DefaultIncomeRules, DefaultExpenseRules)
}

// NewWithRules returns a classifier over custom rule tables. Keywords are folded
// the same way category names are, so callers may pass accented keywords.
func NewWithRules(income, expense []Rule) *Classifier {
	return &Classifier{
		income:         foldRules(income),
		expense:        foldRules(expense),
		incomeDefault:  models.GroupOperatingRevenue,
		expenseDefault: models.GroupAdminExpense,
	}
}

func foldRules(rules []Rule) []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		keywords := make([]string, 0, len(r.Keywords))
		for _, k := range r.Keywords {
			if f := Fold(k); f != "" {
				keywords = append(keywords, f)
			}
		}
		out[i] = Rule{Group: r.Group, Keywords: keywords}
	}
	return out
}

// Classify returns the statement group for a category. It is total: every
// category of a valid kind lands in exactly one group.
func (c *Classifier) Classify(cat *models.Category) models.StatementGroup {
	if cat.StatementGroup != "" && models.StatementGroupFits(cat.StatementGroup, cat.Kind) {
		return cat.StatementGroup
	}
	return c.ClassifyName(cat.Name, cat.Kind)
}

// ClassifyName applies the rule table for kind to a category name.
func (c *Classifier) ClassifyName(name string, kind models.Kind) models.StatementGroup {
	rules, fallback := c.expense, c.expenseDefault
	if kind == models.KindIncome {
		rules, fallback = c.income, c.incomeDefault
	}

	words := Words(name)
	for _, rule := range rules {
		for _, keyword := range rule.Keywords {
			for _, w := range words {
				if strings.HasPrefix(w, keyword) {
					return rule.Group
				}
			}
		}
	}
	return fallback
}

var accentFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lower-cases s and strips combining accents: "Comissão" becomes "comissao".
func Fold(s string) string {
	folded, _, err := transform.String(accentFolder, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}

// Words splits a folded name on anything that is not a letter or digit.
func Words(name string) []string {
	return strings.FieldsFunc(Fold(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
