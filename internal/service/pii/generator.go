// Package pii fabricates realistic-looking personal and financial data for honey-traps.
package pii

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v7"
)

// Rule names the branch a category hint resolves to.
type Rule string

const (
	RuleCard    Rule = "card"
	RuleName    Rule = "name"
	RuleAddress Rule = "address"
	RuleEmail   Rule = "email"
	RuleNone    Rule = "none"
)

// Placeholder is emitted for hints that match no rule.
const Placeholder = "..."

type rule struct {
	keywords []string
	kind     Rule
}

// Evaluated in order, first match wins. Hints are open-ended oracle output, so this
// stays a keyword list rather than a closed enum.
var rules = []rule{
	{keywords: []string{"card", "bank"}, kind: RuleCard},
	{keywords: []string{"name"}, kind: RuleName},
	{keywords: []string{"address"}, kind: RuleAddress},
	{keywords: []string{"email"}, kind: RuleEmail},
}

// Classify resolves a free-text category hint to a rule.
func Classify(category string) Rule {
	normalized := strings.ToLower(category)
	for _, r := range rules {
		for _, kw := range r.keywords {
			if strings.Contains(normalized, kw) {
				return r.kind
			}
		}
	}
	return RuleNone
}

// Generator produces synthetic PII from an injected fake-data source.
type Generator struct {
	faker *gofakeit.Faker
}

// NewGenerator returns a Generator backed by faker.
func NewGenerator(faker *gofakeit.Faker) *Generator {
	return &Generator{faker: faker}
}

// Generate returns fabricated data for the category hint. It never fails; unknown
// categories yield Placeholder.
func (g *Generator) Generate(category string) string {
	switch Classify(category) {
	case RuleCard:
		number := g.faker.CreditCardNumber(&gofakeit.CreditCardOptions{Types: []string{"visa"}})
		return fmt.Sprintf("Visa: %s, CVV: %s", number, g.faker.CreditCardCvv())
	case RuleName:
		return "Name: " + g.faker.Name()
	case RuleAddress:
		return "Address: " + flattenLines(g.faker.Address().Address)
	case RuleEmail:
		return "Email: " + g.faker.Email()
	default:
		return Placeholder
	}
}

func flattenLines(s string) string {
	return strings.ReplaceAll(s, "\n", ", ")
}
