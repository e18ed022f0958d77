package pii

import (
	"regexp"
	"strings"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyFirstMatchWins(t *testing.T) {
	cases := map[string]Rule{
		"card":             RuleCard,
		"bank":             RuleCard,
		"Bank Transfer":    RuleCard,
		"CARD NAME":        RuleCard,
		"full name":        RuleName,
		"name and address": RuleName,
		"home address":     RuleAddress,
		"email address":    RuleAddress,
		"Email":            RuleEmail,
		"social security":  RuleNone,
		"":                 RuleNone,
	}
	for hint, want := range cases {
		assert.Equal(t, want, Classify(hint), "hint %q", hint)
	}
}

func TestGenerateBankTransferMatchesBank(t *testing.T) {
	gen := NewGenerator(gofakeit.New(7))

	cardPattern := regexp.MustCompile(`^Visa: \d{13,19}, CVV: \d{3,4}$`)
	assert.Regexp(t, cardPattern, gen.Generate("Bank Transfer"))
	assert.Regexp(t, cardPattern, gen.Generate("bank"))
}

func TestGenerateShapes(t *testing.T) {
	gen := NewGenerator(gofakeit.New(11))

	assert.True(t, strings.HasPrefix(gen.Generate("name"), "Name: "))
	assert.True(t, strings.HasPrefix(gen.Generate("email"), "Email: "))

	address := gen.Generate("address")
	require.True(t, strings.HasPrefix(address, "Address: "))
	assert.NotContains(t, address, "\n")

	assert.Equal(t, Placeholder, gen.Generate("passport"))
}

func TestFlattenLines(t *testing.T) {
	assert.Equal(t, "1 Main St, Springfield, IL 62701", flattenLines("1 Main St\nSpringfield, IL 62701"))
}
