package money

import (
	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator generates realistic amounts and currencies using gofakeit.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a new test data generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(0), // Random seed
	}
}

// NewTestDataGeneratorWithSeed creates a generator with a specific seed for reproducibility.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{
		faker: gofakeit.New(seed),
	}
}

// Faker exposes the underlying faker for callers that need other random data.
func (g *TestDataGenerator) Faker() *gofakeit.Faker {
	return g.faker
}

// RandomAmount returns a positive amount between minCents and maxCents minor units.
func (g *TestDataGenerator) RandomAmount(minCents, maxCents int64) decimal.Decimal {
	cents := int64(g.faker.IntRange(int(minCents), int(maxCents)))
	return decimal.New(cents, -2)
}

// RandomShares returns a positive share count with up to six decimals.
func (g *TestDataGenerator) RandomShares() decimal.Decimal {
	units := int64(g.faker.IntRange(1, 500_000_000))
	return decimal.New(units, -6)
}

// Currency returns one of the common statement currencies.
func (g *TestDataGenerator) Currency() string {
	return g.faker.RandomString([]string{EUR, USD, GBP, CHF, CAD})
}

// ISIN returns a syntactically valid ISIN (country code, nine alphanumerics, check digit).
func (g *TestDataGenerator) ISIN() string {
	country := g.faker.RandomString([]string{"DE", "US", "IE", "LU", "FR", "NL"})
	body := g.faker.Regex("[A-Z0-9]{9}")
	digit := g.faker.Regex("[0-9]")
	return country + body + digit
}
