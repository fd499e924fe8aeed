// Package price converts upstream catalog prices into the storefront's
// display currency.
package price

import (
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	// DefaultRate is the fixed exchange rate from the catalog currency into
	// rupiah.
	DefaultRate = 15000
	// DefaultSymbol is the display currency symbol.
	DefaultSymbol = "Rp"
	// DefaultLocale controls digit grouping.
	DefaultLocale = "id-ID"
)

// Config configures a Converter. Zero fields fall back to the defaults.
type Config struct {
	Rate   decimal.Decimal
	Symbol string
	Locale string
}

// Converter turns catalog prices into display strings.
type Converter struct {
	rate    decimal.Decimal
	symbol  string
	printer *message.Printer
}

// NewConverter returns a Converter for cfg.
func NewConverter(cfg Config) (*Converter, error) {
	if cfg.Rate.IsZero() {
		cfg.Rate = decimal.NewFromInt(DefaultRate)
	}
	if cfg.Rate.IsNegative() {
		return nil, errors.Errorf("exchange rate must be positive, got %s", cfg.Rate)
	}
	if cfg.Symbol == "" {
		cfg.Symbol = DefaultSymbol
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultLocale
	}
	tag, err := language.Parse(cfg.Locale)
	if err != nil {
		return nil, errors.Wrapf(err, "parse locale %q", cfg.Locale)
	}
	return &Converter{
		rate:    cfg.Rate,
		symbol:  cfg.Symbol,
		printer: message.NewPrinter(tag),
	}, nil
}

// Default returns a Converter with the default rate, symbol and locale.
func Default() *Converter {
	c, err := NewConverter(Config{})
	if err != nil {
		panic(err)
	}
	return c
}

// Convert multiplies p by the exchange rate and rounds to the nearest whole
// unit, halves away from zero.
func (c *Converter) Convert(p decimal.Decimal) int64 {
	return p.Mul(c.rate).Round(0).IntPart()
}

// Format returns the converted price with the currency symbol and locale
// digit grouping, e.g. "Rp 157.500".
func (c *Converter) Format(p decimal.Decimal) string {
	return c.printer.Sprintf("%s %d", c.symbol, c.Convert(p))
}
