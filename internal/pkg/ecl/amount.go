package ecl

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrUnparseable marks a cell that does not hold a number.
var ErrUnparseable = errors.New("unparseable amount")

// minus signs found in PDF text: hyphen, en dash, em dash and U+2212
var minusSigns = []string{"-", "\u2013", "\u2014", "\u2212"}

// digits with an optional decimal part, after separators were normalised
var plainAmount = regexp.MustCompile(`^\d+(\.\d+)?$`)

// ParseAmount reads a pt-BR formatted number as printed in the statements:
// "." groups thousands, "," separates decimals, "(1.234)" and "-1.234" are
// negative, and a lone dash or a blank cell is zero.
func ParseAmount(s string) (decimal.Decimal, error) {
	v := strings.TrimSpace(s)
	v = strings.NewReplacer("R$", "", "%", "", " ", "", "\u00a0", "").Replace(v)

	if v == "" || isDash(v) {
		return decimal.Zero, nil
	}

	negative := false
	if strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")") {
		negative = true
		v = v[1 : len(v)-1]
	}
	for _, sign := range minusSigns {
		if rest, ok := strings.CutPrefix(v, sign); ok {
			negative = !negative
			v = rest
			break
		}
	}

	v = strings.ReplaceAll(v, ".", "")
	v = strings.Replace(v, ",", ".", 1)
	if !plainAmount.MatchString(v) {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}

	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseable, s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// looksNumeric reports whether a cell carries any digit, which is what
// separates amounts (even mangled ones) from labels.
func looksNumeric(s string) bool {
	return strings.ContainsAny(s, "0123456789")
}

// isDash reports whether the cell is an explicit "no amount" marker.
func isDash(s string) bool {
	v := strings.TrimSpace(s)
	for _, sign := range minusSigns {
		if v == sign {
			return true
		}
	}
	return false
}
