package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/scopeguard/scopeguard/internal/access"
)

// Masking defaults, overridden by config.Access.
const (
	DefaultRedactionMarker     = "********"
	DefaultPartialRevealLength = 4
	DefaultCurrencyGranularity = 10000
)

// Masker applies masking strategies to field values.
type Masker struct {
	Marker       string  // replacement for redacted characters, fixed length
	RevealLength int     // trailing characters kept by partial-reveal
	Granularity  float64 // rounding step of currency-round
}

// DefaultMasker returns a masker with the package defaults.
func DefaultMasker() Masker {
	return Masker{
		Marker:       DefaultRedactionMarker,
		RevealLength: DefaultPartialRevealLength,
		Granularity:  DefaultCurrencyGranularity,
	}
}

func (m Masker) withDefaults() Masker {
	if m.Marker == "" {
		m.Marker = DefaultRedactionMarker
	}

	if m.RevealLength <= 0 {
		m.RevealLength = DefaultPartialRevealLength
	}

	if m.Granularity <= 0 {
		m.Granularity = DefaultCurrencyGranularity
	}

	return m
}

// Apply transforms value with strategy. Nil values stay nil.
func (m Masker) Apply(strategy access.MaskingStrategy, value any) any {
	if value == nil {
		return nil
	}

	m = m.withDefaults()

	switch strategy {
	case access.MaskNone, access.MaskUnset:
		return value
	case access.MaskRedact:
		return m.Marker
	case access.MaskPartialReveal:
		return m.partialReveal(value)
	case access.MaskDomainPreserving:
		return m.domainPreserving(value)
	case access.MaskCurrencyRound:
		return m.currencyRound(value)
	}

	return m.Marker
}

// partialReveal keeps the last RevealLength characters behind the marker.
// Values too short to hide anything are fully redacted.
func (m Masker) partialReveal(value any) string {
	runes := []rune(fmt.Sprint(value))
	if len(runes) <= m.RevealLength {
		return m.Marker
	}

	return m.Marker + string(runes[len(runes)-m.RevealLength:])
}

// domainPreserving redacts the local part of an email address.
func (m Masker) domainPreserving(value any) string {
	s := fmt.Sprint(value)

	at := strings.LastIndex(s, "@")
	if at <= 0 || at == len(s)-1 {
		return m.Marker
	}

	return m.Marker + s[at:]
}

// currencyRound rounds numbers to the nearest multiple of Granularity, keeping
// the input's kind. Non-numeric values are redacted.
func (m Masker) currencyRound(value any) any {
	round := func(f float64) float64 {
		return math.Round(f/m.Granularity) * m.Granularity
	}

	switch v := value.(type) {
	case int:
		return int64(round(float64(v)))
	case int32:
		return int64(round(float64(v)))
	case int64:
		return int64(round(float64(v)))
	case uint:
		return int64(round(float64(v)))
	case uint32:
		return int64(round(float64(v)))
	case uint64:
		return int64(round(float64(v)))
	case float32:
		return round(float64(v))
	case float64:
		return round(v)
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return m.Marker
		}

		return round(f)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return m.Marker
		}

		return strconv.FormatFloat(round(f), 'f', -1, 64)
	default:
		return m.Marker
	}
}
