/*
Package requestkit – format-specifier rendering.

Numbers, timestamps and UUIDs are rendered in a locale-invariant form.
The numeric specifiers follow the conventional single-letter grammar
(D, X, F, E, G, N, P with an optional precision suffix); an unknown or
inapplicable specifier is a FormatError naming the offending specifier.
*/
package requestkit

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// timeLayout is the default round-trip timestamp form: seven fractional
// digits and a Z / numeric offset suffix.
const timeLayout = "2006-01-02T15:04:05.0000000Z07:00"

type numericSpec struct {
	letter    byte
	precision int
	explicit  bool
}

func parseNumericSpec(spec string) (numericSpec, error) {
	s := numericSpec{letter: spec[0], precision: -1}
	if len(spec) > 1 {
		p, err := strconv.Atoi(spec[1:])
		if err != nil || p < 0 || p > 99 {
			return s, NewFormatError(fmt.Sprintf("invalid numeric format specifier %q", spec))
		}
		s.precision = p
		s.explicit = true
	}
	switch s.letter {
	case 'D', 'd', 'X', 'x', 'F', 'f', 'E', 'e', 'G', 'g', 'N', 'n', 'P', 'p':
		return s, nil
	}
	return s, NewFormatError(fmt.Sprintf("invalid numeric format specifier %q", spec))
}

// formatInt renders a signed integer. Without a specifier the result is
// plain decimal text.
func formatInt(v int64, spec string) (string, error) {
	if spec == "" {
		return strconv.FormatInt(v, 10), nil
	}
	s, err := parseNumericSpec(spec)
	if err != nil {
		return "", err
	}
	switch s.letter {
	case 'D', 'd':
		return padDecimal(v, s.precision), nil
	case 'X', 'x':
		// negative values render as two's complement, as the decimal
		// specifier grammar prescribes
		return padHex(uint64(v), s.letter == 'X', s.precision), nil
	default:
		return formatFloat(float64(v), spec)
	}
}

// formatUint renders an unsigned integer.
func formatUint(v uint64, spec string) (string, error) {
	if spec == "" {
		return strconv.FormatUint(v, 10), nil
	}
	s, err := parseNumericSpec(spec)
	if err != nil {
		return "", err
	}
	switch s.letter {
	case 'D', 'd':
		out := strconv.FormatUint(v, 10)
		if s.precision > len(out) {
			out = strings.Repeat("0", s.precision-len(out)) + out
		}
		return out, nil
	case 'X', 'x':
		return padHex(v, s.letter == 'X', s.precision), nil
	default:
		return formatFloat(float64(v), spec)
	}
}

// formatFloat renders a floating-point or decimal value.
func formatFloat(v float64, spec string) (string, error) {
	if spec == "" {
		return strconv.FormatFloat(v, 'g', -1, 64), nil
	}
	s, err := parseNumericSpec(spec)
	if err != nil {
		return "", err
	}
	switch s.letter {
	case 'F', 'f':
		prec := s.precision
		if !s.explicit {
			prec = 2
		}
		return strconv.FormatFloat(v, 'f', prec, 64), nil
	case 'E', 'e':
		prec := s.precision
		if !s.explicit {
			prec = 6
		}
		out := strconv.FormatFloat(v, byte(s.letter), prec, 64)
		return padExponent(out), nil
	case 'G', 'g':
		prec := s.precision
		if !s.explicit {
			prec = -1
		}
		return strconv.FormatFloat(v, s.letter, prec, 64), nil
	case 'N', 'n':
		prec := s.precision
		if !s.explicit {
			prec = 2
		}
		return groupThousands(strconv.FormatFloat(v, 'f', prec, 64)), nil
	case 'P', 'p':
		prec := s.precision
		if !s.explicit {
			prec = 2
		}
		return groupThousands(strconv.FormatFloat(v*100, 'f', prec, 64)) + " %", nil
	default:
		// D and X apply to integral values only
		return "", NewFormatError(fmt.Sprintf("format specifier %q is not valid for floating-point values", spec))
	}
}

func padDecimal(v int64, precision int) string {
	neg := v < 0
	out := strconv.FormatInt(v, 10)
	if neg {
		out = out[1:]
	}
	if precision > len(out) {
		out = strings.Repeat("0", precision-len(out)) + out
	}
	if neg {
		out = "-" + out
	}
	return out
}

func padHex(v uint64, upper bool, precision int) string {
	out := strconv.FormatUint(v, 16)
	if upper {
		out = strings.ToUpper(out)
	}
	if precision > len(out) {
		out = strings.Repeat("0", precision-len(out)) + out
	}
	return out
}

// padExponent widens the exponent of a strconv 'E' rendition to the
// conventional three digits: 1.5E+07 → 1.5E+007.
func padExponent(s string) string {
	idx := strings.IndexAny(s, "Ee")
	if idx < 0 || idx+2 > len(s) {
		return s
	}
	mantissa, sign, digits := s[:idx+1], s[idx+1:idx+2], s[idx+2:]
	if sign != "+" && sign != "-" {
		return s
	}
	for len(digits) < 3 {
		digits = "0" + digits
	}
	return mantissa + sign + digits
}

// groupThousands inserts comma group separators into the integer part
// of a plain decimal rendition.
func groupThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	intPart, fracPart := s, ""
	if dot := strings.IndexByte(s, '.'); dot >= 0 {
		intPart, fracPart = s[:dot], s[dot:]
	}
	if len(intPart) > 3 {
		var b strings.Builder
		lead := len(intPart) % 3
		if lead > 0 {
			b.WriteString(intPart[:lead])
		}
		for i := lead; i < len(intPart); i += 3 {
			if b.Len() > 0 {
				b.WriteByte(',')
			}
			b.WriteString(intPart[i : i+3])
		}
		intPart = b.String()
	}
	out := intPart + fracPart
	if neg {
		out = "-" + out
	}
	return out
}

// formatTime renders a timestamp: round-trip layout by default, or the
// caller's layout verbatim.
func formatTime(t time.Time, spec string) string {
	if spec == "" {
		return t.Format(timeLayout)
	}
	return t.Format(spec)
}

// formatUUID renders a UUID per the standard single-letter forms:
// D (hyphenated, the default), N (bare digits), B (braces), P (parens).
func formatUUID(u uuid.UUID, spec string) (string, error) {
	switch spec {
	case "", "D", "d":
		return u.String(), nil
	case "N", "n":
		return strings.ReplaceAll(u.String(), "-", ""), nil
	case "B", "b":
		return "{" + u.String() + "}", nil
	case "P", "p":
		return "(" + u.String() + ")", nil
	}
	return "", NewFormatError(fmt.Sprintf("invalid GUID format specifier %q", spec))
}
