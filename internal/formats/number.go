package formats

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NumberFormat renders v with the locale's decimal separator and, when
// thousand separators are enabled, its digit grouping. decimalPos truncates
// or zero-pads the fractional part; a negative decimalPos keeps it as is.
// v may be any integer or float type, or decimal text such as "1234.50".
func (c *Cache) NumberFormat(v any, decimalPos int) string {
	s := numberText(v)

	sign := ""
	if strings.HasPrefix(s, "-") {
		sign, s = "-", s[1:]
	}

	intPart, decPart, _ := strings.Cut(s, ".")
	if decimalPos >= 0 {
		if len(decPart) > decimalPos {
			decPart = decPart[:decimalPos]
		}
		decPart += strings.Repeat("0", decimalPos-len(decPart))
	}
	if decPart != "" {
		decPart = c.Get(KindDecimalSeparator) + decPart
	}

	if c.settings.UseL10N && c.settings.UseThousandSeparator {
		if grouping, err := strconv.Atoi(c.Get(KindNumberGrouping)); err == nil && grouping > 0 {
			intPart = group(intPart, grouping, c.Get(KindThousandSeparator))
		}
	}
	return sign + intPart + decPart
}

func group(digits string, size int, sep string) string {
	if len(digits) <= size {
		return digits
	}
	var b strings.Builder
	lead := len(digits) % size
	if lead > 0 {
		b.WriteString(digits[:lead])
	}
	for i := lead; i < len(digits); i += size {
		if b.Len() > 0 {
			b.WriteString(sep)
		}
		b.WriteString(digits[i : i+size])
	}
	return b.String()
}

func numberText(v any) string {
	switch n := v.(type) {
	case int:
		return strconv.Itoa(n)
	case int8, int16, int32, int64:
		return fmt.Sprintf("%d", n)
	case uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", n)
	case float32:
		return strconv.FormatFloat(float64(n), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(n, 'f', -1, 64)
	case string:
		return strings.TrimSpace(n)
	case []byte:
		return strings.TrimSpace(string(n))
	}
	return fmt.Sprint(v)
}

// DateFormat renders t with the layout registered for kind; an empty kind
// means KindDate.
func (c *Cache) DateFormat(t time.Time, kind Kind) string {
	if kind == "" {
		kind = KindDate
	}
	layout := c.Get(kind)
	names, ok := c.monthNames()
	if !ok || !strings.Contains(layout, "January") {
		return t.Format(layout)
	}
	// Go layouts only spell English months; a NUL stands in for the name
	// so that localized names are never read as layout tokens.
	out := t.Format(strings.ReplaceAll(layout, "January", "\x00"))
	return strings.ReplaceAll(out, "\x00", names[t.Month()-1])
}

// Localize renders numbers with NumberFormat and times with the datetime
// format. Other values are printed with fmt; nil becomes "".
func (c *Cache) Localize(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return c.NumberFormat(t, -1)
	case time.Time:
		return c.DateFormat(t, KindDateTime)
	case *time.Time:
		if t == nil {
			return ""
		}
		return c.DateFormat(*t, KindDateTime)
	}
	return fmt.Sprint(v)
}

// SanitizeSeparators rewrites localized numeric input into the canonical
// form with "." as decimal separator, e.g. "1.234,5" becomes "1234.5" in
// German when thousand separators are enabled.
func (c *Cache) SanitizeSeparators(s string) string {
	if !c.settings.UseL10N {
		return s
	}

	var decimals string
	hasDecimals := false
	if sep := c.Get(KindDecimalSeparator); sep != "" && strings.Contains(s, sep) {
		s, decimals, _ = strings.Cut(s, sep)
		hasDecimals = true
	}
	if c.settings.UseThousandSeparator {
		if sep := c.Get(KindThousandSeparator); sep != "" {
			s = strings.ReplaceAll(s, sep, "")
		}
	}
	if hasDecimals {
		return s + "." + decimals
	}
	return s
}
