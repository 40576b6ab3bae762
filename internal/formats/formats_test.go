package formats

import (
	"sync"
	"testing"
	"time"

	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCache(t *testing.T, locale string) *Cache {
	t.Helper()
	s := DefaultSettings()
	s.UseThousandSeparator = true
	c, err := NewCache(s, locale)
	require.NoError(t, err)
	return c
}

func TestCache_Get(t *testing.T) {
	tests := []struct {
		locale string
		kind   Kind
		want   string
	}{
		{"en-US", KindDecimalSeparator, "."},
		{"", KindThousandSeparator, ","},
		{"de", KindDecimalSeparator, ","},
		{"de_AT", KindThousandSeparator, "."},
		{"pt-BR", KindTime, "15:04"},
		{"pt-BR", KindShortDate, "02/01/2006"},
		{"en-GB", KindDecimalSeparator, "."},
		{"sw", KindNumberGrouping, "0"},
		{"sw", KindDate, "Jan. 2, 2006"},
	}

	for _, tt := range tests {
		t.Run(tt.locale+"/"+string(tt.kind), func(t *testing.T) {
			assert.Equal(t, tt.want, newCache(t, tt.locale).Get(tt.kind))
		})
	}
}

func TestCache_SetLocaleInvalidates(t *testing.T) {
	c := newCache(t, "en")
	assert.Equal(t, ".", c.Get(KindDecimalSeparator))
	assert.Equal(t, ".", c.Get(KindDecimalSeparator))
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats())

	require.NoError(t, c.SetLocale("en"))
	assert.Equal(t, Stats{Hits: 1, Misses: 1}, c.Stats(), "same locale keeps entries")

	require.NoError(t, c.SetLocale("de"))
	assert.Equal(t, Stats{}, c.Stats())
	assert.Equal(t, ",", c.Get(KindDecimalSeparator))
	assert.Equal(t, "de", c.Locale().String())

	err := c.SetLocale("not a locale!")
	require.Error(t, err)
	assert.True(t, errs.IsInvalidInput(err))
	assert.Equal(t, "de", c.Locale().String())
}

func TestCache_WithoutL10N(t *testing.T) {
	s := DefaultSettings()
	s.UseL10N = false
	c, err := NewCache(s, "de")
	require.NoError(t, err)

	assert.Equal(t, ".", c.Get(KindDecimalSeparator))
	assert.Equal(t, "1,5", c.SanitizeSeparators("1,5"))
}

func TestNumberFormat(t *testing.T) {
	en := newCache(t, "en-US")
	de := newCache(t, "de")

	assert.Equal(t, "1,234,567.89", en.NumberFormat(1234567.891, 2))
	assert.Equal(t, "1.234.567,89", de.NumberFormat(1234567.891, 2))
	assert.Equal(t, "-1,234", en.NumberFormat(-1234, -1))
	assert.Equal(t, "12.500", en.NumberFormat("12.5", 3))
	assert.Equal(t, "999", en.NumberFormat(int64(999), -1))
	assert.Equal(t, "1,000", en.NumberFormat(uint16(1000), 0))

	plain, err := NewCache(DefaultSettings(), "en")
	require.NoError(t, err)
	assert.Equal(t, "1234567.5", plain.NumberFormat(1234567.5, -1))
}

func TestDateFormatAndLocalize(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

	gb := newCache(t, "en-GB")
	assert.Equal(t, "5 Mar 2024", gb.DateFormat(ts, ""))
	assert.Equal(t, "14:30", gb.DateFormat(ts, KindTime))
	assert.Equal(t, "5 Mar 2024, 14:30", gb.Localize(ts))

	de := newCache(t, "de")
	assert.Equal(t, "05.03.2024", de.DateFormat(ts, KindShortDate))
	assert.Equal(t, "3,25", de.Localize(3.25))
	assert.Equal(t, "", de.Localize(nil))
	assert.Equal(t, "text", de.Localize("text"))
}

func TestDateFormat_MonthNames(t *testing.T) {
	ts := time.Date(2024, time.March, 5, 14, 30, 0, 0, time.UTC)

	assert.Equal(t, "5. März 2024", newCache(t, "de").DateFormat(ts, KindDate))
	assert.Equal(t, "5 mars 2024 14:30", newCache(t, "fr").DateFormat(ts, KindDateTime))
	assert.Equal(t, "5 de março de 2024", newCache(t, "pt-BR").DateFormat(ts, KindDate))
	assert.Equal(t, "5 de março de 2024 às 14:30", newCache(t, "pt-BR").DateFormat(ts, KindDateTime))
	assert.Equal(t, "Mar. 5, 2024", newCache(t, "en").DateFormat(ts, KindDate))

	s := DefaultSettings()
	s.UseL10N = false
	c, err := NewCache(s, "de")
	require.NoError(t, err)
	assert.Equal(t, "Mar. 5, 2024", c.DateFormat(ts, KindDate))
}

func TestSanitizeSeparators(t *testing.T) {
	assert.Equal(t, "1234.5", newCache(t, "de").SanitizeSeparators("1.234,5"))
	assert.Equal(t, "1234.5", newCache(t, "en").SanitizeSeparators("1,234.5"))
	assert.Equal(t, "1234", newCache(t, "en").SanitizeSeparators("1,234"))
}

func TestCache_Concurrent(t *testing.T) {
	c := newCache(t, "fr")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				assert.Equal(t, "\u00a0", c.Get(KindThousandSeparator))
			}
		}()
	}
	wg.Wait()

	st := c.Stats()
	assert.Equal(t, int64(800), st.Hits+st.Misses)
	assert.Equal(t, int64(1), st.Misses)
}
