// Package formats looks up locale-dependent display formats (dates,
// decimal and thousand separators, digit grouping) and applies them to
// values.
//
// A Cache remembers every (kind, locale) lookup until the active locale
// changes. Pass the same *Cache to every call site that shares a locale.
package formats

import (
	"strings"
	"sync"

	"github.com/koustreak/dbscope/internal/errs"
	"golang.org/x/text/language"
)

// Kind names a format setting.
type Kind string

const (
	KindDate              Kind = "DATE_FORMAT"
	KindDateTime          Kind = "DATETIME_FORMAT"
	KindTime              Kind = "TIME_FORMAT"
	KindShortDate         Kind = "SHORT_DATE_FORMAT"
	KindDecimalSeparator  Kind = "DECIMAL_SEPARATOR"
	KindThousandSeparator Kind = "THOUSAND_SEPARATOR"
	KindNumberGrouping    Kind = "NUMBER_GROUPING"
)

// Settings are the process defaults consulted when a locale has no entry
// for a kind. Date kinds hold Go time layouts.
type Settings struct {
	// UseL10N enables locale lookup. When false every kind resolves to
	// Defaults.
	UseL10N bool

	// UseThousandSeparator groups integer digits in NumberFormat and strips
	// thousand separators in SanitizeSeparators.
	UseThousandSeparator bool

	Defaults map[Kind]string

	// Locales overrides the built-in locale table when non-nil. Keys are
	// BCP 47 tags ("de", "pt-BR").
	Locales map[string]map[Kind]string
}

// DefaultSettings returns localized settings backed by the built-in
// locale table.
func DefaultSettings() Settings {
	return Settings{
		UseL10N: true,
		Defaults: map[Kind]string{
			KindDate:              "Jan. 2, 2006",
			KindDateTime:          "Jan. 2, 2006, 3:04 PM",
			KindTime:              "3:04 PM",
			KindShortDate:         "01/02/2006",
			KindDecimalSeparator:  ".",
			KindThousandSeparator: ",",
			KindNumberGrouping:    "0",
		},
	}
}

// Stats counts cache activity since the last locale change.
type Stats struct {
	Hits   int64
	Misses int64
}

type cacheKey struct {
	kind   Kind
	locale string
}

// cacheEntry records a lookup; found is false when no locale defines the
// kind and the default applies.
type cacheEntry struct {
	value string
	found bool
}

// Cache resolves format kinds for one active locale. It is safe for
// concurrent use.
type Cache struct {
	settings Settings
	locales  map[string]map[Kind]string

	mu      sync.Mutex
	locale  language.Tag
	entries map[cacheKey]cacheEntry
	stats   Stats
}

// NewCache returns a cache for locale. An empty locale means "en-US".
func NewCache(settings Settings, locale string) (*Cache, error) {
	c := &Cache{
		settings: settings,
		locales:  settings.Locales,
		entries:  make(map[cacheKey]cacheEntry),
	}
	if c.locales == nil {
		c.locales = builtinLocales
	}
	if err := c.SetLocale(locale); err != nil {
		return nil, err
	}
	return c, nil
}

// SetLocale switches the active locale. Cached entries are dropped when
// the locale actually changes.
func (c *Cache) SetLocale(locale string) error {
	tag := language.AmericanEnglish
	if s := strings.TrimSpace(locale); s != "" {
		t, err := language.Parse(strings.ReplaceAll(s, "_", "-"))
		if err != nil {
			return errs.Wrap(errs.ErrKindInvalidInput, "invalid locale "+locale, err)
		}
		tag = t
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if tag == c.locale {
		return nil
	}
	c.locale = tag
	c.entries = make(map[cacheKey]cacheEntry)
	c.stats = Stats{}
	return nil
}

// Locale returns the active locale tag.
func (c *Cache) Locale() language.Tag {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.locale
}

// Stats returns hit and miss counts for the active locale.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

// Get returns the format for kind in the active locale: the full locale
// first, then its base language, then the settings default.
func (c *Cache) Get(kind Kind) string {
	if !c.settings.UseL10N {
		return c.settings.Defaults[kind]
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{kind: kind, locale: c.locale.String()}
	if e, ok := c.entries[key]; ok {
		c.stats.Hits++
		if e.found {
			return e.value
		}
		return c.settings.Defaults[kind]
	}
	c.stats.Misses++

	for _, name := range c.candidates() {
		if v, ok := c.locales[name][kind]; ok {
			c.entries[key] = cacheEntry{value: v, found: true}
			return v
		}
	}
	c.entries[key] = cacheEntry{}
	return c.settings.Defaults[kind]
}

// monthNames returns the month names of the active locale, if it has its
// own. Names are not cached; the table is static.
func (c *Cache) monthNames() ([12]string, bool) {
	if !c.settings.UseL10N {
		return [12]string{}, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, name := range c.candidates() {
		if names, ok := monthNames[name]; ok {
			return names, true
		}
	}
	return [12]string{}, false
}

// candidates lists the table keys tried for the active locale.
func (c *Cache) candidates() []string {
	full := c.locale.String()
	base, conf := c.locale.Base()
	if conf == language.No || base.String() == full {
		return []string{full}
	}
	return []string{full, base.String()}
}
