package formats

// builtinLocales holds the formats shipped with dbscope. Locales missing a
// kind fall back to their base language and then to Settings.Defaults.
var builtinLocales = map[string]map[Kind]string{
	"en": {
		KindDate:              "Jan. 2, 2006",
		KindDateTime:          "Jan. 2, 2006, 3:04 PM",
		KindTime:              "3:04 PM",
		KindShortDate:         "01/02/2006",
		KindDecimalSeparator:  ".",
		KindThousandSeparator: ",",
		KindNumberGrouping:    "3",
	},
	"en-GB": {
		KindDate:      "2 Jan 2006",
		KindDateTime:  "2 Jan 2006, 15:04",
		KindTime:      "15:04",
		KindShortDate: "02/01/2006",
	},
	"de": {
		KindDate:              "2. January 2006",
		KindDateTime:          "2. January 2006 15:04",
		KindTime:              "15:04",
		KindShortDate:         "02.01.2006",
		KindDecimalSeparator:  ",",
		KindThousandSeparator: ".",
		KindNumberGrouping:    "3",
	},
	"fr": {
		KindDate:              "2 January 2006",
		KindDateTime:          "2 January 2006 15:04",
		KindTime:              "15:04",
		KindShortDate:         "02/01/2006",
		KindDecimalSeparator:  ",",
		KindThousandSeparator: " ",
		KindNumberGrouping:    "3",
	},
	"pt": {
		KindDate:              "2 de January de 2006",
		KindShortDate:         "02/01/2006",
		KindDecimalSeparator:  ",",
		KindThousandSeparator: ".",
		KindNumberGrouping:    "3",
	},
	"pt-BR": {
		KindDateTime: "2 de January de 2006 às 15:04",
		KindTime:     "15:04",
	},
	"ja": {
		KindDate:              "2006年1月2日",
		KindDateTime:          "2006年1月2日15:04",
		KindTime:              "15:04",
		KindShortDate:         "2006/01/02",
		KindDecimalSeparator:  ".",
		KindThousandSeparator: ",",
	},
}

// monthNames spells out "January" layouts for non-English locales.
var monthNames = map[string][12]string{
	"de": {"Januar", "Februar", "März", "April", "Mai", "Juni",
		"Juli", "August", "September", "Oktober", "November", "Dezember"},
	"fr": {"janvier", "février", "mars", "avril", "mai", "juin",
		"juillet", "août", "septembre", "octobre", "novembre", "décembre"},
	"pt": {"janeiro", "fevereiro", "março", "abril", "maio", "junho",
		"julho", "agosto", "setembro", "outubro", "novembro", "dezembro"},
}
