package schema

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/koustreak/dbscope/internal/database"
)

// DDLParser extracts foreign keys from CREATE TABLE text for backends whose
// catalogs cannot report them (SQLite, and MySQL servers without
// information_schema). Only quoted identifiers are recognised.
type DDLParser struct {
	Quote rune
	re    *regexp.Regexp
}

var (
	// BacktickParser reads MySQL SHOW CREATE TABLE output.
	BacktickParser = NewDDLParser('`')

	// DoubleQuoteParser reads SQLite sqlite_master.sql.
	DoubleQuoteParser = NewDDLParser('"')
)

// NewDDLParser builds a parser for identifiers quoted with quote.
//
// The source column must open a definition (the text start, or right after
// "(" or ","), which covers both `"col" type REFERENCES ...` and
// `FOREIGN KEY ("col") REFERENCES ...`. A quoted table or constraint name
// in front of an unquoted column therefore never becomes the source.
func NewDDLParser(quote rune) *DDLParser {
	q := regexp.QuoteMeta(string(quote))
	ident := fmt.Sprintf(`%s([^%s]+)%s`, q, q, q)
	pattern := fmt.Sprintf(`(?i)(?:^|[(,])\s*%s[^,]*?\bREFERENCES\s+%s(?:\s*\.\s*%s)?\s*\(\s*%s\s*\)`,
		ident, ident, ident, ident)
	return &DDLParser{Quote: quote, re: regexp.MustCompile(pattern)}
}

// ParseForeignKeys returns one edge per `src ... REFERENCES tbl (col)`
// fragment, in text order. Fragments that do not match, including composite
// constraints and unquoted identifiers, are skipped. It never fails.
func (p *DDLParser) ParseForeignKeys(ddl string) []ForeignKey {
	var fks []ForeignKey
	for _, m := range p.re.FindAllStringSubmatch(ddl, -1) {
		target := database.QName{Table: m[2], DBFormat: true}
		if m[3] != "" {
			target.Schema, target.Table = m[2], m[3]
		} else if schema, table, ok := strings.Cut(m[2], "."); ok {
			target.Schema, target.Table = schema, table
		}
		fks = append(fks, ForeignKey{
			Column:       m[1],
			Target:       target,
			TargetColumn: m[4],
		})
	}
	return fks
}
