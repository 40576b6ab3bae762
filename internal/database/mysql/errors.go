package mysql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"github.com/koustreak/dbscope/internal/errs"
)

// MySQL error numbers
// Full list: https://dev.mysql.com/doc/mysql-errors/8.0/en/server-error-reference.html
const (
	errTooManyConns      = 1040
	errDBAccessDenied    = 1044
	errAccessDenied      = 1045
	errNoDatabase        = 1046
	errUnknownDatabase   = 1049
	errBadField          = 1054
	errParse             = 1064
	errUnknownTable      = 1109
	errTableAccessDenied = 1142
	errNoSuchTable       = 1146
	errUserLimitReached  = 1203
	errSpecificAccess    = 1227
	errConnRefused       = 2003
)

// mapError translates go-sql-driver/mysql errors into *errs.Error.
func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}

	if errors.Is(err, sql.ErrNoRows) {
		return errs.Wrap(errs.ErrKindNotFound, msg, err)
	}

	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return errs.Wrap(
			classifyMySQLCode(mysqlErr.Number),
			fmt.Sprintf("%s: %s", msg, mysqlErr.Message),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyMySQLCode maps MySQL error numbers to ErrKind.
func classifyMySQLCode(code uint16) errs.ErrKind {
	switch code {
	case errDBAccessDenied, errAccessDenied, errTableAccessDenied, errSpecificAccess:
		return errs.ErrKindPermissionDenied
	case errTooManyConns, errUserLimitReached, errConnRefused:
		return errs.ErrKindConnectionFailed
	case errNoDatabase, errUnknownDatabase, errBadField, errParse, errUnknownTable, errNoSuchTable:
		// Servers without information_schema answer catalog queries with
		// one of these; the foreign key lookup falls back on them.
		return errs.ErrKindQueryFailed
	default:
		return errs.ErrKindUnknown
	}
}
