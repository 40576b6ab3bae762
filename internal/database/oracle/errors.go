package oracle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/godror/godror"
	"github.com/koustreak/dbscope/internal/errs"
)

// ORA- error codes the catalog readers care about.
const (
	oraTableNotFound    = 942
	oraInsufficientPriv = 1031
	oraInvalidLogon     = 1017
	oraNoListener       = 12541
	oraUnknownService   = 12514
	oraConnectTimeout   = 12170
	oraUserCancel       = 1013
)

// mapError translates godror errors into *errs.Error.
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

	if oraErr, ok := godror.AsOraErr(err); ok {
		return errs.Wrap(
			classifyOraCode(oraErr.Code()),
			fmt.Sprintf("%s: ORA-%05d", msg, oraErr.Code()),
			err,
		)
	}

	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}

// classifyOraCode maps ORA- numbers to ErrKind.
func classifyOraCode(code int) errs.ErrKind {
	switch code {
	case oraTableNotFound:
		return errs.ErrKindNotFound
	case oraInsufficientPriv, oraInvalidLogon:
		return errs.ErrKindPermissionDenied
	case oraNoListener, oraUnknownService:
		return errs.ErrKindConnectionFailed
	case oraConnectTimeout, oraUserCancel:
		return errs.ErrKindTimeout
	default:
		return errs.ErrKindQueryFailed
	}
}
