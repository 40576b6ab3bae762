package oracle

import (
	"context"
	"database/sql"
	"testing"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
)

func TestClassifyOraCode(t *testing.T) {
	assert.Equal(t, errs.ErrKindNotFound, classifyOraCode(942))
	assert.Equal(t, errs.ErrKindPermissionDenied, classifyOraCode(1031))
	assert.Equal(t, errs.ErrKindConnectionFailed, classifyOraCode(12541))
	assert.Equal(t, errs.ErrKindTimeout, classifyOraCode(1013))
	assert.Equal(t, errs.ErrKindQueryFailed, classifyOraCode(904))
}

func TestMapError(t *testing.T) {
	assert.Nil(t, mapError(nil, "x"))
	assert.True(t, errs.IsNotFound(mapError(sql.ErrNoRows, "x")))
	assert.True(t, errs.IsTimeout(mapError(context.DeadlineExceeded, "x")))
}

func TestUserOf(t *testing.T) {
	assert.Equal(t, "scott", userOf(&database.Config{User: "SCOTT"}))
	assert.Equal(t, "hr", userOf(&database.Config{DSN: "hr/secret@localhost:1521/XEPDB1"}))
}
