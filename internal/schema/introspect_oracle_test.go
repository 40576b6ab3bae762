package schema

import (
	"context"
	"testing"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/database/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newScott(db *dbtest.DB) *OracleIntrospector {
	return NewOracle(userDB{DB: db, user: "SCOTT"})
}

func TestOracle_ListVisibleTables(t *testing.T) {
	db := dbtest.New(database.DialectOracle).
		OnQuery("FROM ALL_TABLES", []string{"OWNER", "TABLE_NAME"},
			[]any{"HR", "EMPLOYEES"}, []any{"SCOTT", "EMP"})

	tables, err := newScott(db).ListVisibleTables(context.Background(), "hr")
	require.NoError(t, err)
	assert.Equal(t, []database.QName{
		{Schema: "hr", Table: "employees", DBFormat: true},
		{Schema: "scott", Table: "emp", DBFormat: true},
	}, tables)

	calls := db.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SQL, "WHERE OWNER IN (:1)")
	assert.Equal(t, []any{"HR"}, calls[0].Args)
}

func TestOracle_ListVisibleTables_DefaultsToUser(t *testing.T) {
	db := dbtest.New(database.DialectOracle).
		OnQuery("FROM ALL_TABLES", []string{"OWNER", "TABLE_NAME"}, []any{"SCOTT", "DEPT"})

	_, err := newScott(db).ListVisibleTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []any{"SCOTT"}, db.Calls()[0].Args)
}

func TestOracle_ListSchemas(t *testing.T) {
	db := dbtest.New(database.DialectOracle).
		OnQuery("FROM ALL_USERS", []string{"USERNAME"}, []any{"HR"}, []any{"SCOTT"})

	schemas, err := newScott(db).ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"hr", "scott"}, schemas)
}

func TestOracle_DescribeColumns(t *testing.T) {
	db := dbtest.New(database.DialectOracle).
		OnProbe(`SELECT * FROM "SCOTT"."EMP" WHERE ROWNUM < 2`,
			database.ColumnDesc{Name: "EMPNO", TypeName: "NUMBER", Precision: ptr(4), Scale: ptr(0)},
			database.ColumnDesc{Name: "ENAME", TypeName: "VARCHAR2", Length: ptr(10), Nullable: true},
			database.ColumnDesc{Name: "JOB", TypeName: "CHAR", Length: ptr(15), Nullable: true},
			database.ColumnDesc{Name: "SAL", TypeName: "NUMBER", Precision: ptr(7), Scale: ptr(2), Nullable: true},
			database.ColumnDesc{Name: "HIREDATE", TypeName: "DATE", Nullable: true})
	o := newScott(db)

	cols, err := o.DescribeColumns(context.Background(), database.Table("emp"))
	require.NoError(t, err)
	require.Len(t, cols, 5)
	assert.Equal(t, "empno", cols[0].Name)
	assert.Equal(t, "hiredate", cols[4].Name)

	var kinds []FieldKind
	for _, c := range cols {
		ft, err := o.MapType(c)
		require.NoError(t, err)
		kinds = append(kinds, ft.Kind)
	}
	assert.Equal(t, []FieldKind{KindInteger, KindChar, KindChar, KindDecimal, KindDate}, kinds)
}

func TestOracle_ForeignKeysAndIndexes(t *testing.T) {
	ctx := context.Background()
	db := dbtest.New(database.DialectOracle).
		OnQueryArgs("FROM ALL_CONSTRAINTS c JOIN ALL_CONS_COLUMNS ca", []any{"SCOTT", "EMP"},
			[]string{"column_name", "owner", "table_name", "r_column_name"},
			[]any{"deptno", "scott", "dept", "deptno"}).
		OnQueryArgs("FROM ALL_IND_COLUMNS ic", []any{"SCOTT", "EMP"},
			[]string{"column_name", "is_primary_key", "is_unique"},
			[]any{"empno", int64(1), int64(1)}, []any{"ename", int64(0), int64(0)})
	o := newScott(db)

	fks, err := o.ListForeignKeys(ctx, database.Table("EMP"))
	require.NoError(t, err)
	assert.Equal(t, []ForeignKey{{
		Column:       "deptno",
		Target:       database.QName{Schema: "scott", Table: "dept", DBFormat: true},
		TargetColumn: "deptno",
	}}, fks)

	idx, err := o.ListIndexes(ctx, database.Table("emp"))
	require.NoError(t, err)
	assert.Equal(t, map[string]IndexInfo{
		"empno": {PrimaryKey: true, Unique: true},
		"ename": {},
	}, idx)
	assert.True(t, db.Called("x.INDEX_NAME = ic.INDEX_NAME) = 1"), "composite indexes are filtered in the catalog query")

	pk, err := PrimaryKeyColumn(ctx, o, database.Table("emp"))
	require.NoError(t, err)
	assert.Equal(t, "empno", pk)
}
