package schema

import (
	"context"
	"strings"
	"testing"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/database/sqlite"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var shopDDL = []string{
	`CREATE TABLE "customers" (
		"id" INTEGER PRIMARY KEY,
		"email" varchar(80) NOT NULL UNIQUE,
		"name" text,
		"region" char(2),
		"code" text,
		UNIQUE ("region", "code")
	)`,
	`CREATE TABLE "orders" (
		"id" INTEGER PRIMARY KEY AUTOINCREMENT,
		"customer_id" integer NOT NULL REFERENCES "customers" ("id"),
		"total" decimal(10,2),
		"placed_at" datetime
	)`,
	`CREATE INDEX "orders_placed_at" ON "orders" ("placed_at")`,
}

func openShop(t *testing.T, extra ...string) *SQLiteIntrospector {
	t.Helper()
	ctx := context.Background()

	db, err := sqlite.Open(ctx, ":memory:")
	require.NoError(t, err)
	t.Cleanup(db.Close)

	for _, stmt := range append(shopDDL, extra...) {
		_, err := db.Exec(ctx, stmt)
		require.NoError(t, err)
	}
	return NewSQLite(db)
}

func TestSQLite_ListVisibleTables(t *testing.T) {
	s := openShop(t)

	tables, err := s.ListVisibleTables(context.Background(), "ignored")
	require.NoError(t, err)
	assert.Equal(t, []database.QName{
		{Table: "customers", DBFormat: true},
		{Table: "orders", DBFormat: true},
	}, tables, "sqlite_sequence must not be listed")

	schemas, err := s.ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Contains(t, schemas, "main")
}

func TestSQLite_DescribeColumns(t *testing.T) {
	s := openShop(t)

	cols, err := s.DescribeColumns(context.Background(), database.QName{Schema: "main", Table: "customers"})
	require.NoError(t, err)
	require.Len(t, cols, 5)

	assert.Equal(t, database.ColumnDesc{Name: "email", TypeName: "varchar(80)"}, cols[1])
	assert.Equal(t, "name", cols[2].Name)
	assert.True(t, cols[2].Nullable)
	assert.True(t, strings.EqualFold("text", cols[2].TypeName), "declared type %q", cols[2].TypeName)

	ft, err := s.MapType(cols[1])
	require.NoError(t, err)
	assert.Equal(t, FieldType{Kind: KindChar, MaxLength: 80}, ft)

	_, err = s.DescribeColumns(context.Background(), database.Table("missing"))
	require.Error(t, err)
	assert.True(t, errs.IsNotFound(err))
}

func TestSQLite_ForeignKeysAndRelations(t *testing.T) {
	ctx := context.Background()
	s := openShop(t)

	fks, err := s.ListForeignKeys(ctx, database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, []ForeignKey{{
		Column:       "customer_id",
		Target:       database.QName{Table: "customers", DBFormat: true},
		TargetColumn: "id",
	}}, fks)

	rel, err := ResolveRelations(ctx, s, database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, map[int]Relation{
		1: {TargetOrdinal: 0, Target: database.QName{Table: "customers", DBFormat: true}},
	}, rel)
}

func TestSQLite_ListIndexes(t *testing.T) {
	ctx := context.Background()
	s := openShop(t)

	idx, err := s.ListIndexes(ctx, database.Table("customers"))
	require.NoError(t, err)
	assert.Equal(t, map[string]IndexInfo{
		"id":    {PrimaryKey: true, Unique: true},
		"email": {Unique: true},
	}, idx, "the composite (region, code) key marks neither column unique")

	idx, err = s.ListIndexes(ctx, database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, map[string]IndexInfo{
		"id":        {PrimaryKey: true, Unique: true},
		"placed_at": {},
	}, idx)
}

func TestSQLite_InspectSchema(t *testing.T) {
	s := openShop(t)

	snap, err := InspectSchema(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, database.DriverSQLite, snap.Backend)
	require.Len(t, snap.Tables, 2)

	orders := snap.Tables[1]
	assert.Equal(t, "orders", orders.Name.Table)
	assert.Equal(t, "id", orders.PrimaryKey)
	assert.Equal(t, []string{"total"}, orders.UnmappedTypes)
	assert.Nil(t, orders.Columns[2].Field)
	require.NotNil(t, orders.Columns[3].Field)
	assert.Equal(t, KindDateTime, orders.Columns[3].Field.Kind)
	assert.True(t, orders.Columns[0].PrimaryKey)
	assert.Contains(t, orders.Relations, 1)
}

func TestSQLite_BrokenReference(t *testing.T) {
	s := openShop(t, `CREATE TABLE "refunds" (
		"id" INTEGER PRIMARY KEY,
		"order_id" integer REFERENCES "orders" ("order_no")
	)`, `CREATE TABLE "notes" (
		"id" INTEGER PRIMARY KEY,
		"author_id" integer REFERENCES "authors" ("id")
	)`)

	_, err := ResolveRelations(context.Background(), s, database.Table("refunds"))
	require.Error(t, err)
	assert.True(t, errs.IsLookup(err))

	_, err = ResolveRelations(context.Background(), s, database.Table("notes"))
	require.Error(t, err)
	assert.True(t, errs.IsLookup(err))
}

func TestSQLite_UnquotedReferenceSkipped(t *testing.T) {
	ctx := context.Background()
	s := openShop(t, `CREATE TABLE "invoices" (
		"id" INTEGER PRIMARY KEY,
		order_id integer REFERENCES "orders" ("id"),
		customer_id integer,
		CONSTRAINT "fk_customer" FOREIGN KEY (customer_id) REFERENCES "customers" ("id")
	)`)

	fks, err := s.ListForeignKeys(ctx, database.Table("invoices"))
	require.NoError(t, err)
	assert.Empty(t, fks)

	snap, err := InspectSchema(ctx, s)
	require.NoError(t, err)
	names := make([]string, len(snap.Tables))
	for i, tbl := range snap.Tables {
		names[i] = tbl.Name.Table
	}
	assert.Contains(t, names, "invoices")
}

func TestSQLite_TableExists(t *testing.T) {
	ctx := context.Background()
	s := openShop(t)

	ok, err := TableExists(ctx, s, database.Table("orders"))
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = TableExists(ctx, s, database.Table("invoices"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = TableExists(ctx, s, database.QName{})
	assert.True(t, errs.IsInvalidInput(err))
}
