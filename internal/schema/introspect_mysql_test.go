package schema

import (
	"context"
	"testing"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/database/dbtest"
	"github.com/koustreak/dbscope/internal/errs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var showIndexColumns = []string{"Table", "Non_unique", "Key_name", "Seq_in_index", "Column_name"}

func newShopMySQL(db *dbtest.DB) *MySQLIntrospector {
	return NewMySQL(namedDB{DB: db, name: "shop"})
}

func TestMySQL_ListVisibleTables(t *testing.T) {
	db := dbtest.New(database.DialectMySQL).
		OnQuery("FROM information_schema.tables", []string{"table_schema", "table_name"},
			[]any{"shop", "customers"}, []any{"shop", "orders"})

	tables, err := newShopMySQL(db).ListVisibleTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []database.QName{
		{Schema: "shop", Table: "customers", DBFormat: true},
		{Schema: "shop", Table: "orders", DBFormat: true},
	}, tables)

	calls := db.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].SQL, "WHERE table_schema IN (?)")
	assert.Equal(t, []any{"shop"}, calls[0].Args)
}

func TestMySQL_ListSchemas(t *testing.T) {
	db := dbtest.New(database.DialectMySQL).
		OnQuery("SHOW DATABASES", []string{"Database"}, []any{"information_schema"}, []any{"shop"})

	schemas, err := newShopMySQL(db).ListSchemas(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"information_schema", "shop"}, schemas)
}

func TestMySQL_DescribeColumns(t *testing.T) {
	db := dbtest.New(database.DialectMySQL).
		OnProbe("FROM `shop`.`customers` LIMIT 1",
			database.ColumnDesc{Name: "id", TypeName: "INT", Nullable: false},
			database.ColumnDesc{Name: "code", TypeName: "CHAR", Nullable: true},
			database.ColumnDesc{Name: "email", TypeName: "VARCHAR", Nullable: true}).
		OnQuery("information_schema.columns", []string{"column_name", "character_maximum_length", "is_nullable"},
			[]any{"id", nil, "NO"}, []any{"code", int64(15), "YES"}, []any{"email", int64(100), "NO"})
	m := newShopMySQL(db)

	cols, err := m.DescribeColumns(context.Background(), database.Table("customers"))
	require.NoError(t, err)
	require.Len(t, cols, 3)
	assert.False(t, cols[0].Nullable)
	assert.Nil(t, cols[0].Length)
	assert.True(t, cols[1].Nullable)
	require.NotNil(t, cols[1].Length)
	assert.False(t, cols[2].Nullable, "catalog NOT NULL wins over the driver report")
	assert.Equal(t, int64(100), *cols[2].Length)

	ft, err := m.MapType(cols[1])
	require.NoError(t, err)
	assert.Equal(t, FieldType{Kind: KindChar, MaxLength: 15}, ft)
}

func TestMySQL_ListForeignKeys(t *testing.T) {
	db := dbtest.New(database.DialectMySQL).
		OnQuery("information_schema.key_column_usage",
			[]string{"column_name", "referenced_table_schema", "referenced_table_name", "referenced_column_name"},
			[]any{"customer_id", "shop", "customers", "id"})

	fks, err := newShopMySQL(db).ListForeignKeys(context.Background(), database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, []ForeignKey{{
		Column:       "customer_id",
		Target:       database.QName{Schema: "shop", Table: "customers", DBFormat: true},
		TargetColumn: "id",
	}}, fks)
	assert.False(t, db.Called("SHOW CREATE TABLE"))
}

func TestMySQL_ListForeignKeys_LegacyFallback(t *testing.T) {
	ddl := "CREATE TABLE `orders` (\n" +
		"  `id` int(11) NOT NULL AUTO_INCREMENT,\n" +
		"  `customer_id` int(11) NOT NULL,\n" +
		"  PRIMARY KEY (`id`),\n" +
		"  CONSTRAINT `orders_ibfk_1` FOREIGN KEY (`customer_id`) REFERENCES `customers` (`id`),\n" +
		"  CONSTRAINT `orders_ibfk_2` FOREIGN KEY (`rep_id`) REFERENCES `crm`.`staff` (`badge`)\n" +
		") ENGINE=InnoDB"

	db := dbtest.New(database.DialectMySQL).
		OnError("information_schema.key_column_usage",
			errs.New(errs.ErrKindQueryFailed, "Unknown table 'KEY_COLUMN_USAGE'")).
		OnQuery("SHOW CREATE TABLE `shop`.`orders`", []string{"Table", "Create Table"}, []any{"orders", ddl})

	fks, err := newShopMySQL(db).ListForeignKeys(context.Background(), database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, []ForeignKey{
		{Column: "customer_id", Target: database.QName{Schema: "shop", Table: "customers", DBFormat: true}, TargetColumn: "id"},
		{Column: "rep_id", Target: database.QName{Schema: "crm", Table: "staff", DBFormat: true}, TargetColumn: "badge"},
	}, fks)
	assert.True(t, db.Called("SHOW CREATE TABLE"))
}

func TestMySQL_ListForeignKeys_NoFallbackOnOtherErrors(t *testing.T) {
	for _, kind := range []errs.ErrKind{errs.ErrKindConnectionFailed, errs.ErrKindUnknown, errs.ErrKindPermissionDenied} {
		t.Run(kind.String(), func(t *testing.T) {
			db := dbtest.New(database.DialectMySQL).
				OnError("information_schema.key_column_usage", errs.New(kind, "catalog read failed"))

			_, err := newShopMySQL(db).ListForeignKeys(context.Background(), database.Table("orders"))
			require.Error(t, err)
			assert.Equal(t, kind, errs.KindOf(err))
			assert.False(t, db.Called("SHOW CREATE TABLE"))
		})
	}
}

func TestMySQL_ListIndexes(t *testing.T) {
	db := dbtest.New(database.DialectMySQL).
		OnQuery("SHOW INDEX FROM `shop`.`orders`", showIndexColumns,
			[]any{"orders", int64(0), "PRIMARY", int64(1), "id"},
			[]any{"orders", int64(0), "uniq_customer_total", int64(1), "customer_id"},
			[]any{"orders", int64(0), "uniq_customer_total", int64(2), "total"},
			[]any{"orders", []byte("0"), "uniq_ref", []byte("1"), "ref"},
			[]any{"orders", int64(1), "idx_created", int64(1), "created_at"},
			[]any{"orders", int64(1), "idx_expr", int64(1), nil},
		)

	idx, err := newShopMySQL(db).ListIndexes(context.Background(), database.Table("orders"))
	require.NoError(t, err)
	assert.Equal(t, map[string]IndexInfo{
		"id":         {PrimaryKey: true, Unique: true},
		"ref":        {Unique: true},
		"created_at": {},
	}, idx)
	assert.NotContains(t, idx, "customer_id", "leading column of a composite unique index")
}
