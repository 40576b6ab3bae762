package schema

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/koustreak/dbscope/internal/database"
	"github.com/koustreak/dbscope/internal/errs"
)

// ResolveRelations maps the ordinal of every foreign-key column of table to
// the ordinal of the referenced column and the referenced table. A column
// that cannot be found on either side yields an errs.ErrKindLookup error.
func ResolveRelations(ctx context.Context, i Introspector, table database.QName) (map[int]Relation, error) {
	table = i.ResolveQName(table, true)

	cols, err := i.DescribeColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	fks, err := i.ListForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	return resolveRelations(ctx, i, table, cols, fks)
}

func resolveRelations(ctx context.Context, i Introspector, table database.QName, cols []database.ColumnDesc, fks []ForeignKey) (map[int]Relation, error) {
	own := ordinals(cols)
	targets := map[database.QName]map[string]int{table: own}

	relations := make(map[int]Relation, len(fks))
	for _, fk := range fks {
		src, ok := own[fk.Column]
		if !ok {
			return nil, errs.Newf(errs.ErrKindLookup, "column %q of %s not found", fk.Column, table)
		}

		target := i.ResolveQName(fk.Target, true)
		targetCols, ok := targets[target]
		if !ok {
			desc, err := i.DescribeColumns(ctx, target)
			if err != nil {
				if errs.IsNotFound(err) {
					return nil, errs.Wrap(errs.ErrKindLookup, fmt.Sprintf("referenced table %s not found", target), err)
				}
				return nil, err
			}
			targetCols = ordinals(desc)
			targets[target] = targetCols
		}

		dst, ok := targetCols[fk.TargetColumn]
		if !ok {
			return nil, errs.Newf(errs.ErrKindLookup, "referenced column %q of %s not found", fk.TargetColumn, target)
		}
		relations[src] = Relation{TargetOrdinal: dst, Target: target}
	}
	return relations, nil
}

func ordinals(cols []database.ColumnDesc) map[string]int {
	m := make(map[string]int, len(cols))
	for i, c := range cols {
		m[c.Name] = i
	}
	return m
}

// PrimaryKeyColumn returns the single-column primary key of table, or ""
// when it has none. Columns are examined in name order.
func PrimaryKeyColumn(ctx context.Context, i Introspector, table database.QName) (string, error) {
	indexes, err := i.ListIndexes(ctx, table)
	if err != nil {
		return "", err
	}
	return primaryKey(indexes), nil
}

func primaryKey(indexes map[string]IndexInfo) string {
	names := make([]string, 0, len(indexes))
	for name := range indexes {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if indexes[name].PrimaryKey {
			return name
		}
	}
	return ""
}

// TableExists reports whether table is among the visible tables of its
// schema.
func TableExists(ctx context.Context, i Introspector, table database.QName) (bool, error) {
	if err := table.Validate(); err != nil {
		return false, err
	}
	table = i.ResolveQName(table, true)

	var candidates []string
	if table.Schema != "" {
		candidates = append(candidates, table.Schema)
	}
	tables, err := i.ListVisibleTables(ctx, candidates...)
	if err != nil {
		return false, err
	}
	for _, t := range tables {
		if t.Table == table.Table && (table.Schema == "" || t.Schema == table.Schema) {
			return true, nil
		}
	}
	return false, nil
}

// InspectTable gathers columns, field types, keys, indexes and relations of
// one table. Columns whose native type has no portable kind are listed in
// UnmappedTypes instead of failing the call.
func InspectTable(ctx context.Context, i Introspector, table database.QName) (*TableInfo, error) {
	if err := table.Validate(); err != nil {
		return nil, err
	}
	table = i.ResolveQName(table, true)

	cols, err := i.DescribeColumns(ctx, table)
	if err != nil {
		return nil, err
	}
	fks, err := i.ListForeignKeys(ctx, table)
	if err != nil {
		return nil, err
	}
	indexes, err := i.ListIndexes(ctx, table)
	if err != nil {
		return nil, err
	}
	relations, err := resolveRelations(ctx, i, table, cols, fks)
	if err != nil {
		return nil, err
	}

	info := &TableInfo{
		Name:        table,
		Columns:     make([]ColumnInfo, len(cols)),
		PrimaryKey:  primaryKey(indexes),
		ForeignKeys: fks,
		Indexes:     indexes,
		Relations:   relations,
	}
	for n, col := range cols {
		ci := ColumnInfo{
			ColumnDesc: col,
			Ordinal:    n,
			PrimaryKey: indexes[col.Name].PrimaryKey,
			Unique:     indexes[col.Name].Unique,
		}
		ft, err := i.MapType(col)
		switch {
		case err == nil:
			ci.Field = &ft
		case errs.IsUnknownType(err):
			info.UnmappedTypes = append(info.UnmappedTypes, col.Name)
		default:
			return nil, err
		}
		info.Columns[n] = ci
	}
	return info, nil
}

// InspectSchema inspects every visible table of the search path.
func InspectSchema(ctx context.Context, i Introspector, candidates ...string) (*Snapshot, error) {
	tables, err := i.ListVisibleTables(ctx, candidates...)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{
		Backend:    i.Backend(),
		SearchPath: candidates,
		TakenAt:    time.Now().UTC(),
		Tables:     make([]TableInfo, 0, len(tables)),
	}
	for _, t := range tables {
		info, err := InspectTable(ctx, i, t)
		if err != nil {
			return nil, fmt.Errorf("inspecting table %q: %w", t.String(), err)
		}
		snap.Tables = append(snap.Tables, *info)
	}
	return snap, nil
}
