package protocol

import (
	"context"
	"fmt"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

func readmeSchema() *gdb.Schema {
	return &gdb.Schema{Fields: []gdb.Field{
		{Name: "PROTOCOL", Type: gdb.FieldString, Length: 100, Nullable: true},
		{Name: "DB_TYPE", Type: gdb.FieldString, Length: 10, Nullable: true},
		{Name: "CONSTRAINTS", Type: gdb.FieldString, Length: 1000, Nullable: true},
		{Name: "NOTE", Type: gdb.FieldString, Length: 1000, Nullable: true},
	}}
}

func parametersSchema() *gdb.Schema {
	return &gdb.Schema{Fields: []gdb.Field{
		{Name: "OBJECT_NAME", Type: gdb.FieldString, Length: 200, Nullable: true},
		{Name: "IS_FDATASET", Type: gdb.FieldSmallInteger, Nullable: true},
		{Name: "DIRECTIVE", Type: gdb.FieldString, Length: 50, Nullable: true},
		{Name: "SORT_FIELD", Type: gdb.FieldString, Length: 100, Nullable: true},
		{Name: "NOTE", Type: gdb.FieldString, Length: 1000, Nullable: true},
	}}
}

func exchangeLogSchema() *gdb.Schema {
	return &gdb.Schema{Fields: []gdb.Field{
		{Name: "DATE", Type: gdb.FieldDate, Nullable: true},
		{Name: "NOTE", Type: gdb.FieldString, Length: 1000, Nullable: true},
	}}
}

// Provision creates the protocol tables a geodatabase of the given role needs and
// attributes A_README when it is empty. Existing tables are kept.
func Provision(ctx context.Context, ws gdb.Workspace, role Role, note string) error {
	if role != RoleHub && role != RoleSpoke {
		return fmt.Errorf("%w: got %q", ErrBadRole, role)
	}

	type table struct {
		name   string
		schema *gdb.Schema
	}
	tables := []table{{ReadmeTable, readmeSchema()}}
	if role == RoleSpoke {
		tables = append(tables, table{ParametersTable, parametersSchema()})
	} else {
		tables = append(tables, table{ExchangeLogTable, exchangeLogSchema()})
	}

	for _, t := range tables {
		_, ok, err := findTable(ctx, ws, t.name)
		if err != nil {
			return err
		}
		if ok {
			continue
		}
		if _, err := ws.CreateObject(ctx, &gdb.ObjectSpec{Name: t.name, Type: gdb.TypeTable, Schema: t.schema}); err != nil {
			return fmt.Errorf("create %s: %w", t.name, err)
		}
	}

	readme, _, err := findTable(ctx, ws, ReadmeTable)
	if err != nil {
		return err
	}
	n, err := ws.Count(ctx, readme)
	if err != nil {
		return fmt.Errorf("count %s: %w", readme, err)
	}
	if n > 0 {
		return nil
	}
	_, err = ws.Insert(ctx, readme, []gdb.Record{{
		"PROTOCOL": Name,
		"DB_TYPE":  string(role),
		"NOTE":     note,
	}})
	if err != nil {
		return fmt.Errorf("attribute %s: %w", readme, err)
	}
	return nil
}
