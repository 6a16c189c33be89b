// Package protocol reads and writes the tables of the EGC Geospatial Data Exchange
// Protocol: A_README (role of a geodatabase), A_XCHANGE_PARAMETERS (spoke directives)
// and A_XCHANGE_LOG (hub exchange log).
package protocol

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Name is the required A_README PROTOCOL value.
const Name = "EGC GEOSPATIAL DATA EXCHANGE PROTOCOL"

const (
	ReadmeTable      = "A_README"
	ParametersTable  = "A_XCHANGE_PARAMETERS"
	ExchangeLogTable = "A_XCHANGE_LOG"
)

var (
	ErrNoReadme      = errors.New("geodatabase doesn't have an A_README table")
	ErrEmptyReadme   = errors.New("A_README table has no rows")
	ErrWrongProtocol = errors.New("A_README table isn't attributed for " + Name)
	ErrBadRole       = errors.New("A_README DB_TYPE should be 'hub' or 'spoke'")
	ErrNoParameters  = errors.New("spoke geodatabase doesn't have an A_XCHANGE_PARAMETERS table")
	ErrNoExchangeLog = errors.New("hub geodatabase doesn't have an A_XCHANGE_LOG table")
)

// Role is the part a geodatabase plays in the exchange.
type Role string

const (
	RoleHub   Role = "hub"
	RoleSpoke Role = "spoke"
)

// ParseRole accepts HUB or SPOKE in any case.
func ParseRole(raw string) (Role, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "HUB":
		return RoleHub, nil
	case "SPOKE":
		return RoleSpoke, nil
	}
	return "", fmt.Errorf("%w: got %q", ErrBadRole, raw)
}

// IsProtocolTable reports whether name (with or without prefix) is a protocol table.
// Protocol tables never travel as freight.
func IsProtocolTable(name string) bool {
	switch strings.ToUpper(gdb.BaseName(name)) {
	case ReadmeTable, ParametersTable, ExchangeLogTable:
		return true
	}
	return false
}

// Readme is the first A_README row.
type Readme struct {
	Table       string
	Protocol    string
	DBType      string
	Constraints string
	Note        string
	Role        Role
}

// ReadReadme finds A_README and validates its protocol and role.
func ReadReadme(ctx context.Context, ws gdb.Workspace) (*Readme, error) {
	table, ok, err := findTable(ctx, ws, ReadmeTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoReadme
	}

	it, err := ws.Read(ctx, table, "")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer it.Close()
	if !it.Next() {
		if err := it.Err(); err != nil {
			return nil, fmt.Errorf("read %s: %w", table, err)
		}
		return nil, ErrEmptyReadme
	}
	row := it.Value()

	rm := &Readme{
		Table:       table,
		Protocol:    gdb.StringValue(row, "PROTOCOL"),
		DBType:      gdb.StringValue(row, "DB_TYPE"),
		Constraints: gdb.StringValue(row, "CONSTRAINTS"),
		Note:        gdb.StringValue(row, "NOTE"),
	}
	if strings.ToUpper(strings.TrimSpace(rm.Protocol)) != Name {
		return nil, ErrWrongProtocol
	}
	if rm.Role, err = ParseRole(rm.DBType); err != nil {
		return nil, err
	}
	return rm, nil
}

// FindParameters locates A_XCHANGE_PARAMETERS. It may be empty.
func FindParameters(ctx context.Context, ws gdb.Workspace) (table string, hasRows bool, err error) {
	table, ok, err := findTable(ctx, ws, ParametersTable)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, ErrNoParameters
	}
	n, err := ws.Count(ctx, table)
	if err != nil {
		return "", false, fmt.Errorf("count %s: %w", table, err)
	}
	return table, n > 0, nil
}

// findTable returns the full name of the first table whose base name is base.
func findTable(ctx context.Context, ws gdb.Workspace, base string) (string, bool, error) {
	tables, err := ws.ListTables(ctx)
	if err != nil {
		return "", false, fmt.Errorf("list tables: %w", err)
	}
	full, ok := gdb.FindByBaseName(tables, base)
	return full, ok, nil
}

// DayOf returns the calendar day of t as midnight UTC, the precision of A_XCHANGE_LOG.DATE.
func DayOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
