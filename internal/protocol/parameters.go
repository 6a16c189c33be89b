package protocol

import (
	"context"
	"fmt"
	"strings"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// Directives understood in A_XCHANGE_PARAMETERS.DIRECTIVE. Any other value means a plain load.
const (
	DirectiveStatic        = "STATIC"
	DirectiveDetectChanges = "DETECT_CHANGES"
)

// Parameter is one A_XCHANGE_PARAMETERS row.
type Parameter struct {
	ObjectName       string
	IsFeatureDataset bool
	Directive        string // trimmed, upper-cased, "" when NULL
	SortField        string // trimmed
	Note             string
}

// Static reports whether the object stays home.
func (p Parameter) Static() bool { return p.Directive == DirectiveStatic }

// DetectChanges reports whether the object travels only when it changed.
func (p Parameter) DetectChanges() bool { return p.Directive == DirectiveDetectChanges }

// ReadParameters reads every directive row in table order.
func ReadParameters(ctx context.Context, ws gdb.Workspace, table string) ([]Parameter, error) {
	it, err := ws.Read(ctx, table, "")
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	defer it.Close()

	var params []Parameter
	for it.Next() {
		row := it.Value()
		flag, _ := gdb.Lookup(row, "IS_FDATASET")
		params = append(params, Parameter{
			ObjectName:       strings.TrimSpace(gdb.StringValue(row, "OBJECT_NAME")),
			IsFeatureDataset: gdb.Truthy(flag),
			Directive:        strings.ToUpper(strings.TrimSpace(gdb.StringValue(row, "DIRECTIVE"))),
			SortField:        strings.TrimSpace(gdb.StringValue(row, "SORT_FIELD")),
			Note:             gdb.StringValue(row, "NOTE"),
		})
	}
	if err := it.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return params, nil
}
