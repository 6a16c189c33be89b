// Package all registers every workspace kind with the default gdb registry.
//
// Import for side effects:
//
//	import _ "github.com/VCGI/VT-DataRail-Tools/internal/gdb/all"
package all

import (
	// Workspace kinds
	_ "github.com/VCGI/VT-DataRail-Tools/internal/gdb/filegdb"
	_ "github.com/VCGI/VT-DataRail-Tools/internal/gdb/postgres"
)
