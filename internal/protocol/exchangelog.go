package protocol

import (
	"context"
	"fmt"
	"time"

	"github.com/VCGI/VT-DataRail-Tools/internal/gdb"
)

// ExchangeLog appends entries to a hub's A_XCHANGE_LOG.
type ExchangeLog struct {
	ws    gdb.Workspace
	table string
}

// FindExchangeLog locates A_XCHANGE_LOG.
func FindExchangeLog(ctx context.Context, ws gdb.Workspace) (*ExchangeLog, error) {
	table, ok, err := findTable(ctx, ws, ExchangeLogTable)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNoExchangeLog
	}
	return &ExchangeLog{ws: ws, table: table}, nil
}

// Table returns the full name of the log table.
func (l *ExchangeLog) Table() string { return l.table }

// Record inserts one DATE/NOTE row dated on the calendar day of when.
func (l *ExchangeLog) Record(ctx context.Context, when time.Time, note string) error {
	_, err := l.ws.Insert(ctx, l.table, []gdb.Record{{
		"DATE": DayOf(when),
		"NOTE": note,
	}})
	if err != nil {
		return fmt.Errorf("write %s: %w", l.table, err)
	}
	return nil
}
