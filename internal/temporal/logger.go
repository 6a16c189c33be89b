package temporal

import (
	"fmt"

	"github.com/rs/zerolog"
	"go.temporal.io/sdk/log"
)

// Logger adapts zerolog to the Temporal SDK logger.
type Logger struct {
	z zerolog.Logger
}

var _ log.Logger = (*Logger)(nil)

// NewLogger wraps z for use by the Temporal client and worker.
func NewLogger(z zerolog.Logger) *Logger {
	return &Logger{z: z.With().Str("component", "temporal").Logger()}
}

func (l *Logger) Debug(msg string, keyvals ...interface{}) { l.emit(l.z.Debug(), msg, keyvals) }
func (l *Logger) Info(msg string, keyvals ...interface{})  { l.emit(l.z.Info(), msg, keyvals) }
func (l *Logger) Warn(msg string, keyvals ...interface{})  { l.emit(l.z.Warn(), msg, keyvals) }
func (l *Logger) Error(msg string, keyvals ...interface{}) { l.emit(l.z.Error(), msg, keyvals) }

func (l *Logger) emit(e *zerolog.Event, msg string, keyvals []interface{}) {
	for i := 0; i < len(keyvals); i += 2 {
		key := fmt.Sprint(keyvals[i])
		if i+1 == len(keyvals) {
			e = e.Interface("extra", keyvals[i])
			break
		}
		if err, ok := keyvals[i+1].(error); ok {
			e = e.AnErr(key, err)
			continue
		}
		e = e.Interface(key, keyvals[i+1])
	}
	e.Msg(msg)
}
