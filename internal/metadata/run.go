package metadata

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// FailureNote is logged when an inspection run stops on an error.
const FailureNote = "Script failed due to error condition."

// Run inspects items in order and writes the full report. It stops at the first item that
// can't be read or parsed; blocks already written stay in the report.
func Run(ctx context.Context, src Source, items []string, rw *ReportWriter, now time.Time, logger zerolog.Logger) ([]*Result, error) {
	logger.Info().Msg("Writing report header...")
	rw.Header(now)

	var results []*Result
	for _, name := range items {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		logger.Info().Msgf("Starting on %s...", name)
		item, err := src.Item(ctx, name)
		if err != nil {
			logger.Error().Err(err).Msg(FailureNote)
			return results, err
		}
		res, err := Inspect(item)
		if err != nil {
			logger.Error().Err(err).Msg(FailureNote)
			return results, err
		}
		rw.Item(res)
		results = append(results, res)
		logger.Debug().Str("item", res.Item).Int("errors", res.Errors()).Msg("inspected")
	}
	rw.Footer()
	return results, rw.Err()
}
