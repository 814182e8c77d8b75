package results

import (
	"context"
	"errors"

	"github.com/justinabrahms/boardcore/internal/session"
	"github.com/rs/zerolog"
)

// LogReporter logs every finished game.
type LogReporter struct {
	Logger zerolog.Logger
}

func (r LogReporter) Report(_ context.Context, res session.Result) error {
	r.Logger.Info().
		Str("session_id", res.SessionID).
		Str("variant", string(res.Variant)).
		Str("winner", res.Winner.String()).
		Bool("draw", res.Draw).
		Str("reason", res.Reason).
		Int("moves", res.MoveCount).
		Dur("duration", res.Duration).
		Msg("Game result")
	return nil
}

// Fanout reports to every reporter in turn and joins their errors.
type Fanout []session.Reporter

func (f Fanout) Report(ctx context.Context, res session.Result) error {
	var errs []error
	for _, r := range f {
		if err := r.Report(ctx, res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
