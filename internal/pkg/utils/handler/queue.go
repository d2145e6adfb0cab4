package handler

import (
	"context"
	"encoding/json"
	"time"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/vgarvardt/gue/v5"
)

type Opts[TM any] struct {
	timeout        time.Duration
	failureHandler func(context.Context, *TM, error) error
}

// Create wraps a typed handler func into a gue work func.
// A failing handler is NOT rescheduled: the queue's own redelivery covers
// consumer crashes, task-level failures are recorded in the store by the
// failure hook and the message is dropped
func Create[TM any, SD any](data *SD, hf func(context.Context, *TM, *SD) error, opts *Opts[TM]) gue.WorkFunc {
	if opts == nil {
		opts = DefaultOpts[TM]()
	}
	return func(ctx context.Context, j *gue.Job) error {
		goapp.Log.Info().Str("queue", j.Queue).Str("type", j.Type).Int32("errCount", j.ErrorCount).Msg("got msg")

		var m TM
		err := json.Unmarshal(j.Args, &m)
		if err != nil {
			goapp.Log.Error().Err(err).Str("queue", j.Queue).Msg("could not unmarshal message - drop")
			return nil
		}
		wrkCtx, cf := context.WithTimeout(ctx, opts.timeout)
		defer cf()
		err = hf(wrkCtx, &m, data)
		if err == nil {
			return nil
		}
		goapp.Log.Warn().Err(err).Str("queue", j.Queue).Str("type", j.Type).Msg("fail")
		if opts.failureHandler != nil {
			if errHandler := opts.failureHandler(ctx, &m, err); errHandler != nil {
				goapp.Log.Error().Err(errHandler).Str("queue", j.Queue).Msg("failure handler error")
			}
		}
		return nil
	}
}

func DefaultOpts[TM any]() *Opts[TM] {
	return &Opts[TM]{timeout: time.Minute * 15}
}

func (o *Opts[TM]) WithFailure(failureHandler func(context.Context, *TM, error) error) *Opts[TM] {
	o.failureHandler = failureHandler
	return o
}

func (o *Opts[TM]) WithTimeout(timeout time.Duration) *Opts[TM] {
	o.timeout = timeout
	return o
}
