// Package trigger adapts invocation sources (Lambda, HTTP) to the shutdown workflow.
package trigger

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/aws/aws-lambda-go/lambdacontext"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/autoshutdown/internal/shutdown"
)

// ErrMissingRequestID is returned when the Lambda context carries no request id.
var ErrMissingRequestID = errors.New("lambda context has no request id")

// Runner executes one shutdown invocation.
type Runner interface {
	Run(ctx context.Context, executionID string) (*shutdown.Result, error)
}

// Flusher exports buffered telemetry.
type Flusher interface {
	Flush(ctx context.Context) error
}

// LambdaHandler returns a handler for lambda.Start. The event payload is
// ignored; the Lambda request id becomes the execution id. flusher may be nil.
func LambdaHandler(runner Runner, flusher Flusher) func(context.Context, json.RawMessage) (*shutdown.Result, error) {
	return func(ctx context.Context, _ json.RawMessage) (*shutdown.Result, error) {
		lc, ok := lambdacontext.FromContext(ctx)
		if !ok || lc.AwsRequestID == "" {
			return nil, ErrMissingRequestID
		}

		if flusher != nil {
			defer func() {
				if err := flusher.Flush(ctx); err != nil {
					log.Warn().Err(err).Str("execution_id", lc.AwsRequestID).Msg("telemetry flush failed")
				}
			}()
		}

		return runner.Run(ctx, lc.AwsRequestID)
	}
}
