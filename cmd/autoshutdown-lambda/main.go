// autoshutdown-lambda runs the shutdown workflow as an AWS Lambda function,
// typically on an EventBridge schedule.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/rs/zerolog/log"

	"github.com/yairfalse/autoshutdown/internal/app"
	"github.com/yairfalse/autoshutdown/internal/config"
	"github.com/yairfalse/autoshutdown/internal/trigger"
)

func main() {
	cfg, err := config.Load(os.Getenv("AUTOSHUTDOWN_CONFIG"))
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	a, err := app.New(context.Background(), cfg, app.Options{LogOutput: os.Stdout})
	if err != nil {
		log.Fatal().Err(err).Msg("initialize")
	}

	lambda.Start(trigger.LambdaHandler(a.Workflow, a.Telemetry))
}
