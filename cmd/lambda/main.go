// Package main is the entry point for the PDF splitter Lambda function.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	charmlog "github.com/charmbracelet/log"

	"github.com/eleknowledge/pdf-splitter/internal/config"
	"github.com/eleknowledge/pdf-splitter/internal/handler"
	"github.com/eleknowledge/pdf-splitter/internal/logger"
	"github.com/eleknowledge/pdf-splitter/internal/storage"
)

// app holds the clients built once per Lambda instance.
type app struct {
	handler *handler.Handler
	warmer  *Warmer
	log     *charmlog.Logger
}

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		charmlog.Fatal("failed to load configuration", "err", err)
	}
	log := logger.New(logger.Config{Level: cfg.LogLevel, JSON: cfg.LogJSON})

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		log.Fatal("failed to load AWS config", "err", err)
	}

	a := &app{
		handler: handler.New(storage.New(s3.NewFromConfig(awsCfg)), cfg, log),
		warmer:  NewWarmer(lambdasdk.NewFromConfig(awsCfg), os.Getenv("AWS_LAMBDA_FUNCTION_NAME"), log),
		log:     log,
	}
	lambda.Start(a.handleRequest)
}

func (a *app) handleRequest(ctx context.Context, event json.RawMessage) (interface{}, error) {
	// Warmup detection (MUST be first - before any other processing)
	if warmup, ok := IsWarmupEvent(event); ok {
		return a.warmer.Handle(ctx, warmup)
	}

	var s3Event events.S3Event
	if err := json.Unmarshal(event, &s3Event); err != nil {
		a.log.Error("failed to parse event", "err", err)
		return handler.ErrorResponse(fmt.Errorf("invalid S3 event: %w", err)), nil
	}

	return a.handler.Handle(ctx, s3Event)
}
