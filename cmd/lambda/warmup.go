// Package main contains the Lambda warmup handler for preventing cold starts.
// Large PDFs arrive in bursts during knowledge base imports; an EventBridge rule
// sends warmup events ahead of them so the splitter is not started cold.
package main

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	charmlog "github.com/charmbracelet/log"
)

const (
	// WarmupSource identifies warmup events
	WarmupSource = "warmup"

	// WarmupDelay ensures instances overlap to create true concurrency
	WarmupDelay = 75 * time.Millisecond

	// MaxWarmupConcurrency caps self-invocations from a single warmup event
	MaxWarmupConcurrency = 10
)

// WarmupEvent represents the scheduled event payload for warmup
type WarmupEvent struct {
	Source      string `json:"source"`
	Concurrency int    `json:"concurrency"`
}

// WarmupResponse is the response returned by warmup operations
type WarmupResponse struct {
	Status          string `json:"status"`
	InstancesWarmed int    `json:"instancesWarmed"`
}

// Invoker is the part of the Lambda API used for self-invocation.
type Invoker interface {
	Invoke(ctx context.Context, params *lambdasdk.InvokeInput, optFns ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error)
}

// Warmer answers warmup events.
type Warmer struct {
	client       Invoker
	functionName string
	log          *charmlog.Logger
	delay        time.Duration
}

// NewWarmer creates a Warmer that invokes functionName through client.
func NewWarmer(client Invoker, functionName string, log *charmlog.Logger) *Warmer {
	return &Warmer{
		client:       client,
		functionName: functionName,
		log:          log,
		delay:        WarmupDelay,
	}
}

// IsWarmupEvent checks if the event is a warmup event
func IsWarmupEvent(event json.RawMessage) (*WarmupEvent, bool) {
	var warmup WarmupEvent
	if err := json.Unmarshal(event, &warmup); err != nil {
		return nil, false
	}
	if warmup.Source != WarmupSource {
		return nil, false
	}
	if warmup.Concurrency < 0 {
		warmup.Concurrency = 0
	}
	return &warmup, true
}

// Handle processes a warmup event and optionally self-invokes
// to maintain multiple warm instances.
func (w *Warmer) Handle(ctx context.Context, warmup *WarmupEvent) (interface{}, error) {
	instancesWarmed := 1 // This instance counts as 1

	count := warmup.Concurrency
	if count > MaxWarmupConcurrency {
		count = MaxWarmupConcurrency
	}
	if count > 0 {
		if err := w.selfInvoke(ctx, count); err != nil {
			w.log.Warn("warmup self-invocation failed", "count", count, "err", err)
		} else {
			instancesWarmed += count
		}
	}

	// Brief delay to ensure instances overlap
	time.Sleep(w.delay)

	w.log.Debug("instance warm", "instancesWarmed", instancesWarmed)
	return map[string]interface{}{
		"statusCode": 200,
		"body": WarmupResponse{
			Status:          "warm",
			InstancesWarmed: instancesWarmed,
		},
	}, nil
}

// selfInvoke invokes this Lambda function N times asynchronously
// to create additional warm instances.
func (w *Warmer) selfInvoke(ctx context.Context, count int) error {
	// Payload for child invocations (concurrency=0 to prevent infinite loop)
	payload, err := json.Marshal(WarmupEvent{
		Source:      WarmupSource,
		Concurrency: 0, // Critical: prevent recursive invocation
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var invokeErr error
	var errMu sync.Mutex

	for i := 0; i < count; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			_, err := w.client.Invoke(ctx, &lambdasdk.InvokeInput{
				FunctionName:   aws.String(w.functionName),
				InvocationType: types.InvocationTypeEvent, // Async invocation
				Payload:        payload,
			})

			if err != nil {
				errMu.Lock()
				if invokeErr == nil {
					invokeErr = err
				}
				errMu.Unlock()
			}
		}()
	}

	wg.Wait()
	return invokeErr
}
