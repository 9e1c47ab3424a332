package main

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eleknowledge/pdf-splitter/internal/config"
	"github.com/eleknowledge/pdf-splitter/internal/handler"
	"github.com/eleknowledge/pdf-splitter/internal/logger"
	"github.com/eleknowledge/pdf-splitter/internal/storage"
	"github.com/eleknowledge/pdf-splitter/internal/storage/storagetest"
)

type fakeInvoker struct {
	mu     sync.Mutex
	inputs []*lambdasdk.InvokeInput
	err    error
}

func (f *fakeInvoker) Invoke(_ context.Context, in *lambdasdk.InvokeInput, _ ...func(*lambdasdk.Options)) (*lambdasdk.InvokeOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, in)
	return &lambdasdk.InvokeOutput{}, f.err
}

func newTestWarmer(inv Invoker) *Warmer {
	w := NewWarmer(inv, "pdf-splitter", logger.Discard())
	w.delay = 0
	return w
}

func instancesWarmed(t *testing.T, out interface{}) int {
	t.Helper()
	resp, ok := out.(map[string]interface{})
	require.True(t, ok)
	body, ok := resp["body"].(WarmupResponse)
	require.True(t, ok)
	return body.InstancesWarmed
}

func TestIsWarmupEvent(t *testing.T) {
	tests := []struct {
		name        string
		event       string
		isWarmup    bool
		concurrency int
	}{
		{"warmup without concurrency", `{"source":"warmup"}`, true, 0},
		{"warmup with concurrency", `{"source":"warmup","concurrency":3}`, true, 3},
		{"negative concurrency", `{"source":"warmup","concurrency":-2}`, true, 0},
		{"other source", `{"source":"aws.events"}`, false, 0},
		{"s3 event", `{"Records":[{"s3":{"bucket":{"name":"b"},"object":{"key":"a.pdf"}}}]}`, false, 0},
		{"not json", `nope`, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warmup, ok := IsWarmupEvent(json.RawMessage(tt.event))
			if ok != tt.isWarmup {
				t.Fatalf("IsWarmupEvent(%s) = %v, want %v", tt.event, ok, tt.isWarmup)
			}
			if ok && warmup.Concurrency != tt.concurrency {
				t.Errorf("Concurrency = %d, want %d", warmup.Concurrency, tt.concurrency)
			}
		})
	}
}

func TestWarmer_Handle(t *testing.T) {
	t.Run("Should not invoke without concurrency", func(t *testing.T) {
		inv := &fakeInvoker{}

		out, err := newTestWarmer(inv).Handle(context.Background(), &WarmupEvent{Source: WarmupSource})
		require.NoError(t, err)

		assert.Equal(t, 1, instancesWarmed(t, out))
		assert.Empty(t, inv.inputs)
	})

	t.Run("Should invoke asynchronously with a non-recursive payload", func(t *testing.T) {
		inv := &fakeInvoker{}

		out, err := newTestWarmer(inv).Handle(context.Background(), &WarmupEvent{Source: WarmupSource, Concurrency: 3})
		require.NoError(t, err)

		assert.Equal(t, 4, instancesWarmed(t, out))
		require.Len(t, inv.inputs, 3)
		for _, in := range inv.inputs {
			assert.Equal(t, "pdf-splitter", aws.ToString(in.FunctionName))
			assert.Equal(t, types.InvocationTypeEvent, in.InvocationType)
			assert.JSONEq(t, `{"source":"warmup","concurrency":0}`, string(in.Payload))
		}
	})

	t.Run("Should cap concurrency", func(t *testing.T) {
		inv := &fakeInvoker{}

		out, err := newTestWarmer(inv).Handle(context.Background(), &WarmupEvent{Source: WarmupSource, Concurrency: 50})
		require.NoError(t, err)

		assert.Equal(t, MaxWarmupConcurrency+1, instancesWarmed(t, out))
		assert.Len(t, inv.inputs, MaxWarmupConcurrency)
	})

	t.Run("Should count only itself when invocation fails", func(t *testing.T) {
		inv := &fakeInvoker{err: errors.New("throttled")}

		out, err := newTestWarmer(inv).Handle(context.Background(), &WarmupEvent{Source: WarmupSource, Concurrency: 2})
		require.NoError(t, err)

		assert.Equal(t, 1, instancesWarmed(t, out))
	})
}

func TestHandleRequest(t *testing.T) {
	newApp := func(inv Invoker) *app {
		log := logger.Discard()
		return &app{
			handler: handler.New(storage.New(storagetest.NewFakeS3()), config.Default(), log),
			warmer:  newTestWarmer(inv),
			log:     log,
		}
	}

	t.Run("Should route warmup events to the warmer", func(t *testing.T) {
		out, err := newApp(&fakeInvoker{}).handleRequest(context.Background(), json.RawMessage(`{"source":"warmup"}`))
		require.NoError(t, err)
		assert.Equal(t, 1, instancesWarmed(t, out))
	})

	t.Run("Should route S3 events to the splitter", func(t *testing.T) {
		event := `{"Records":[{"s3":{"bucket":{"name":"docs"},"object":{"key":"notes.txt"}}}]}`

		out, err := newApp(&fakeInvoker{}).handleRequest(context.Background(), json.RawMessage(event))
		require.NoError(t, err)

		resp, ok := out.(events.APIGatewayProxyResponse)
		require.True(t, ok)
		assert.Equal(t, 200, resp.StatusCode)
		assert.JSONEq(t, `{"message":"No files to process"}`, resp.Body)
	})

	t.Run("Should return a failure body for a malformed event", func(t *testing.T) {
		out, err := newApp(&fakeInvoker{}).handleRequest(context.Background(), json.RawMessage(`{"Records":"x"}`))
		require.NoError(t, err)

		resp, ok := out.(events.APIGatewayProxyResponse)
		require.True(t, ok)
		assert.Equal(t, 500, resp.StatusCode)
		assert.Contains(t, resp.Body, "InternalServerError")
	})
}
