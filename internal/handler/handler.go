// Package handler provides the Lambda handler for the PDF splitter.
package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/aws/aws-lambda-go/events"
	charmlog "github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"

	"github.com/eleknowledge/pdf-splitter/internal/chunker"
	"github.com/eleknowledge/pdf-splitter/internal/config"
	"github.com/eleknowledge/pdf-splitter/internal/domain"
	"github.com/eleknowledge/pdf-splitter/internal/pdfdoc"
	"github.com/eleknowledge/pdf-splitter/internal/storage"
)

// Tags written on an original once its chunks are uploaded.
const (
	StatusTag        = "Status"
	StatusSplit      = "Split"
	ProcessedDateTag = "ProcessedDate"
)

const bytesPerMB = 1024 * 1024

// stage names the step a record is in. It is logged on every transition.
type stage string

const (
	stageReceived    stage = "received"
	stageSizeChecked stage = "size_checked"
	stageSkipped     stage = "skipped"
	stageDownloaded  stage = "downloaded"
	stageSplit       stage = "split"
	stageUploaded    stage = "uploaded"
	stageTagged      stage = "tagged"
	stageDone        stage = "done"
)

// Document is an opened document that can be measured and cut.
type Document interface {
	chunker.Pager
	WritePages(w io.Writer, pages []int) error
}

// OpenFunc parses downloaded bytes into a Document.
type OpenFunc func(r io.ReadSeeker) (Document, error)

// Handler splits oversized documents announced by S3 notifications.
type Handler struct {
	store *storage.Store
	cfg   *config.Config
	log   *charmlog.Logger
	open  OpenFunc
	now   func() time.Time
}

// Option customizes a Handler.
type Option func(*Handler)

// WithOpener replaces the PDF parser.
func WithOpener(open OpenFunc) Option {
	return func(h *Handler) { h.open = open }
}

// WithClock replaces the clock used for the ProcessedDate tag.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) { h.now = now }
}

// New creates a Handler. The store and logger are shared across invocations.
func New(store *storage.Store, cfg *config.Config, log *charmlog.Logger, opts ...Option) *Handler {
	h := &Handler{
		store: store,
		cfg:   cfg,
		log:   log,
		open:  openPDF,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func openPDF(r io.ReadSeeker) (Document, error) {
	doc, err := pdfdoc.Open(r)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Handle processes an S3 notification batch.
// The outcome is always encoded in the response; the returned error is always nil.
//
// Unless ProcessAllRecords is set, Handle returns as soon as one record has
// been split or has failed. Later records in the batch are not looked at.
func (h *Handler) Handle(ctx context.Context, event events.S3Event) (resp events.APIGatewayProxyResponse, err error) {
	defer func() {
		if r := recover(); r != nil {
			h.log.Error("unexpected panic while processing event", "panic", r)
			resp = respond(500, domain.ErrorResult{
				Error:   domain.ErrorInternal,
				Message: fmt.Sprintf("unexpected error: %v", r),
			})
			err = nil
		}
	}()

	if h.cfg.ProcessAllRecords {
		return h.handleAll(ctx, event), nil
	}

	for _, record := range event.Records {
		result, err := h.processRecord(ctx, record)
		if err != nil {
			return ErrorResponse(err), nil
		}
		if result == nil {
			continue
		}
		return respond(200, result), nil
	}

	return respond(200, domain.MessageResult{Message: domain.MessageNoFiles}), nil
}

// handleAll processes every record. A failed record does not stop the others.
func (h *Handler) handleAll(ctx context.Context, event events.S3Event) events.APIGatewayProxyResponse {
	batch := domain.BatchResult{Message: domain.MessageProcessed, Split: []domain.SplitResult{}}

	for _, record := range event.Records {
		result, err := h.processRecord(ctx, record)
		if err != nil {
			batch.Failed = append(batch.Failed, domain.ErrorResult{
				Error:   domain.ErrorInternal,
				Message: err.Error(),
				File:    recordKey(record),
			})
			continue
		}
		if result != nil {
			batch.Split = append(batch.Split, *result)
		}
	}

	if len(batch.Split) == 0 && len(batch.Failed) == 0 {
		return respond(200, domain.MessageResult{Message: domain.MessageNoFiles})
	}
	if len(batch.Failed) > 0 {
		return respond(500, batch)
	}
	return respond(200, batch)
}

// processRecord runs one record through the split pipeline.
// It returns nil, nil when the record was skipped.
func (h *Handler) processRecord(ctx context.Context, record events.S3EventRecord) (*domain.SplitResult, error) {
	bucket := record.S3.Bucket.Name
	key := recordKey(record)
	log := h.log.With("bucket", bucket, "key", key)
	log.Debug("record received", "stage", stageReceived)

	if reason := h.skipReason(key); reason != "" {
		log.Info("skipping object", "stage", stageSkipped, "reason", reason)
		return nil, nil
	}

	info, err := h.store.Head(ctx, bucket, key)
	if err != nil {
		return nil, h.fail(log, stageSizeChecked, err)
	}
	log.Info("processing file", "stage", stageSizeChecked, "size", humanize.IBytes(uint64(info.Size)))

	if info.Size <= h.cfg.MaxBytes() {
		log.Info("file size ok, no splitting needed", "stage", stageSkipped)
		return nil, nil
	}

	tags, err := h.store.Tags(ctx, bucket, key)
	if err != nil {
		return nil, h.fail(log, stageSizeChecked, err)
	}
	if tags[StatusTag] == StatusSplit {
		log.Info("skipping object", "stage", stageSkipped, "reason", "already tagged as split")
		return nil, nil
	}

	log.Info("file exceeds limit, splitting", "limit", humanize.IBytes(uint64(h.cfg.MaxBytes())))

	data, err := h.store.Get(ctx, bucket, key)
	if err != nil {
		return nil, h.fail(log, stageDownloaded, err)
	}
	log.Debug("object downloaded", "stage", stageDownloaded)

	doc, err := h.open(bytes.NewReader(data))
	if err != nil {
		return nil, h.fail(log, stageSplit, err)
	}
	chunks, err := chunker.BuildChunks(doc, h.cfg.MaxBytes())
	if err != nil {
		return nil, h.fail(log, stageSplit, err)
	}
	log.Info("split into chunks", "stage", stageSplit, "pages", doc.PageCount(), "chunks", len(chunks))

	chunkKeys := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		var buf bytes.Buffer
		if err := doc.WritePages(&buf, chunk.Pages); err != nil {
			return nil, h.fail(log, stageUploaded, err)
		}

		chunkKey := ChunkKey(key, h.cfg.SplitMarker, i)
		if err := h.store.Put(ctx, bucket, chunkKey, buf.Bytes(), pdfdoc.ContentType, info.Metadata); err != nil {
			return nil, h.fail(log, stageUploaded, err)
		}
		log.Info("uploaded chunk", "stage", stageUploaded, "part", i+1, "chunk", chunkKey,
			"pages", len(chunk.Pages), "size", humanize.IBytes(uint64(buf.Len())))
		chunkKeys = append(chunkKeys, chunkKey)
	}

	if err := h.store.SetTags(ctx, bucket, key, map[string]string{
		StatusTag:        StatusSplit,
		ProcessedDateTag: strconv.FormatInt(h.now().Unix(), 10),
	}); err != nil {
		return nil, h.fail(log, stageTagged, err)
	}
	log.Debug("original tagged", "stage", stageTagged)

	log.Info("successfully split file", "stage", stageDone, "parts", len(chunkKeys))
	return &domain.SplitResult{
		Message:      domain.MessageSplit,
		OriginalFile: key,
		OriginalSize: float64(info.Size) / bytesPerMB,
		Chunks:       chunkKeys,
		ChunkCount:   len(chunkKeys),
	}, nil
}

// fail logs err according to its kind and returns it unchanged,
// so the backend's code and message reach the response as sent.
func (h *Handler) fail(log *charmlog.Logger, st stage, err error) error {
	var storeErr *storage.Error
	var serialErr *pdfdoc.SerializationError

	switch {
	case errors.As(err, &storeErr):
		switch storeErr.Code {
		case storage.CodeAccessDenied, storage.CodeNoSuchBucket:
			log.Error("store rejected request, check the function role and bucket",
				"stage", st, "op", storeErr.Op, "code", storeErr.RawCode, "err", err)
		case storage.CodeNotFound, storage.CodeNoSuchKey:
			log.Warn("object removed before it could be processed",
				"stage", st, "op", storeErr.Op, "code", storeErr.RawCode, "err", err)
		case storage.CodeSlowDown, storage.CodeInternalError:
			log.Warn("transient store failure",
				"stage", st, "op", storeErr.Op, "code", storeErr.RawCode, "err", err)
		case storage.CodeInvalidObjectState, storage.CodeUnknown:
			log.Error("store operation failed",
				"stage", st, "op", storeErr.Op, "code", storeErr.RawCode, "err", err)
		}
	case errors.As(err, &serialErr):
		log.Error("document could not be serialized", "stage", st, "page", serialErr.Page, "err", err)
	default:
		log.Error("processing failed", "stage", st, "err", err)
	}
	return err
}

func recordKey(record events.S3EventRecord) string {
	if record.S3.Object.URLDecodedKey != "" {
		return record.S3.Object.URLDecodedKey
	}
	return record.S3.Object.Key
}

// ErrorResponse encodes err as a failure body.
func ErrorResponse(err error) events.APIGatewayProxyResponse {
	return respond(500, domain.ErrorResult{Error: domain.ErrorInternal, Message: err.Error()})
}

func respond(status int, body any) events.APIGatewayProxyResponse {
	payload, err := json.Marshal(body)
	if err != nil {
		status = 500
		payload = []byte(`{"error":"InternalServerError","message":"failed to encode response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Body:       string(payload),
	}
}
