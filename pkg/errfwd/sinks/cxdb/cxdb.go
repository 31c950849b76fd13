// Package cxdb provides a sink that persists forwarded occurrences to cxdb as
// SystemMessage items.
package cxdb

import (
	"context"
	"encoding/json"
	"fmt"

	cxdbclient "github.com/strongdm/ai-cxdb/clients/go"
	cxdtypes "github.com/strongdm/ai-cxdb/clients/go/types"

	"github.com/strongdm/ai-cxdb-errfwd/pkg/errfwd"
)

// CXDBClient is the minimal interface for cxdb client operations.
// The real *cxdb.Client satisfies this interface.
type CXDBClient interface {
	CreateContext(ctx context.Context, baseTurnID uint64) (*cxdbclient.ContextHead, error)
	AppendTurn(ctx context.Context, req *cxdbclient.AppendRequest) (*cxdbclient.AppendResult, error)
}

// CXDBSinkOption configures the CXDB sink.
type CXDBSinkOption func(*cxdbSinkConfig)

type cxdbSinkConfig struct {
	orphanLabels []string
	clientTag    string
}

// WithOrphanLabels sets labels for orphan error contexts.
func WithOrphanLabels(labels []string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.orphanLabels = labels
	}
}

// WithClientTag sets the client tag for orphan contexts.
func WithClientTag(tag string) CXDBSinkOption {
	return func(c *cxdbSinkConfig) {
		c.clientTag = tag
	}
}

type cxdbSink struct {
	client       CXDBClient
	orphanLabels []string
	clientTag    string
}

// NewCXDBSink creates a sink that writes to cxdb.
func NewCXDBSink(client CXDBClient, opts ...CXDBSinkOption) errfwd.Sink {
	cfg := &cxdbSinkConfig{
		orphanLabels: []string{"error", "unlinked"},
		clientTag:    "errfwd",
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return &cxdbSink{
		client:       client,
		orphanLabels: cfg.orphanLabels,
		clientTag:    cfg.clientTag,
	}
}

// Candidate returns a zero-argument constructor suitable for
// errfwd.WithForwarder.
func Candidate(client CXDBClient, opts ...CXDBSinkOption) func() errfwd.Sink {
	return func() errfwd.Sink {
		return NewCXDBSink(client, opts...)
	}
}

// Forward appends the occurrence to the context carried by ctx, or to a new
// orphan context when ctx carries none.
func (s *cxdbSink) Forward(ctx context.Context, occ errfwd.Occurrence) (bool, error) {
	contextID, linked := errfwd.ContextIDFromContext(ctx)
	if !linked {
		head, err := s.client.CreateContext(ctx, 0)
		if err != nil {
			return false, fmt.Errorf("create orphan context: %w", err)
		}
		contextID = head.ContextID
	}

	item := s.buildConversationItem(occ, !linked)

	payload, err := cxdbclient.EncodeMsgpack(item)
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}

	req := &cxdbclient.AppendRequest{
		ContextID:      contextID,
		ParentTurnID:   0,
		TypeID:         cxdtypes.TypeIDConversationItem,
		TypeVersion:    cxdtypes.TypeVersionConversationItem,
		Payload:        payload,
		IdempotencyKey: occ.ID,
	}

	if _, err := s.client.AppendTurn(ctx, req); err != nil {
		return false, fmt.Errorf("append turn: %w", err)
	}
	return true, nil
}

func (s *cxdbSink) buildConversationItem(occ errfwd.Occurrence, isOrphan bool) *cxdtypes.ConversationItem {
	title := occ.Message
	if title == "" {
		title = "error"
	}
	if len(title) > 100 {
		title = errfwd.TruncateUTF8(title, 97) + "..."
	}

	item := &cxdtypes.ConversationItem{
		ItemType:  cxdtypes.ItemTypeSystem,
		Status:    cxdtypes.ItemStatusComplete,
		Timestamp: occ.Timestamp.UnixMilli(),
		ID:        occ.ID,
		System: &cxdtypes.SystemMessage{
			Kind:    cxdtypes.SystemKindError,
			Title:   title,
			Content: buildErrorDetails(occ),
		},
	}

	// cxdb expects context metadata on the first turn of a context.
	if isOrphan {
		item.ContextMetadata = &cxdtypes.ContextMetadata{
			Labels:    s.orphanLabels,
			ClientTag: s.clientTag,
		}
	}

	return item
}

// buildErrorDetails encodes the occurrence as JSON for SystemMessage.Content.
func buildErrorDetails(occ errfwd.Occurrence) string {
	details := map[string]any{
		"occurrence_id": occ.ID,
		"message":       occ.Message,
		"fingerprint":   errfwd.Fingerprint(occ),
	}

	if occ.Source != "" {
		details["source"] = occ.Source
		details["line"] = occ.Line
		details["column"] = occ.Column
	}
	if occ.Err != nil {
		details["error"] = occ.Err.Error()
	}
	if len(occ.Metadata) > 0 {
		details["metadata"] = occ.Metadata
	}

	jsonBytes, err := json.Marshal(details)
	if err != nil {
		return fmt.Sprintf(`{"error":"failed to encode details: %s"}`, err)
	}
	return string(jsonBytes)
}

// Flush is a no-op for the cxdb sink (writes are synchronous).
func (s *cxdbSink) Flush(ctx context.Context) error {
	return nil
}

// Close is a no-op for the cxdb sink.
func (s *cxdbSink) Close() error {
	return nil
}
