// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package registry resolves internal application document ids to the external
// ids known to the application owners.
package registry

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/ManuGH/statusfeed/internal/casestatus/model"
	"github.com/ManuGH/statusfeed/internal/log"
	"github.com/ManuGH/statusfeed/internal/metrics"
)

// Document is one registry record.
type Document struct {
	InternalID uuid.UUID
	ExternalID uuid.UUID
	Type       string
	ReportedAt time.Time
}

// Client looks up documents by internal id. Ids the registry does not know are
// absent from the result; transport and server failures are errors.
type Client interface {
	Lookup(ctx context.Context, ids []uuid.UUID) ([]Document, error)
}

// ExternalIDs resolves ids to a sorted, deduplicated set of external ids.
// Unknown ids are logged and skipped. Documents for ids that were not asked
// for, or without an external id, are ignored.
func ExternalIDs(ctx context.Context, c Client, ids []uuid.UUID) ([]uuid.UUID, error) {
	if len(ids) == 0 {
		return []uuid.UUID{}, nil
	}
	docs, err := c.Lookup(ctx, ids)
	if err != nil {
		return nil, err
	}

	logger := log.WithComponentFromContext(ctx, "registry")
	requested := make(map[uuid.UUID]struct{}, len(ids))
	for _, id := range ids {
		requested[id] = struct{}{}
	}

	found := make(map[uuid.UUID]struct{}, len(docs))
	out := make([]uuid.UUID, 0, len(docs))
	for _, d := range docs {
		if _, ok := requested[d.InternalID]; !ok {
			logger.Warn().
				Str(log.FieldEvent, "registry.document_unrequested").
				Str(log.FieldDocumentID, d.InternalID.String()).
				Msg("registry returned a document that was not requested")
			continue
		}
		if d.ExternalID == uuid.Nil {
			logger.Warn().
				Str(log.FieldEvent, "registry.external_id_missing").
				Str(log.FieldDocumentID, d.InternalID.String()).
				Msg("registry document has no external id")
			continue
		}
		found[d.InternalID] = struct{}{}
		out = append(out, d.ExternalID)
	}

	for _, id := range ids {
		if _, ok := found[id]; ok {
			continue
		}
		metrics.RegistryDocumentsMissing.Inc()
		logger.Warn().
			Str(log.FieldEvent, "registry.document_missing").
			Str(log.FieldDocumentID, id.String()).
			Msg("document registry has no record for application id")
	}
	return model.SortedIDs(out), nil
}
