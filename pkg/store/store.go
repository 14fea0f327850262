// Package store keeps uploaded reports for the API server.
//
// [MemoryStore] serves tests and single-process deployments; [MongoStore]
// persists reports across restarts and replicas. Reports are stored as their
// JSON encoding, so stored values are isolated from later mutation by the
// caller.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/stagetower/pkg/errors"
	reportio "github.com/matzehuels/stagetower/pkg/io"
	"github.com/matzehuels/stagetower/pkg/stages"
)

// Store persists reports by ID.
type Store interface {
	// Save stores rep, replacing any report with the same ID. A report with
	// no ID is given a new UUID. Save returns the ID used.
	Save(ctx context.Context, rep *stages.Report) (string, error)
	// Get returns a report, or a REPORT_NOT_FOUND error.
	Get(ctx context.Context, id string) (*stages.Report, error)
	// List returns stored reports, newest first.
	List(ctx context.Context) ([]Info, error)
	// Delete removes a report, or returns a REPORT_NOT_FOUND error.
	Delete(ctx context.Context, id string) error
	Close() error
}

// Info describes a stored report without its payload.
type Info struct {
	ID         string    `json:"id" bson:"_id"`
	StageCount int       `json:"stageCount" bson:"stage_count"`
	SavedAt    time.Time `json:"savedAt" bson:"saved_at"`
}

// NewID returns a fresh report ID.
func NewID() string {
	return uuid.NewString()
}

// prepare assigns an ID if needed, validates it, and encodes the report.
func prepare(rep *stages.Report) (string, []byte, error) {
	if rep == nil {
		return "", nil, errors.New(errors.ErrCodeInvalidReport, "nil report")
	}
	if len(rep.Stages) == 0 {
		return "", nil, errors.New(errors.ErrCodeInvalidReport, "report has no stages")
	}
	id := rep.ID
	if id == "" {
		id = NewID()
	}
	if err := errors.ValidateReportID(id); err != nil {
		return "", nil, err
	}

	stored := *rep
	stored.ID = id
	data, err := reportio.MarshalReport(&stored)
	if err != nil {
		return "", nil, errors.Wrap(errors.ErrCodeInternal, err, "encode report %s", id)
	}
	return id, data, nil
}

func notFound(id string) error {
	return errors.New(errors.ErrCodeReportNotFound, "report %q not found", id)
}
