package interfaces

import (
	"context"
	"io"

	"storepulse/internal/model"
)

// ArtifactStore persists finished report tables
type ArtifactStore interface {
	// Create starts a new artifact for the report
	Create(ctx context.Context, reportID string) (ArtifactWriter, error)

	// Open returns the artifact content for a handle returned by ArtifactWriter.Commit
	Open(ctx context.Context, handle string) (io.ReadCloser, error)

	// Delete removes an artifact; deleting a missing artifact is not an error
	Delete(ctx context.Context, handle string) error
}

// ArtifactWriter appends rows batch by batch; nothing is visible until Commit
type ArtifactWriter interface {
	WriteRows(rows []model.ReportRow) error
	Commit() (*model.ArtifactDescriptor, error)
	Abort() error
}
