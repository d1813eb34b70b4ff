package analyses

import (
	"context"
	"io"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/pagination"
)

// DocumentStream carries a stored document's bytes and metadata for
// download responses.
type DocumentStream struct {
	Document Document
	Body     io.ReadCloser
}

// System defines the public contract for analysis archive operations.
// Every read and delete is scoped to the calling tenant.
type System interface {
	Handler() *Handler

	List(
		ctx context.Context,
		tenantID string,
		page pagination.PageRequest,
		filters Filters,
	) (*pagination.PageResult[Analysis], error)

	Find(ctx context.Context, tenantID string, id uuid.UUID) (*Analysis, error)
	Save(ctx context.Context, cmd SaveCommand) (*Analysis, error)
	Delete(ctx context.Context, tenantID string, id uuid.UUID) error
	OpenDocument(ctx context.Context, tenantID string, analysisID, documentID uuid.UUID) (*DocumentStream, error)
}
