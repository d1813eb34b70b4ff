package analyses

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/scopeline/scopeline/pkg/pagination"
	"github.com/scopeline/scopeline/pkg/query"
	"github.com/scopeline/scopeline/pkg/repository"
	"github.com/scopeline/scopeline/pkg/storage"
)

type repo struct {
	db         *sql.DB
	storage    storage.System
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates an analysis repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	logger *slog.Logger,
	pagination pagination.Config,
) System {
	return &repo{
		db:         db,
		storage:    store,
		logger:     logger.With("system", "analyses"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(
	ctx context.Context,
	tenantID string,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Analysis], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereEquals("TenantID", tenantID).
		WhereSearch(page.Search, "ProjectName", "Transcript")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count analyses: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	items, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanAnalysis)
	if err != nil {
		return nil, fmt.Errorf("query analyses: %w", err)
	}

	result := pagination.NewPageResult(items, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, tenantID string, id uuid.UUID) (*Analysis, error) {
	q, args := query.
		NewBuilder(projection).
		WhereEquals("ID", id).
		WhereEquals("TenantID", tenantID).
		BuildSingleOrNull()

	a, err := repository.QueryOne(ctx, r.db, q, args, scanAnalysis)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	docsQ, docsArgs := query.
		NewBuilder(documentProjection, query.SortField{Field: "Format"}).
		WhereEquals("AnalysisID", id).
		Build()

	docs, err := repository.QueryMany(ctx, r.db, docsQ, docsArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query analysis documents: %w", err)
	}

	a.Documents = docs
	return &a, nil
}

func (r *repo) Save(ctx context.Context, cmd SaveCommand) (*Analysis, error) {
	summaryJSON, err := json.Marshal(cmd.Summary)
	if err != nil {
		return nil, fmt.Errorf("marshal summary: %w", err)
	}
	itemsJSON, err := json.Marshal(cmd.ScopeItems)
	if err != nil {
		return nil, fmt.Errorf("marshal scope items: %w", err)
	}
	photosJSON, err := json.Marshal(cmd.Photos)
	if err != nil {
		return nil, fmt.Errorf("marshal photo annotations: %w", err)
	}

	insertQ := `
		INSERT INTO analyses(
			id, tenant_id, project_name, template, transcript, summary,
			scope_items, photo_annotations, completeness_score, cost_usd,
			processing_seconds
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, tenant_id, project_name, template, transcript, summary,
				  scope_items, photo_annotations, completeness_score, cost_usd,
				  processing_seconds, created_at`

	insertArgs := []any{
		cmd.ID,
		cmd.TenantID,
		cmd.ProjectName,
		cmd.Template,
		cmd.Transcript,
		summaryJSON,
		itemsJSON,
		photosJSON,
		cmd.CompletenessScore,
		cmd.CostUSD,
		cmd.ProcessingSeconds,
	}

	a, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Analysis, error) {
		saved, err := repository.QueryOne(ctx, tx, insertQ, insertArgs, scanAnalysis)
		if err != nil {
			return Analysis{}, fmt.Errorf("insert analysis: %w", err)
		}

		docQ := `
			INSERT INTO analysis_documents(
				id, analysis_id, format, file_name, storage_key, content_type, size
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING id, analysis_id, format, file_name, storage_key,
					  content_type, size, created_at`

		for _, doc := range cmd.Documents {
			docArgs := []any{
				uuid.New(), saved.ID, doc.Format, doc.FileName,
				doc.StorageKey, doc.ContentType, doc.Size,
			}
			inserted, err := repository.QueryOne(ctx, tx, docQ, docArgs, scanDocument)
			if err != nil {
				return Analysis{}, fmt.Errorf("insert analysis document: %w", err)
			}
			saved.Documents = append(saved.Documents, inserted)
		}

		return saved, nil
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("analysis saved",
		"id", a.ID,
		"tenant", a.TenantID,
		"documents", len(a.Documents),
	)
	return &a, nil
}

func (r *repo) Delete(ctx context.Context, tenantID string, id uuid.UUID) error {
	existing, err := r.Find(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if err := repository.ExecExpectOne(
		ctx, r.db,
		"DELETE FROM analyses WHERE id = $1 AND tenant_id = $2",
		id, tenantID,
	); err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	// Blob cleanup is best effort. Orphaned blobs age out with the
	// container's retention policy.
	for _, doc := range existing.Documents {
		if err := r.storage.Delete(ctx, doc.StorageKey); err != nil {
			r.logger.Warn("delete document blob failed",
				"analysis", id,
				"key", doc.StorageKey,
				"error", err,
			)
		}
	}

	r.logger.Info("analysis deleted", "id", id, "tenant", tenantID)
	return nil
}

func (r *repo) OpenDocument(ctx context.Context, tenantID string, analysisID, documentID uuid.UUID) (*DocumentStream, error) {
	if _, err := r.Find(ctx, tenantID, analysisID); err != nil {
		return nil, err
	}

	q, args := query.
		NewBuilder(documentProjection).
		WhereEquals("ID", documentID).
		WhereEquals("AnalysisID", analysisID).
		BuildSingleOrNull()

	doc, err := repository.QueryOne(ctx, r.db, q, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrDocumentNotFound, ErrDuplicate)
	}

	download, err := r.storage.Download(ctx, doc.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("download document %s: %w", doc.StorageKey, err)
	}

	return &DocumentStream{Document: doc, Body: download.Body}, nil
}
