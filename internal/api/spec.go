package api

import (
	"github.com/scopeline/scopeline/internal/config"
	"github.com/scopeline/scopeline/pkg/openapi"
)

// Spec builds the OpenAPI document for the walkthrough processing API.
func Spec(cfg *config.Config) *openapi.Spec {
	spec := openapi.NewSpec("Scopeline API", cfg.Version)
	spec.SetDescription("Contractor walkthrough processing: chunked media upload, transcription, scope extraction, photo analysis, and document generation.")
	spec.AddServer(cfg.API.BasePath)

	spec.Components.AddSchemas(map[string]*openapi.Schema{
		"ChunkReceipt": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"session_id":      {Type: "string", Format: "uuid"},
				"chunk_index":     {Type: "integer"},
				"received_chunks": {Type: "integer"},
				"total_chunks":    {Type: "integer"},
				"progress":        {Type: "integer", Description: "Percentage of chunks staged"},
				"complete":        {Type: "boolean"},
			},
		},
		"CompleteRequest": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"project_name":    {Type: "string"},
				"template":        {Type: "string", Enum: []any{"jral", "trade", "narrative"}},
				"formats":         {Type: "array", Items: &openapi.Schema{Type: "string", Enum: []any{"docx", "pdf"}}},
				"cost_codes":      {Type: "array", Items: openapi.SchemaRef("CostCode")},
				"attach_sessions": {Type: "array", Items: &openapi.Schema{Type: "string", Format: "uuid"}},
				"text":            {Type: "string", Description: "Raw notes appended to the transcript"},
			},
		},
		"CostCode": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"code": {Type: "string", Example: "02"},
				"name": {Type: "string", Example: "Site Preparation / Demolition"},
				"subcodes": {Type: "array", Items: &openapi.Schema{
					Type: "object",
					Properties: map[string]*openapi.Schema{
						"code": {Type: "string"},
						"name": {Type: "string"},
					},
				}},
			},
			Required: []string{"code", "name"},
		},
		"JobAccepted": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"job_id": {Type: "string", Format: "uuid"},
			},
		},
		"Job": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":       {Type: "string", Format: "uuid"},
				"status":   {Type: "string", Enum: []any{"queued", "transcribing", "parsing", "analyzing_photos", "generating_documents", "completed", "failed"}},
				"progress": {Type: "integer", Minimum: floatPtr(0), Maximum: floatPtr(100)},
				"message":  {Type: "string"},
				"result":   openapi.SchemaRef("JobResult"),
				"error":    openapi.SchemaRef("JobFailure"),
			},
		},
		"JobResult": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"transcript":         {Type: "string"},
				"scope_items":        {Type: "array", Items: openapi.SchemaRef("ScopeItem")},
				"completeness_score": {Type: "integer"},
				"photo_gaps":         {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"documents":          {Type: "array", Items: openapi.SchemaRef("DocumentRef")},
				"cost_usd":           {Type: "number"},
				"processing_seconds": {Type: "integer"},
			},
		},
		"JobFailure": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"reason":  {Type: "string", Enum: []any{"timeout", "unsupported_media", "transcription_provider_error", "extraction_schema_error", "extraction_provider_error", "empty_transcript", "document_render_error", "storage_error", "internal_error"}},
				"message": {Type: "string"},
			},
		},
		"ScopeItem": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"cost_code":     {Type: "string"},
				"category":      {Type: "string"},
				"code_resolved": {Type: "boolean"},
				"description":   {Type: "string"},
				"location":      {Type: "string"},
				"materials":     {Type: "array", Items: &openapi.Schema{Type: "string"}},
				"quantity":      {Type: "string"},
				"risk_level":    {Type: "string", Enum: []any{"low", "medium", "high"}},
			},
		},
		"DocumentRef": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"format":    {Type: "string"},
				"template":  {Type: "string"},
				"file_name": {Type: "string"},
				"url":       {Type: "string"},
			},
		},
		"Analysis": {
			Type: "object",
			Properties: map[string]*openapi.Schema{
				"id":                 {Type: "string", Format: "uuid"},
				"project_name":       {Type: "string"},
				"template":           {Type: "string"},
				"completeness_score": {Type: "integer"},
				"cost_usd":           {Type: "number"},
				"created_at":         {Type: "string", Format: "date-time"},
				"documents":          {Type: "array", Items: openapi.SchemaRef("DocumentRef")},
			},
		},
	})

	spec.Paths["/upload/chunk"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary: "Stage one upload chunk",
			Tags:    []string{"upload"},
			RequestBody: &openapi.RequestBody{
				Required: true,
				Content: map[string]*openapi.MediaType{
					"multipart/form-data": {Schema: &openapi.Schema{
						Type: "object",
						Properties: map[string]*openapi.Schema{
							"session_id":   {Type: "string", Format: "uuid", Description: "Omit on the first chunk"},
							"chunk_index":  {Type: "integer"},
							"total_chunks": {Type: "integer"},
							"file_name":    {Type: "string"},
							"chunk":        {Type: "string", Format: "binary"},
						},
					}},
				},
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Chunk staged", "ChunkReceipt"),
				400: openapi.ResponseRef("BadRequest"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	spec.Paths["/upload/complete/{session_id}"] = &openapi.PathItem{
		Post: &openapi.Operation{
			Summary:     "Finalize an upload and start processing",
			Tags:        []string{"upload"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("session_id", "Upload session identifier")},
			RequestBody: openapi.RequestBodyJSON("CompleteRequest", false),
			Responses: map[int]*openapi.Response{
				202: openapi.ResponseJSON("Processing job accepted", "JobAccepted"),
				400: openapi.ResponseRef("BadRequest"),
				404: openapi.ResponseRef("NotFound"),
				409: openapi.ResponseRef("Conflict"),
			},
		},
	}

	spec.Paths["/jobs/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Poll job state",
			Tags:       []string{"jobs"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Job identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Current job state", "Job"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/jobs/{id}/events"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:     "Subscribe to job progress",
			Description: "Server-sent event stream of progress, completed, and failed events.",
			Tags:        []string{"jobs"},
			Parameters:  []*openapi.Parameter{openapi.PathParam("id", "Job identifier")},
			Responses: map[int]*openapi.Response{
				200: {Description: "text/event-stream of job events"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/analyses"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List archived analyses",
			Tags:    []string{"analyses"},
			Parameters: []*openapi.Parameter{
				openapi.QueryParam("page", "integer", "Page number", false),
				openapi.QueryParam("page_size", "integer", "Results per page", false),
				openapi.QueryParam("search", "string", "Match project name or transcript", false),
				openapi.QueryParam("template", "string", "Filter by template", false),
			},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Page of analyses", "Analysis"),
			},
		},
	}

	spec.Paths["/analyses/{id}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Fetch one analysis",
			Tags:       []string{"analyses"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Analysis identifier")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Analysis with documents", "Analysis"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
		Delete: &openapi.Operation{
			Summary:    "Delete an analysis and its documents",
			Tags:       []string{"analyses"},
			Parameters: []*openapi.Parameter{openapi.PathParam("id", "Analysis identifier")},
			Responses: map[int]*openapi.Response{
				204: {Description: "Deleted"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/analyses/{id}/documents/{documentId}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "Download a generated document",
			Tags:    []string{"analyses"},
			Parameters: []*openapi.Parameter{
				openapi.PathParam("id", "Analysis identifier"),
				openapi.PathParam("documentId", "Document identifier"),
			},
			Responses: map[int]*openapi.Response{
				200: {Description: "Document bytes with attachment disposition"},
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	spec.Paths["/taxonomy"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary: "List the default cost-code taxonomy",
			Tags:    []string{"taxonomy"},
			Responses: map[int]*openapi.Response{
				200: {
					Description: "Default cost codes",
					Content: map[string]*openapi.MediaType{
						"application/json": {Schema: &openapi.Schema{
							Type:  "array",
							Items: openapi.SchemaRef("CostCode"),
						}},
					},
				},
			},
		},
	}

	spec.Paths["/taxonomy/{code}"] = &openapi.PathItem{
		Get: &openapi.Operation{
			Summary:    "Fetch one cost code",
			Tags:       []string{"taxonomy"},
			Parameters: []*openapi.Parameter{openapi.PathParam("code", "Cost code")},
			Responses: map[int]*openapi.Response{
				200: openapi.ResponseJSON("Cost code entry", "CostCode"),
				404: openapi.ResponseRef("NotFound"),
			},
		},
	}

	return spec
}

func floatPtr(v float64) *float64 { return &v }
