package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runner"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/runtime/sandbox"
	"github.com/tndhk/No42-work-bi-CC-sub001/pkg/table"
)

// ExecuteCardRequest is the POST /execute/card request body.
type ExecuteCardRequest struct {
	CardID      string                                `json:"card_id"`
	Code        string                                `json:"code"`
	DatasetID   string                                `json:"dataset_id"`
	Filters     map[string]any                        `json:"filters"`
	Params      map[string]any                        `json:"params"`
	DatasetRows []*orderedmap.OrderedMap[string, any] `json:"dataset_rows"`
}

// ExecuteCardResponse is the POST /execute/card response body.
type ExecuteCardResponse struct {
	HTML             string   `json:"html"`
	UsedColumns      []string `json:"used_columns"`
	FilterApplicable []string `json:"filter_applicable"`
	ExecutionTimeMs  int64    `json:"execution_time_ms"`
}

// ExecuteTransformRequest is the POST /execute/transform request body.
type ExecuteTransformRequest struct {
	TransformID   string                                           `json:"transform_id"`
	Code          string                                           `json:"code"`
	InputDatasets map[string][]*orderedmap.OrderedMap[string, any] `json:"input_datasets"`
	Params        map[string]any                                   `json:"params"`
}

// ExecuteTransformResponse is the POST /execute/transform response body.
type ExecuteTransformResponse struct {
	OutputRows      []map[string]any `json:"output_rows"`
	RowCount        int              `json:"row_count"`
	ColumnNames     []string         `json:"column_names"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
}

// ExecutionHandlers binds CardRunner/TransformRunner to the HTTP surface.
type ExecutionHandlers struct {
	cards      *runner.CardRunner
	transforms *runner.TransformRunner
}

// NewExecutionHandlers constructs the ExecutionService's HTTP handlers.
func NewExecutionHandlers(cards *runner.CardRunner, transforms *runner.TransformRunner) *ExecutionHandlers {
	return &ExecutionHandlers{cards: cards, transforms: transforms}
}

// Health handles GET /health.
func (h *ExecutionHandlers) Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// ExecuteCard handles POST /execute/card.
func (h *ExecutionHandlers) ExecuteCard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	var req ExecuteCardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "malformed request body: "+err.Error())
		return
	}

	dataset := table.FromOrderedRows(req.DatasetRows)

	started := time.Now()
	result, err := h.cards.Run(r.Context(), req.Code, dataset, req.Filters, req.Params)
	if err != nil {
		writeSandboxError(w, r, err)
		return
	}
	elapsedMs := time.Since(started).Milliseconds()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ExecuteCardResponse{
		HTML:             result.HTML,
		UsedColumns:      result.UsedColumns,
		FilterApplicable: result.FilterApplicable,
		ExecutionTimeMs:  elapsedMs,
	})
}

// ExecuteTransform handles POST /execute/transform.
func (h *ExecutionHandlers) ExecuteTransform(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		WriteMethodNotAllowed(w)
		return
	}

	var req ExecuteTransformRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", "malformed request body: "+err.Error())
		return
	}

	inputs := make(map[string]table.Table, len(req.InputDatasets))
	for datasetID, rows := range req.InputDatasets {
		inputs[datasetID] = table.FromOrderedRows(rows)
	}

	result, err := h.transforms.Run(r.Context(), req.Code, inputs, req.Params)
	if err != nil {
		writeSandboxError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(ExecuteTransformResponse{
		OutputRows:      result.Output.ToRows(),
		RowCount:        result.Output.RowCount(),
		ColumnNames:     result.Output.Columns,
		ExecutionTimeMs: result.ExecutionTimeMs,
	})
}

// writeSandboxError maps a sandbox.Error's Kind to the response status the
// contract specifies: 400 for everything classified at compile/contract
// time, 408 for a timeout, 500 for anything else.
func writeSandboxError(w http.ResponseWriter, r *http.Request, err error) {
	se, ok := sandbox.AsSandboxError(err)
	if !ok {
		slog.Error("unclassified execution failure", "error", err)
		WriteErrorR(w, r, http.StatusInternalServerError, "Internal Server Error", "execution error: "+err.Error())
		return
	}

	switch se.Kind {
	case sandbox.KindCompileError, sandbox.KindContractViolation, sandbox.KindImportBlocked, sandbox.KindPermissionDenied:
		WriteErrorR(w, r, http.StatusBadRequest, "Bad Request", se.Message)
	case sandbox.KindTimeout:
		WriteErrorR(w, r, http.StatusRequestTimeout, "Request Timeout", se.Message)
	default:
		slog.Error("sandbox runtime error", "kind", se.Kind, "message", se.Message)
		WriteErrorR(w, r, http.StatusInternalServerError, "Internal Server Error", "execution error: "+se.Message)
	}
}
