package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/parser"
)

const maxBodyBytes = 1 << 20

// Handler holds API route handlers.
type Handler struct {
	svc *compiler.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *compiler.Service) *Handler {
	return &Handler{svc: svc}
}

// decodeDocument reads a JSON criteria document from the request body.
func decodeDocument(w http.ResponseWriter, r *http.Request) (*parser.Result, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var doc map[string]any
	if err := json.NewDecoder(r.Body).Decode(&doc); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return nil, false
	}
	if doc == nil {
		doc = map[string]any{}
	}
	return parser.FromDocument(doc), true
}

// Compile handles POST /api/compile.
//
//	@Summary		Compile structured criteria into a search query
//	@Tags			compile
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CompileRequest	true	"Criteria document"
//	@Success		200		{object}	CompileResponse
//	@Failure		400		{object}	errResponse
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/compile [post]
func (h *Handler) Compile(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Compile(r.Context(), compiler.Request{
		Document: doc.Document,
		Context:  doc.Context,
		Source:   compiler.SourceAPI,
		Title:    doc.Title,
	})
	if err != nil {
		writeError(w, "compile", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Validate handles POST /api/validate.
//
//	@Summary		Validate structured criteria without compiling
//	@Tags			compile
//	@Accept			json
//	@Param			body	body	CompileRequest	true	"Criteria document"
//	@Success		204		"Criteria are valid"
//	@Failure		422		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/validate [post]
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	doc, ok := decodeDocument(w, r)
	if !ok {
		return
	}
	if err := h.svc.Validate(r.Context(), doc.Document); err != nil {
		writeError(w, "validate", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Resolve handles POST /api/resolve.
//
//	@Summary		Resolve a natural-language date expression
//	@Tags			dates
//	@Accept			json
//	@Produce		json
//	@Param			body	body		ResolveRequest	true	"Expression or start/end pair"
//	@Success		200		{object}	ResolveResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/resolve [post]
func (h *Handler) Resolve(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid JSON body"))
		return
	}

	var (
		res *compiler.Resolved
		err error
	)
	switch {
	case req.Start != "" || req.End != "":
		if req.Start == "" || req.End == "" {
			writeJSON(w, http.StatusBadRequest, errorBody("start and end are both required"))
			return
		}
		res, err = h.svc.ResolveRange(r.Context(), req.Start, req.End, req.Reference)
	case req.Expression != "":
		res, err = h.svc.Resolve(r.Context(), req.Expression, req.Reference)
	default:
		writeJSON(w, http.StatusBadRequest, errorBody("expression is required"))
		return
	}
	if err != nil {
		writeError(w, "resolve", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListHistory handles GET /api/history.
//
//	@Summary		List recorded compilations
//	@Tags			history
//	@Produce		json
//	@Param			limit		query		int		false	"Page size"
//	@Param			offset		query		int		false	"Page offset"
//	@Param			category	query		string	false	"Filter by criterion category"
//	@Param			status		query		string	false	"Filter by outcome"	Enums(ok, failed)
//	@Param			source		query		string	false	"Filter by source"	Enums(api, mcp, cli, inbox)
//	@Param			sort		query		string	false	"Sort field"		Enums(created_at, title, source)
//	@Success		200			{object}	HistoryResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history [get]
func (h *Handler) ListHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, _ := strconv.Atoi(q.Get("limit"))
	offset, _ := strconv.Atoi(q.Get("offset"))

	items, total, err := h.svc.History(r.Context(), history.ListOptions{
		Limit:    limit,
		Offset:   offset,
		Category: q.Get("category"),
		Status:   q.Get("status"),
		Source:   q.Get("source"),
		Sort:     q.Get("sort"),
	})
	if err != nil {
		writeError(w, "list history", err)
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Compilations: items, Total: total})
}

// GetCompilation handles GET /api/history/{id}.
//
//	@Summary		Get one recorded compilation
//	@Tags			history
//	@Produce		json
//	@Param			id	path		string	true	"Compilation ID"
//	@Success		200	{object}	models.Compilation
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/{id} [get]
func (h *Handler) GetCompilation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	c, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, "get compilation", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// SearchHistory handles GET /api/history/search.
//
//	@Summary		Full-text search across compile history
//	@Tags			history
//	@Produce		json
//	@Param			q		query		string	true	"Search query"
//	@Param			limit	query		int		false	"Max results"
//	@Success		200		{object}	SearchResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/history/search [get]
func (h *Handler) SearchHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	if q == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("query parameter 'q' is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	results, err := h.svc.Search(r.Context(), q, limit)
	if err != nil {
		writeError(w, "search history", err)
		return
	}
	if results == nil {
		results = []history.SearchResult{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Results: results})
}
