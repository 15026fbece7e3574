package api

import (
	"github.com/starford/ansuz/internal/compiler"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/models"
)

// CompileRequest is the request body for compiling criteria. The same body
// is accepted by /validate, which ignores the context.
type CompileRequest struct {
	Criteria []CriterionDTO `json:"criteria" validate:"required"`
	Context  *ContextDTO    `json:"context,omitempty"`
	Query    string         `json:"query,omitempty" example:"approved pdfs I created"`
}

// CriterionDTO documents one structured criterion. Subject is a string or
// a list of strings.
type CriterionDTO struct {
	Category    string `json:"category" example:"workflow_status" validate:"required"`
	Subcategory string `json:"subcategory" example:"approval_state" validate:"required"`
	Subject     any    `json:"subject" validate:"required"`
	Operator    string `json:"operator" example:"=" validate:"required"`
}

// ContextDTO overrides the server's default resolution context.
type ContextDTO struct {
	CurrentUser   string `json:"current_user,omitempty" example:"jdoe"`
	CurrentFolder string `json:"current_folder,omitempty" example:"/Projects/Alpha"`
	CurrentDate   string `json:"current_date,omitempty" example:"2024-06-15T12:00:00Z"`
}

// CompileResponse is the response type for a successful compilation.
type CompileResponse = compiler.Result

// ResolveRequest is the request body for resolving dates. Either Expression
// or both Start and End must be set.
type ResolveRequest struct {
	Expression string `json:"expression,omitempty" example:"last week"`
	Start      string `json:"start,omitempty" example:"2024-01-01"`
	End        string `json:"end,omitempty" example:"today"`
	Reference  string `json:"reference,omitempty" example:"2024-06-15T12:00:00Z"`
}

// ResolveResponse is the response type for a resolved expression.
type ResolveResponse = compiler.Resolved

// HistoryResponse wraps paginated compile history.
type HistoryResponse struct {
	Compilations []models.Compilation `json:"compilations" validate:"required"`
	Total        int                  `json:"total" example:"42" validate:"required"`
}

// SearchResponse wraps history search results.
type SearchResponse struct {
	Results []history.SearchResult `json:"results" validate:"required"`
}
