// Package query compiles structured search criteria, as produced by an
// upstream language-understanding step, into a single boolean/range query
// string for the asset search backend.
package query

import "strings"

// Category is one of the closed set of criterion categories.
type Category string

const (
	CategoryFile     Category = "file_identification"
	CategoryFolder   Category = "folder_identification"
	CategoryWorkflow Category = "workflow_status"
	CategoryPerson   Category = "person_operations"
	CategoryDate     Category = "date_operations"
	CategoryPersonal Category = "personal_context"
)

// Categories lists every category the compiler understands.
var Categories = []Category{
	CategoryFile, CategoryFolder, CategoryWorkflow,
	CategoryPerson, CategoryDate, CategoryPersonal,
}

// Operator is a criterion comparison operator.
type Operator string

const (
	OpEqual        Operator = "="
	OpGreater      Operator = ">"
	OpGreaterEqual Operator = ">="
	OpLess         Operator = "<"
	OpLessEqual    Operator = "<="
)

// Subject holds a criterion's value: a single string or a non-empty list.
type Subject struct {
	values []string
	list   bool
}

// Scalar returns a single-valued subject. The empty string is a valid value.
func Scalar(v string) Subject {
	return Subject{values: []string{v}}
}

// List returns a list subject.
func List(values ...string) Subject {
	return Subject{values: append([]string(nil), values...), list: true}
}

// Values returns the subject's values in order.
func (s Subject) Values() []string {
	return append([]string(nil), s.values...)
}

// IsList reports whether the subject was given in list form.
func (s Subject) IsList() bool { return s.list }

// String joins list values with commas.
func (s Subject) String() string {
	return strings.Join(s.values, ",")
}

// Input is one criterion exactly as received from upstream: untyped
// category and subcategory strings.
type Input struct {
	Category    string   `json:"category"`
	Subcategory string   `json:"subcategory"`
	Subject     Subject  `json:"subject"`
	Operator    Operator `json:"operator"`
}

// Criterion is the typed form of an Input. Each category has exactly one
// implementation carrying only what that category needs.
type Criterion interface {
	Category() Category
	sealed()
}

// FileKind distinguishes file identification subcategories.
type FileKind int

const (
	FileOther FileKind = iota
	FileAssetDomain
	FileExtension
)

// FileCriterion matches asset domains or file extensions.
type FileCriterion struct {
	Kind   FileKind
	Values []string
}

// PersonalScope distinguishes personal context subcategories.
type PersonalScope int

const (
	PersonalUnknown PersonalScope = iota
	PersonalCreated
	PersonalModified
	PersonalAssigned
)

// PersonalCriterion matches assets related to the current user.
type PersonalCriterion struct {
	Scope PersonalScope
}

// DateCriterion compares a date field against a date expression.
type DateCriterion struct {
	Field      string
	Expression Subject
	Operator   Operator
}

// WorkflowCriterion matches a workflow status across every status field.
type WorkflowCriterion struct {
	Values []string
}

// FolderKind distinguishes folder identification subcategories.
type FolderKind int

const (
	FolderPath FolderKind = iota
	FolderName
	FolderAncestor
)

// FolderCriterion matches a folder by name (relative to the current folder)
// or by ancestor path.
type FolderCriterion struct {
	Kind FolderKind
	Path string
}

// PersonCriterion matches a person-valued field.
type PersonCriterion struct {
	Field  string
	Values []string
}

func (FileCriterion) Category() Category     { return CategoryFile }
func (PersonalCriterion) Category() Category { return CategoryPersonal }
func (DateCriterion) Category() Category     { return CategoryDate }
func (WorkflowCriterion) Category() Category { return CategoryWorkflow }
func (FolderCriterion) Category() Category   { return CategoryFolder }
func (PersonCriterion) Category() Category   { return CategoryPerson }

func (FileCriterion) sealed()     {}
func (PersonalCriterion) sealed() {}
func (DateCriterion) sealed()     {}
func (WorkflowCriterion) sealed() {}
func (FolderCriterion) sealed()   {}
func (PersonCriterion) sealed()   {}

// Backend field names.
const (
	FieldAssetDomain   = "assetDomain"
	FieldExtension     = "extension"
	FieldAssetCreator  = "assetCreator"
	FieldAssetModifier = "assetModifier"
	FieldAssignee      = "assignee"
	FieldAssetCreated  = "assetCreated"
	FieldAssetModified = "assetModified"
	FieldDueDate       = "dueDate"
	FieldTutor         = "cf_TutorName"
	FieldStatus        = "status"
	FieldApprovalState = "approvalState"
	FieldCustomStatus  = "cf_Status"
	FieldFolderPath    = "folderPath"
	FieldAncestorPaths = "ancestorPaths"
)

// StatusFields are the parallel fields a workflow status is matched against.
var StatusFields = []string{FieldStatus, FieldApprovalState, FieldCustomStatus}

var dateFields = map[string]string{
	"created":  FieldAssetCreated,
	"modified": FieldAssetModified,
	"imported": FieldAssetCreated,
	"uploaded": FieldAssetCreated,
	"due_date": FieldDueDate,
}

var personFields = map[string]string{
	"creator":  FieldAssetCreator,
	"modifier": FieldAssetModifier,
	"tutor":    FieldTutor,
	"assignee": FieldAssignee,
}

// DateField maps a date subcategory to its backend field. Unknown
// subcategories are used as the field name unchanged.
func DateField(subcategory string) string {
	if f, ok := dateFields[subcategory]; ok {
		return f
	}
	return subcategory
}

// PersonField maps a person subcategory to its backend field. Unknown
// subcategories are used as the field name unchanged.
func PersonField(subcategory string) string {
	if f, ok := personFields[subcategory]; ok {
		return f
	}
	return subcategory
}

// Field returns the backend field for the personal scope, or "" when the
// scope is unknown.
func (s PersonalScope) Field() string {
	switch s {
	case PersonalCreated:
		return FieldAssetCreator
	case PersonalModified:
		return FieldAssetModifier
	case PersonalAssigned:
		return FieldAssignee
	default:
		return ""
	}
}

// Classify converts an Input into its typed Criterion. It reports false for
// categories outside the closed set; such criteria are ignored.
func Classify(in Input) (Criterion, bool) {
	switch Category(in.Category) {
	case CategoryFile:
		kind := FileOther
		switch in.Subcategory {
		case "asset_domain":
			kind = FileAssetDomain
		case "extension":
			kind = FileExtension
		}
		return FileCriterion{Kind: kind, Values: in.Subject.Values()}, true

	case CategoryPersonal:
		scope := PersonalUnknown
		switch in.Subcategory {
		case "my_created":
			scope = PersonalCreated
		case "my_modified":
			scope = PersonalModified
		case "my_assigned":
			scope = PersonalAssigned
		}
		return PersonalCriterion{Scope: scope}, true

	case CategoryDate:
		return DateCriterion{
			Field:      DateField(in.Subcategory),
			Expression: in.Subject,
			Operator:   in.Operator,
		}, true

	case CategoryWorkflow:
		return WorkflowCriterion{Values: in.Subject.Values()}, true

	case CategoryFolder:
		kind := FolderPath
		switch in.Subcategory {
		case "folder_name":
			kind = FolderName
		case "ancestor_path":
			kind = FolderAncestor
		}
		return FolderCriterion{Kind: kind, Path: in.Subject.String()}, true

	case CategoryPerson:
		return PersonCriterion{Field: PersonField(in.Subcategory), Values: in.Subject.Values()}, true

	default:
		return nil, false
	}
}
