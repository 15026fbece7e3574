package query

import (
	"errors"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const reasonMissing = "missing required field"

var (
	errNotString    = validation.NewError("criteria_not_string", "must be a string")
	errEmptySubject = validation.NewError("criteria_subject_empty", "empty array in subject field")
	errSubjectItem  = validation.NewError("criteria_subject_item", "non-string value in subject array")
	errSubjectType  = validation.NewError("criteria_subject_type", "invalid subject type")
)

// criterionFields is the order in which a criterion's fields are checked;
// the first failing field is the one reported.
var criterionFields = []string{"category", "subcategory", "subject", "operator"}

var criterionRules = validation.Map(
	validation.Key("category", validation.NotNil, validation.By(isString)),
	validation.Key("subcategory", validation.NotNil, validation.By(isString)),
	validation.Key("subject", validation.NotNil, validation.By(isSubject)),
	validation.Key("operator", validation.NotNil, validation.By(isString)),
).AllowExtraKeys()

// Validate checks a decoded structured-criteria document ({"criteria": [...]})
// before compilation. Empty strings are valid values for every field.
func Validate(doc map[string]any) error {
	raw, ok := doc["criteria"]
	if !ok || raw == nil {
		return &ValidationError{Index: -1, Field: "criteria", Reason: "missing criteria array"}
	}
	list, ok := raw.([]any)
	if !ok {
		return &ValidationError{Index: -1, Field: "criteria", Reason: "criteria must be an array"}
	}

	for i, item := range list {
		c, ok := item.(map[string]any)
		if !ok {
			return &ValidationError{Index: i, Reason: "criterion must be an object"}
		}
		if err := validation.Validate(c, criterionRules); err != nil {
			return criterionError(i, err)
		}
	}
	return nil
}

// ValidateInputs checks criteria built in code, where fields cannot be absent
// but a list subject can still be empty.
func ValidateInputs(inputs []Input) error {
	for i, in := range inputs {
		if len(in.Subject.values) == 0 {
			if in.Subject.list {
				return &ValidationError{Index: i, Field: "subject", Reason: errEmptySubject.Message()}
			}
			return &ValidationError{Index: i, Field: "subject", Reason: reasonMissing}
		}
	}
	return nil
}

// Decode converts a validated document into Inputs.
func Decode(doc map[string]any) ([]Input, error) {
	if err := Validate(doc); err != nil {
		return nil, err
	}
	list := doc["criteria"].([]any)
	out := make([]Input, len(list))
	for i, item := range list {
		c := item.(map[string]any)
		out[i] = Input{
			Category:    c["category"].(string),
			Subcategory: c["subcategory"].(string),
			Subject:     subjectOf(c["subject"]),
			Operator:    Operator(c["operator"].(string)),
		}
	}
	return out, nil
}

func subjectOf(v any) Subject {
	switch s := v.(type) {
	case string:
		return Scalar(s)
	case []string:
		return List(s...)
	case []any:
		values := make([]string, len(s))
		for i, item := range s {
			values[i] = item.(string)
		}
		return List(values...)
	}
	return Subject{}
}

func criterionError(index int, err error) error {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return &ValidationError{Index: index, Reason: err.Error()}
	}
	for _, field := range criterionFields {
		fieldErr, ok := errs[field]
		if !ok || fieldErr == nil {
			continue
		}
		reason := reasonMissing
		var verr validation.Error
		if errors.As(fieldErr, &verr) {
			switch verr.Code() {
			case errNotString.Code(), errEmptySubject.Code(), errSubjectItem.Code(), errSubjectType.Code():
				reason = verr.Message()
			}
		}
		return &ValidationError{Index: index, Field: field, Reason: reason}
	}
	return &ValidationError{Index: index, Reason: err.Error()}
}

func isString(value any) error {
	if _, ok := value.(string); !ok {
		return errNotString
	}
	return nil
}

func isSubject(value any) error {
	switch v := value.(type) {
	case string:
		return nil
	case []string:
		if len(v) == 0 {
			return errEmptySubject
		}
		return nil
	case []any:
		if len(v) == 0 {
			return errEmptySubject
		}
		for _, item := range v {
			if _, ok := item.(string); !ok {
				return errSubjectItem
			}
		}
		return nil
	default:
		return errSubjectType
	}
}
