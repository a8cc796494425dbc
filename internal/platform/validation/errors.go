package validation

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ErrorBody is a standard validation error payload.
type ErrorBody struct {
	Error  string              `json:"error"`
	Fields map[string][]string `json:"fields"`
}

// ErrorResponse converts a validator error into a structured response.
func ErrorResponse(err error) ErrorBody {
	fields := map[string][]string{}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			field := fieldPath(fe.Namespace())
			fields[field] = append(fields[field], fe.Tag())
		}
	}
	if len(fields) == 0 {
		return ErrorBody{Error: err.Error(), Fields: fields}
	}
	return ErrorBody{Error: "validation_failed", Fields: fields}
}

// fieldPath drops the top-level struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		ns = ns[i+1:]
	}
	return strings.ToLower(ns)
}
