// Package validator checks request structs against `validate` tags.
//
// Business code depends on the Validator interface; V10Validator backs it
// with go-playground/validator and reports failures keyed by JSON field name.
package validator

// Validator validates a struct and returns a descriptive error on failure.
type Validator interface {
	Validate(data any) error
}
