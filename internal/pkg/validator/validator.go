package validator

// Validator validates a struct and returns a ValidationError listing every
// failed field.
type Validator interface {
	Validate(data any) error
}
