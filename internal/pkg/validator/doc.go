// Package validator checks request and domain structs.
//
// Business code depends on the Validator interface. The go-playground
// implementation reports failures as snake_case field names mapped to
// English messages.
package validator
