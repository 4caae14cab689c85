// Package uid generates identifiers: snowflake row keys, UUIDv7 request and
// token IDs, and ULID event IDs.
package uid

// NumberID produces unique, roughly time-ordered int64 keys.
type NumberID interface {
	Generate() int64
}

// StringID produces unique string identifiers.
type StringID interface {
	Generate() string
}
