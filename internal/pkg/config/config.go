// Package config exposes typed, read-only access to application settings.
//
// Values are resolved on every call, so a hot-reloaded file is visible to the
// next operation that reads a key.
package config

import (
	"io"
	"time"
)

// Config reads configuration values by dotted key. Missing keys and values
// that fail conversion resolve to the zero value of the requested type.
type Config interface {
	io.Closer

	GetSecond(key string) time.Duration
	GetMinute(key string) time.Duration
	GetHour(key string) time.Duration
	GetDay(key string) time.Duration

	GetInt(key string) int
	GetInt64(key string) int64
	GetUint(key string) uint
	GetUint64(key string) uint64
	GetFloat64(key string) float64

	GetBool(key string) bool
	GetString(key string) string

	// GetBinary decodes a base64 value.
	GetBinary(key string) []byte

	// GetArray splits "a,b,c". Blank elements are dropped.
	GetArray(key string) []string

	// GetMap parses "k1:v1,k2:v2".
	GetMap(key string) map[string]string
}
