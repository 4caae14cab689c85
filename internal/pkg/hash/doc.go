// Package hash turns secrets into values that are safe to store and checks
// plaintext against them.
//
// Bcrypt is used for passwords. HMAC-SHA256 is used for refresh tokens, which
// must be looked up by their hash.
package hash
