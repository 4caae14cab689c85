// Package jwt issues and verifies access tokens.
//
// It includes:
//   - Claims, the registered claims plus the user id and email.
//   - An HS512 implementation for signing and verifying tokens.
//   - Context helpers that carry the verified claims through a request.
package jwt
