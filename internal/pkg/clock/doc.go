// Package clock lets business code read the current time through the Clocker
// interface instead of calling time.Now directly.
//
// Usecases and repositories take a Clocker so tests can pin the time and
// assert on expiry boundaries.
package clock
