//go:build debugotp

package usecase

const debugBypassCompiled = true

// debugBypass accepts 000000 as a TOTP code, in development only.
func debugBypass(env, code string) bool {
	return env == envDevelopment && code == "000000"
}
