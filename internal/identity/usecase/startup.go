package usecase

import "errors"

const envDevelopment = "development"

var ErrDebugBypassOutsideDevelopment = errors.New("identity: binary built with debugotp must run with app.env=development")

// CheckDebugBypass refuses to start a debugotp build outside development.
func CheckDebugBypass(env string) error {
	if debugBypassCompiled && env != envDevelopment {
		return ErrDebugBypassOutsideDevelopment
	}
	return nil
}
