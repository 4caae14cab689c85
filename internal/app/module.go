package app

import (
	"log/slog"
	"os"

	"github.com/shandysiswandi/gootp/internal/identity"
	"github.com/shandysiswandi/gootp/internal/notification"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Ctx:          a.ctx,
			DBConn:       a.dbConn,
			CacheConn:    a.cacheConn,
			Enforcer:     a.casbin,
			Router:       a.router,
			Messaging:    a.messaging,
			Config:       a.config,
			Instrument:   a.ins,
			UID:          a.uid,
			EventID:      a.eventID,
			HMAC:         a.hmac,
			Bcrypt:       a.bcrypt,
			MFAEncryptor: a.mfaEncryptor,
			Clock:        a.clock,
			Totp:         a.totp,
			Coder:        a.coder,
			Validator:    a.validator,
			JWT:          a.jwt,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.notification.enabled") {
		if err := notification.New(notification.Dependency{
			Ctx:         a.ctx,
			DBConn:      a.dbConn,
			Messaging:   a.messaging,
			Idempotency: a.idemp,
			Config:      a.config,
			Instrument:  a.ins,
			UID:         a.uid,
			UUID:        a.uuid,
			Clock:       a.clock,
			Goroutine:   a.goroutine,
			Validator:   a.validator,
			Mail:        a.mail,
		}); err != nil {
			slog.Error("failed to init module notification", "error", err)
			os.Exit(1)
		}
	}
}
