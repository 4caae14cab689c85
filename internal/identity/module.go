package identity

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gootp/internal/identity/inbound"
	"github.com/shandysiswandi/gootp/internal/identity/outbound/cache"
	"github.com/shandysiswandi/gootp/internal/identity/outbound/db"
	"github.com/shandysiswandi/gootp/internal/identity/outbound/mq"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/hash"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/jwt"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/mfa"
	"github.com/shandysiswandi/gootp/internal/pkg/otp"
	"github.com/shandysiswandi/gootp/internal/pkg/router"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/validator"
)

type Dependency struct {
	Ctx          context.Context            `validate:"required"`
	DBConn       *pgxpool.Pool              `validate:"required"`
	CacheConn    *redis.Client              `validate:"required"`
	Enforcer     *casbin.SyncedEnforcer     `validate:"required"`
	Router       *router.Router             `validate:"required"`
	Messaging    messaging.Publisher        `validate:"required"`
	Config       config.Config              `validate:"required"`
	Instrument   instrument.Instrumentation `validate:"required"`
	UID          uid.NumberID               `validate:"required"`
	EventID      uid.StringID               `validate:"required"`
	HMAC         hash.Hash                  `validate:"required"`
	Bcrypt       hash.Hash                  `validate:"required"`
	MFAEncryptor mfa.Encryptor              `validate:"required"`
	Clock        clock.Clocker              `validate:"required"`
	Totp         otp.OTP                    `validate:"required"`
	Coder        otp.Coder                  `validate:"required"`
	Validator    validator.Validator        `validate:"required"`
	JWT          jwt.JWT                    `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	if err := usecase.CheckDebugBypass(dep.Config.GetString("app.env")); err != nil {
		return err
	}

	repoDB := db.NewDB(dep.DBConn, dep.Instrument)

	if err := grantStaff(dep.Ctx, repoDB, dep.Enforcer); err != nil {
		return err
	}

	uc := usecase.New(usecase.Dependency{
		RepoDB:        repoDB,
		RepoMessaging: mq.NewMessaging(dep.Messaging, dep.Instrument),
		RepoLimiter:   cache.NewLimiter(dep.CacheConn, dep.Instrument),
		Validator:     dep.Validator,
		Config:        dep.Config,
		HMAC:          dep.HMAC,
		Bcrypt:        dep.Bcrypt,
		MFAEncryptor:  dep.MFAEncryptor,
		UID:           dep.UID,
		EventID:       dep.EventID,
		Totp:          dep.Totp,
		Coder:         dep.Coder,
		Clock:         dep.Clock,
		JWT:           dep.JWT,
		Instrument:    dep.Instrument,
		Roles:         dep.Enforcer,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc, inbound.HTTPConfig{
		Enforcer: dep.Enforcer,
		Throttle: router.RateLimit{
			Rate:    dep.Config.GetFloat64("modules.identity.http.throttle.rate"),
			Burst:   dep.Config.GetInt("modules.identity.http.throttle.burst"),
			IdleTTL: dep.Config.GetMinute("modules.identity.http.throttle.idle_minutes"),
		},
	})

	return nil
}

// grantStaff groups every staff user under the admin role.
func grantStaff(ctx context.Context, repo *db.DB, e *casbin.SyncedEnforcer) error {
	ids, err := repo.ListStaffUserIDs(ctx)
	if err != nil {
		return fmt.Errorf("identity: list staff users: %w", err)
	}

	for _, id := range ids {
		if _, err := e.AddGroupingPolicy(strconv.FormatInt(id, 10), usecase.RoleAdmin); err != nil {
			return fmt.Errorf("identity: grant admin to %d: %w", id, err)
		}
	}

	slog.InfoContext(ctx, "staff users granted admin role", "count", len(ids))
	return nil
}
