package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shandysiswandi/gootp/internal/identity/entity"
	"github.com/shandysiswandi/gootp/internal/identity/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"go.opentelemetry.io/otel/codes"
)

const keyPrefix = "identity:otp:"

// issueScript returns the milliseconds to wait, or 0 when the issue is allowed.
// KEYS: cooldown, window. ARGV: cooldown ms, window ms, max per window.
var issueScript = redis.NewScript(`
local wait = redis.call('PTTL', KEYS[1])
if wait > 0 then
	return wait
end

local n = redis.call('INCR', KEYS[2])
if n == 1 then
	redis.call('PEXPIRE', KEYS[2], ARGV[2])
end

local max = tonumber(ARGV[3])
if max > 0 and n > max then
	wait = redis.call('PTTL', KEYS[2])
	if wait < 0 then
		wait = tonumber(ARGV[2])
	end
	return wait
end

if tonumber(ARGV[1]) > 0 then
	redis.call('SET', KEYS[1], '1', 'PX', ARGV[1])
end
return 0
`)

type Limiter struct {
	client redis.Scripter
	ins    instrument.Instrumentation
}

func NewLimiter(client redis.Scripter, ins instrument.Instrumentation) *Limiter {
	return &Limiter{client: client, ins: ins}
}

// AllowIssue enforces the cooldown and the per-window cap for a user and
// verification type. A positive duration is how long the caller must wait.
func (l *Limiter) AllowIssue(ctx context.Context, userID int64, typ entity.VerificationType, p usecase.OTPRateLimit) (_ time.Duration, err error) {
	ctx, span := l.ins.Tracer("identity.outbound.cache").Start(ctx, "AllowIssue")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if p.Cooldown <= 0 && (p.Max <= 0 || p.Window <= 0) {
		return 0, nil
	}

	window := p.Window
	if window <= 0 {
		window = time.Hour
	}

	base := fmt.Sprintf("%s%d:%s", keyPrefix, userID, typ)
	ms, err := issueScript.Run(ctx, l.client,
		[]string{base + ":cooldown", base + ":window"},
		p.Cooldown.Milliseconds(), window.Milliseconds(), p.Max,
	).Int64()
	if err != nil {
		return 0, err
	}

	return time.Duration(ms) * time.Millisecond, nil
}
