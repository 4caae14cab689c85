package usecase

import (
	"context"
	"time"

	"github.com/shandysiswandi/gootp/internal/notification/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
	"go.opentelemetry.io/otel/trace"
)

type repoDB interface {
	CreateDelivery(ctx context.Context, d entity.EmailDelivery) error
	UpdateDeliveryStatus(ctx context.Context, id int64, status entity.DeliveryStatus, errMsg string, meta valueobject.JSONMap, at time.Time) error
}

type repoMail interface {
	Send(ctx context.Context, msg mail.Message) error
	Provider() string
}

type Usecase struct {
	repoDB   repoDB
	repoMail repoMail
	idemp    idempotency.Idempotency
	cfg      config.Config
	uid      uid.NumberID
	clock    clock.Clocker
	ins      instrument.Instrumentation
	tpl      *templates
}

type Dependency struct {
	RepoDB      repoDB
	RepoMail    repoMail
	Idempotency idempotency.Idempotency
	Config      config.Config
	UID         uid.NumberID
	Clock       clock.Clocker
	Instrument  instrument.Instrumentation
}

func New(dep Dependency) (*Usecase, error) {
	tpl, err := parseTemplates()
	if err != nil {
		return nil, err
	}

	return &Usecase{
		repoDB:   dep.RepoDB,
		repoMail: dep.RepoMail,
		idemp:    dep.Idempotency,
		cfg:      dep.Config,
		uid:      dep.UID,
		clock:    dep.Clock,
		ins:      dep.Instrument,
		tpl:      tpl,
	}, nil
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("notification.usecase").Start(ctx, name)
}
