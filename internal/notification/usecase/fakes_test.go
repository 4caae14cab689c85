package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/notification/entity"
	"github.com/shandysiswandi/gootp/internal/pkg/clock"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/idempotency"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/mail"
	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
)

var testNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type fakeDB struct {
	mu         sync.Mutex
	deliveries map[int64]entity.EmailDelivery
	createErr  error
}

func (f *fakeDB) CreateDelivery(_ context.Context, d entity.EmailDelivery) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return f.createErr
	}
	f.deliveries[d.ID] = d
	return nil
}

func (f *fakeDB) UpdateDeliveryStatus(_ context.Context, id int64, status entity.DeliveryStatus, errMsg string, meta valueobject.JSONMap, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	d, ok := f.deliveries[id]
	if !ok {
		return errors.New("missing delivery")
	}
	d.Status, d.Error, d.UpdatedAt = status, errMsg, at
	for k, v := range meta {
		d.Metadata[k] = v
	}
	f.deliveries[id] = d
	return nil
}

func (f *fakeDB) only(t *testing.T) entity.EmailDelivery {
	t.Helper()

	f.mu.Lock()
	defer f.mu.Unlock()

	require.Len(t, f.deliveries, 1)
	for _, d := range f.deliveries {
		return d
	}
	return entity.EmailDelivery{}
}

type fakeMail struct {
	mu    sync.Mutex
	sent  []mail.Message
	calls int
	// failures is how many leading calls fail.
	failures int
}

func (f *fakeMail) Send(_ context.Context, msg mail.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.calls <= f.failures {
		return errors.New("provider unavailable")
	}
	f.sent = append(f.sent, msg)
	return nil
}

func (*fakeMail) Provider() string { return mail.DriverLog }

// memIdempotency mirrors the Redis tracker: a failed fn releases the key.
type memIdempotency struct {
	mu   sync.Mutex
	done map[string]bool
}

func (m *memIdempotency) Exec(ctx context.Context, key string, fn func(context.Context) error, _ ...idempotency.Option) error {
	m.mu.Lock()
	if m.done[key] {
		m.mu.Unlock()
		return idempotency.ErrAlreadyCompleted
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		return err
	}

	m.mu.Lock()
	m.done[key] = true
	m.mu.Unlock()
	return nil
}

type seqID struct {
	mu sync.Mutex
	n  int64
}

func (s *seqID) Generate() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return 5000 + s.n
}

type fixture struct {
	db    *fakeDB
	mail  *fakeMail
	idemp *memIdempotency
	uc    *Usecase
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    mail:
      max_retries: 2
      backoff_ms: 1
`))
	require.NoError(t, err)

	f := &fixture{
		db:    &fakeDB{deliveries: map[int64]entity.EmailDelivery{}},
		mail:  &fakeMail{},
		idemp: &memIdempotency{done: map[string]bool{}},
	}

	f.uc, err = New(Dependency{
		RepoDB:      f.db,
		RepoMail:    f.mail,
		Idempotency: f.idemp,
		Config:      cfg,
		UID:         &seqID{},
		Clock:       clock.NewFixed(testNow),
		Instrument:  instrument.NewNoop(),
	})
	require.NoError(t, err)

	return f
}
