package inbound

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shandysiswandi/gootp/internal/notification/usecase"
	"github.com/shandysiswandi/gootp/internal/pkg/config"
	"github.com/shandysiswandi/gootp/internal/pkg/goroutine"
	"github.com/shandysiswandi/gootp/internal/pkg/instrument"
	"github.com/shandysiswandi/gootp/internal/pkg/messaging"
	"github.com/shandysiswandi/gootp/internal/pkg/uid"
	"github.com/shandysiswandi/gootp/internal/shared/event"
)

type syncUC struct {
	mu   sync.Mutex
	otps []usecase.ConsumeOTPIssuedInput
}

func (*syncUC) SendEmail(context.Context, usecase.SendEmailInput) error { return nil }

func (s *syncUC) ConsumeOTPIssued(_ context.Context, in usecase.ConsumeOTPIssuedInput) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.otps = append(s.otps, in)
	return nil
}

func (s *syncUC) consumed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.otps)
}

func TestRegisterMQConsumer(t *testing.T) {
	// Arrange
	cfg, err := config.NewViperFromBytes("yaml", []byte(`
modules:
  notification:
    consumer_names: [otp_issued_notification]
    consumer_concurrency: 2
`))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	mq := messaging.NewMemory(messaging.MemoryConfig{})
	routine := goroutine.NewManager(4)
	uc := &syncUC{}

	// Act
	started := RegisterMQConsumer(ctx, cfg, routine, mq, uid.NewUUID(), uc, instrument.NewNoop())

	_, err = mq.Publish(ctx, event.OTPIssuedDestination, messaging.OutgoingMessage{
		Body: mustJSON(t, event.OTPIssuedMessage{ID: "01JNOTP", Email: "ada@example.com", Code: "123456"}),
	})
	require.NoError(t, err)
	_, err = mq.Publish(ctx, event.EmailSendDestination, messaging.OutgoingMessage{Body: []byte(`{}`)})
	require.NoError(t, err)

	// Assert
	assert.Equal(t, 1, started)
	assert.Eventually(t, func() bool { return uc.consumed() == 1 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	_ = routine.Wait()
	require.NoError(t, mq.Close())
}
