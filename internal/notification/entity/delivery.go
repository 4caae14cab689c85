package entity

import (
	"time"

	"github.com/shandysiswandi/gootp/internal/pkg/valueobject"
)

type DeliveryStatus string

const (
	DeliveryQueued DeliveryStatus = "queued"
	DeliverySent   DeliveryStatus = "sent"
	DeliveryFailed DeliveryStatus = "failed"
)

func (s DeliveryStatus) String() string { return string(s) }

// EmailDelivery is one attempt to hand an event's email to the provider.
type EmailDelivery struct {
	ID         int64
	EventID    string
	Subject    string
	Recipients []string
	Provider   string
	Status     DeliveryStatus
	Error      string
	Metadata   valueobject.JSONMap
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func NewEmailDelivery(id int64, eventID, subject string, recipients []string, provider string, now time.Time) EmailDelivery {
	return EmailDelivery{
		ID:         id,
		EventID:    eventID,
		Subject:    subject,
		Recipients: recipients,
		Provider:   provider,
		Status:     DeliveryQueued,
		Metadata:   valueobject.JSONMap{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}
