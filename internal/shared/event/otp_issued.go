package event

const OTPIssuedDestination string = "otp_issued"
const OTPIssuedConsumerNotification string = "otp_issued_notification"

// OTPIssuedMessage carries a freshly issued code to the mailer. ID is a ULID
// and doubles as the idempotency key.
type OTPIssuedMessage struct {
	ID                string `json:"id"`
	UserID            int64  `json:"user_id"`
	Email             string `json:"email"`
	Name              string `json:"name"`
	Code              string `json:"code"`
	VerificationType  string `json:"verification_type"`
	ExpirationMinutes int    `json:"expiration_minutes"`
}
