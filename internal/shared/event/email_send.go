package event

const EmailSendDestination string = "email_send"
const EmailSendConsumerNotification string = "email_send_notification"

type EmailSendMessage struct {
	ID         string   `json:"id"`
	Subject    string   `json:"subject"`
	HTML       string   `json:"html"`
	Recipients []string `json:"recipients"`
}
