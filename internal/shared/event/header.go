package event

// HeaderCorrelationID is the message header carrying the request correlation id.
const HeaderCorrelationID string = "cID"
