package email

// Message is the transport-level send request. HTML and Text are
// alternative bodies; Attachments ride along base64-encoded.
type Message struct {
	From        string
	To          string
	Subject     string
	HTML        string
	Text        string
	Attachments []Attachment
}

type Attachment struct {
	Filename    string
	Content     []byte
	ContentType string
}

// SendResult carries the provider message id recorded in email_logs.
type SendResult struct {
	MessageID string
}
