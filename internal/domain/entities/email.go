package entities

// EmailMessage is an outbound transactional email.
type EmailMessage struct {
	To      []string
	Subject string
	HTML    string
	ReplyTo string
}
