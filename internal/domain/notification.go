package domain

import "time"

// Channel is an outbound delivery channel.
type Channel string

const (
	ChannelEmail Channel = "email"
	ChannelChat  Channel = "chat"
)

// Valid reports whether c is a supported delivery channel.
func (c Channel) Valid() bool {
	return c == ChannelEmail || c == ChannelChat
}

// JobStatus is the delivery state of a notification job.
// pending --(send success)--> sent; pending --(send failure)--> failed;
// failed --(explicit retry)--> pending. sent is terminal.
type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobSent    JobStatus = "sent"
	JobFailed  JobStatus = "failed"
)

// NotificationJob records one logical notification send and its outcome.
// DedupeKey enforces at-most-one delivery per logical notification
// within a bucket window.
type NotificationJob struct {
	ID              string    `json:"id"`
	Channel         Channel   `json:"channel"`
	TemplateKey     string    `json:"template_key"`
	Recipient       string    `json:"recipient"`
	RenderedSubject string    `json:"rendered_subject,omitempty"`
	RenderedBody    string    `json:"rendered_body"`
	DedupeKey       string    `json:"dedupe_key"`
	Status          JobStatus `json:"status"`
	Attempts        int       `json:"attempts"`
	LastError       string    `json:"last_error,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	SentAt          time.Time `json:"sent_at,omitzero"`
}
