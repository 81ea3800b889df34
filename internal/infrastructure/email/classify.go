package email

import "strings"

// ErrorKind buckets transport failures for the email worker's retry
// decision. Only ErrKindInvalidEmail is permanent.
type ErrorKind string

const (
	ErrKindInvalidEmail     ErrorKind = "invalid_email"
	ErrKindServerError      ErrorKind = "server_error"
	ErrKindRateLimit        ErrorKind = "rate_limit"
	ErrKindAttachmentTooBig ErrorKind = "attachment_too_large"
	ErrKindUnknown          ErrorKind = "unknown"
)

// ClassifyError maps an SMTP error onto an ErrorKind by status code and
// message keywords. SMTP servers phrase rejections inconsistently, so the
// keyword lists are deliberately broad.
func ClassifyError(err error) ErrorKind {
	if err == nil {
		return ErrKindUnknown
	}

	msg := strings.ToLower(err.Error())

	switch {
	case containsAny(msg, "does not exist", "no such user", "user unknown", "invalid recipient", "invalid address", "mailbox unavailable", "550 "):
		return ErrKindInvalidEmail
	case containsAny(msg, "rate limit", "too many", "throttl", "421 ", "450 "):
		return ErrKindRateLimit
	case containsAny(msg, "too large", "exceeds", "size limit", "552 "):
		return ErrKindAttachmentTooBig
	case containsAny(msg, "timeout", "connection refused", "connection reset", "broken pipe", "temporarily", "i/o timeout", "451 "):
		return ErrKindServerError
	default:
		return ErrKindUnknown
	}
}

// IsPermanent reports whether retrying can never succeed.
func (k ErrorKind) IsPermanent() bool {
	return k == ErrKindInvalidEmail
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
