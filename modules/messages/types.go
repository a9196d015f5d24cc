package messages

import (
	"errors"
	"unicode/utf8"
)

// Validation constants
const (
	MaxSenderLength = 100
	MaxTextLength   = 1000
)

// Validation errors
var (
	ErrSenderEmpty   = errors.New("sender cannot be empty")
	ErrSenderTooLong = errors.New("sender exceeds maximum length")
	ErrSenderInvalid = errors.New("sender contains invalid characters")
	ErrTextEmpty     = errors.New("message text cannot be empty")
	ErrTextTooLong   = errors.New("message text exceeds maximum length")
	ErrTextInvalid   = errors.New("message text contains invalid characters")
)

// IsValidationError reports whether err is one of the message validation
// errors, so the transport layer can map it to a client error.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrSenderEmpty, ErrSenderTooLong, ErrSenderInvalid,
		ErrTextEmpty, ErrTextTooLong, ErrTextInvalid,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ValidateSender validates a sender label. Senders are self-asserted,
// unverified strings; only shape is checked.
func ValidateSender(sender string) error {
	if sender == "" {
		return ErrSenderEmpty
	}
	if len(sender) > MaxSenderLength {
		return ErrSenderTooLong
	}
	if !utf8.ValidString(sender) {
		return ErrSenderInvalid
	}
	return nil
}

// ValidateText validates a message body.
func ValidateText(text string) error {
	if text == "" {
		return ErrTextEmpty
	}
	if len(text) > MaxTextLength {
		return ErrTextTooLong
	}
	if !utf8.ValidString(text) {
		return ErrTextInvalid
	}
	return nil
}
