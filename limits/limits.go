// Package limits provides centralized request field limits for the
// REST facade. This ensures consistent validation across endpoints
// before any request reaches the session or delivery layers.
package limits

import (
	"errors"
	"fmt"
)

const (
	// MaxMessageLength bounds the text body of an outbound message.
	MaxMessageLength = 4096

	// MaxCaptionLength bounds the caption of a media message.
	MaxCaptionLength = 1024

	// MaxFileNameLength bounds the file name of a document message.
	MaxFileNameLength = 255

	// MaxContactNameLength bounds contact card display names and
	// organizations.
	MaxContactNameLength = 100

	// MinSessionIDLength and MaxSessionIDLength bound session
	// identifiers, which name credential directories on disk.
	MinSessionIDLength = 3
	MaxSessionIDLength = 50

	// MinPhoneLength and MaxPhoneLength bound raw target addresses.
	MinPhoneLength = 5
	MaxPhoneLength = 20

	// MinBulkDelayMS and MaxBulkDelayMS bound the configurable
	// inter-message delay of bulk sends.
	MinBulkDelayMS = 100
	MaxBulkDelayMS = 10000
)

var (
	// ErrFieldEmpty indicates a required field was empty.
	ErrFieldEmpty = errors.New("field is required")

	// ErrFieldTooLong indicates a field exceeds its maximum length.
	ErrFieldTooLong = errors.New("field too long")

	// ErrFieldInvalid indicates a field is malformed.
	ErrFieldInvalid = errors.New("field is invalid")
)

// ValidateSessionID validates a session identifier: alphanumeric, 3 to
// 50 characters. Session ids become directory names, so anything else
// is rejected.
func ValidateSessionID(id string) error {
	if id == "" {
		return fmt.Errorf("%w: session id", ErrFieldEmpty)
	}
	if len(id) < MinSessionIDLength || len(id) > MaxSessionIDLength {
		return fmt.Errorf("%w: session id must be %d-%d characters", ErrFieldInvalid, MinSessionIDLength, MaxSessionIDLength)
	}
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return fmt.Errorf("%w: session id must be alphanumeric", ErrFieldInvalid)
		}
	}
	return nil
}

// ValidatePhone validates a raw target address length.
func ValidatePhone(phone string) error {
	if phone == "" {
		return fmt.Errorf("%w: target", ErrFieldEmpty)
	}
	if len(phone) < MinPhoneLength || len(phone) > MaxPhoneLength+len("@s.whatsapp.net") {
		return fmt.Errorf("%w: target must be %d-%d characters", ErrFieldInvalid, MinPhoneLength, MaxPhoneLength)
	}
	return nil
}

// ValidateMessage validates an outbound text body against
// MaxMessageLength.
func ValidateMessage(message string) error {
	if len(message) > MaxMessageLength {
		return fmt.Errorf("%w: message size %d exceeds limit %d", ErrFieldTooLong, len(message), MaxMessageLength)
	}
	return nil
}

// ValidateCaption validates a media caption against MaxCaptionLength.
func ValidateCaption(caption string) error {
	if len(caption) > MaxCaptionLength {
		return fmt.Errorf("%w: caption size %d exceeds limit %d", ErrFieldTooLong, len(caption), MaxCaptionLength)
	}
	return nil
}

// ValidateFileName validates a document file name against
// MaxFileNameLength.
func ValidateFileName(name string) error {
	if len(name) > MaxFileNameLength {
		return fmt.Errorf("%w: file name size %d exceeds limit %d", ErrFieldTooLong, len(name), MaxFileNameLength)
	}
	return nil
}

// ValidateContactName checks a contact card display name.
func ValidateContactName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: contact name", ErrFieldEmpty)
	}
	if len(name) > MaxContactNameLength {
		return fmt.Errorf("%w: contact name size %d exceeds limit %d", ErrFieldTooLong, len(name), MaxContactNameLength)
	}
	return nil
}

// ValidateBulkDelayMS validates the inter-message delay of a bulk
// send. Zero is allowed and selects the default delay.
func ValidateBulkDelayMS(delayMS int) error {
	if delayMS == 0 {
		return nil
	}
	if delayMS < MinBulkDelayMS || delayMS > MaxBulkDelayMS {
		return fmt.Errorf("%w: delay must be %d-%dms", ErrFieldInvalid, MinBulkDelayMS, MaxBulkDelayMS)
	}
	return nil
}
