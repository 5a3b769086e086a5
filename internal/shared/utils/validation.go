package utils

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/GriffinCanCode/ReviewCanvas/backend/internal/shared/types"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Payload size limits (in bytes)
const (
	MaxJSONSize      = 1 * 1024 * 1024  // REST bodies
	MaxBase64Upload  = 10 * 1024 * 1024 // base64 screenshot bodies
	MaxUploadSize    = 5 * 1024 * 1024  // decoded screenshot files
	MaxSocketMessage = 64 * 1024        // single websocket frame
)

// String length limits
const (
	MaxCommentLength    = 10000
	MaxReplyLength      = 10000
	MaxAuthorLength     = 128
	MaxURLLength        = 4096
	MaxBreakpointLength = 64
	MaxIDLength         = 128
	MaxNameLength       = 256
	MaxEmailLength      = 255
	MaxDrawingLength    = 512 * 1024
	MaxPasswordLength   = 128
)

var (
	// SafeIDPattern allows alphanumeric, hyphens, underscores
	SafeIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)
	// EmailPattern is a basic email validation
	EmailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	// ColorPattern accepts #rgb, #rrggbb and #rrggbbaa
	ColorPattern = regexp.MustCompile(`^#(?:[0-9a-fA-F]{3}|[0-9a-fA-F]{6}|[0-9a-fA-F]{8})$`)
)

// ValidateString validates a string field with length and content checks
func ValidateString(value, fieldName string, minLen, maxLen int, required bool) error {
	if required && value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	if value == "" {
		return nil
	}

	length := utf8.RuneCountInString(value)
	if length < minLen {
		return fmt.Errorf("%s must be at least %d characters", fieldName, minLen)
	}
	if length > maxLen {
		return fmt.Errorf("%s must not exceed %d characters", fieldName, maxLen)
	}
	if strings.Contains(value, "\x00") {
		return fmt.Errorf("%s contains invalid characters", fieldName)
	}
	return nil
}

// ValidateID validates an opaque identifier
func ValidateID(id, fieldName string, required bool) error {
	if err := ValidateString(id, fieldName, 1, MaxIDLength, required); err != nil {
		return err
	}
	if id != "" && !SafeIDPattern.MatchString(id) {
		return fmt.Errorf("%s contains invalid characters (only alphanumeric, hyphens, and underscores allowed)", fieldName)
	}
	return nil
}

// ValidateEmail validates an email address
func ValidateEmail(email string, required bool) error {
	if err := ValidateString(email, "email", 0, MaxEmailLength, required); err != nil {
		return err
	}
	if email != "" && !EmailPattern.MatchString(email) {
		return fmt.Errorf("invalid email format")
	}
	return nil
}

// ParseHTTPURL parses an absolute http(s) URL with a host.
func ParseHTTPURL(raw string) (*url.URL, error) {
	if raw == "" {
		return nil, errors.New("url is required")
	}
	if len(raw) > MaxURLLength {
		return nil, fmt.Errorf("url must not exceed %d characters", MaxURLLength)
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported url scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return nil, errors.New("url has no host")
	}
	return u, nil
}

// HTTPURL is an ozzo rule accepting absolute http(s) URLs.
var HTTPURL = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	_, err := ParseHTTPURL(s)
	return err
})

// NoNullBytes is an ozzo rule rejecting embedded NUL characters.
var NoNullBytes = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.Contains(s, "\x00") {
		return errors.New("contains invalid characters")
	}
	return nil
})

// Color is an ozzo rule for hex colors.
var Color = validation.Match(ColorPattern).Error("must be a hex color such as #ff4444")

// AsValidationError converts ozzo field errors into *types.ValidationError so
// callers can match types.ErrInvalidInput. Internal rule errors pass through.
func AsValidationError(err error) error {
	if err == nil {
		return nil
	}
	var internal validation.InternalError
	if errors.As(err, &internal) {
		return err
	}
	var errs validation.Errors
	if errors.As(err, &errs) {
		fields := make(map[string]string, len(errs))
		for k, v := range errs {
			fields[k] = v.Error()
		}
		return &types.ValidationError{Fields: fields}
	}
	return &types.ValidationError{Fields: map[string]string{"request": err.Error()}}
}
