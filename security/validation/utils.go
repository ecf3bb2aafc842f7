package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/mezonai/starledger/block"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidField = errors.New("invalid field")

var InjectionRegexp = BuildInjectionPatterns()

// BuildInjectionPatterns builds regexp for injection detection (case-insensitive)
func BuildInjectionPatterns() *regexp.Regexp {
	parts := make([]string, 0, len(InjectionPatterns))
	for _, pattern := range InjectionPatterns {
		pNorm := norm.NFC.String(pattern)
		parts = append(parts, regexp.QuoteMeta(pNorm))
	}
	// (?i) for case-insensitive
	return regexp.MustCompile("(?i)" + strings.Join(parts, "|"))
}

// ValidateShortTextLength validates short text field length
func ValidateShortTextLength(fieldName, fieldValue string) error {
	normalized := norm.NFC.String(fieldValue)
	if utf8.RuneCountInString(normalized) > MaxShortTextLength {
		return fmt.Errorf("%w: '%s' exceeds %d characters", ErrInvalidField, fieldName, MaxShortTextLength)
	}
	return nil
}

// ValidateLongText validates long text field length and rejects injection patterns
func ValidateLongText(fieldName, fieldValue string) error {
	normalized := norm.NFC.String(fieldValue)
	if utf8.RuneCountInString(normalized) > MaxLongTextLength {
		return fmt.Errorf("%w: '%s' exceeds %d characters", ErrInvalidField, fieldName, MaxLongTextLength)
	}
	if InjectionRegexp.MatchString(normalized) {
		return fmt.Errorf("%w: '%s' contains invalid characters", ErrInvalidField, fieldName)
	}
	return nil
}

// ValidateBody checks the client supplied text of a block body. Errors wrap
// both ErrInvalidField and block.ErrInvalidBody.
func ValidateBody(body block.Body) error {
	var err error
	switch body.Kind {
	case block.KindText:
		err = ValidateLongText(TextField, body.Text)
	case block.KindOwned:
		err = validateOwned(body)
	}
	if err != nil {
		return fmt.Errorf("%w: %w", block.ErrInvalidBody, err)
	}
	return nil
}

func validateOwned(body block.Body) error {
	if err := ValidateShortTextLength(AddressField, body.Owner); err != nil {
		return err
	}
	if body.Star == nil {
		return nil
	}
	short := []struct{ name, value string }{
		{RAField, body.Star.RA},
		{DecField, body.Star.Dec},
		{MagnitudeField, body.Star.Magnitude},
		{ConstellationField, body.Star.Constellation},
	}
	for _, f := range short {
		if err := ValidateShortTextLength(f.name, f.value); err != nil {
			return err
		}
	}
	return ValidateLongText(StoryField, body.Star.StoryDecoded())
}
