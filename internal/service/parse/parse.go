package parse

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/wildwest/orderbot/internal/service/models/product"
)

// Reason classifies an expected, user-facing validation failure.
// These are frequent outcomes, not system errors.
type Reason string

const (
	ReasonNotANumber    Reason = "not_a_number"
	ReasonNonPositive   Reason = "non_positive"
	ReasonBelowMinimum  Reason = "below_minimum"
	ReasonNotAMultiple  Reason = "not_a_multiple"
	ReasonBadShipping   Reason = "bad_shipping_format"
	ReasonEmptyField    Reason = "empty_field"
	ReasonBadContact    Reason = "bad_contact"
)

// ValidationError carries a reason code plus a user-facing message.
type ValidationError struct {
	Reason  Reason
	Message string
}

func (e *ValidationError) Error() string {
	return string(e.Reason) + ": " + e.Message
}

var (
	intTokenRe = regexp.MustCompile(`[-+]?\d+`)
	htmlTagRe  = regexp.MustCompile(`<[^>]*>`)
	contactRe  = regexp.MustCompile(`^\+?\d{10,15}$`)
)

// Quantity parses the first integer token in free text and validates
// it against the category's minimum order and step size.
func Quantity(text string, meta product.Meta) (int, *ValidationError) {
	token := intTokenRe.FindString(text)
	if token == "" {
		return 0, &ValidationError{ReasonNotANumber, "Please send a number."}
	}

	qty, err := strconv.Atoi(token)
	if err != nil {
		return 0, &ValidationError{ReasonNotANumber, "Please send a number."}
	}

	if qty <= 0 {
		return 0, &ValidationError{ReasonNonPositive, "Quantity must be greater than zero."}
	}
	if qty < meta.MinOrder {
		return 0, &ValidationError{
			ReasonBelowMinimum,
			fmt.Sprintf("Minimum order is %d %s.", meta.MinOrder, meta.Unit),
		}
	}
	if meta.Step > 1 && qty%meta.Step != 0 {
		return 0, &ValidationError{
			ReasonNotAMultiple,
			fmt.Sprintf("Quantity must be a multiple of %d %s.", meta.Step, meta.Unit),
		}
	}

	return qty, nil
}

// Shipping is the parsed, sanitized shipping details.
type Shipping struct {
	Name    string
	Address string
	Contact string
}

const (
	maxNameLen    = 50
	maxAddressLen = 100
	maxContactLen = 15
)

// ParseShipping parses "Name / Address / Contact-number". Each field
// is HTML-tag-stripped, length-capped, and must be non-empty after
// sanitization; the contact is 10-15 digits, optionally prefixed +.
func ParseShipping(text string) (Shipping, *ValidationError) {
	parts := strings.SplitN(text, "/", 3)
	if len(parts) != 3 {
		return Shipping{}, &ValidationError{
			ReasonBadShipping,
			"Please send: Name / Address / Contact number.",
		}
	}

	name := sanitize(parts[0], maxNameLen)
	address := sanitize(parts[1], maxAddressLen)
	contact := sanitize(parts[2], maxContactLen)

	if name == "" || address == "" || contact == "" {
		return Shipping{}, &ValidationError{
			ReasonEmptyField,
			"All three fields are required: Name / Address / Contact number.",
		}
	}

	if !contactRe.MatchString(contact) {
		return Shipping{}, &ValidationError{
			ReasonBadContact,
			"The contact number must be 10-15 digits, optionally starting with +.",
		}
	}

	return Shipping{Name: name, Address: address, Contact: contact}, nil
}

func sanitize(s string, maxLen int) string {
	s = htmlTagRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)
	if len(s) > maxLen {
		s = s[:maxLen]
	}

	return s
}
