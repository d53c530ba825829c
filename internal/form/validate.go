// internal/form/validate.go
//
// Leadgate – Forms subsystem: server-side validation and sanitization.
//
// Context
//   The endpoint hands Validate the decoded JSON object after the allow-list
//   check.  Each field is normalised and checked on its own, and every
//   failure is collected so the page can highlight exact fields in one
//   round trip.  Validate never panics on hostile input: missing keys and
//   unexpected types are simply treated as empty.
//
// Workflow
//   •  Normalise all nine fields (normalize.go).
//   •  Apply per-field rules and collect FieldErrors.
//   •  Return Result{OK: true, Data: &Lead{…}} only when no rule failed.
//
// Notes
//   •  The CSRF token is only length-checked here.  The endpoint compares it
//      with the cookie in constant time after validation.
//   •  A filled honeypot is an error from the validator's point of view.  The
//      endpoint decides how to answer it.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"regexp"
	"strings"
)

// Field limits.
const (
	MaxNameLength      = 80
	MaxCompanyLength   = 120
	MaxEmailLength     = 254
	MaxPhoneLength     = 24
	MaxCommentLength   = 1200
	MinCSRFTokenLength = 32
	MaxCSRFTokenLength = 128

	minTextLength        = 2
	minMeaningfulText    = 2
	minMeaningfulComment = 5
	minPhoneDigits       = 10
	maxPhoneDigits       = 15
)

// RE2 has no look-ahead, so the "no consecutive dots" rule is checked with
// strings.Contains next to this pattern.
var emailRe = regexp.MustCompile(`(?i)^[A-Z0-9._%+-]+@[A-Z0-9.-]+\.[A-Z]{2,}$`)

// Validate normalises and validates a raw submission.
func Validate(input map[string]any) Result {
	errs := FieldErrors{}

	intent, intentOK := normalizeIntent(input[FieldIntent])
	name := NormalizeText(input[FieldName])
	company := NormalizeText(input[FieldCompany])
	email := NormalizeEmail(input[FieldEmail])
	phone := NormalizePhone(input[FieldPhone])
	comment := NormalizeText(input[FieldComment])
	privacy := normalizePrivacy(input[FieldPrivacy])
	csrfToken := NormalizeText(input[FieldCSRFToken])
	website := NormalizeText(input[FieldWebsite])

	if !intentOK {
		errs[FieldIntent] = msgIntentInvalid
	}

	if msg := checkLabel(name, MaxNameLength, msgNameRequired, msgNameTooLong); msg != "" {
		errs[FieldName] = msg
	}
	if msg := checkLabel(company, MaxCompanyLength, msgCompanyRequired, msgCompanyTooLong); msg != "" {
		errs[FieldCompany] = msg
	}

	switch {
	case email == "":
		errs[FieldEmail] = msgEmailRequired
	case !validEmail(email):
		errs[FieldEmail] = msgEmailInvalid
	}

	switch {
	case phone == "":
		errs[FieldPhone] = msgPhoneRequired
	case !validPhone(phone):
		errs[FieldPhone] = msgPhoneInvalid
	}

	switch {
	case length(comment) > MaxCommentLength:
		errs[FieldComment] = fmt.Sprintf(msgCommentTooLong, MaxCommentLength)
	case comment != "" && meaningfulChars(comment) < minMeaningfulComment:
		errs[FieldComment] = msgCommentTooShort
	}

	if !privacy {
		errs[FieldPrivacy] = msgPrivacyRequired
	}

	switch n := length(csrfToken); {
	case n == 0:
		errs[FieldCSRFToken] = msgCSRFMissing
	case n < MinCSRFTokenLength || n > MaxCSRFTokenLength:
		errs[FieldCSRFToken] = msgCSRFStale
	}

	if website != "" {
		errs[FieldWebsite] = msgHoneypot
	}

	if len(errs) > 0 || !intentOK {
		return Result{OK: false, Errors: errs}
	}

	return Result{
		OK:     true,
		Errors: FieldErrors{},
		Data: &Lead{
			Intent:    intent,
			Name:      name,
			Company:   company,
			Email:     email,
			Phone:     phone,
			Comment:   comment,
			CSRFToken: csrfToken,
			Website:   website,
		},
	}
}

// checkLabel applies the shared name/company rule: at least two characters,
// two of them letters or digits, and no longer than max.
func checkLabel(v string, max int, requiredMsg, tooLongFmt string) string {
	switch {
	case length(v) < minTextLength || meaningfulChars(v) < minMeaningfulText:
		return requiredMsg
	case length(v) > max:
		return fmt.Sprintf(tooLongFmt, max)
	default:
		return ""
	}
}

func validEmail(s string) bool {
	return len(s) <= MaxEmailLength && !strings.Contains(s, "..") && emailRe.MatchString(s)
}

func validPhone(s string) bool {
	n := len(onlyDigits(s))
	return strings.HasPrefix(s, "+") &&
		n >= minPhoneDigits && n <= maxPhoneDigits &&
		len(s) <= MaxPhoneLength
}
