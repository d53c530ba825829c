// internal/form/lead.go
//
// Leadgate – Forms subsystem: lead submission schema.
//
// Context
//   The landing page posts one JSON object per lead.  This file declares the
//   nine keys the endpoint accepts, the two allowed intents, and the typed
//   Lead that Validate returns once every rule passes.  Anything outside the
//   allow-list is rejected before field validation runs, so schema drift and
//   parameter pollution never reach the validator.
//
// Style
//   Two-space sentence spacing, Oxford comma, concise inline notes.
//
//------------------------------------------------------------------------------

package form

import "sort"

// Intent is the kind of request the visitor selected on the page.
type Intent string

const (
	IntentDemo     Intent = "demo"
	IntentOnePager Intent = "one-pager"
)

// Intents lists every accepted intent in display order.
var Intents = []Intent{IntentDemo, IntentOnePager}

// Field names accepted in a submission.
const (
	FieldIntent    = "intent"
	FieldName      = "name"
	FieldCompany   = "company"
	FieldEmail     = "email"
	FieldPhone     = "phone"
	FieldComment   = "comment"
	FieldPrivacy   = "privacy"
	FieldCSRFToken = "csrfToken"
	FieldWebsite   = "website" // honeypot, hidden from humans
)

// AllowedFields is the complete submission allow-list.
var AllowedFields = []string{
	FieldIntent,
	FieldName,
	FieldCompany,
	FieldEmail,
	FieldPhone,
	FieldComment,
	FieldPrivacy,
	FieldCSRFToken,
	FieldWebsite,
}

var allowedSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(AllowedFields))
	for _, f := range AllowedFields {
		m[f] = struct{}{}
	}
	return m
}()

// Lead is a fully normalised submission.  Privacy is implied true.
type Lead struct {
	Intent    Intent `json:"intent"`
	Name      string `json:"name"`
	Company   string `json:"company"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Comment   string `json:"comment"`
	CSRFToken string `json:"csrfToken"`
	Website   string `json:"website"`
}

// Map renders the lead back into the raw submission shape.  Feeding the
// result to Validate yields an identical Lead.
func (l Lead) Map() map[string]any {
	return map[string]any{
		FieldIntent:    string(l.Intent),
		FieldName:      l.Name,
		FieldCompany:   l.Company,
		FieldEmail:     l.Email,
		FieldPhone:     l.Phone,
		FieldComment:   l.Comment,
		FieldPrivacy:   true,
		FieldCSRFToken: l.CSRFToken,
		FieldWebsite:   l.Website,
	}
}

// FieldErrors maps a field name to its user-facing message.
type FieldErrors map[string]string

// Result is the outcome of Validate.  Data is non-nil only when OK is true.
type Result struct {
	OK     bool
	Errors FieldErrors
	Data   *Lead
}

// UnexpectedFields returns the sorted keys of input that are not part of the
// allow-list.  A nil or empty slice means the payload shape is acceptable.
func UnexpectedFields(input map[string]any) []string {
	var out []string
	for k := range input {
		if _, ok := allowedSet[k]; !ok {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
