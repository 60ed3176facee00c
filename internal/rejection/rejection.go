// Package rejection turns raw rejection payloads written by validators into a
// small set of readable categories.
package rejection

import (
	"encoding/json"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NotAvailable is the category for a missing reason.
const NotAvailable = "N/A"

const (
	maxStructuredLen = 50
	maxTextLen       = 40
)

// Reason is the parsed form of a raw rejection payload. It is one of Empty,
// Structured or Text.
type Reason interface {
	isReason()
}

// Empty is a missing reason.
type Empty struct{}

// Structured is a reason that parsed as a JSON object.
type Structured struct {
	Raw          string
	FailedFields []string
	CheckName    string
	Message      string
	Stage        string
	FailedField  string
	Reason       string
	Error        string
}

// Text is any reason that is not a JSON object.
type Text struct {
	Raw string
}

func (Empty) isReason()      {}
func (Structured) isReason() {}
func (Text) isReason()       {}

var fieldCategories = map[string]string{
	"email":       "Invalid Email",
	"website":     "Invalid Website",
	"site":        "Invalid Website",
	"source_url":  "Invalid Source URL",
	"linkedin":    "Invalid LinkedIn",
	"region":      "Invalid Region",
	"role":        "Invalid Role",
	"industry":    "Invalid Industry",
	"phone":       "Invalid Phone",
	"name":        "Invalid Name",
	"first_name":  "Invalid Name",
	"last_name":   "Invalid Name",
	"company":     "Invalid Company",
	"title":       "Invalid Title",
	"address":     "Invalid Address",
	"exception":   "Validation Error",
	"llm_error":   "LLM Error",
	"source_type": "Invalid Source Type",
}

var checkCategories = map[string]string{
	"check_truelist_email":        "Invalid Email",
	"check_myemailverifier_email": "Invalid Email",
	"check_email_regex":           "Invalid Email",
	"check_mx_record":             "Invalid Email",
	"check_linkedin_gse":          "Invalid LinkedIn",
	"check_head_request":          "Invalid Website",
	"check_source_provenance":     "Invalid Source URL",
	"check_domain_age":            "Invalid Website",
	"check_dnsbl":                 "Invalid Website",
	"check_name_email_match":      "Name/Email Mismatch",
	"check_free_email_domain":     "Free Email Domain",
	"validation_error":            "Validation Error",
	"deep_verification":           "Deep Verification Failed",
}

// legacyFieldCategories covers the single failed_field attribute of older validators.
var legacyFieldCategories = map[string]string{
	"site":     "Invalid Website",
	"website":  "Invalid Website",
	"email":    "Invalid Email",
	"phone":    "Invalid Phone",
	"name":     "Invalid Name",
	"company":  "Invalid Company",
	"title":    "Invalid Title",
	"linkedin": "Invalid LinkedIn",
	"address":  "Invalid Address",
}

type stageCue struct {
	substrings []string
	category   string
}

var stageCues = []stageCue{
	{[]string{"Email", "TrueList", "MyEmailVerifier"}, "Invalid Email"},
	{[]string{"LinkedIn", "GSE"}, "Invalid LinkedIn"},
	{[]string{"DNS", "Domain"}, "Invalid Website"},
	{[]string{"Source Provenance"}, "Invalid Source URL"},
	{[]string{"Hardcoded"}, "Invalid Website"},
}

type keywordRule struct {
	keywords []string
	category string
}

// textRules are matched in order against the lower-cased raw reason.
var textRules = []keywordRule{
	{[]string{"duplicate"}, "Duplicate Lead"},
	{[]string{"spam"}, "Spam Detected"},
	{[]string{"disposable"}, "Disposable Email"},
	{[]string{"catchall", "catch-all"}, "Catch-all Email"},
	{[]string{"bounced", "bounce"}, "Email Bounced"},
}

const stage5Check = "check_stage5_unified"

// Parse classifies a raw reason. Payloads that look like JSON objects but fail
// to decode are returned as Text. Known attributes of an object are read one
// by one; an attribute of an unexpected type is ignored.
func Parse(raw string) Reason {
	if raw == "" || raw == NotAvailable {
		return Empty{}
	}
	if !strings.HasPrefix(raw, "{") {
		return Text{Raw: raw}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return Text{Raw: raw}
	}
	return Structured{
		Raw:          raw,
		FailedFields: stringList(fields["failed_fields"]),
		CheckName:    stringField(fields["check_name"]),
		Message:      stringField(fields["message"]),
		Stage:        stringField(fields["stage"]),
		FailedField:  stringField(fields["failed_field"]),
		Reason:       stringField(fields["reason"]),
		Error:        stringField(fields["error"]),
	}
}

// stringField returns v when it is a JSON string and "" otherwise.
func stringField(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// stringList returns the string elements of a JSON array. Other elements are
// skipped.
func stringList(v json.RawMessage) []string {
	var items []json.RawMessage
	if len(v) == 0 || json.Unmarshal(v, &items) != nil {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		var s string
		if json.Unmarshal(item, &s) == nil {
			out = append(out, s)
		}
	}
	return out
}

// Normalize returns the display category for a raw reason.
func Normalize(raw string) string {
	return Categorize(Parse(raw))
}

// NormalizePtr is Normalize for optional reasons.
func NormalizePtr(raw *string) string {
	if raw == nil {
		return NotAvailable
	}
	return Normalize(*raw)
}

// Categorize maps a parsed reason onto its category.
func Categorize(r Reason) string {
	switch r := r.(type) {
	case Empty:
		return NotAvailable
	case Structured:
		if category, ok := r.category(); ok {
			return category
		}
		return categorizeText(r.Raw)
	case Text:
		return categorizeText(r.Raw)
	default:
		return NotAvailable
	}
}

func (s Structured) category() (string, bool) {
	if len(s.FailedFields) > 0 {
		for _, field := range s.FailedFields {
			if category, ok := fieldCategories[strings.ToLower(field)]; ok {
				return category, true
			}
		}
		return "Invalid " + titleWords(strings.ReplaceAll(s.FailedFields[0], "_", " ")), true
	}

	if s.CheckName == stage5Check {
		msg := strings.ToLower(s.Message)
		failed := strings.Contains(msg, "failed")
		switch {
		case failed && strings.Contains(msg, "region"):
			return "Invalid Region", true
		case failed && strings.Contains(msg, "role"):
			return "Invalid Role", true
		case failed && strings.Contains(msg, "industry"):
			return "Invalid Industry", true
		}
		return "Role/Region/Industry Failed", true
	}
	if category, ok := checkCategories[s.CheckName]; ok {
		return category, true
	}

	for _, cue := range stageCues {
		for _, sub := range cue.substrings {
			if strings.Contains(s.Stage, sub) {
				return cue.category, true
			}
		}
	}

	if s.FailedField != "" {
		if category, ok := legacyFieldCategories[strings.ToLower(s.FailedField)]; ok {
			return category, true
		}
		return "Invalid " + s.FailedField, true
	}

	if s.Reason != "" {
		return truncate(s.Reason, maxStructuredLen), true
	}
	if s.Error != "" {
		return truncate(s.Error, maxStructuredLen), true
	}
	return "", false
}

func categorizeText(raw string) string {
	lower := strings.ToLower(raw)
	for _, rule := range textRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.category
			}
		}
	}

	clean := strings.Map(func(r rune) rune {
		switch r {
		case '{', '}', '[', ']', '"', '\'', ':':
			return -1
		}
		return r
	}, raw)
	clean = strings.Join(strings.Fields(clean), " ")
	if utf8.RuneCountInString(clean) > maxTextLen {
		return truncate(clean, maxTextLen) + "..."
	}
	return clean
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// titleWords upper-cases the first letter of every word.
func titleWords(s string) string {
	out := []rune(s)
	prevWord := false
	for i, r := range out {
		isWord := r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
		if isWord && !prevWord {
			out[i] = unicode.ToUpper(r)
		}
		prevWord = isWord
	}
	return string(out)
}
