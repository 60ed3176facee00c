package rejection

import (
	"strings"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"empty", "", "N/A"},
		{"sentinel", "N/A", "N/A"},
		{"failed fields email", `{"failed_fields":["email"]}`, "Invalid Email"},
		{"failed fields case insensitive", `{"failed_fields":["LinkedIn"]}`, "Invalid LinkedIn"},
		{"failed fields first known wins", `{"failed_fields":["mystery","website","email"]}`, "Invalid Website"},
		{"failed fields unknown", `{"failed_fields":["job_board_url"]}`, "Invalid Job Board Url"},
		{"failed fields llm", `{"failed_fields":["llm_error"]}`, "LLM Error"},
		{"check name", `{"check_name":"check_mx_record"}`, "Invalid Email"},
		{"check name website", `{"check_name":"check_domain_age"}`, "Invalid Website"},
		{"stage5 region", `{"check_name":"check_stage5_unified","message":"Region check FAILED"}`, "Invalid Region"},
		{"stage5 role", `{"check_name":"check_stage5_unified","message":"role failed to match"}`, "Invalid Role"},
		{"stage5 industry", `{"check_name":"check_stage5_unified","message":"industry failed"}`, "Invalid Industry"},
		{"stage5 generic", `{"check_name":"check_stage5_unified","message":"no match"}`, "Role/Region/Industry Failed"},
		{"stage email", `{"stage":"Stage 2: TrueList verification"}`, "Invalid Email"},
		{"stage linkedin", `{"stage":"GSE lookup"}`, "Invalid LinkedIn"},
		{"stage domain", `{"stage":"DNS checks"}`, "Invalid Website"},
		{"stage provenance", `{"stage":"Source Provenance"}`, "Invalid Source URL"},
		{"stage hardcoded", `{"stage":"Hardcoded rules"}`, "Invalid Website"},
		{"numeric stage ignored", `{"failed_fields":["email"],"stage":5}`, "Invalid Email"},
		{"object message ignored", `{"check_name":"check_mx_record","message":{"detail":"x"}}`, "Invalid Email"},
		{"non string failed fields skipped", `{"failed_fields":[3,"phone"]}`, "Invalid Phone"},
		{"failed fields not a list", `{"failed_fields":"email","check_name":"check_dnsbl"}`, "Invalid Website"},
		{"legacy field", `{"failed_field":"phone"}`, "Invalid Phone"},
		{"legacy field unknown", `{"failed_field":"fax"}`, "Invalid fax"},
		{"reason text", `{"reason":"lead rejected by majority of validators in the epoch"}`, "lead rejected by majority of validators in the epo"},
		{"error text", `{"error":"timeout"}`, "timeout"},
		{"object without known keys", `{"detail":"duplicate submission"}`, "Duplicate Lead"},
		{"text duplicate", "duplicate entry found", "Duplicate Lead"},
		{"text spam", "Looks like SPAM", "Spam Detected"},
		{"text disposable", "disposable domain", "Disposable Email"},
		{"text catchall", "catch-all mailbox", "Catch-all Email"},
		{"text bounced", "mail bounce detected", "Email Bounced"},
		{"malformed json", `{"failed_fields": [`, "failed_fields"},
		{"plain short", "  some   reason ", "some reason"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			if got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestNormalizeTruncatesLongText(t *testing.T) {
	raw := strings.Repeat("abcdefghij ", 10)
	got := Normalize(raw)
	if !strings.HasSuffix(got, "...") {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if n := len(strings.TrimSuffix(got, "...")); n != 40 {
		t.Errorf("truncated length = %d, want 40", n)
	}
}

func TestNormalizeIsDeterministic(t *testing.T) {
	inputs := []string{
		`{"failed_fields":["email","website"]}`,
		"duplicate entry found",
		`{"stage":"LinkedIn"}`,
		"random text",
	}
	for _, in := range inputs {
		first := Normalize(in)
		for i := 0; i < 5; i++ {
			if got := Normalize(in); got != first {
				t.Fatalf("Normalize(%q) changed between calls: %q vs %q", in, first, got)
			}
		}
	}
}

func TestParse(t *testing.T) {
	if _, ok := Parse("").(Empty); !ok {
		t.Error("expected Empty for empty input")
	}
	if _, ok := Parse("hello").(Text); !ok {
		t.Error("expected Text for plain input")
	}
	if _, ok := Parse(`{"bad json`).(Text); !ok {
		t.Error("expected Text for malformed object")
	}
	s, ok := Parse(`{"failed_fields":["email"],"check_name":"x"}`).(Structured)
	if !ok {
		t.Fatal("expected Structured")
	}
	if len(s.FailedFields) != 1 || s.FailedFields[0] != "email" || s.CheckName != "x" {
		t.Errorf("unexpected structured fields: %+v", s)
	}
}

func TestNormalizePtr(t *testing.T) {
	if got := NormalizePtr(nil); got != NotAvailable {
		t.Errorf("NormalizePtr(nil) = %q, want %q", got, NotAvailable)
	}
	raw := "bounced"
	if got := NormalizePtr(&raw); got != "Email Bounced" {
		t.Errorf("NormalizePtr(bounced) = %q", got)
	}
}
