package mail

import (
	"strings"
	"testing"
)

func TestRenderTemplate(t *testing.T) {
	t.Parallel()

	body, err := renderTemplate("password_reset", map[string]string{
		"name":           "Ada",
		"code":           "123456",
		"expiry_minutes": "15",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Ada", "123456", "15 minutes"} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestRenderTemplateEscapesHTML(t *testing.T) {
	t.Parallel()

	body, err := renderTemplate("registration_welcome", map[string]string{
		"name": `<script>alert(1)</script>`,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "<script>") {
		t.Fatalf("context values must be escaped:\n%s", body)
	}
}

func TestRenderAccountVerificationForms(t *testing.T) {
	t.Parallel()

	// OTP form: the code shows, no dangling verification link.
	body, err := renderTemplate("account_verification", map[string]string{
		"name":           "Ada",
		"code":           "123456",
		"expiry_minutes": "15",
	})
	if err != nil {
		t.Fatalf("render otp form: %v", err)
	}
	if !strings.Contains(body, "123456") || strings.Contains(body, "href") {
		t.Fatalf("otp form must render the code and no link:\n%s", body)
	}

	// Link form: the verification link shows instead.
	body, err = renderTemplate("account_verification", map[string]string{
		"name":              "Ada",
		"verification_link": "http://localhost:3000/verifyUser/?token=abc",
		"expiry_minutes":    "15",
	})
	if err != nil {
		t.Fatalf("render link form: %v", err)
	}
	if !strings.Contains(body, "http://localhost:3000/verifyUser/?token=abc") {
		t.Fatalf("link form must render the verification link:\n%s", body)
	}
}

func TestRenderRegistrationWelcomeLoginLink(t *testing.T) {
	t.Parallel()

	body, err := renderTemplate("registration_welcome", map[string]string{
		"name":       "Ada",
		"login_link": "http://localhost:3000/login",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(body, `href="http://localhost:3000/login"`) {
		t.Fatalf("welcome mail must link to sign-in:\n%s", body)
	}
}

func TestRenderTemplateUnknownID(t *testing.T) {
	t.Parallel()

	if _, err := renderTemplate("invoice_overdue", nil); err == nil {
		t.Fatalf("unknown template must error")
	}
}

func TestRenderTemplateMissingKeysRenderEmpty(t *testing.T) {
	t.Parallel()

	body, err := renderTemplate("account_verification", map[string]string{})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(body, "no value") {
		t.Fatalf("missing keys must render empty, not %q", body)
	}
}
