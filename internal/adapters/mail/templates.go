package mail

import (
	"bytes"
	"fmt"
	"html/template"
)

// Templates are compiled in with the binary. The context map supplies the
// fields each body references; missing keys render as empty strings.
var templates = map[string]*template.Template{
	"account_verification": template.Must(template.New("account_verification").Parse(
		`<p>Hi {{.name}},</p>
<p>Confirm your account within {{.expiry_minutes}} minutes.</p>
{{if .code}}<p style="font-size:24px;letter-spacing:4px"><strong>{{.code}}</strong></p>
{{end}}{{if .verification_link}}<p><a href="{{.verification_link}}">Verify your account</a></p>
{{end}}<p>If you did not create an account, you can ignore this email.</p>`)),
	"password_reset": template.Must(template.New("password_reset").Parse(
		`<p>Hi {{.name}},</p>
<p>We received a request to reset your password. Use the code below within {{.expiry_minutes}} minutes.</p>
<p style="font-size:24px;letter-spacing:4px"><strong>{{.code}}</strong></p>
<p>If you did not request a reset, your account is still secure and no action is needed.</p>`)),
	"registration_welcome": template.Must(template.New("registration_welcome").Parse(
		`<p>Hi {{.name}},</p>
<p>Your account is verified and ready to use. Welcome aboard!</p>
<p><a href="{{.login_link}}">Sign in</a> to get started.</p>`)),
}

func renderTemplate(templateID string, templateContext map[string]string) (string, error) {
	tmpl, ok := templates[templateID]
	if !ok {
		return "", fmt.Errorf("unknown mail template %q", templateID)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, templateContext); err != nil {
		return "", fmt.Errorf("render mail template %q: %w", templateID, err)
	}
	return buf.String(), nil
}
