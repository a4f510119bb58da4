package usecase

import (
	"bytes"
	htmltemplate "html/template"
	"text/template"

	"github.com/shandysiswandi/portalauth/internal/notification/entity"
)

const otpLayoutHTML = `<!DOCTYPE html>
<html>
<body style="font-family: Arial, sans-serif; color: #1f2933;">
  {{if .Name}}<p>Hi {{.Name}},</p>{{end}}
  <p>{{.Text}}</p>
  <p style="font-size: 12px; color: #7b8794;">If you did not request this code you can ignore this email.</p>
  <p style="font-size: 12px; color: #7b8794;">&copy; {{.Year}} {{.Company}}</p>
</body>
</html>`

var otpLayout = htmltemplate.Must(htmltemplate.New("otp").Parse(otpLayoutHTML))

type mailTemplate struct {
	subject string
	text    *template.Template
}

type templateData struct {
	Name       string
	Code       string
	TTLMinutes int
	Company    string
	Year       string
}

func otpTemplates() map[entity.Purpose]*mailTemplate {
	codeText := template.Must(template.New("code").Parse(
		"Your OTP code is {{.Code}}. It will expire in {{.TTLMinutes}} minutes."))
	resetText := template.Must(template.New("reset").Parse(
		"Your OTP for password reset is {{.Code}}. It expires in {{.TTLMinutes}} minutes."))

	return map[entity.Purpose]*mailTemplate{
		entity.PurposeSignup:        {subject: "Your OTP Code", text: codeText},
		entity.PurposeLogin:         {subject: "Your Login OTP Code", text: codeText},
		entity.PurposeResetPassword: {subject: "Your Password Reset OTP", text: resetText},
	}
}

// render returns the plain text body and its HTML rendition.
func (t *mailTemplate) render(data templateData) (string, string, error) {
	var text bytes.Buffer
	if err := t.text.Execute(&text, data); err != nil {
		return "", "", err
	}

	var html bytes.Buffer
	if err := otpLayout.Execute(&html, struct {
		templateData
		Text string
	}{data, text.String()}); err != nil {
		return "", "", err
	}

	return text.String(), html.String(), nil
}
