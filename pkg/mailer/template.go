package mailer

import (
	"bytes"
	htmltemplate "html/template"
	texttemplate "text/template"

	"github.com/Masterminds/sprig/v3"
)

const otpSubjectTemplate = `Your {{ .AppName | title }} sign-in code`

const otpTextTemplate = `Hi,

Your sign-in code is {{ .Code }}.
It expires in {{ .Minutes }} {{ if eq .Minutes 1 }}minute{{ else }}minutes{{ end }}.

If you did not ask for this code you can ignore this email.

{{ .AppName | title }}
`

const otpHTMLTemplate = `<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <p>Hi,</p>
  <p>Your sign-in code is</p>
  <p style="font-size: 28px; letter-spacing: 6px; font-weight: bold;">{{ .Code }}</p>
  <p>It expires in {{ .Minutes }} {{ if eq .Minutes 1 }}minute{{ else }}minutes{{ end }}.</p>
  <p style="color: #6b7280;">If you did not ask for this code you can ignore this email.</p>
  <p>{{ .AppName | title }}</p>
</body>
</html>
`

type otpData struct {
	AppName string
	Code    string
	Minutes int
}

type renderedMessage struct {
	Subject string
	Text    string
	HTML    string
}

type templates struct {
	subject *texttemplate.Template
	text    *texttemplate.Template
	html    *htmltemplate.Template
}

func parseTemplates() (*templates, error) {
	subject, err := texttemplate.New("subject").Funcs(sprig.TxtFuncMap()).Parse(otpSubjectTemplate)
	if err != nil {
		return nil, err
	}
	text, err := texttemplate.New("text").Funcs(sprig.TxtFuncMap()).Parse(otpTextTemplate)
	if err != nil {
		return nil, err
	}
	html, err := htmltemplate.New("html").Funcs(sprig.FuncMap()).Parse(otpHTMLTemplate)
	if err != nil {
		return nil, err
	}
	return &templates{subject: subject, text: text, html: html}, nil
}

func (t *templates) renderOTP(data otpData) (*renderedMessage, error) {
	var subject, text, html bytes.Buffer
	if err := t.subject.Execute(&subject, data); err != nil {
		return nil, err
	}
	if err := t.text.Execute(&text, data); err != nil {
		return nil, err
	}
	if err := t.html.Execute(&html, data); err != nil {
		return nil, err
	}
	return &renderedMessage{Subject: subject.String(), Text: text.String(), HTML: html.String()}, nil
}
