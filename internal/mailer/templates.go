package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	texttemplate "text/template"
	"time"
)

// TemplateData is interpolated into email templates. String fields stay
// empty when the schedule metadata does not carry them.
type TemplateData struct {
	WebinarTitle string
	WebinarDate  string
	ProductType  string
	ExpiresAt    string
	BaseURL      string
	CTAURL       string
}

// DataFromMetadata builds template data from a schedule entry's metadata.
// RFC3339 timestamps are reformatted for human readers; unparseable values
// pass through unchanged.
func DataFromMetadata(meta map[string]string, baseURL string) TemplateData {
	return TemplateData{
		WebinarTitle: meta["webinar_title"],
		WebinarDate:  humanTime(meta["webinar_date"]),
		ProductType:  meta["product_type"],
		ExpiresAt:    humanTime(meta["expires_at"]),
		BaseURL:      baseURL,
	}
}

func humanTime(raw string) string {
	if raw == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return raw
	}
	return t.Format("Monday, January 2 at 3:04 PM MST")
}

// Rendered is a fully rendered email ready to hand to a Sender.
type Rendered struct {
	Subject string
	HTML    string
	Text    string
}

type templateDef struct {
	subject string // text/template over TemplateData
	body    string // paragraphs, text/template over TemplateData
	ctaText string
	ctaPath string // appended to BaseURL
}

var defs = map[string]templateDef{
	"webinar-confirmation": {
		subject: "You're registered: {{.WebinarTitle}}",
		body:    "Your seat is saved for {{.WebinarTitle}} on {{.WebinarDate}}. Add it to your calendar now so you don't miss it.",
		ctaText: "View event details",
		ctaPath: "/webinar",
	},
	"webinar-reminder-24h": {
		subject: "Tomorrow: {{.WebinarTitle}}",
		body:    "{{.WebinarTitle}} starts tomorrow, {{.WebinarDate}}. Grab a notebook; we go deep.",
		ctaText: "See what we'll cover",
		ctaPath: "/webinar",
	},
	"webinar-reminder-2h": {
		subject: "{{.WebinarTitle}} starts in 2 hours",
		body:    "We go live at {{.WebinarDate}}. Your join link is below.",
		ctaText: "Join the webinar",
		ctaPath: "/webinar/live",
	},
	"webinar-starting-soon": {
		subject: "We're live in 15 minutes",
		body:    "{{.WebinarTitle}} is about to start. Come on in and say hello in the chat.",
		ctaText: "Join now",
		ctaPath: "/webinar/live",
	},
	"webinar-replay": {
		subject: "Replay + a limited-time offer inside",
		body:    "Missed the session or want to rewatch? The replay of {{.WebinarTitle}} is up. The discount mentioned on the call is live now and expires when the countdown hits zero.",
		ctaText: "Watch the replay",
		ctaPath: "/replay",
	},
	"discount-nudge-12h": {
		subject: "The workbook discount is ticking",
		body:    "A quick nudge: the post-webinar discount is live for a limited window. Once it closes, the price goes back up.",
		ctaText: "Claim your discount",
		ctaPath: "/offer",
	},
	"discount-nudge-36h": {
		subject: "Still thinking it over?",
		body:    "Writers who work through the workbook finish their drafts. The discounted price is still available, but not for much longer.",
		ctaText: "Get the workbook",
		ctaPath: "/offer",
	},
	"discount-nudge-60h": {
		subject: "Last day for the discount",
		body:    "The discount window closes soon. After that the full price applies, no exceptions.",
		ctaText: "Claim it before it's gone",
		ctaPath: "/offer",
	},
	"discount-final-hour": {
		subject: "Final hour: discount ends at the top of the hour",
		body:    "This is the last call. When the countdown reaches zero the offer expires for good.",
		ctaText: "Buy now",
		ctaPath: "/offer",
	},
	"purchase-welcome": {
		subject: "Welcome! Your {{.ProductType}} access is live",
		body:    "Thank you for your purchase. Your {{.ProductType}} access is active now and runs until {{.ExpiresAt}}. Log in any time to pick up where you left off.",
		ctaText: "Open your workbook",
		ctaPath: "/workbook",
	},
	"renewal-reminder-7d": {
		subject: "Your access expires in one week",
		body:    "Your {{.ProductType}} access ends on {{.ExpiresAt}}. Renew to keep your notes and progress.",
		ctaText: "Renew access",
		ctaPath: "/account",
	},
	"renewal-reminder-24h": {
		subject: "Last day of access",
		body:    "Your {{.ProductType}} access expires tomorrow, {{.ExpiresAt}}. This is your final reminder.",
		ctaText: "Renew now",
		ctaPath: "/account",
	},
}

var layout = template.Must(template.New("layout").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{.Subject}}</title>
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; margin: 0; padding: 0; background-color: #faf8f5;">
<table role="presentation" style="width: 100%; border: 0; cellpadding: 0; cellspacing: 0;">
<tr><td style="padding: 40px 0; text-align: center;">
<table role="presentation" style="max-width: 520px; margin: 0 auto; background: #ffffff; border-radius: 8px; overflow: hidden; box-shadow: 0 1px 3px rgba(0,0,0,0.1);">
<tr><td style="padding: 32px 40px; text-align: left;">
<h1 style="margin: 0 0 16px; font-size: 22px; color: #1a1a1a;">{{.Subject}}</h1>
<p style="margin: 0 0 24px; color: #555; font-size: 15px; line-height: 1.6;">{{.Body}}</p>
{{if .CTAURL}}<a href="{{.CTAURL}}" style="display: inline-block; padding: 12px 28px; background: #b45309; color: #ffffff; text-decoration: none; border-radius: 6px; font-size: 15px; font-weight: 500;">{{.CTAText}}</a>{{end}}
</td></tr>
</table>
</td></tr>
</table>
</body>
</html>`))

type layoutData struct {
	Subject string
	Body    string
	CTAText string
	CTAURL  string
}

// Render renders the named template with the given data. Unknown template
// names are an error so a bad schedule row fails loudly instead of sending
// an empty email.
func Render(name string, data TemplateData) (Rendered, error) {
	def, ok := defs[name]
	if !ok {
		return Rendered{}, fmt.Errorf("unknown email template: %q", name)
	}

	subject, err := execText(name+"-subject", def.subject, data)
	if err != nil {
		return Rendered{}, err
	}
	body, err := execText(name+"-body", def.body, data)
	if err != nil {
		return Rendered{}, err
	}

	ctaURL := ""
	if def.ctaPath != "" && data.BaseURL != "" {
		ctaURL = data.BaseURL + def.ctaPath
	}

	var buf bytes.Buffer
	if err := layout.Execute(&buf, layoutData{Subject: subject, Body: body, CTAText: def.ctaText, CTAURL: ctaURL}); err != nil {
		return Rendered{}, fmt.Errorf("render email layout: %w", err)
	}

	text := subject + "\n\n" + body
	if ctaURL != "" {
		text += "\n\n" + def.ctaText + ": " + ctaURL
	}
	return Rendered{Subject: subject, HTML: buf.String(), Text: text}, nil
}

// execText uses text/template so subjects and plain-text bodies are not
// HTML-escaped; the layout template escapes them for the HTML part.
func execText(name, tmpl string, data TemplateData) (string, error) {
	t, err := texttemplate.New(name).Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render template %s: %w", name, err)
	}
	return buf.String(), nil
}
