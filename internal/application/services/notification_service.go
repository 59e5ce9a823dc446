package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"

	"github.com/rs/zerolog/log"

	"github.com/afferentology/platform/backend/internal/domain/entities"
	"github.com/afferentology/platform/backend/internal/domain/providers"
)

var submissionEmailTmpl = template.Must(template.New("submission").Parse(`
<h2>{{if .IsUpdate}}Practitioner Information Updated{{else}}New Practitioner Application Submitted{{end}}</h2>
<p>{{if .IsUpdate}}{{.P.FullName}} has updated their practitioner information:{{else}}A new practitioner has applied to join the directory:{{end}}</p>
<h3>Practitioner Details:</h3>
<ul>
  <li><strong>Name:</strong> {{.P.FullName}}</li>
  <li><strong>Clinic:</strong> {{.P.ClinicName}}</li>
  <li><strong>Email:</strong> {{.P.Email}}</li>
  <li><strong>Phone:</strong> {{or .P.Phone "N/A"}}</li>
  <li><strong>Location:</strong> {{.P.City}}, {{.P.State}}, {{.P.Country}}</li>
  <li><strong>Years Experience:</strong> {{if .P.YearsExperience}}{{.P.YearsExperience}}{{else}}N/A{{end}}</li>
  <li><strong>Geocoded:</strong> {{if .P.HasCoordinates}}yes{{else}}no{{end}}</li>
  {{if .IsUpdate}}<li><strong>Current Status:</strong> {{.P.Status}}</li>{{end}}
</ul>
<p><a href="{{.AdminURL}}">{{if .IsUpdate}}View Updated Information{{else}}Review Application{{end}}</a></p>
`))

var approvalEmailTmpl = template.Must(template.New("approval").Parse(`
<h2>Your directory listing is live</h2>
<p>Hi {{.P.FirstName}},</p>
<p>{{.P.ClinicName}} has been approved and now appears in the Afferentology practitioner directory.</p>
<p><a href="{{.DirectoryURL}}">View the directory</a></p>
`))

// NotificationService sends best-effort transactional email. Delivery failures are logged and dropped.
type NotificationService struct {
	sender        providers.EmailSender
	intakeAddress string
	siteURL       string
}

// NewNotificationService creates a notification service. A nil sender disables email.
func NewNotificationService(sender providers.EmailSender, intakeAddress, siteURL string) *NotificationService {
	return &NotificationService{sender: sender, intakeAddress: intakeAddress, siteURL: siteURL}
}

// PractitionerSubmitted tells the organization about a new or updated application.
func (n *NotificationService) PractitionerSubmitted(ctx context.Context, p *entities.Practitioner, isUpdate bool) {
	subject := fmt.Sprintf("New Practitioner Application - %s", p.ClinicName)
	if isUpdate {
		subject = fmt.Sprintf("Practitioner Information Updated - %s", p.ClinicName)
	}

	body, err := render(submissionEmailTmpl, map[string]any{
		"P":        p,
		"IsUpdate": isUpdate,
		"AdminURL": n.siteURL + "/admin/practitioners",
	})
	if err != nil {
		log.Error().Err(err).Str("practitioner_id", p.ID).Msg("Failed to render submission email")
		return
	}

	n.send(ctx, &entities.EmailMessage{
		To:      []string{n.intakeAddress},
		Subject: subject,
		HTML:    body,
		ReplyTo: p.Email,
	}, p.ID)
}

// PractitionerApproved tells the practitioner their listing is live.
func (n *NotificationService) PractitionerApproved(ctx context.Context, p *entities.Practitioner) {
	body, err := render(approvalEmailTmpl, map[string]any{
		"P":            p,
		"DirectoryURL": n.siteURL + "/find-practitioner",
	})
	if err != nil {
		log.Error().Err(err).Str("practitioner_id", p.ID).Msg("Failed to render approval email")
		return
	}

	n.send(ctx, &entities.EmailMessage{
		To:      []string{p.Email},
		Subject: "Your Afferentology directory listing has been approved",
		HTML:    body,
	}, p.ID)
}

func (n *NotificationService) send(ctx context.Context, msg *entities.EmailMessage, practitionerID string) {
	if n == nil || n.sender == nil {
		log.Debug().Str("subject", msg.Subject).Msg("Email disabled, skipping notification")
		return
	}
	if err := n.sender.Send(ctx, msg); err != nil {
		log.Warn().Err(err).
			Str("practitioner_id", practitionerID).
			Str("subject", msg.Subject).
			Msg("Failed to send notification email")
		return
	}
	log.Info().Str("practitioner_id", practitionerID).Str("subject", msg.Subject).Msg("Notification email sent")
}

func render(t *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
