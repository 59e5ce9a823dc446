package services_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/afferentology/platform/backend/internal/application/services"
	"github.com/afferentology/platform/backend/internal/domain/entities"
)

func samplePractitioner() *entities.Practitioner {
	return &entities.Practitioner{
		ID:         "prac-1",
		FirstName:  "Jane",
		LastName:   "Doe",
		Email:      "jane@example.com",
		ClinicName: "Doe <Reflex> Clinic",
		City:       "Oxford",
		State:      "Oxfordshire",
		Country:    "United Kingdom",
		Status:     entities.PractitionerStatusPending,
	}
}

func TestNotificationService_PractitionerSubmitted(t *testing.T) {
	t.Run("new application goes to the intake address", func(t *testing.T) {
		sender := new(MockEmailSender)
		svc := services.NewNotificationService(sender, "info@afferentology.org", "https://www.afferentology.org")

		sender.On("Send", mock.Anything, mock.MatchedBy(func(msg *entities.EmailMessage) bool {
			return msg.To[0] == "info@afferentology.org" &&
				msg.Subject == "New Practitioner Application - Doe <Reflex> Clinic" &&
				msg.ReplyTo == "jane@example.com"
		})).Return(nil)

		svc.PractitionerSubmitted(context.Background(), samplePractitioner(), false)

		sender.AssertExpectations(t)
		msg := sender.Calls[0].Arguments.Get(1).(*entities.EmailMessage)
		assert.Contains(t, msg.HTML, "Doe &lt;Reflex&gt; Clinic")
		assert.Contains(t, msg.HTML, "https://www.afferentology.org/admin/practitioners")
		assert.NotContains(t, msg.HTML, "Current Status")
	})

	t.Run("update mentions current status", func(t *testing.T) {
		sender := new(MockEmailSender)
		svc := services.NewNotificationService(sender, "info@afferentology.org", "")
		sender.On("Send", mock.Anything, mock.Anything).Return(nil)

		svc.PractitionerSubmitted(context.Background(), samplePractitioner(), true)

		msg := sender.Calls[0].Arguments.Get(1).(*entities.EmailMessage)
		assert.Equal(t, "Practitioner Information Updated - Doe <Reflex> Clinic", msg.Subject)
		assert.Contains(t, msg.HTML, "Current Status:</strong> pending")
	})

	t.Run("delivery failure is swallowed", func(t *testing.T) {
		sender := new(MockEmailSender)
		svc := services.NewNotificationService(sender, "info@afferentology.org", "")
		sender.On("Send", mock.Anything, mock.Anything).Return(errors.New("smtp: 421"))

		assert.NotPanics(t, func() {
			svc.PractitionerSubmitted(context.Background(), samplePractitioner(), false)
		})
	})

	t.Run("no sender configured", func(t *testing.T) {
		svc := services.NewNotificationService(nil, "info@afferentology.org", "")
		assert.NotPanics(t, func() {
			svc.PractitionerApproved(context.Background(), samplePractitioner())
		})
	})
}

func TestNotificationService_PractitionerApproved(t *testing.T) {
	sender := new(MockEmailSender)
	svc := services.NewNotificationService(sender, "info@afferentology.org", "https://www.afferentology.org")
	sender.On("Send", mock.Anything, mock.MatchedBy(func(msg *entities.EmailMessage) bool {
		return len(msg.To) == 1 && msg.To[0] == "jane@example.com"
	})).Return(nil)

	svc.PractitionerApproved(context.Background(), samplePractitioner())

	sender.AssertExpectations(t)
	msg := sender.Calls[0].Arguments.Get(1).(*entities.EmailMessage)
	assert.Contains(t, msg.HTML, "Hi Jane")
	assert.Contains(t, msg.HTML, "/find-practitioner")
}
