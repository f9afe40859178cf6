package notify

import (
	"fmt"
	"strings"

	"lead-intake-service/internal/models"
)

const (
	confirmationSubject = "Thank you for your application"
	confirmationBody    = `Dear {{leadName}},

Thank you for submitting your application. Our team will review your information and get back to you shortly.

Best regards,
The Team`

	reviewerNoticeSubject = "New Lead Submission"
	reviewerNoticeBody    = `A new lead has been submitted:

Name: {{leadName}}
Email: {{leadEmail}}

Please review the submission in the leads management system.`
)

// NewConfirmation builds the best-effort applicant confirmation.
func NewConfirmation(lead *models.Lead) Request {
	data := map[string]interface{}{
		"leadName":  lead.FullName(),
		"leadEmail": lead.Email,
	}
	return Request{
		Kind:       KindConfirmation,
		Recipients: []string{lead.Email},
		Subject:    renderTemplate(confirmationSubject, data),
		Body:       renderTemplate(confirmationBody, data),
		LeadUUID:   lead.UUID,
	}
}

// NewReviewerNotice builds the tracked notice to the current reviewer list.
func NewReviewerNotice(lead *models.Lead, recipients []string) Request {
	data := map[string]interface{}{
		"leadName":  lead.FullName(),
		"leadEmail": lead.Email,
	}
	return Request{
		Kind:       KindReviewerNotice,
		Recipients: recipients,
		Subject:    renderTemplate(reviewerNoticeSubject, data),
		Body:       renderTemplate(reviewerNoticeBody, data),
		LeadUUID:   lead.UUID,
	}
}

// renderTemplate replaces {{placeholder}} occurrences and strips any
// placeholders left without a value.
func renderTemplate(tmpl string, data map[string]interface{}) string {
	result := tmpl

	for k, v := range data {
		placeholder := "{{" + k + "}}"
		value := ""
		if s, ok := v.(string); ok {
			value = s
		} else if v != nil {
			value = fmt.Sprintf("%v", v)
		}
		result = strings.ReplaceAll(result, placeholder, value)
	}

	for {
		start := strings.Index(result, "{{")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "}}")
		if end == -1 {
			break
		}
		end += start + 2
		result = result[:start] + result[end:]
	}

	return result
}
