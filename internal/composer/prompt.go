package composer

import (
	"fmt"

	"post-discharge-assistant/internal/record"
)

const (
	Disclaimer = "Disclaimer: I am an AI assistant for educational purposes only. Always consult healthcare professionals for medical advice."

	CitationReference = "(Source: Reference Book)"
	CitationWeb       = "(Source: Web Search)"
)

func clinicalPrompt(rec record.PatientRecord, question, referenceContext, webContext string) string {
	return fmt.Sprintf(`You are an expert AI assistant specializing in nephrology.
Your primary duty is to answer a patient's question.

Here is the patient's information:
---
PATIENT DISCHARGE REPORT:
%s
---
PATIENT'S QUESTION:
"%s"
---

Here is the context you have retrieved to answer the question:
---
CONTEXT FROM NEPHROLOGY REFERENCE BOOK (RAG):
%s
---
CONTEXT FROM WEB SEARCH:
%s
---

INSTRUCTIONS:
1.  Answer the patient's question based *first* on the REFERENCE BOOK context and their DISCHARGE REPORT.
2.  If the question is about new research or information not in the book, use the WEB SEARCH context.
3.  You *must* cite your sources. Use "%s" or "%s".
4.  Be helpful, accurate, and safe.
5.  You *must* end your entire response with the following medical disclaimer:
    "%s"
`, rec.JSON(), question, referenceContext, webContext, CitationReference, CitationWeb, Disclaimer)
}

func greetingPrompt(rec record.PatientRecord) string {
	return fmt.Sprintf(`You are a friendly receptionist. A patient's report was just found.
Patient Report: %s

Greet the patient by name and briefly summarize their primary diagnosis and follow-up date.
Then, ask them a friendly open-ended question like 'How are you feeling today?' or 'Do you have any questions about your discharge instructions?'
`, rec.JSON())
}

// staticGreeting is used when the model cannot produce a greeting.
func staticGreeting(rec record.PatientRecord) string {
	greeting := fmt.Sprintf("Hello %s! I found your discharge report", rec.Name)
	if rec.Diagnosis != "" {
		greeting += fmt.Sprintf(" for %s", rec.Diagnosis)
	}
	if rec.DischargeDate != "" {
		greeting += fmt.Sprintf(" (discharged %s)", rec.DischargeDate)
	}
	if followUp := rec.Field(record.FieldFollowUp); followUp != "" {
		greeting += fmt.Sprintf(". Your follow-up: %s", followUp)
	}
	return greeting + ". How are you feeling today? Do you have any questions about your discharge instructions?"
}
