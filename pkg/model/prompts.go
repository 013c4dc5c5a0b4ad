package model

import (
	"fmt"
	"strings"
)

const EditSystemPrompt = "You are a helpful assistant. Edit the given report according to the user's instructions. " +
	"Ensure the edited report adheres to the provided schema."

// GenerationSystemPrompt builds the system instruction for drafting a report
// of reportType about an occurrenceType incident. The transcription itself is
// sent as the user message.
func GenerationSystemPrompt(occurrenceType string, reportType string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Generate a %s for a %s incident based on the following transcription.\n", reportType, occurrenceType)
	b.WriteString("Format the output as a structured report according to the provided schema.\n")
	fmt.Fprintf(&b, "If a field is not known, use '%s'. DO NOT imagine or make up any information. ", MissingInformation)
	fmt.Fprintf(&b, "If any information is not in the transcript set that as %q.\n", MissingInformation)
	b.WriteString("For the narrative section, follow these guidelines:\n")
	b.WriteString(NarrativeGuideline(reportType))
	return b.String()
}

// EditUserPrompt pairs the current report text with the officer's edit
// instructions.
func EditUserPrompt(report string, instructions string) string {
	return fmt.Sprintf("Report:\n\n%s\n\nInstructions:\n\n%s", report, instructions)
}
