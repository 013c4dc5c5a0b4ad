package model

// GeneralGuideline is the narrative standard applied when a report type has no
// dedicated guideline.
const GeneralGuideline = `Police Report Writing Standard
General Requirements
All reports must include:
Incident number
Report time (when the officer took the report, not dictation time)
Reporting officer's information
Occurrence time is the time the incident took place (not report time)
Formatting:
No special formatting (no bullets, no colons, no bold)
Time format:
Use 24-hour clock without colons
If seconds are given (rarely), use a decimal (e.g., 2146.23 hours)
All reports should be written in third person
Report structure:
Start with date, time, and author
Example: "On January 1, 2022, at 0800 hours, Constable Jeremy RIABOV #786..."
End with "End of Report", badge number, date and time of report completion
Example: "End of Report. 1262 - 2022/08/05 0709"
Naming Conventions
Police officers and civilian members:
Initial mention: Rank, first name, LAST NAME, and badge number
Subsequent mentions: Rank and LAST NAME
Involved persons:
Initial mention: First name and LAST NAME
Subsequent mentions: LAST NAME only
Do not include tombstone information (DOB) in the body of the report
Last names should always be capitalized (e.g., John SMITH)
Use full names if parties within the report have the same last name
Always type out complete titles (e.g., Doctor, Constable)
Address Format
Use proper address order:
[Street Number] [Street Name] [Street Direction], [Unit/Apartment Number]
Example: 230 Amelia Street West, Apartment 201
Language and Terminology
Do not use police jargon (radio codes), acronyms, or short forms in the body of any report
Exceptions: CPIC, DNA, CFRO
Acronym/short form use:
First use: Write out full name followed by acronym in parentheses
Subsequent uses: Use the acronym
Do not use short forms for vehicle makes (use Toyota, not TOYT)
Preserve important details:
Include all relevant facts of the occurrence
Do not omit important details when transcribing
Retain mentioned times in the report`

const CrownBriefGuideline = `Crown Brief Narrative Guidelines:
Return a synopsis of at most ten words.`

const GeneralOccurrenceGuideline = `General Occurrence Report Narrative Guidelines:
1. Begin with a brief overview of the incident.
2. Provide a detailed account of the officer's actions and observations.
3. Include information about all parties involved (complainants, suspects, witnesses).
4. Describe any injuries, damages, or losses reported or observed.
5. Document any immediate actions taken (e.g., arrests, seizures, referrals).
6. Note any follow-up actions required or recommendations made.
7. Ensure all relevant details are included for potential future reference or investigation.`

// NarrativeGuideline picks the guideline for reportType.
func NarrativeGuideline(reportType string) string {
	switch reportType {
	case ReportTypeCrownBrief:
		return CrownBriefGuideline
	case ReportTypeGeneralOccurrence:
		return GeneralOccurrenceGuideline
	default:
		return GeneralGuideline
	}
}
