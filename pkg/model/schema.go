package model

import (
	"encoding/json"

	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/invopop/jsonschema"
)

const (
	ReportTypeCrownBrief        = "Crown Brief"
	ReportTypeGeneralOccurrence = "General Occurrence"
)

var ReportTypes = []string{
	ReportTypeCrownBrief,
	ReportTypeGeneralOccurrence,
}

var OccurrenceTypes = []string{
	"Domestic Dispute",
	"Impaired Driving",
	"Property Crime",
	"Traffic Incident",
	"Drug Related",
	"Informational Report",
	"Public Disorder",
	"Violent Crime",
	"Fraud and Financial",
	"Missing Person",
	"Sexual Offense",
	"Other",
}

// MissingInformation is what generators are told to write for any field the
// transcription does not cover.
const MissingInformation = "information missing from transcript"

type PersonDetails struct {
	Surname     string `json:"surname"`
	Given1      string `json:"given_1"`
	Given2      string `json:"given_2" jsonschema_description:"Second given name if stated"`
	SexType     string `json:"sex_type"`
	DateOfBirth string `json:"date_of_birth"`
}

type PersonAddress struct {
	HouseOrBuildingNumber string `json:"house_or_building_number"`
	StreetAddress         string `json:"street_address"`
	ApartmentOrRoomNumber string `json:"apartment_or_room_number" jsonschema_description:"Unit if stated"`
	CityTown              string `json:"city_town"`
	TypeOfResidence       string `json:"type_of_residence"`
}

type ContactInfo struct {
	PhoneNumber       string `json:"phone_number"`
	PhoneType         string `json:"phone_type"`
	SocialMediaType   string `json:"social_media_type" jsonschema_description:"Platform if stated"`
	SocialMediaHandle string `json:"social_media_handle" jsonschema_description:"Handle if stated"`
	EmailAddress      string `json:"email_address" jsonschema_description:"Email if stated"`
}

// ReportBase is the field set shared by every report type. Field order here is
// the order reports are rendered in.
type ReportBase struct {
	OfficerFullNameAndBadgeNumber string        `json:"officer_full_name_and_badge_number"`
	OccurrenceNumber              string        `json:"occurrence_number"`
	OccurrenceType                string        `json:"occurrence_type"`
	ReportTime                    string        `json:"report_time"`
	OccurrenceTime                string        `json:"occurrence_time"`
	PersonsDetails                PersonDetails `json:"persons_details"`
	PersonsAddress                PersonAddress `json:"persons_address"`
	ContactInfo                   ContactInfo   `json:"contact_info"`
	InvolvementType               string        `json:"involvement_type"`
	Narrative                     string        `json:"narrative"`
	EndOfReportBadgeNumber        string        `json:"end_of_report_badge_number"`
}

type CrownBrief struct {
	ReportBase
}

func (CrownBrief) JSONSchemaExtend(schema *jsonschema.Schema) {
	describeNarrative(schema, CrownBriefGuideline)
}

type GeneralOccurrence struct {
	ReportBase
}

func (GeneralOccurrence) JSONSchemaExtend(schema *jsonschema.Schema) {
	describeNarrative(schema, GeneralOccurrenceGuideline)
}

func describeNarrative(schema *jsonschema.Schema, guideline string) {
	if schema == nil || schema.Properties == nil {
		return
	}
	narrative, ok := schema.Properties.Get("narrative")
	if !ok || narrative == nil {
		return
	}
	narrative.Description = guideline
}

// IsCrownBrief reports whether reportType uses the CrownBrief schema. Every
// other report type is generated as a GeneralOccurrence.
func IsCrownBrief(reportType string) bool {
	return reportType == ReportTypeCrownBrief
}

func IsReportType(value string) bool {
	for _, candidate := range ReportTypes {
		if candidate == value {
			return true
		}
	}
	return false
}

func IsOccurrenceType(value string) bool {
	for _, candidate := range OccurrenceTypes {
		if candidate == value {
			return true
		}
	}
	return false
}

// NewReportRecord returns a pointer to the zero record reportType is generated
// as, for schema reflection and decoding.
func NewReportRecord(reportType string) any {
	if IsCrownBrief(reportType) {
		return &CrownBrief{}
	}
	return &GeneralOccurrence{}
}

// DecodeReportRecord reads structured model output as the record for
// reportType and returns it as a Report in declaration order.
func DecodeReportRecord(reportType string, data []byte) (Report, error) {
	record := NewReportRecord(reportType)
	if err := json.Unmarshal(data, record); err != nil {
		return Report{}, utils.WrapIfNotNil(err)
	}
	return ReportFromStruct(record)
}

// ReportSchema reflects the strict JSON schema for reportType: every property
// required and no additional properties, with nested objects inlined.
func ReportSchema(reportType string) (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schema := reflector.Reflect(NewReportRecord(reportType))

	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	return schemaMap, nil
}
