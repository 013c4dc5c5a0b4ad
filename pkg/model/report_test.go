package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ReportSuite struct {
	suite.Suite
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportSuite))
}

func (s *ReportSuite) TestParseReportKeepsKeyOrder() {
	report, err := ParseReport([]byte(`{"zeta": "1", "alpha": "2", "occurrence_type": "Theft", "mid": "3"}`))
	s.Require().NoError(err)

	s.Equal([]string{"zeta", "alpha", "occurrence_type", "mid"}, report.Names())
}

func (s *ReportSuite) TestParseReportScalarKinds() {
	report, err := ParseReport([]byte(`{"t": "x", "n": 12.50, "i": 3, "b": false, "z": null}`))
	s.Require().NoError(err)

	cases := map[string]struct {
		kind Kind
		text string
	}{
		"t": {KindText, "x"},
		"n": {KindNumber, "12.5"},
		"i": {KindNumber, "3"},
		"b": {KindBool, "false"},
		"z": {KindNull, "null"},
	}
	for name, want := range cases {
		value, ok := report.Get(name)
		s.Require().True(ok, name)
		s.Equal(want.kind, value.Kind(), name)
		s.Equal(want.text, value.String(), name)
	}
}

func (s *ReportSuite) TestParseReportNestedObjectOneLevel() {
	report, err := ParseReport([]byte(`{"persons_details": {"surname": "SMITH", "age": 41, "extra": {"deep": true}, "tags": [1, 2]}}`))
	s.Require().NoError(err)

	value, ok := report.Get("persons_details")
	s.Require().True(ok)
	s.Require().True(value.IsObject())

	fields := value.Fields()
	s.Require().Len(fields, 4)
	s.Equal("surname", fields[0].Name)
	s.Equal("SMITH", fields[0].Value.String())
	s.Equal(KindRaw, fields[2].Value.Kind())
	s.Equal(`{"deep":true}`, fields[2].Value.String())
	s.Equal(KindRaw, fields[3].Value.Kind())
	s.Equal(`[1,2]`, fields[3].Value.String())
}

func (s *ReportSuite) TestParseReportTopLevelArrayIsRaw() {
	report, err := ParseReport([]byte(`{"witnesses": ["A", "B"]}`))
	s.Require().NoError(err)

	value, ok := report.Get("witnesses")
	s.Require().True(ok)
	s.Equal(KindRaw, value.Kind())
	s.Equal(`["A","B"]`, value.String())
}

func (s *ReportSuite) TestParseReportDuplicateKeyLastWinsFirstPosition() {
	report, err := ParseReport([]byte(`{"a": "1", "b": "2", "a": "3"}`))
	s.Require().NoError(err)

	s.Equal([]string{"a", "b"}, report.Names())
	value, _ := report.Get("a")
	s.Equal("3", value.String())
}

func (s *ReportSuite) TestParseReportRejectsBadInput() {
	for _, input := range []string{"", "   ", "{", `["a"]`, `"text"`, "42"} {
		_, err := ParseReport([]byte(input))
		s.Error(err, input)
	}
}

func (s *ReportSuite) TestMarshalJSONKeepsOrder() {
	report := NewReport(
		F("occurrence_type", Text("Theft")),
		F("narrative", Text(`He said "stop"`)),
		F("count", Number(2)),
		F("notes", Object(F("summary", Text("ok")), F("flag", Bool(true)))),
		F("missing", Null()),
		F("list", Raw(`[ 1, 2 ]`)),
	)

	data, err := json.Marshal(report)
	s.Require().NoError(err)
	s.Equal(
		`{"occurrence_type":"Theft","narrative":"He said \"stop\"","count":2,"notes":{"summary":"ok","flag":true},"missing":null,"list":[1,2]}`,
		string(data),
	)

	var decoded Report
	s.Require().NoError(json.Unmarshal(data, &decoded))
	s.Equal(report.Names(), decoded.Names())
	for _, field := range report.Fields() {
		value, ok := decoded.Get(field.Name)
		s.Require().True(ok)
		s.True(field.Value.Equal(value), field.Name)
	}
}

func (s *ReportSuite) TestReportFromStructFollowsDeclarationOrder() {
	brief := CrownBrief{ReportBase: ReportBase{
		OfficerFullNameAndBadgeNumber: "Constable Jane DOE #123",
		OccurrenceType:                "Theft",
		PersonsDetails:                PersonDetails{Surname: "SMITH"},
	}}

	report, err := ReportFromStruct(brief)
	s.Require().NoError(err)

	names := report.Names()
	s.Require().Len(names, 11)
	s.Equal("officer_full_name_and_badge_number", names[0])
	s.Equal("persons_details", names[5])
	s.Equal("end_of_report_badge_number", names[10])

	details, ok := report.Get("persons_details")
	s.Require().True(ok)
	s.True(details.IsObject())
}

func (s *ReportSuite) TestNewReportDedupes() {
	report := NewReport(F("a", Text("1")), F("a", Text("2")))
	s.Equal(1, report.Len())
	value, _ := report.Get("a")
	s.Equal("2", value.String())
	s.False(report.Has("b"))
	s.True(NewReport().IsEmpty())
}

func (s *ReportSuite) TestZeroValueIsNull() {
	var v Value
	s.Equal(KindNull, v.Kind())
	s.Equal("null", v.String())
	s.Nil(Text("x").Fields())
}

func (s *ReportSuite) TestIsKnownField() {
	s.True(IsKnownField("occurrence_time"))
	s.False(IsKnownField("narrative"))
}

func (s *ReportSuite) TestParseReportKeepsIntegerLikeKeysInDocumentOrder() {
	report, err := ParseReport([]byte(`{"b":"1","2":"x","1":"y"}`))
	s.Require().NoError(err)
	s.Equal([]string{"b", "2", "1"}, report.Names())
}
