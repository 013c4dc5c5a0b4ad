package formatter

import (
	"strings"
	"testing"

	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/stretchr/testify/suite"
)

type FormatSuite struct {
	suite.Suite
}

func TestFormatSuite(t *testing.T) {
	suite.Run(t, new(FormatSuite))
}

func mustParse(s *FormatSuite, input string) model.Report {
	report, err := model.ParseReport([]byte(input))
	s.Require().NoError(err)
	return report
}

func (s *FormatSuite) TestExample() {
	report := mustParse(s, `{"officer_full_name_and_badge_number": "J. Doe #123", "occurrence_type": "Theft", "notes": {"summary": "ok"}}`)

	expected := "officer full name and badge number: J. Doe #123\n" +
		"occurrence type: Theft\n" +
		"\n" +
		"NOTES:\n" +
		"  summary: ok"
	s.Equal(expected, Format(report))
}

func (s *FormatSuite) TestEmptyReport() {
	s.Equal("", Format(model.NewReport()))
	s.Equal("", Format(mustParse(s, `{}`)))
}

func (s *FormatSuite) TestOnlyKnownFieldsRenderInCanonicalOrder() {
	report := mustParse(s, `{"occurrence_time": "0800", "occurrence_number": "2024-1", "report_time": "0900", "officer_full_name_and_badge_number": "Constable A #1", "occurrence_type": "Fraud"}`)

	expected := strings.Join([]string{
		"officer full name and badge number: Constable A #1",
		"occurrence number: 2024-1",
		"occurrence type: Fraud",
		"report time: 0900",
		"occurrence time: 0800",
	}, "\n")
	s.Equal(expected, Format(report))
}

func (s *FormatSuite) TestKnownFieldOrderIndependentOfInput() {
	a := mustParse(s, `{"report_time": "1", "occurrence_number": "2", "extra": "x"}`)
	b := mustParse(s, `{"extra": "x", "occurrence_number": "2", "report_time": "1"}`)

	s.Equal(Format(a), Format(b))
	s.Equal("occurrence number: 2\nreport time: 1\n\nextra: x", Format(a))
}

func (s *FormatSuite) TestRemainingFieldsFollowInputOrder() {
	a := mustParse(s, `{"alpha": "1", "beta": "2", "gamma": "3"}`)
	b := mustParse(s, `{"gamma": "3", "alpha": "1", "beta": "2"}`)

	s.Equal("alpha: 1\n\nbeta: 2\n\ngamma: 3", Format(a))
	s.Equal("gamma: 3\n\nalpha: 1\n\nbeta: 2", Format(b))
}

func (s *FormatSuite) TestNestedObject() {
	report := mustParse(s, `{"x": {"a": 1, "b": 2}}`)

	s.Equal("X:\n  a: 1\n  b: 2", Format(report))
}

func (s *FormatSuite) TestNestedHeaderHumanizedAndUppercased() {
	report := mustParse(s, `{"persons_details": {"given_1": "Jane", "date_of_birth": "1990-01-01"}}`)

	s.Equal("PERSONS DETAILS:\n  given 1: Jane\n  date of birth: 1990-01-01", Format(report))
}

func (s *FormatSuite) TestNameWithoutUnderscoreUnchanged() {
	report := mustParse(s, `{"Narrative": "text", "notes": {"Summary": "ok"}}`)

	s.Equal("Narrative: text\n\nNOTES:\n  Summary: ok", Format(report))
}

func (s *FormatSuite) TestScalarVariants() {
	report := model.NewReport(
		model.F("count", model.Number(3)),
		model.F("ratio", model.Number(0.25)),
		model.F("armed", model.Bool(false)),
		model.F("witness", model.Null()),
		model.F("tags", model.Raw(`["a", "b"]`)),
	)

	s.Equal("count: 3\n\nratio: 0.25\n\narmed: false\n\nwitness: null\n\ntags: [\"a\",\"b\"]", Format(report))
}

func (s *FormatSuite) TestNullTakesScalarBranch() {
	report := mustParse(s, `{"contact_info": null}`)

	s.Equal("contact info: null", Format(report))
}

func (s *FormatSuite) TestEveryFieldAppearsOnce() {
	report := mustParse(s, `{"narrative": "n", "occurrence_type": "Theft", "persons_address": {"city_town": "Thunder Bay"}, "occurrence_number": "7"}`)
	out := Format(report)

	s.Equal(1, strings.Count(out, "occurrence type: Theft"))
	s.Equal(1, strings.Count(out, "occurrence number: 7"))
	s.Equal(1, strings.Count(out, "narrative: n"))
	s.Equal(1, strings.Count(out, "PERSONS ADDRESS:"))
	s.Equal("occurrence number: 7\noccurrence type: Theft\n\nnarrative: n\n\nPERSONS ADDRESS:\n  city town: Thunder Bay", out)
}

func (s *FormatSuite) TestEmptyNestedObjectKeepsHeader() {
	report := mustParse(s, `{"notes": {}, "after": "x"}`)

	s.Equal("NOTES:\n\nafter: x", Format(report))
}

func (s *FormatSuite) TestValueWhitespaceTrimmedOnlyAtEnds() {
	report := mustParse(s, `{"narrative": "  padded  "}`)

	s.Equal("narrative:   padded", Format(report))
}

func (s *FormatSuite) TestHumanize() {
	s.Equal("officer full name", Humanize("officer_full_name"))
	s.Equal("a  b", Humanize("a__b"))
	s.Equal("CONTACT INFO", HumanizeHeader("contact_info"))
}
