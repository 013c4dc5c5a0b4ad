package session

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/Nephrolytics-ai/pd-report/pkg/formatter"
	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/tidwall/pretty"
)

// GenerateReport drafts a report from the transcription and returns its
// formatted text.
func (c *Controller) GenerateReport(ctx context.Context) (string, error) {
	ctx = c.scope(ctx, "generate")
	log := logging.NewLogger(ctx)

	c.mu.Lock()
	request := model.GenerateRequest{
		OccurrenceType: strings.TrimSpace(c.occurrenceType),
		ReportType:     strings.TrimSpace(c.reportType),
		Transcription:  strings.TrimSpace(c.transcription),
	}
	c.mu.Unlock()

	if request.OccurrenceType == "" || request.ReportType == "" || request.Transcription == "" {
		return "", c.fail(ctx, MsgGenerateInput, utils.WrapIfNotNil(ErrMissingInput, "generate"))
	}

	release, err := c.acquireLoading(&c.generating, true)
	if err != nil {
		return "", err
	}
	defer release()

	report, meta, err := c.generator.GenerateReport(ctx, request)
	if err != nil {
		return "", c.fail(ctx, MsgGenerate, utils.WrapIfNotNil(err))
	}

	text := c.storeReport(report)
	log.Infof("report_generated report_type=%q fields=%d provider=%s latency_ms=%s", request.ReportType, report.Len(), meta[model.MetadataKeyProvider], meta[model.MetadataKeyLatencyMs])
	return text, nil
}

// EditReport sends the current report text with instructions and replaces
// the report with the edited one.
func (c *Controller) EditReport(ctx context.Context, instructions string) (string, error) {
	ctx = c.scope(ctx, "edit")
	log := logging.NewLogger(ctx)

	instructions = strings.TrimSpace(instructions)
	if instructions == "" {
		return "", c.fail(ctx, MsgEditInstructions, utils.WrapIfNotNil(ErrMissingInput, "edit"))
	}

	release, err := c.acquire(&c.editing)
	if err != nil {
		return "", err
	}
	defer release()

	c.mu.Lock()
	request := model.EditRequest{
		Report:       c.reportText,
		Instructions: instructions,
		ReportType:   c.reportType,
	}
	c.mu.Unlock()

	report, meta, err := c.generator.EditReport(ctx, request)
	if err != nil {
		return "", c.fail(ctx, MsgEdit, utils.WrapIfNotNil(err))
	}

	text := c.storeReport(report)
	log.Infof("report_edited fields=%d provider=%s latency_ms=%s", report.Len(), meta[model.MetadataKeyProvider], meta[model.MetadataKeyLatencyMs])
	return text, nil
}

func (c *Controller) storeReport(report model.Report) string {
	text := formatter.Format(report)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.report = report
	c.reportText = text
	return text
}

// DownloadReport renders the current report text as a document, writes it to
// dir as report.<format> and returns the written path. When an archiver is
// configured the document is archived too; an archive failure is logged but
// does not fail the download.
func (c *Controller) DownloadReport(ctx context.Context, format model.DocumentFormat, dir string) (string, error) {
	ctx = c.scope(ctx, "download")
	log := logging.NewLogger(ctx)

	c.mu.Lock()
	request := model.DownloadRequest{
		ReportContent: c.reportText,
		ReportType:    c.reportType,
		Format:        format,
	}
	c.mu.Unlock()

	doc, err := c.downloader.DownloadReport(ctx, request)
	if err != nil {
		return "", c.fail(ctx, MsgDownload, utils.WrapIfNotNil(err))
	}

	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, format.Filename())
	if err := os.WriteFile(path, doc.Body, 0o644); err != nil {
		return "", c.fail(ctx, MsgDownload, utils.WrapIfNotNil(err))
	}
	log.Infof("report_downloaded path=%s bytes=%d", path, len(doc.Body))

	if c.archiver != nil {
		key, err := c.archiver.Archive(ctx, doc, request.ReportType)
		if err != nil {
			log.Warnf("report archive failed: %v", err)
		} else {
			log.Infof("report_archived key=%s", key)
		}
	}
	return path, nil
}

// SaveReportJSON writes the last report as indented JSON. An empty path
// means ReportJSONFilename in the current directory. It returns the path.
func (c *Controller) SaveReportJSON(ctx context.Context, path string) (string, error) {
	ctx = c.scope(ctx, "save_json")
	c.mu.Lock()
	report := c.report
	occurrenceType := c.occurrenceType
	c.mu.Unlock()

	if report.IsEmpty() {
		return "", c.fail(ctx, MsgSaveReportJSON, utils.WrapIfNotNil(ErrNoReport))
	}
	if path == "" {
		path = ReportJSONFilename(occurrenceType)
	}

	data, err := report.MarshalJSON()
	if err != nil {
		return "", c.fail(ctx, MsgSaveReportJSON, utils.WrapIfNotNil(err))
	}
	if err := os.WriteFile(path, pretty.Pretty(data), 0o644); err != nil {
		return "", c.fail(ctx, MsgSaveReportJSON, utils.WrapIfNotNil(err))
	}

	logging.NewLogger(ctx).Infof("report_saved path=%s", path)
	return path, nil
}

// ReportJSONFilename is report_<occurrence type>.json, lower-cased with
// spaces as underscores.
func ReportJSONFilename(occurrenceType string) string {
	return "report_" + strings.ReplaceAll(strings.ToLower(strings.TrimSpace(occurrenceType)), " ", "_") + ".json"
}
