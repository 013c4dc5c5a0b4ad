package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/tidwall/gjson"
)

func (c *Client) Transcribe(ctx context.Context, file model.AudioFile) (string, model.GenerationMetadata, error) {
	log := logging.NewLogger(ctx)
	meta := initMetadata()
	start := time.Now()
	defer setLatencyMetadata(meta, start)

	if len(file.Data) == 0 {
		return "", meta, utils.WrapIfNotNil(errors.New("audio file is empty"))
	}

	resp, err := c.post(ctx, pathTranscribe, nil, &file)
	if err != nil {
		return "", meta, utils.WrapIfNotNil(err)
	}
	setStatusMetadata(meta, resp)

	transcription := gjson.GetBytes(resp.body, "transcription")
	if transcription.Type != gjson.String {
		err = fmt.Errorf("transcribe response has no transcription text")
		log.Errorf("error: %v", err)
		return "", meta, utils.WrapIfNotNil(err)
	}

	log.Infof("transcription_received file=%s bytes=%d chars=%d", file.Name, file.Size(), len(transcription.Str))
	return transcription.Str, meta, nil
}

func (c *Client) GenerateReport(ctx context.Context, request model.GenerateRequest) (model.Report, model.GenerationMetadata, error) {
	meta := initMetadata()
	start := time.Now()
	defer setLatencyMetadata(meta, start)

	resp, err := c.post(ctx, pathGenerate, []formField{
		{name: "occurrence_type", value: request.OccurrenceType},
		{name: "report_type", value: request.ReportType},
		{name: "transcription", value: request.Transcription},
	}, nil)
	if err != nil {
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	setStatusMetadata(meta, resp)

	report, err := reportFromBody(resp.body, "report")
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	return report, meta, nil
}

func (c *Client) EditReport(ctx context.Context, request model.EditRequest) (model.Report, model.GenerationMetadata, error) {
	meta := initMetadata()
	start := time.Now()
	defer setLatencyMetadata(meta, start)

	resp, err := c.post(ctx, pathEdit, []formField{
		{name: "report", value: request.Report},
		{name: "instructions", value: request.Instructions},
		{name: "report_type", value: request.ReportType},
	}, nil)
	if err != nil {
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	setStatusMetadata(meta, resp)

	report, err := reportFromBody(resp.body, "edited_report")
	if err != nil {
		logging.NewLogger(ctx).Errorf("error: %v", err)
		return model.Report{}, meta, utils.WrapIfNotNil(err)
	}
	return report, meta, nil
}

func (c *Client) DownloadReport(ctx context.Context, request model.DownloadRequest) (model.Document, error) {
	resp, err := c.post(ctx, pathDownload, []formField{
		{name: "report_content", value: request.ReportContent},
		{name: "report_type", value: request.ReportType},
		{name: "format", value: string(request.Format)},
	}, nil)
	if err != nil {
		return model.Document{}, utils.WrapIfNotNil(err)
	}

	contentType := strings.TrimSpace(resp.contentType)
	if contentType == "" {
		contentType = request.Format.ContentType()
	}
	return model.Document{
		Format:      request.Format,
		ContentType: contentType,
		Body:        resp.body,
	}, nil
}

func reportFromBody(body []byte, key string) (model.Report, error) {
	if !gjson.ValidBytes(body) {
		return model.Report{}, fmt.Errorf("response is not valid JSON")
	}
	raw := gjson.GetBytes(body, key)
	if !raw.IsObject() {
		return model.Report{}, fmt.Errorf("response has no %q object", key)
	}
	return model.ParseReport([]byte(raw.Raw))
}
