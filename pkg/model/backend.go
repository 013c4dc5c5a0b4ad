package model

import (
	"context"
	"fmt"
	"strings"
)

type GenerateRequest struct {
	OccurrenceType string
	ReportType     string
	Transcription  string
}

type EditRequest struct {
	// Report is the current formatted report text, not the structured record.
	Report       string
	Instructions string
	ReportType   string
}

type DocumentFormat string

const (
	DocumentFormatPDF  DocumentFormat = "pdf"
	DocumentFormatDOCX DocumentFormat = "docx"
)

func ParseDocumentFormat(value string) (DocumentFormat, error) {
	switch DocumentFormat(strings.ToLower(strings.TrimSpace(value))) {
	case DocumentFormatPDF:
		return DocumentFormatPDF, nil
	case DocumentFormatDOCX:
		return DocumentFormatDOCX, nil
	default:
		return "", fmt.Errorf("unsupported document format %q (want pdf or docx)", value)
	}
}

// Filename is the name a downloaded document is saved under.
func (f DocumentFormat) Filename() string {
	return "report." + string(f)
}

func (f DocumentFormat) ContentType() string {
	switch f {
	case DocumentFormatPDF:
		return "application/pdf"
	case DocumentFormatDOCX:
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}

type DownloadRequest struct {
	ReportContent string
	ReportType    string
	Format        DocumentFormat
}

type Document struct {
	Format      DocumentFormat
	ContentType string
	Body        []byte
}

type Transcriber interface {
	Transcribe(ctx context.Context, file AudioFile) (string, GenerationMetadata, error)
}

type ReportGenerator interface {
	GenerateReport(ctx context.Context, request GenerateRequest) (Report, GenerationMetadata, error)
	EditReport(ctx context.Context, request EditRequest) (Report, GenerationMetadata, error)
}

type ReportDownloader interface {
	DownloadReport(ctx context.Context, request DownloadRequest) (Document, error)
}
