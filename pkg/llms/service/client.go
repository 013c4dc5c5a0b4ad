// Package service talks to the report service over its HTTP form endpoints.
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Nephrolytics-ai/pd-report/pkg/logging"
	"github.com/Nephrolytics-ai/pd-report/pkg/model"
	"github.com/Nephrolytics-ai/pd-report/pkg/utils"
	"github.com/tidwall/gjson"
)

const (
	providerName      = "service"
	defaultBaseURL    = "http://127.0.0.1:8000"
	envServiceURL     = "PDREPORT_SERVICE_URL"
	envServiceToken   = "PDREPORT_SERVICE_TOKEN"
	pathTranscribe    = "/transcribe"
	pathGenerate      = "/generate_report"
	pathEdit          = "/edit_report"
	pathDownload      = "/download_report"
	audioFieldName    = "file"
	maxDetailBodySize = 512
)

// ErrStatus matches every *StatusError.
var ErrStatus = errors.New("report service returned an error status")

// StatusError is a non-2xx answer from the service. Detail is the service's
// "detail" message when it sent one, otherwise the start of the body.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("report service %s returned %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("report service %s returned %d: %s", e.Endpoint, e.StatusCode, e.Detail)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrStatus
}

// Client implements model.Transcriber, model.ReportGenerator and
// model.ReportDownloader against the report service.
type Client struct {
	httpClient *http.Client
	baseURL    string
	authToken  string
}

type formField struct {
	name  string
	value string
}

type response struct {
	statusCode  int
	contentType string
	body        []byte
}

func NewClient(opts ...model.GeneratorOption) (*Client, error) {
	cfg := model.ResolveGeneratorOpts(opts...)

	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		baseURL = strings.TrimSpace(os.Getenv(envServiceURL))
	}
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, utils.WrapIfNotNil(fmt.Errorf("service url must be http or https: %q", baseURL))
	}

	authToken := strings.TrimSpace(cfg.AuthToken)
	if authToken == "" {
		authToken = strings.TrimSpace(os.Getenv(envServiceToken))
	}

	// No timeout unless one is configured; a hung call is left to the caller's
	// context.
	var timeout time.Duration
	if cfg.Timeout != nil {
		timeout = *cfg.Timeout
	}

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		authToken:  authToken,
	}, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) post(ctx context.Context, path string, fields []formField, file *model.AudioFile) (*response, error) {
	log := logging.NewLogger(ctx)

	body, contentType, err := encodeForm(fields, file)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}
	httpRequest.Header.Set("Content-Type", contentType)
	if c.authToken != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	httpResponse, err := c.httpClient.Do(httpRequest)
	if err != nil {
		log.Errorf("error: %v", err)
		return nil, utils.WrapIfNotNil(err)
	}
	defer httpResponse.Body.Close()

	responseBits, err := io.ReadAll(httpResponse.Body)
	if err != nil {
		return nil, utils.WrapIfNotNil(err)
	}

	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		statusErr := &StatusError{
			Endpoint:   path,
			StatusCode: httpResponse.StatusCode,
			Detail:     errorDetail(responseBits),
		}
		log.Errorf("error: %v", statusErr)
		return nil, utils.WrapIfNotNil(statusErr)
	}

	return &response{
		statusCode:  httpResponse.StatusCode,
		contentType: httpResponse.Header.Get("Content-Type"),
		body:        responseBits,
	}, nil
}

func encodeForm(fields []formField, file *model.AudioFile) (io.Reader, string, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for _, field := range fields {
		if err := writer.WriteField(field.name, field.value); err != nil {
			return nil, "", err
		}
	}

	if file != nil {
		header := make(textproto.MIMEHeader)
		header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, audioFieldName, file.Name))
		mimeType := strings.TrimSpace(file.MIMEType)
		if mimeType == "" {
			mimeType = "application/octet-stream"
		}
		header.Set("Content-Type", mimeType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(file.Data); err != nil {
			return nil, "", err
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}
	return &buf, writer.FormDataContentType(), nil
}

func errorDetail(body []byte) string {
	if gjson.ValidBytes(body) {
		detail := gjson.GetBytes(body, "detail")
		if detail.Type == gjson.String {
			return strings.TrimSpace(detail.Str)
		}
		if detail.Exists() {
			return detail.Raw
		}
	}

	message := strings.TrimSpace(string(body))
	if len(message) > maxDetailBodySize {
		message = message[:maxDetailBodySize]
	}
	return message
}

func initMetadata() model.GenerationMetadata {
	return model.GenerationMetadata{
		model.MetadataKeyProvider: providerName,
		model.MetadataKeyModel:    "remote",
	}
}

func setLatencyMetadata(meta model.GenerationMetadata, start time.Time) {
	if meta == nil {
		return
	}
	meta[model.MetadataKeyLatencyMs] = strconv.FormatInt(time.Since(start).Milliseconds(), 10)
}

func setStatusMetadata(meta model.GenerationMetadata, resp *response) {
	if meta == nil || resp == nil {
		return
	}
	meta[model.MetadataKeyStatusCode] = strconv.Itoa(resp.statusCode)
}
