package web

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/taskdeck/interchange/internal/config"
	"github.com/taskdeck/interchange/internal/engine"
	"github.com/taskdeck/interchange/internal/format"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// Keep handler tests fast and deterministic.
	cfg.Rate.Enabled = false
	cfg.Convert.MaxWaitTime = time.Second
	return NewServer(cfg)
}

// multipartBody builds a multipart request body with one file part plus
// extra form fields.
func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("WriteField: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func doRequest(t *testing.T, s *Server, method, target, contentType string, body *bytes.Buffer) *httptest.ResponseRecorder {
	t.Helper()
	if body == nil {
		body = &bytes.Buffer{}
	}
	req := httptest.NewRequest(method, target, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestListFormats(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/formats", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var resp struct {
		Formats []formatDTO `json:"formats"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(resp.Formats) != len(format.All()) {
		t.Fatalf("got %d formats, want %d", len(resp.Formats), len(format.All()))
	}

	byID := map[format.Format]formatDTO{}
	for _, f := range resp.Formats {
		byID[f.ID] = f
	}
	if !byID[format.CSV].CanImport || !byID[format.CSV].CanExport {
		t.Error("csv should support both directions")
	}
	if byID[format.ICal].CanImport {
		t.Error("ical should be export-only")
	}
	if len(byID[format.Checklist].DataLossWarnings) == 0 {
		t.Error("checklist should carry data-loss warnings")
	}
}

func TestDetectEndpoint(t *testing.T) {
	s := testServer(t)

	body, ct := multipartBody(t, "tasks.taskpaper", "Inbox:\n\t- Buy milk @due(2025-11-20)\n", nil)
	rec := doRequest(t, s, http.MethodPost, "/api/detect", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Format format.Format `json:"format"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if resp.Format != format.TaskPaper {
		t.Errorf("format = %q, want taskpaper", resp.Format)
	}
}

func TestDetectEndpointUndetectable(t *testing.T) {
	s := testServer(t)

	body, ct := multipartBody(t, "blob.bin", "\x00\x01\x02", nil)
	rec := doRequest(t, s, http.MethodPost, "/api/detect", ct, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "FMT002" {
		t.Errorf("code = %q, want FMT002", resp.Code)
	}
}

func TestImportEndpointCSV(t *testing.T) {
	s := testServer(t)

	csv := "Title,Status,Due\nBuy milk,inbox,2025-11-20\nCall dentist,next-action,\n"
	body, ct := multipartBody(t, "tasks.csv", csv, nil)
	rec := doRequest(t, s, http.MethodPost, "/api/import", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result engine.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.Format != format.CSV {
		t.Errorf("format = %q, want csv", result.Format)
	}
	if len(result.Records) != 2 {
		t.Fatalf("got %d records, want 2", len(result.Records))
	}
	if result.Records[0].Title != "Buy milk" {
		t.Errorf("title = %q", result.Records[0].Title)
	}
}

func TestImportEndpointColumnMapping(t *testing.T) {
	s := testServer(t)

	body, ct := multipartBody(t, "tasks.csv", "Foo,Bar\nBuy milk,high\n", nil)
	rec := doRequest(t, s, http.MethodPost, "/api/import", ct, body)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "MAP001" {
		t.Errorf("code = %q, want MAP001", resp.Code)
	}

	// Same file with an explicit mapping imports fine.
	body, ct = multipartBody(t, "tasks.csv", "Foo,Bar\nBuy milk,high\n", map[string]string{
		"columnMapping": `{"title":"Foo","priority":"Bar"}`,
	})
	rec = doRequest(t, s, http.MethodPost, "/api/import", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("mapped import status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
}

func TestImportEndpointNoFile(t *testing.T) {
	s := testServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("format", "csv")
	mw.Close()

	rec := doRequest(t, s, http.MethodPost, "/api/import", mw.FormDataContentType(), &buf)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "FILE002" {
		t.Errorf("code = %q, want FILE002", resp.Code)
	}
}

func TestPreviewEndpointCapsRecords(t *testing.T) {
	s := testServer(t)

	var sb strings.Builder
	sb.WriteString("Title\n")
	for i := 0; i < 50; i++ {
		sb.WriteString("Task\n")
	}
	body, ct := multipartBody(t, "tasks.csv", sb.String(), nil)
	rec := doRequest(t, s, http.MethodPost, "/api/preview", ct, body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result engine.ImportResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if len(result.Records) != engine.PreviewRecords {
		t.Errorf("got %d records, want %d", len(result.Records), engine.PreviewRecords)
	}
}

func TestExportEndpoint(t *testing.T) {
	s := testServer(t)

	reqBody := `{
		"records": [
			{"title": "Buy milk", "status": "inbox", "priority": "medium"},
			{"title": "Old chore", "status": "completed", "priority": "low"}
		],
		"excludeCompleted": true
	}`
	rec := doRequest(t, s, http.MethodPost, "/api/export/checklist", "application/json", bytes.NewBufferString(reqBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	if got := rec.Header().Get("X-Exported-Count"); got != "1" {
		t.Errorf("X-Exported-Count = %q, want 1", got)
	}
	if got := rec.Header().Get("X-Filtered-Count"); got != "1" {
		t.Errorf("X-Filtered-Count = %q, want 1", got)
	}
	if warnings := rec.Header().Values("X-Export-Warning"); len(warnings) == 0 {
		t.Error("expected data-loss warnings for checklist")
	}
	if !strings.Contains(rec.Body.String(), "- [ ] Buy milk") {
		t.Errorf("body missing checklist line:\n%s", rec.Body.String())
	}
}

func TestExportEndpointWithRules(t *testing.T) {
	s := testServer(t)

	reqBody := `{
		"records": [
			{"title": "Fix the fence", "status": "next-action", "priority": "high"},
			{"title": "Call mom", "status": "inbox", "priority": "medium"}
		],
		"rules": [
			{"property": "title", "operator": "contains", "value": {"string": "fence"}}
		]
	}`
	rec := doRequest(t, s, http.MethodPost, "/api/export/json", "application/json", bytes.NewBufferString(reqBody))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if got := rec.Header().Get("X-Exported-Count"); got != "1" {
		t.Errorf("X-Exported-Count = %q, want 1", got)
	}
}

func TestExportEndpointInvalidRule(t *testing.T) {
	s := testServer(t)

	reqBody := `{
		"records": [{"title": "Fix the fence", "status": "inbox", "priority": "high"}],
		"rules": [
			{"property": "flagged", "operator": "contains", "value": {"string": "x"}}
		]
	}`
	rec := doRequest(t, s, http.MethodPost, "/api/export/json", "application/json", bytes.NewBufferString(reqBody))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "VAL004" {
		t.Errorf("code = %q, want VAL004", resp.Code)
	}
}

func TestExportEndpointUnknownFormat(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/export/docx", "application/json", bytes.NewBufferString(`{"records":[]}`))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "FMT001" {
		t.Errorf("code = %q, want FMT001", resp.Code)
	}
}

func TestConvertJobLifecycle(t *testing.T) {
	s := testServer(t)

	csv := "Title,Status\nBuy milk,inbox\nPaint shed,completed\n"
	body, ct := multipartBody(t, "tasks.csv", csv, map[string]string{"to": "taskpaper"})
	rec := doRequest(t, s, http.MethodPost, "/api/convert", ct, body)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", rec.Code, rec.Body.String())
	}

	var started struct {
		JobID string `json:"job_id"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &started); err != nil {
		t.Fatalf("decoding job response: %v", err)
	}
	if started.JobID == "" {
		t.Fatal("empty job id")
	}

	// Result blocks until the job finishes.
	rec = doRequest(t, s, http.MethodGet, "/api/convert/"+started.JobID+"/result", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("result status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var result JobResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if result.From != format.CSV || result.To != format.TaskPaper {
		t.Errorf("from/to = %q/%q", result.From, result.To)
	}
	if result.Import == nil || result.Import.ImportedCount() != 2 {
		t.Errorf("imported = %+v, want 2 records", result.Import)
	}
	if result.Export == nil || result.Export.ExportedCount != 2 {
		t.Errorf("exported = %+v, want 2 records", result.Export)
	}

	// Download variant returns the converted file.
	rec = doRequest(t, s, http.MethodGet, "/api/convert/"+started.JobID+"/result?download=1", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status = %d, want 200", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Buy milk") {
		t.Errorf("converted output missing task:\n%s", rec.Body.String())
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "tasks.taskpaper") {
		t.Errorf("Content-Disposition = %q", cd)
	}
}

func TestConvertJobNotFound(t *testing.T) {
	s := testServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/convert/nope/result", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}

	var resp ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decoding error response: %v", err)
	}
	if resp.Code != "JOB001" {
		t.Errorf("code = %q, want JOB001", resp.Code)
	}
}

func TestConvertUnknownTarget(t *testing.T) {
	s := testServer(t)

	body, ct := multipartBody(t, "tasks.csv", "Title\nBuy milk\n", map[string]string{"to": "docx"})
	rec := doRequest(t, s, http.MethodPost, "/api/convert", ct, body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400: %s", rec.Code, rec.Body.String())
	}
}

func TestJobManagerProgressSubscription(t *testing.T) {
	limiter := newConvertLimiter(2, time.Second)
	jobs := newJobManager(limiter, time.Minute, time.Minute)

	csv := "Title\nBuy milk\n"
	jobID, err := jobs.Start(context.Background(), "tasks.csv", []byte(csv),
		format.CSV, format.JSON, engine.ImportOptions{SkipErrors: true}, engine.ExportOptions{})
	if err != nil {
		t.Fatalf("Start: %v", err)
	}

	updates, err := jobs.Subscribe(jobID)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	var last JobProgress
	for p := range updates {
		last = p
	}
	if last.Phase != PhaseComplete {
		t.Errorf("final phase = %q, want complete", last.Phase)
	}
	if last.Fraction != 1 {
		t.Errorf("final fraction = %v, want 1", last.Fraction)
	}

	result, err := jobs.Result(jobID)
	if err != nil {
		t.Fatalf("Result: %v", err)
	}
	if result.FileName != "tasks.json" {
		t.Errorf("file name = %q, want tasks.json", result.FileName)
	}
}
