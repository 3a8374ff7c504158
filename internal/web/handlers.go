package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/taskdeck/interchange/internal/codec"
	"github.com/taskdeck/interchange/internal/engine"
	"github.com/taskdeck/interchange/internal/format"
	"github.com/taskdeck/interchange/internal/task"
)

// detectSampleSize is how much of the file the detector inspects.
const detectSampleSize = 8 * 1024

// formatDTO is the wire shape of a format descriptor.
type formatDTO struct {
	ID               format.Format `json:"id"`
	Name             string        `json:"name"`
	Extensions       []string      `json:"extensions"`
	MIMEType         string        `json:"mimeType"`
	Lossless         bool          `json:"lossless"`
	CanImport        bool          `json:"canImport"`
	CanExport        bool          `json:"canExport"`
	DataLossWarnings []string      `json:"dataLossWarnings,omitempty"`
}

func toFormatDTO(d format.Descriptor) formatDTO {
	return formatDTO{
		ID:               d.ID,
		Name:             d.Name,
		Extensions:       d.Extensions,
		MIMEType:         d.MIMEType,
		Lossless:         d.Lossless,
		CanImport:        d.CanImport,
		CanExport:        d.CanExport,
		DataLossWarnings: d.DataLossWarnings,
	}
}

// handleHealth reports service liveness.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":      "ok",
		"active_jobs": s.jobs.limiter.activeCount(),
	})
}

// handleListFormats returns every supported format with its capabilities.
func (s *Server) handleListFormats(w http.ResponseWriter, r *http.Request) {
	formats := make([]formatDTO, 0, len(format.All()))
	for _, f := range format.All() {
		formats = append(formats, toFormatDTO(format.MustLookup(f)))
	}
	writeJSON(w, map[string]any{"formats": formats})
}

// handleDetect guesses the format of an uploaded file from its name and a
// content sample.
func (s *Server) handleDetect(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	sample := data
	if len(sample) > detectSampleSize {
		sample = sample[:detectSampleSize]
	}
	detected, ok := format.Detect(name, sample)
	if !ok {
		respondError(w, r, fmt.Errorf("could not detect format of %q", name), http.StatusUnprocessableEntity)
		return
	}

	writeJSON(w, map[string]any{
		"format":     detected,
		"descriptor": toFormatDTO(format.MustLookup(detected)),
	})
}

// handleImport parses an uploaded file into task records.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, false)
}

// handlePreview parses a capped sample of an uploaded file, for showing
// the user what an import would produce.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.runImport(w, r, true)
}

func (s *Server) runImport(w http.ResponseWriter, r *http.Request, preview bool) {
	name, data, err := s.readUpload(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	opts, err := importOptionsFromForm(r, name, data)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	conv := engine.Converter{}
	var result *engine.ImportResult
	if preview {
		result, err = conv.Preview(data, opts)
	} else {
		result, err = conv.Import(data, opts)
	}
	if err != nil {
		respondError(w, r, err, importErrorStatus(err))
		return
	}

	writeJSON(w, result)
}

// importErrorStatus maps engine import failures to HTTP status codes.
func importErrorStatus(err error) int {
	switch {
	case errors.Is(err, engine.ErrUnknownFormat):
		return http.StatusBadRequest
	case errors.Is(err, engine.ErrAborted):
		return http.StatusUnprocessableEntity
	default:
		var structural *engine.StructuralError
		if errors.As(err, &structural) {
			return http.StatusUnprocessableEntity
		}
		var mapping *engine.ColumnMappingError
		if errors.As(err, &mapping) {
			return http.StatusUnprocessableEntity
		}
		return http.StatusInternalServerError
	}
}

// exportRequest is the wire shape of a synchronous export.
type exportRequest struct {
	Records []task.Record `json:"records"`

	ExcludeCompleted bool `json:"excludeCompleted,omitempty"`
	ExcludeArchived  bool `json:"excludeArchived,omitempty"`
	ExcludeNotes     bool `json:"excludeNotes,omitempty"`

	Rules []filterRuleDTO `json:"rules,omitempty"`

	CreatedFrom string `json:"createdFrom,omitempty"`
	CreatedTo   string `json:"createdTo,omitempty"`

	Projects []string `json:"projects,omitempty"`
	Contexts []string `json:"contexts,omitempty"`
}

// filterRuleDTO is the wire shape of one export filter rule.
type filterRuleDTO struct {
	Property string          `json:"property"`
	Operator string          `json:"operator"`
	Value    *filterValueDTO `json:"value,omitempty"`
}

// filterValueDTO carries the rule payload; exactly one field group is
// meaningful depending on the operator.
type filterValueDTO struct {
	String *string  `json:"string,omitempty"`
	Number *float64 `json:"number,omitempty"`
	Bool   *bool    `json:"bool,omitempty"`
	Date   string   `json:"date,omitempty"`
	From   string   `json:"from,omitempty"`
	To     string   `json:"to,omitempty"`
	List   []string `json:"list,omitempty"`
}

func (d filterRuleDTO) toRule() (engine.FilterRule, error) {
	rule := engine.FilterRule{
		Property: engine.FilterProperty(d.Property),
		Operator: engine.FilterOperator(d.Operator),
	}
	if d.Value == nil {
		return rule, nil
	}

	v := d.Value
	switch {
	case v.String != nil:
		rule.Value = engine.StringValue(*v.String)
	case v.Number != nil:
		rule.Value = engine.NumberValue(*v.Number)
	case v.Bool != nil:
		rule.Value = engine.BoolValue(*v.Bool)
	case v.From != "" || v.To != "":
		from := codec.ParseDate(v.From)
		to := codec.ParseDate(v.To)
		if from == nil || to == nil {
			return rule, fmt.Errorf("invalid date range in rule for %q", d.Property)
		}
		rule.Value = engine.DateRangeValue(*from, *to)
	case v.Date != "":
		date := codec.ParseDate(v.Date)
		if date == nil {
			return rule, fmt.Errorf("invalid date %q in rule for %q", v.Date, d.Property)
		}
		rule.Value = engine.DateValue(*date)
	case v.List != nil:
		rule.Value = engine.ListValue(v.List...)
	}
	return rule, nil
}

func (req exportRequest) toOptions(target format.Format) (engine.ExportOptions, error) {
	opts := engine.ExportOptions{
		Format:           target,
		ExcludeCompleted: req.ExcludeCompleted,
		ExcludeArchived:  req.ExcludeArchived,
		ExcludeNotes:     req.ExcludeNotes,
		Projects:         req.Projects,
		Contexts:         req.Contexts,
	}
	for _, dto := range req.Rules {
		rule, err := dto.toRule()
		if err != nil {
			return opts, err
		}
		opts.Rules = append(opts.Rules, rule)
	}
	if req.CreatedFrom != "" {
		from := codec.ParseDate(req.CreatedFrom)
		if from == nil {
			return opts, fmt.Errorf("invalid date %q for createdFrom", req.CreatedFrom)
		}
		opts.CreatedFrom = from
	}
	if req.CreatedTo != "" {
		to := codec.ParseDate(req.CreatedTo)
		if to == nil {
			return opts, fmt.Errorf("invalid date %q for createdTo", req.CreatedTo)
		}
		opts.CreatedTo = to
	}
	return opts, nil
}

// handleExport renders posted records in the requested format and streams
// the result as a download. Result counts and warnings travel as headers
// so the body stays the raw file.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	target := format.Format(chi.URLParam(r, "format"))
	desc, ok := format.Lookup(target)
	if !ok || !desc.CanExport {
		respondError(w, r, fmt.Errorf("%w: %s", engine.ErrUnknownFormat, target), http.StatusBadRequest)
		return
	}

	var req exportRequest
	body := http.MaxBytesReader(w, r.Body, s.cfg.Convert.MaxFileSize)
	if err := json.NewDecoder(body).Decode(&req); err != nil {
		respondError(w, r, fmt.Errorf("decoding export request: %w", err), http.StatusBadRequest)
		return
	}

	opts, err := req.toOptions(target)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	var out strings.Builder
	result, err := engine.Converter{}.Export(req.Records, opts, &out)
	if err != nil {
		respondError(w, r, err, exportErrorStatus(err))
		return
	}

	w.Header().Set("Content-Type", desc.MIMEType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+exportFileName("tasks", desc)+`"`)
	w.Header().Set("X-Exported-Count", strconv.Itoa(result.ExportedCount))
	w.Header().Set("X-Filtered-Count", strconv.Itoa(result.FilteredCount))
	for _, warning := range result.Warnings {
		w.Header().Add("X-Export-Warning", warning)
	}
	io.WriteString(w, out.String())
}

func exportErrorStatus(err error) int {
	if errors.Is(err, engine.ErrUnknownFormat) {
		return http.StatusBadRequest
	}
	if strings.Contains(err.Error(), "not valid for property") {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// handleConvert starts an asynchronous file conversion and returns the job
// ID immediately.
func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	name, data, err := s.readUpload(r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	importOpts, err := importOptionsFromForm(r, name, data)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	to := format.Format(r.FormValue("to"))
	toDesc, ok := format.Lookup(to)
	if !ok || !toDesc.CanExport {
		respondError(w, r, fmt.Errorf("%w: %s", engine.ErrUnknownFormat, to), http.StatusBadRequest)
		return
	}

	exportOpts := engine.ExportOptions{
		Format:           to,
		ExcludeCompleted: r.FormValue("excludeCompleted") == "true",
		ExcludeArchived:  r.FormValue("excludeArchived") == "true",
		ExcludeNotes:     r.FormValue("excludeNotes") == "true",
	}

	jobID, err := s.jobs.Start(r.Context(), name, data, importOpts.Format, to, importOpts, exportOpts)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, errTooManyConversions) {
			w.Header().Set("Retry-After", "30")
			status = http.StatusServiceUnavailable
		}
		respondError(w, r, err, status)
		return
	}

	w.WriteHeader(http.StatusAccepted)
	writeJSON(w, map[string]string{"job_id": jobID})
}

// handleConvertProgress streams job progress as Server-Sent Events.
func (s *Server) handleConvertProgress(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	updates, err := s.jobs.Subscribe(jobID)
	if err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		respondError(w, r, errors.New("streaming not supported"), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	// Resumed connections replay from the last seen percentage.
	lastSeen := -1
	if last := r.Header.Get("Last-Event-ID"); last != "" {
		if n, err := strconv.Atoi(last); err == nil {
			lastSeen = n
		}
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case p, open := <-updates:
			if !open {
				return
			}
			if p.Percent() <= lastSeen && p.Phase != PhaseComplete && p.Phase != PhaseFailed && p.Phase != PhaseCancelled {
				continue
			}
			lastSeen = p.Percent()

			payload, err := json.Marshal(p)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "id: %d\n", p.Percent())
			fmt.Fprintf(w, "event: %s\n", p.Phase)
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// handleConvertResult blocks until the job finishes, then returns either
// the converted file (?download=1) or the result metadata as JSON.
func (s *Server) handleConvertResult(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	result, err := s.jobs.Result(jobID)
	if err != nil {
		status := http.StatusUnprocessableEntity
		if strings.Contains(err.Error(), "job not found") {
			status = http.StatusNotFound
		}
		respondError(w, r, err, status)
		return
	}

	if r.URL.Query().Get("download") != "" {
		w.Header().Set("Content-Type", result.MIMEType)
		w.Header().Set("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
		w.Write(result.Output)
		return
	}

	writeJSON(w, result)
}

// handleConvertCancel cancels an in-progress conversion job.
func (s *Server) handleConvertCancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")

	if err := s.jobs.CancelJob(jobID); err != nil {
		respondError(w, r, err, http.StatusNotFound)
		return
	}

	writeJSON(w, map[string]string{"status": "cancelled"})
}

// readUpload extracts the uploaded file from a multipart request, enforcing
// the configured size limit.
func (s *Server) readUpload(r *http.Request) (string, []byte, error) {
	r.Body = http.MaxBytesReader(nil, r.Body, s.cfg.Convert.MaxFileSize)

	if err := r.ParseMultipartForm(s.cfg.Convert.MaxFileSize); err != nil {
		if strings.Contains(err.Error(), "request body too large") {
			return "", nil, fmt.Errorf("request body too large: limit is %d bytes", s.cfg.Convert.MaxFileSize)
		}
		return "", nil, fmt.Errorf("parsing multipart form: %w", err)
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, errors.New("no file provided")
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return "", nil, fmt.Errorf("reading file: %w", err)
	}
	if len(data) == 0 {
		return "", nil, errors.New("empty file: nothing to import")
	}

	return header.Filename, data, nil
}

// importOptionsFromForm builds ImportOptions from multipart form values,
// auto-detecting the format when the request leaves it unspecified.
func importOptionsFromForm(r *http.Request, filename string, data []byte) (engine.ImportOptions, error) {
	opts := engine.ImportOptions{
		DefaultProject: r.FormValue("defaultProject"),
		DefaultContext: r.FormValue("defaultContext"),
		PreserveIDs:    r.FormValue("preserveIds") == "true",
		SkipErrors:     r.FormValue("skipErrors") != "false",
		DateFormat:     r.FormValue("dateFormat"),
	}

	from := format.Format(r.FormValue("format"))
	if from == "" {
		from = format.Format(r.FormValue("from"))
	}
	if from == "" {
		sample := data
		if len(sample) > detectSampleSize {
			sample = sample[:detectSampleSize]
		}
		detected, ok := format.Detect(filename, sample)
		if !ok {
			return opts, fmt.Errorf("could not detect format of %q", filename)
		}
		from = detected
	}
	opts.Format = from

	if v := r.FormValue("defaultStatus"); v != "" {
		status, ok := task.ParseStatus(v)
		if !ok {
			return opts, fmt.Errorf("invalid status %q for defaultStatus", v)
		}
		opts.DefaultStatus = status
	}

	if v := r.FormValue("maxRecords"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return opts, fmt.Errorf("invalid maxRecords %q", v)
		}
		opts.MaxRecords = n
	}

	if v := r.FormValue("columnMapping"); v != "" {
		mapping := map[string]string{}
		if err := json.Unmarshal([]byte(v), &mapping); err != nil {
			return opts, fmt.Errorf("decoding columnMapping: %w", err)
		}
		opts.ColumnMapping = mapping
	}

	return opts, nil
}
