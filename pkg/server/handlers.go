package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ChrisMcGann/brainscan/pkg/classify"
	"github.com/ChrisMcGann/brainscan/pkg/core"
	"github.com/ChrisMcGann/brainscan/pkg/fft"
	"github.com/ChrisMcGann/brainscan/pkg/reader/mrs"
	"github.com/ChrisMcGann/brainscan/pkg/store/sqlite"
)

// parseResponse is the JSON body of /test_parser.
type parseResponse struct {
	ID       string            `json:"id"`
	FileName string            `json:"file_name"`
	Label    string            `json:"group_label"`
	Header   map[string]string `json:"header"`
	Samples  [][2]float64      `json:"samples"`
	Spectrum []float64         `json:"spectrum"`
}

type classifierResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	CreatedAt string `json:"created_at"`
}

type classifyResponse struct {
	ScanID       string `json:"db_id"`
	ClassifierID string `json:"classifier_id"`
	Label        string `json:"label"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, "index", nil)
}

func (s *Server) handleUploadForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, "upload", nil)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid upload: %w", err))
		return
	}

	file, fh, err := r.FormFile("myfile")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("missing file field 'myfile': %w", err))
		return
	}
	defer file.Close()

	contents, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	scan := &core.Scan{
		FileName:   fh.Filename,
		Contents:   contents,
		GroupLabel: strings.TrimSpace(r.FormValue("grouplabel")),
	}

	s.logger.Debug().Str("file", scan.FileName).Msg("saving MRS data to database")
	if err := s.store.StoreScan(r.Context(), scan); err != nil {
		var verr *core.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.metrics.uploads.Inc()
	s.logger.Info().Str("id", scan.ID).Str("file", scan.FileName).Str("label", scan.GroupLabel).Msg("MRS data saved")

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusCreated)
	s.render(w, "uploaded", scan)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	scans, err := s.store.FetchAllScans(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Debug().Int("count", len(scans)).Msg("found MRS data entries")

	s.render(w, "list", scans)
}

func (s *Server) handleRead(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.fetchScan(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", scan.FileName))
	w.Write(scan.Contents)
}

func (s *Server) handleTestParser(w http.ResponseWriter, r *http.Request) {
	scan, ok := s.fetchScan(w, r)
	if !ok {
		return
	}

	res, err := s.analyzer.Analyze(scan.Contents)
	if err != nil {
		s.metrics.parseFailures.WithLabelValues(failureKind(err)).Inc()
		s.logger.Warn().Err(err).Str("id", scan.ID).Msg("failed to analyze MRS data")
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	samples := make([][2]float64, len(res.Document.Samples))
	for i, v := range res.Document.Samples {
		samples[i] = [2]float64{real(v), imag(v)}
	}

	s.writeJSON(w, http.StatusOK, parseResponse{
		ID:       scan.ID,
		FileName: scan.FileName,
		Label:    scan.GroupLabel,
		Header:   res.Document.Header,
		Samples:  samples,
		Spectrum: res.Spectrum.Bins,
	})
}

func (s *Server) handleListClassifiers(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.FetchAllClassifiers(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	out := make([]classifierResponse, len(recs))
	for i, rec := range recs {
		out[i] = toClassifierResponse(rec)
	}
	s.writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleTrain(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.writeError(w, http.StatusBadRequest, err)
		return
	}

	name := strings.TrimSpace(r.FormValue("name"))
	if name == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("classifier name is required"))
		return
	}

	kind := s.cfg.ClassifierType
	if t := r.FormValue("type"); t != "" {
		var err error
		if kind, err = classify.ParseKind(t); err != nil {
			s.writeError(w, http.StatusBadRequest, err)
			return
		}
	}

	k := s.cfg.ClassifierK
	if ks := r.FormValue("k"); ks != "" {
		var err error
		if k, err = strconv.Atoi(ks); err != nil {
			s.writeError(w, http.StatusBadRequest, fmt.Errorf("invalid k '%s': %w", ks, err))
			return
		}
	}

	scans, err := s.store.FetchAllScans(r.Context())
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	samples, err := s.analyzer.TrainingSamples(scans)
	if err != nil {
		s.metrics.parseFailures.WithLabelValues(failureKind(err)).Inc()
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	model, err := classify.Train(kind, samples, classify.TrainOptions{K: k})
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	data, err := model.Marshal()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	rec := &core.ClassifierRecord{Name: name, Type: string(kind), Serialized: data}
	if err := s.store.StoreClassifier(r.Context(), rec); err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.logger.Info().Str("id", rec.ID).Str("type", rec.Type).Int("samples", len(samples)).Msg("classifier trained")

	s.writeJSON(w, http.StatusCreated, toClassifierResponse(rec))
}

func (s *Server) handleClassify(w http.ResponseWriter, r *http.Request) {
	classifierID := r.URL.Query().Get("classifier_id")
	if classifierID == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing classifier_id parameter"))
		return
	}

	scan, ok := s.fetchScan(w, r)
	if !ok {
		return
	}

	rec, err := s.store.FetchClassifier(r.Context(), classifierID)
	if err != nil {
		s.writeStoreError(w, err)
		return
	}

	model, err := classify.Unmarshal(rec.Serialized)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err)
		return
	}

	res, err := s.analyzer.Analyze(scan.Contents)
	if err != nil {
		s.metrics.parseFailures.WithLabelValues(failureKind(err)).Inc()
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	label, err := model.Predict(res.Spectrum.Features())
	if err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	s.writeJSON(w, http.StatusOK, classifyResponse{ScanID: scan.ID, ClassifierID: rec.ID, Label: label})
}

// fetchScan loads the scan named by the db_id query parameter, writing an
// error response and returning false if it cannot.
func (s *Server) fetchScan(w http.ResponseWriter, r *http.Request) (*core.Scan, bool) {
	id := r.URL.Query().Get("db_id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, errors.New("missing db_id parameter"))
		return nil, false
	}

	scan, err := s.store.FetchScan(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, err)
		return nil, false
	}
	return scan, true
}

func (s *Server) writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, sqlite.ErrNotFound) {
		s.writeError(w, http.StatusNotFound, err)
		return
	}
	s.writeError(w, http.StatusInternalServerError, err)
}

func (s *Server) render(w http.ResponseWriter, name string, data any) {
	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
	}
	if err := s.tmpl.ExecuteTemplate(w, name, data); err != nil {
		s.logger.Error().Err(err).Str("template", name).Msg("failed to render template")
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, err error) {
	if status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Int("status", status).Msg("request failed")
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func toClassifierResponse(rec *core.ClassifierRecord) classifierResponse {
	return classifierResponse{
		ID:        rec.ID,
		Name:      rec.Name,
		Type:      rec.Type,
		CreatedAt: rec.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

// failureKind labels an analysis error for the parse failure metric.
func failureKind(err error) string {
	switch {
	case errors.Is(err, mrs.ErrIncompleteHeader):
		return "incomplete_header"
	case errors.Is(err, mrs.ErrMalformedHeaderLine):
		return "malformed_header_line"
	case errors.Is(err, mrs.ErrMalformedNumericToken):
		return "malformed_numeric_token"
	case errors.Is(err, fft.ErrEmptySeries):
		return "empty_series"
	default:
		return "other"
	}
}
