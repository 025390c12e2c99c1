package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"csvpipe/internal/config"
	"csvpipe/internal/datasource"
	pjson "csvpipe/internal/parser/json"
	"csvpipe/internal/pipeline"
)

// multipartSlack covers form boundaries and headers around the file part.
const multipartSlack = 1 << 20

// acceptedExt lists upload extensions the inspector parses.
var acceptedExt = map[string]bool{".csv": true, ".tsv": true, ".txt": true}

func (s *Server) tooLargeMessage() string {
	return fmt.Sprintf("File too large. Maximum size is %dMB.", s.pipe.Limit()>>20)
}

func (s *Server) handleInspect(w http.ResponseWriter, r *http.Request) {
	limit := s.pipe.Limit()
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartSlack)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, r, http.StatusBadRequest, s.tooLargeMessage(), err)
			return
		}
		writeError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "No file provided", err)
		return
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !acceptedExt[ext] && header.Header.Get("Content-Type") != "text/csv" {
		writeError(w, r, http.StatusBadRequest, "Invalid file type. Only CSV files are supported.", nil)
		return
	}
	if limit > 0 && header.Size > limit {
		writeError(w, r, http.StatusBadRequest, s.tooLargeMessage(), nil)
		return
	}

	opts := formOptions(r)
	if ext == ".tsv" && !opts.Has("delimiter") {
		opts["delimiter"] = "\t"
	}
	popt, err := pipeline.ParseOptions(s.cfg.Parser, opts)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error(), err)
		return
	}

	res, err := s.pipe.Inspect(r.Context(), datasource.FromReader(header.Filename, file), popt)
	switch {
	case errors.Is(err, pipeline.ErrSizeLimit):
		writeError(w, r, http.StatusBadRequest, s.tooLargeMessage(), err)
		return
	case errors.Is(err, pipeline.ErrNoData):
		writeError(w, r, http.StatusBadRequest, "No data found in file", err)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "Failed to process file", err)
		return
	}
	writeJSON(w, r, http.StatusOK, res)
}

// formOptions collects the optional parse settings sent next to the file.
func formOptions(r *http.Request) config.Options {
	o := config.Options{}
	for _, key := range []string{"delimiter", "quoteChar", "escapeChar", "mode"} {
		if v := r.FormValue(key); v != "" {
			o[key] = v
		}
	}
	for _, key := range []string{"hasHeaders", "skipEmptyLines"} {
		if v := strings.ToLower(strings.TrimSpace(r.FormValue(key))); v != "" {
			o[key] = v != "false" && v != "0"
		}
	}
	return o
}

type inspectTransformRequest struct {
	Data            json.RawMessage `json:"data"`
	Transformations json.RawMessage `json:"transformations"`
}

func (s *Server) handleInspectTransform(w http.ResponseWriter, r *http.Request) {
	const invalid = "Invalid request body. Expected data array and transformations array."

	var req inspectTransformRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, invalid, err)
		return
	}
	if !isArray(req.Data) || !isArray(req.Transformations) {
		writeError(w, r, http.StatusBadRequest, invalid, nil)
		return
	}

	ds, _, err := pjson.DecodeBytes(req.Data, nil)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, invalid, err)
		return
	}
	if ds.RowCount() == 0 {
		writeError(w, r, http.StatusBadRequest, "No data provided for transformation.", nil)
		return
	}
	rules, err := pipeline.ParseRules(req.Transformations)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, invalid, err)
		return
	}

	writeJSON(w, r, http.StatusOK, s.pipe.ApplyRules(ds, rules))
}

func isArray(raw json.RawMessage) bool {
	var elems []json.RawMessage
	return json.Unmarshal(raw, &elems) == nil && elems != nil
}
