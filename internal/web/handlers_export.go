package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"csvpipe/internal/logging"
	pjson "csvpipe/internal/parser/json"
	"csvpipe/internal/pipeline"
	"csvpipe/internal/render"
)

// exportFileBase names every exported download.
const exportFileBase = "exported_data"

type inspectExportRequest struct {
	Data    json.RawMessage `json:"data"`
	Format  string          `json:"format"`
	Columns json.RawMessage `json:"columns"`
}

// columns returns the requested column list. Anything but an array of
// strings means "all columns".
func (req inspectExportRequest) columns() []string {
	var cols []string
	if json.Unmarshal(req.Columns, &cols) != nil {
		return nil
	}
	return cols
}

func (s *Server) handleInspectExport(w http.ResponseWriter, r *http.Request) {
	const invalid = "Invalid request body. Expected data array."

	var req inspectExportRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody)).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, invalid, err)
		return
	}
	if !isArray(req.Data) {
		writeError(w, r, http.StatusBadRequest, invalid, nil)
		return
	}
	ds, _, err := pjson.DecodeBytes(req.Data, nil)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, invalid, err)
		return
	}

	doc, err := s.pipe.Export(ds, req.columns(), req.Format)
	switch {
	case errors.Is(err, pipeline.ErrNoData):
		writeError(w, r, http.StatusBadRequest, "No data provided for export.", err)
		return
	case errors.Is(err, pipeline.ErrNoColumns):
		writeError(w, r, http.StatusBadRequest, "No columns available for export.", err)
		return
	case errors.Is(err, render.ErrUnknownFormat):
		writeError(w, r, http.StatusBadRequest, "Unsupported export format. Supported formats: csv, xlsx, json.", err)
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "Failed to export data. Please try again.", err)
		return
	}

	h := w.Header()
	h.Set("Content-Type", doc.ContentType)
	h.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename(exportFileBase)))
	h.Set("Content-Length", strconv.Itoa(len(doc.Body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(doc.Body); err != nil {
		logging.FromContext(r.Context()).Error("export write error", "error", err)
	}
}
