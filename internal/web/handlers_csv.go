package web

import (
	"bytes"
	"encoding/json"
	"net/http"

	"csvpipe/internal/config"
	"csvpipe/internal/dataset"
	pjson "csvpipe/internal/parser/json"
	"csvpipe/internal/pipeline"
)

// maxRequestBody caps JSON request bodies before decoding.
const maxRequestBody = config.DefaultMaxBytes + 1<<20

const msgInvalidAction = `Invalid action. Use "parse", "unparse", "validate", or "transform"`

// csvRequest is the body of POST /api/csv. Data is delimited text for
// parse and a JSON list of rows for every other action.
type csvRequest struct {
	Action  string          `json:"action"`
	Data    json.RawMessage `json:"data"`
	Options config.Options  `json:"options"`
}

type csvResponse struct {
	Success bool   `json:"success"`
	Result  any    `json:"result"`
	Action  string `json:"action"`
}

// missingData names each action's noun in the "Missing data for ..." error.
var missingData = map[string]string{
	"parse":     "parsing",
	"unparse":   "unparsing",
	"validate":  "validation",
	"transform": "transformation",
}

func (s *Server) handleCSV(w http.ResponseWriter, r *http.Request) {
	var req csvRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid JSON body", err)
		return
	}
	if req.Action == "" {
		writeError(w, r, http.StatusBadRequest, "Missing action parameter", nil)
		return
	}
	noun, known := missingData[req.Action]
	if !known {
		writeError(w, r, http.StatusBadRequest, msgInvalidAction, nil)
		return
	}
	if isMissing(req.Data) {
		writeError(w, r, http.StatusBadRequest, "Missing data for "+noun, nil)
		return
	}
	if req.Options == nil {
		req.Options = config.Options{}
	}

	var result any
	switch req.Action {
	case "parse":
		var text string
		if err := json.Unmarshal(req.Data, &text); err != nil {
			writeError(w, r, http.StatusBadRequest, "Data for parsing must be a string", err)
			return
		}
		opt, err := pipeline.ParseOptions(s.cfg.Parser, req.Options)
		if err != nil {
			writeError(w, r, http.StatusBadRequest, err.Error(), err)
			return
		}
		result = s.pipe.ParseDelimited(text, opt)

	default:
		ds, ok := s.decodeRows(w, r, req.Data, noun)
		if !ok {
			return
		}
		switch req.Action {
		case "unparse":
			result = s.pipe.Unparse(ds, pipeline.UnparseOptions(s.cfg.Parser, req.Options))
		case "validate":
			result = s.pipe.Validate(ds)
		case "transform":
			result = s.pipe.Transform(ds, pipeline.QueryOptions(req.Options))
		}
	}

	writeJSON(w, r, http.StatusOK, csvResponse{Success: true, Result: result, Action: req.Action})
}

// decodeRows turns a JSON list of row objects or row arrays into a dataset.
func (s *Server) decodeRows(w http.ResponseWriter, r *http.Request, raw json.RawMessage, noun string) (dataset.Dataset, bool) {
	ds, _, err := pjson.DecodeBytes(raw, nil)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid data for "+noun+": expected a list of rows", err)
		return dataset.Dataset{}, false
	}
	return ds, true
}

// isMissing treats an absent, null or empty-string payload as missing.
func isMissing(raw json.RawMessage) bool {
	t := bytes.TrimSpace(raw)
	return len(t) == 0 || bytes.Equal(t, []byte("null")) || bytes.Equal(t, []byte(`""`))
}
