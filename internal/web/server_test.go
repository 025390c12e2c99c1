package web

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"csvpipe/internal/config"
	"csvpipe/internal/pipeline"
)

func newTestServer(p *pipeline.Pipeline) *httptest.Server {
	return httptest.NewServer(NewServer(Config{}, p).Router())
}

func postJSON(t *testing.T, url, body string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return out
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/healthz")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("security headers missing")
	}
	if body := decodeBody(t, resp.Body); body["status"] != "ok" {
		t.Fatalf("body=%v", body)
	}
}

func TestCSVBadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	t.Cleanup(srv.Close)

	cases := []struct {
		name string
		body string
		want string
	}{
		{name: "not json", body: `{`, want: "Invalid JSON body"},
		{name: "no action", body: `{"data":"a"}`, want: "Missing action parameter"},
		{name: "unknown action", body: `{"action":"zip","data":"a"}`, want: msgInvalidAction},
		{name: "parse without data", body: `{"action":"parse"}`, want: "Missing data for parsing"},
		{name: "unparse with null", body: `{"action":"unparse","data":null}`, want: "Missing data for unparsing"},
		{name: "validate empty string", body: `{"action":"validate","data":""}`, want: "Missing data for validation"},
		{name: "transform no data", body: `{"action":"transform"}`, want: "Missing data for transformation"},
		{name: "parse non string", body: `{"action":"parse","data":[1]}`, want: "Data for parsing must be a string"},
		{name: "bad mode", body: `{"action":"parse","data":"a","options":{"mode":"fuzzy"}}`, want: `unknown parse mode "fuzzy"`},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, body := postJSON(t, srv.URL+"/api/csv", tc.body)
			if status != http.StatusBadRequest {
				t.Fatalf("status=%d body=%v", status, body)
			}
			if body["error"] != tc.want {
				t.Fatalf("error=%q want %q", body["error"], tc.want)
			}
		})
	}
}

func TestCSVParse(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	status, body := postJSON(t, srv.URL+"/api/csv", `{"action":"parse","data":"a;b\n1;x\n2","options":{"delimiter":";"}}`)
	if status != http.StatusOK || body["success"] != true || body["action"] != "parse" {
		t.Fatalf("status=%d body=%v", status, body)
	}
	res := body["result"].(map[string]any)
	if res["rowCount"] != float64(1) || res["droppedRows"] != float64(1) {
		t.Fatalf("result=%v", res)
	}
	rows := res["rows"].([]any)
	first := rows[0].(map[string]any)
	if first["a"] != float64(1) || first["b"] != "x" {
		t.Fatalf("row=%v", first)
	}
}

func TestCSVUnparse(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	status, body := postJSON(t, srv.URL+"/api/csv", `{"action":"unparse","data":[{"name":"bob","note":"a, b"},{"name":"ann","note":null}]}`)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, body)
	}
	want := "name,note\r\nbob,\"a, b\"\r\nann,"
	if body["result"] != want {
		t.Fatalf("result=%q want %q", body["result"], want)
	}
}

func TestCSVValidate(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	status, body := postJSON(t, srv.URL+"/api/csv", `{"action":"validate","data":[{"a":"","b":5}]}`)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, body)
	}
	res := body["result"].(map[string]any)
	if res["isValid"] != false || res["totalRows"] != float64(1) || res["totalColumns"] != float64(2) {
		t.Fatalf("result=%v", res)
	}
	errs := res["errors"].([]any)
	if len(errs) != 1 || errs[0].(map[string]any)["message"] != "Required field is empty" {
		t.Fatalf("errors=%v", errs)
	}
}

func TestCSVTransform(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	body := `{"action":"transform","data":[{"n":1},{"n":3},{"n":2}],"options":{"sortColumn":"n","sortDirection":"desc"}}`
	status, out := postJSON(t, srv.URL+"/api/csv", body)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, out)
	}
	res := out["result"].(map[string]any)
	if res["sortColumn"] != "n" || res["sortDirection"] != "desc" || res["selectedColumns"] != nil {
		t.Fatalf("result=%v", res)
	}
	var got []float64
	for _, row := range res["data"].([]any) {
		got = append(got, row.(map[string]any)["n"].(float64))
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 2 || got[2] != 1 {
		t.Fatalf("order=%v", got)
	}
}

func multipartBody(t *testing.T, field, name, content string, extra map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range extra {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("field: %v", err)
		}
	}
	if field != "" {
		fw, err := mw.CreateFormFile(field, name)
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		if _, err := io.WriteString(fw, content); err != nil {
			t.Fatalf("write: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func upload(t *testing.T, url string, body *bytes.Buffer, ctype string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Post(url, ctype, body)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

func TestInspectUpload(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	content := "name,age\nbob,30\n,41\n"
	body, ctype := multipartBody(t, "file", "people.csv", content, nil)
	status, res := upload(t, srv.URL+"/api/inspect", body, ctype)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, res)
	}
	if res["fileName"] != "people.csv" || res["fileSize"] != float64(len(content)) {
		t.Fatalf("file info=%v", res)
	}
	if res["rowCount"] != float64(2) || res["columnCount"] != float64(2) {
		t.Fatalf("counts=%v", res)
	}
	if errs := res["errors"].([]any); len(errs) != 1 {
		t.Fatalf("errors=%v", errs)
	}
}

func TestInspectTSVDelimiter(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	body, ctype := multipartBody(t, "file", "data.tsv", "a\tb\n1\t2\n", nil)
	status, res := upload(t, srv.URL+"/api/inspect", body, ctype)
	if status != http.StatusOK || res["columnCount"] != float64(2) {
		t.Fatalf("status=%d body=%v", status, res)
	}
}

func TestInspectRejections(t *testing.T) {
	t.Parallel()
	srv := newTestServer(&pipeline.Pipeline{MaxBytes: 2 << 20})
	t.Cleanup(srv.Close)

	big := "v\n" + strings.Repeat("123456789\n", (2<<20)/10+10)
	cases := []struct {
		name    string
		field   string
		file    string
		content string
		want    string
	}{
		{name: "no file", field: "", want: "No file provided"},
		{name: "wrong field", field: "upload", file: "a.csv", content: "a\n1", want: "No file provided"},
		{name: "wrong type", field: "file", file: "a.png", content: "a\n1", want: "Invalid file type. Only CSV files are supported."},
		{name: "too large", field: "file", file: "a.csv", content: big, want: "File too large. Maximum size is 2MB."},
		{name: "empty", field: "file", file: "a.csv", content: "\n\n", want: "No data found in file"},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			body, ctype := multipartBody(t, tc.field, tc.file, tc.content, map[string]string{"note": "x"})
			status, res := upload(t, srv.URL+"/api/inspect", body, ctype)
			if status != http.StatusBadRequest || res["error"] != tc.want {
				t.Fatalf("status=%d error=%q want %q", status, res["error"], tc.want)
			}
		})
	}
}

func TestInspectTransform(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	body := `{"data":[{"name":"bob","full":"John Smith"}],"transformations":[
		{"type":"case","column":"name","config":{"toUpper":true},"enabled":true},
		{"type":"split","column":"full","config":{"delimiter":" ","keepIndex":1},"enabled":true}]}`
	status, res := postJSON(t, srv.URL+"/api/inspect/transform", body)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, res)
	}
	if res["transformationsApplied"] != float64(2) {
		t.Fatalf("applied=%v", res["transformationsApplied"])
	}
	row := res["data"].([]any)[0].(map[string]any)
	if row["name"] != "BOB" || row["full"] != "Smith" {
		t.Fatalf("row=%v", row)
	}
	rules := res["rules"].([]any)
	if id, _ := rules[0].(map[string]any)["id"].(string); id == "" {
		t.Fatal("rule id not assigned")
	}
}

func TestInspectTransformBadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	t.Cleanup(srv.Close)

	invalid := "Invalid request body. Expected data array and transformations array."
	cases := []struct {
		name, body, want string
	}{
		{name: "not json", body: `nope`, want: invalid},
		{name: "data not array", body: `{"data":{},"transformations":[]}`, want: invalid},
		{name: "rules missing", body: `{"data":[{"a":1}]}`, want: invalid},
		{name: "no rows", body: `{"data":[],"transformations":[]}`, want: "No data provided for transformation."},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, res := postJSON(t, srv.URL+"/api/inspect/transform", tc.body)
			if status != http.StatusBadRequest || res["error"] != tc.want {
				t.Fatalf("status=%d error=%q want %q", status, res["error"], tc.want)
			}
		})
	}
}

func TestMetricsRoute(t *testing.T) {
	t.Parallel()
	h := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "csvpipe_up 1\n")
	})
	srv := httptest.NewServer(NewServer(Config{Metrics: h, Parser: config.DefaultApp().Parser}, nil).Router())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(b), "csvpipe_up 1") {
		t.Fatalf("body=%q", b)
	}

	plain := newTestServer(nil)
	defer plain.Close()
	resp2, err := http.Get(plain.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp2.Body.Close()
	if resp2.StatusCode != http.StatusNotFound {
		t.Fatalf("metrics route should be absent, status=%d", resp2.StatusCode)
	}
}

func TestInspectHeaderOnlyUpload(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	defer srv.Close()

	body, ctype := multipartBody(t, "file", "cols.csv", "id,name\n", nil)
	status, res := upload(t, srv.URL+"/api/inspect", body, ctype)
	if status != http.StatusOK {
		t.Fatalf("status=%d body=%v", status, res)
	}
	if res["rowCount"] != float64(0) || res["columnCount"] != float64(2) {
		t.Fatalf("counts=%v", res)
	}
	if data := res["data"].([]any); len(data) != 0 {
		t.Fatalf("data=%v", data)
	}
}

func TestInspectExport(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	t.Cleanup(srv.Close)

	rows := `[{"name":"bob","note":"a,b","age":30},{"name":"ann","note":null,"age":41}]`
	cases := []struct {
		name     string
		body     string
		ctype    string
		filename string
		want     string
	}{
		{
			name:     "csv with columns",
			body:     `{"data":` + rows + `,"format":"csv","columns":["note","name","missing"]}`,
			ctype:    "text/csv",
			filename: "exported_data.csv",
			want:     "note,name\n\"a,b\",bob\n,ann",
		},
		{
			name:     "json all columns",
			body:     `{"data":` + rows + `,"format":"json"}`,
			ctype:    "application/json",
			filename: "exported_data.json",
			want:     "[\n  {\n    \"name\": \"bob\",\n    \"note\": \"a,b\",\n    \"age\": 30\n  },\n  {\n    \"name\": \"ann\",\n    \"note\": null,\n    \"age\": 41\n  }\n]",
		},
		{
			name:     "xlsx",
			body:     `{"data":` + rows + `,"format":"xlsx","columns":["age"]}`,
			ctype:    "application/vnd.ms-excel",
			filename: "exported_data.xls",
			want:     `<Cell><Data ss:Type="Number">41</Data></Cell>`,
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			resp, err := http.Post(srv.URL+"/api/inspect/export", "application/json", strings.NewReader(tc.body))
			if err != nil {
				t.Fatalf("post: %v", err)
			}
			defer resp.Body.Close()
			b, _ := io.ReadAll(resp.Body)
			if resp.StatusCode != http.StatusOK {
				t.Fatalf("status=%d body=%s", resp.StatusCode, b)
			}
			if got := resp.Header.Get("Content-Type"); got != tc.ctype {
				t.Fatalf("content type %q", got)
			}
			if got := resp.Header.Get("Content-Disposition"); got != `attachment; filename="`+tc.filename+`"` {
				t.Fatalf("disposition %q", got)
			}
			if resp.ContentLength != int64(len(b)) {
				t.Fatalf("content length %d for %d bytes", resp.ContentLength, len(b))
			}
			if tc.ctype == "application/vnd.ms-excel" {
				if !strings.Contains(string(b), tc.want) || strings.Contains(string(b), ">bob<") {
					t.Fatalf("workbook=%s", b)
				}
				return
			}
			if string(b) != tc.want {
				t.Fatalf("got %q want %q", b, tc.want)
			}
		})
	}
}

func TestInspectExportBadRequests(t *testing.T) {
	t.Parallel()
	srv := newTestServer(nil)
	t.Cleanup(srv.Close)

	invalid := "Invalid request body. Expected data array."
	cases := []struct {
		name, body, want string
	}{
		{name: "not json", body: `{`, want: invalid},
		{name: "data not array", body: `{"data":"a,b","format":"csv"}`, want: invalid},
		{name: "no rows", body: `{"data":[],"format":"csv"}`, want: "No data provided for export."},
		{name: "unknown columns", body: `{"data":[{"a":1}],"format":"csv","columns":["zz"]}`, want: "No columns available for export."},
		{name: "empty objects", body: `{"data":[{}],"format":"csv"}`, want: "No columns available for export."},
		{name: "unknown format", body: `{"data":[{"a":1}],"format":"pdf"}`, want: "Unsupported export format. Supported formats: csv, xlsx, json."},
		{name: "missing format", body: `{"data":[{"a":1}]}`, want: "Unsupported export format. Supported formats: csv, xlsx, json."},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			status, res := postJSON(t, srv.URL+"/api/inspect/export", tc.body)
			if status != http.StatusBadRequest || res["error"] != tc.want {
				t.Fatalf("status=%d error=%q want %q", status, res["error"], tc.want)
			}
		})
	}
}
