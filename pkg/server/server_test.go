package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ChrisMcGann/brainscan/pkg/analysis"
	"github.com/ChrisMcGann/brainscan/pkg/filter"
	"github.com/ChrisMcGann/brainscan/pkg/store/sqlite"
)

const scenario = "Field1 = 'A',\nField2 = 5,\n$END\n$END\n1.5 2.5\n3.0 -1.0\n"

func newTestServer(t *testing.T) (*Server, *sqlite.Store) {
	t.Helper()
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	a := &analysis.Analyzer{Filter: filter.Config{Normalize: true}}
	s, err := New(store, a, Config{}, zerolog.Nop())
	require.NoError(t, err)
	return s, store
}

func synthetic(freq float64) string {
	var b strings.Builder
	b.WriteString("ID = 'synthetic',\n$END\n$END\n")
	for k := 0; k < 128; k++ {
		t := float64(k) / 800
		amp := 1000 * math.Exp(-t*20)
		fmt.Fprintf(&b, "%.6E %.6E\n", amp*math.Cos(2*math.Pi*freq*t), amp*math.Sin(2*math.Pi*freq*t))
	}
	return b.String()
}

func upload(t *testing.T, h http.Handler, name, contents, label string) (int, string) {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("myfile", name)
	require.NoError(t, err)
	_, err = io.WriteString(fw, contents)
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("grouplabel", label))
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/data_upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec.Code, rec.Body.String()
}

var idPattern = regexp.MustCompile(`Database ID: ([0-9a-f]{32})`)

func uploadID(t *testing.T, h http.Handler, name, contents, label string) string {
	t.Helper()
	code, body := upload(t, h, name, contents, label)
	require.Equal(t, http.StatusCreated, code, body)
	m := idPattern.FindStringSubmatch(body)
	require.Len(t, m, 2, body)
	return m[1]
}

func get(h http.Handler, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestIndexAndForms(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(s, "/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Brain Tumor Classification")

	rec = get(s, "/data_upload")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="myfile"`)

	assert.Equal(t, http.StatusNotFound, get(s, "/nope").Code)
}

func TestUploadListRead(t *testing.T) {
	s, _ := newTestServer(t)

	id := uploadID(t, s, "05_E2", scenario, "groupA")

	rec := get(s, "/data_list")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "[groupA] 05_E2 (ID: ")
	assert.Contains(t, rec.Body.String(), id)

	rec = get(s, "/data_read?db_id="+id)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, scenario, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, get(s, "/data_read?db_id=missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/data_read").Code)
}

func TestUploadLogsWithServerComponent(t *testing.T) {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()

	var logs bytes.Buffer
	s, err := New(store, &analysis.Analyzer{}, Config{}, zerolog.New(&logs))
	require.NoError(t, err)

	uploadID(t, s, "05_E2", scenario, "groupA")
	assert.Contains(t, logs.String(), `"component":"server"`)
	assert.Contains(t, logs.String(), "MRS data saved")
}

func TestUploadEscapesLabel(t *testing.T) {
	s, _ := newTestServer(t)

	code, body := upload(t, s, "x", scenario, "<b>group</b>")
	require.Equal(t, http.StatusCreated, code)
	assert.NotContains(t, body, "<b>group</b>")
	assert.Contains(t, body, "&lt;b&gt;group&lt;/b&gt;")
}

func TestUploadValidation(t *testing.T) {
	s, _ := newTestServer(t)

	code, _ := upload(t, s, "05_E2", scenario, "")
	assert.Equal(t, http.StatusBadRequest, code)

	req := httptest.NewRequest(http.MethodPost, "/data_upload", strings.NewReader("x"))
	req.Header.Set("Content-Type", "text/plain")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTestParser(t *testing.T) {
	s, _ := newTestServer(t)
	id := uploadID(t, s, "05_E2", scenario, "groupA")

	rec := get(s, "/test_parser?db_id="+id)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp parseResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, map[string]string{"Field1": "A", "Field2": "5"}, resp.Header)
	assert.Equal(t, [][2]float64{{1.5, 2.5}, {3.0, -1.0}}, resp.Samples)
	assert.NotEmpty(t, resp.Spectrum)
}

func TestTestParserFailures(t *testing.T) {
	s, _ := newTestServer(t)

	incomplete := uploadID(t, s, "bad", "A = 1\n$END\n", "groupA")
	rec := get(s, "/test_parser?db_id="+incomplete)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "incomplete header")

	badToken := uploadID(t, s, "bad2", "$END\n$END\n1.0 abc\n", "groupA")
	rec = get(s, "/test_parser?db_id="+badToken)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	metrics := get(s, "/metrics").Body.String()
	assert.Contains(t, metrics, `brainscan_parse_failures_total{kind="incomplete_header"} 1`)
	assert.Contains(t, metrics, `brainscan_parse_failures_total{kind="malformed_numeric_token"} 1`)
	assert.Contains(t, metrics, "brainscan_uploads_total 2")
}

func TestTrainAndClassify(t *testing.T) {
	s, _ := newTestServer(t)

	uploadID(t, s, "a1", synthetic(40), "groupA")
	uploadID(t, s, "a2", synthetic(45), "groupA")
	uploadID(t, s, "b1", synthetic(200), "groupB")
	uploadID(t, s, "b2", synthetic(210), "groupB")

	form := url.Values{"name": {"baseline"}, "type": {"knn"}, "k": {"1"}}
	req := httptest.NewRequest(http.MethodPost, "/classifiers", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created classifierResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "baseline", created.Name)
	assert.Equal(t, "knn", created.Type)

	rec = get(s, "/classifiers")
	require.Equal(t, http.StatusOK, rec.Code)
	var listed []classifierResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)

	query := uploadID(t, s, "q", synthetic(205), "unknown")
	rec = get(s, "/classify?db_id="+query+"&classifier_id="+created.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp classifyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "groupB", resp.Label)

	assert.Equal(t, http.StatusNotFound, get(s, "/classify?db_id="+query+"&classifier_id=missing").Code)
	assert.Equal(t, http.StatusBadRequest, get(s, "/classify?db_id="+query).Code)
}

func TestTrainErrors(t *testing.T) {
	s, _ := newTestServer(t)

	post := func(form url.Values) int {
		req := httptest.NewRequest(http.MethodPost, "/classifiers", strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		s.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusBadRequest, post(url.Values{}))
	assert.Equal(t, http.StatusBadRequest, post(url.Values{"name": {"x"}, "type": {"svm"}}))
	assert.Equal(t, http.StatusBadRequest, post(url.Values{"name": {"x"}, "k": {"many"}}))
	assert.Equal(t, http.StatusUnprocessableEntity, post(url.Values{"name": {"x"}}), "no scans to train on")
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _ := newTestServer(t)

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, l) }()

	resp, err := http.Get("http://" + l.Addr().String() + "/")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
