package confluence

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/harrison/qadocs/internal/models"
	"github.com/harrison/qadocs/internal/render"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goconfluence "github.com/virtomize/confluence-go-api"
)

type fakeSite struct {
	mu          sync.Mutex
	spaceStatus int
	pageStatus  int
	pages       []goconfluence.Content
	attachments []string
	tokens      []string
	authOK      bool
}

func newFakeSite(t *testing.T) (*fakeSite, *httptest.Server) {
	t.Helper()
	site := &fakeSite{spaceStatus: http.StatusOK, pageStatus: http.StatusOK, authOK: true}
	srv := httptest.NewServer(http.HandlerFunc(site.serve))
	t.Cleanup(srv.Close)
	return site, srv
}

func (s *fakeSite) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, pass, ok := r.BasicAuth()
	s.authOK = s.authOK && ok && user == "qa@example.com" && pass == "secret"

	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/wiki/rest/api/space":
		w.WriteHeader(s.spaceStatus)
		if r.URL.Query().Get("spaceKey") == "QA" {
			io.WriteString(w, `{"results":[{"key":"QA","name":"Quality"}],"size":1}`)
		} else {
			io.WriteString(w, `{"results":[],"size":0}`)
		}
	case r.Method == http.MethodPost && r.URL.Path == "/wiki/rest/api/content":
		var req goconfluence.Content
		json.NewDecoder(r.Body).Decode(&req)
		s.pages = append(s.pages, req)
		w.WriteHeader(s.pageStatus)
		io.WriteString(w, `{"id":"12345","title":"`+req.Title+`","_links":{"base":"https://acme.atlassian.net/wiki","webui":"/spaces/QA/pages/12345"}}`)
	case r.Method == http.MethodPost && r.URL.Path == "/wiki/rest/api/content/12345/child/attachment":
		s.tokens = append(s.tokens, r.Header.Get("X-Atlassian-Token"))
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		s.attachments = append(s.attachments, header.Filename+":"+string(data))
		io.WriteString(w, `{"results":[{"id":"att1"}]}`)
	default:
		w.WriteHeader(http.StatusTeapot)
	}
}

func testConfig(url string) Config {
	return Config{URL: url + "/", Email: "qa@example.com", APIToken: "secret", SpaceKey: "QA", ParentPageID: "999"}
}

func TestConfigFromEnv(t *testing.T) {
	env := map[string]string{
		EnvURL:      " https://acme.atlassian.net ",
		EnvEmail:    "qa@example.com",
		EnvAPIToken: "secret",
		EnvSpaceKey: "QA",
	}
	cfg := ConfigFromEnv(func(k string) (string, bool) {
		v, ok := env[k]
		return v, ok
	})
	assert.Equal(t, Config{URL: "https://acme.atlassian.net", Email: "qa@example.com", APIToken: "secret", SpaceKey: "QA"}, cfg)
	assert.NoError(t, cfg.Validate())

	merged := Config{SpaceKey: "OTHER"}.Merge(cfg)
	assert.Equal(t, "OTHER", merged.SpaceKey)
	assert.Equal(t, "secret", merged.APIToken)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		missing []string
	}{
		{"empty", Config{}, []string{EnvURL, EnvEmail, EnvAPIToken, EnvSpaceKey}},
		{"placeholder url", Config{URL: placeholderURL, Email: "a", APIToken: "b", SpaceKey: "c"}, []string{EnvURL}},
		{"missing token", Config{URL: "https://x.atlassian.net", Email: "a", SpaceKey: "c"}, []string{EnvAPIToken}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			require.Error(t, err)
			for _, m := range tt.missing {
				assert.Contains(t, err.Error(), m)
			}
		})
	}

	_, err := NewClient(Config{})
	assert.Error(t, err)
}

func TestCheckSpace(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"ok", http.StatusOK, nil},
		{"unauthorized", http.StatusUnauthorized, ErrAuth},
		{"not found", http.StatusNotFound, ErrSpaceNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site, srv := newFakeSite(t)
			site.spaceStatus = tt.status
			c, err := NewClient(testConfig(srv.URL))
			require.NoError(t, err)

			err = c.CheckSpace(context.Background())
			if tt.want == nil {
				require.NoError(t, err)
				assert.True(t, site.authOK)
				return
			}
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}
}

func TestCheckSpace_UnexpectedStatus(t *testing.T) {
	site, srv := newFakeSite(t)
	site.spaceStatus = http.StatusInternalServerError
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	err = c.CheckSpace(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "space lookup", apiErr.Op)
}

func TestCheckSpace_UnknownKey(t *testing.T) {
	_, srv := newFakeSite(t)
	cfg := testConfig(srv.URL)
	cfg.SpaceKey = "NOPE"
	c, err := NewClient(cfg)
	require.NoError(t, err)

	err = c.CheckSpace(context.Background())
	assert.ErrorIs(t, err, ErrSpaceNotFound)
}

func TestCheckSpace_ContextCancelled(t *testing.T) {
	_, srv := newFakeSite(t)
	c, err := NewClient(testConfig(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.CheckSpace(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestUpload_FromRecord(t *testing.T) {
	site, srv := newFakeSite(t)
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	record := json.RawMessage(`{"project_name":"Acme","risks":["Late delivery"],"deliverables":["Report <final>"]}`)
	doc, err := NewDocument(models.KindTestPlan, "Acme", "Acme_Test_Plan.docx", []byte("DOCX"), record)
	require.NoError(t, err)

	res, err := c.Upload(context.Background(), doc)
	require.NoError(t, err)

	assert.Equal(t, "12345", res.Page.ID)
	assert.Equal(t, "https://acme.atlassian.net/wiki/spaces/QA/pages/12345", res.Page.URL)
	assert.Equal(t, "Acme_Test_Plan.docx", res.Attachment)

	require.Len(t, site.pages, 1)
	page := site.pages[0]
	assert.Equal(t, "page", page.Type)
	assert.Equal(t, "Acme - QA Test Plan", page.Title)
	require.NotNil(t, page.Space)
	assert.Equal(t, "QA", page.Space.Key)
	assert.Equal(t, []goconfluence.Ancestor{{ID: "999"}}, page.Ancestors)
	assert.Equal(t, "storage", page.Body.Storage.Representation)
	assert.Contains(t, page.Body.Storage.Value, "<h2>Risks</h2>")
	assert.Contains(t, page.Body.Storage.Value, "<li>Late delivery</li>")
	assert.Contains(t, page.Body.Storage.Value, "Report &lt;final&gt;")

	assert.Equal(t, []string{"Acme_Test_Plan.docx:DOCX"}, site.attachments)
	assert.Equal(t, []string{"nocheck"}, site.tokens)
	assert.True(t, site.authOK)
}

func TestUpload_StopsOnSpaceFailure(t *testing.T) {
	site, srv := newFakeSite(t)
	site.spaceStatus = http.StatusNotFound
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	doc := &Document{Kind: models.KindTestPlan, Title: "t", Body: "<p>b</p>", Filename: "f.docx", Data: []byte("x")}
	_, err = c.Upload(context.Background(), doc)
	assert.ErrorIs(t, err, ErrSpaceNotFound)
	assert.Empty(t, site.pages)
	assert.Empty(t, site.attachments)
}

func TestCreatePage_Rejected(t *testing.T) {
	site, srv := newFakeSite(t)
	site.pageStatus = http.StatusBadRequest
	c, err := NewClient(testConfig(srv.URL))
	require.NoError(t, err)

	_, err = c.CreatePage(context.Background(), "dup", "<p/>")
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "page creation", apiErr.Op)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
}

func TestLoadDocument_WithSidecar(t *testing.T) {
	dir := t.TempDir()
	xlsx := filepath.Join(dir, "Acme_Mobile_Test_Cases.xlsx")
	require.NoError(t, os.WriteFile(xlsx, []byte("XLSX"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Acme_Mobile_Test_Cases.json"),
		[]byte(`[{"id":"TC_001","title":"Login","priority":"P1"},{"title":"Logout"}]`), 0644))

	doc, err := LoadDocument(xlsx)
	require.NoError(t, err)
	assert.Equal(t, models.KindTestCases, doc.Kind)
	assert.Equal(t, "Acme Mobile - QA Test Cases", doc.Title)
	assert.Equal(t, "Acme_Mobile_Test_Cases.xlsx", doc.Filename)
	assert.Equal(t, []byte("XLSX"), doc.Data)
	assert.Contains(t, doc.Body, "<td>TC_002</td>")
}

func TestLoadDocument_DocxWithoutSidecar(t *testing.T) {
	dir := t.TempDir()
	plan := &models.TestPlan{ProjectName: "Acme", Risks: models.StringList{"Scope creep"}}
	data, err := render.TestPlanDocument(plan, "").Bytes()
	require.NoError(t, err)
	path := filepath.Join(dir, "Acme_Test_Plan.docx")
	require.NoError(t, os.WriteFile(path, data, 0644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Acme - QA Test Plan", doc.Title)
	assert.Contains(t, doc.Body, "<h2>Risks</h2>")
	assert.Contains(t, doc.Body, "<li>Scope creep</li>")
}

func TestLoadDocument_WorkbookWithoutSidecar(t *testing.T) {
	dir := t.TempDir()
	f, err := render.TestCaseWorkbook([]models.TestCase{{Title: "Login", Priority: "P1"}})
	require.NoError(t, err)
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	f.Close()

	path := filepath.Join(dir, "Shop_Test_Cases.xlsx")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0644))

	doc, err := LoadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, "Shop - QA Test Cases", doc.Title)
	assert.Contains(t, doc.Body, "<td>TC_001</td>")
	assert.Contains(t, doc.Body, "<td>Login</td>")
}

func TestLoadDocument_Errors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadDocument(filepath.Join(dir, "notes.txt"))
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "unsupported"))

	_, err = LoadDocument(filepath.Join(dir, "Missing_Test_Plan.docx"))
	var nf *models.InputNotFoundError
	assert.True(t, errors.As(err, &nf))
}

func TestProjectFromFilename(t *testing.T) {
	assert.Equal(t, "My App", projectFromFilename("My_App_Test_Plan.docx", models.KindTestPlan))
	assert.Equal(t, "Acme", projectFromFilename("Acme_Test_Cases.xlsx", models.KindTestCases))
	assert.Equal(t, "report", projectFromFilename("report.docx", models.KindTestPlan))
}
