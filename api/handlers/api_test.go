package handlers

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linesmerrill/docket-api/api/testhelpers"
	"github.com/linesmerrill/docket-api/config"
	"github.com/linesmerrill/docket-api/models"
	"github.com/linesmerrill/docket-api/sessions"
	"github.com/linesmerrill/docket-api/storage"
)

type published struct {
	mu      sync.Mutex
	topics  []string
	payload []interface{}
}

func (p *published) Publish(topic string, payload interface{}) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.payload = append(p.payload, payload)
}

type testApp struct {
	*App
	cases *testhelpers.Cases
	disk  *storage.Disk
	pub   *published
}

func newTestApp(t *testing.T, seed ...models.Case) *testApp {
	t.Helper()
	disk, err := storage.NewDisk(t.TempDir())
	require.NoError(t, err)

	ta := &testApp{
		App: &App{
			Config: config.Config{
				SessionSecret:    "test-secret",
				SessionTTL:       time.Hour,
				AdminUser:        "admin",
				ChatHistoryMode:  "reset",
				ChatHistoryLimit: 10,
			},
		},
		cases: testhelpers.NewCases(seed...),
		disk:  disk,
		pub:   &published{},
	}
	ta.Cases = ta.cases
	ta.Blobs = disk
	ta.Publisher = ta.pub
	ta.Router = ta.New()
	return ta
}

// client carries the session cookie between requests like a browser would
type client struct {
	t      *testing.T
	app    *testApp
	cookie *http.Cookie
}

func (ta *testApp) client(t *testing.T) *client {
	return &client{t: t, app: ta}
}

func (c *client) do(req *http.Request) *httptest.ResponseRecorder {
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	rr := httptest.NewRecorder()
	c.app.Router.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.Name != sessions.CookieName {
			continue
		}
		if ck.MaxAge < 0 {
			c.cookie = nil
		} else {
			c.cookie = ck
		}
	}
	return rr
}

func (c *client) json(method, url string, body interface{}) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(c.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *client) upload(docket, person, name string, data []byte) *httptest.ResponseRecorder {
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	require.NoError(c.t, mw.WriteField("docket", docket))
	require.NoError(c.t, mw.WriteField("person", person))
	if name != "" {
		fw, err := mw.CreateFormFile("path", name)
		require.NoError(c.t, err)
		_, err = fw.Write(data)
		require.NoError(c.t, err)
	}
	require.NoError(c.t, mw.Close())

	req := httptest.NewRequest("POST", "/api/v1/upload", body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req)
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), v), rr.Body.String())
}

func checkResponseCode(t *testing.T, expected int, rr *httptest.ResponseRecorder) {
	t.Helper()
	if expected != rr.Code {
		t.Errorf("Expected response code %d. Got %d: %s\n", expected, rr.Code, rr.Body.String())
	}
}

func seededCase() models.Case {
	return models.Case{
		Name:      "State v. Doe",
		Docket:    "12-345",
		House:     "District Court",
		Level:     "state",
		Type:      "criminal",
		Judge:     models.Party{Person: "Judge Judy", Token: "j-token"},
		Plaintiff: models.Party{Person: "The State", Token: "p-token"},
		Defendant: models.Party{Person: "John Doe", Token: "d-token"},
	}
}

// joined returns a client whose session holds token
func (ta *testApp) joined(t *testing.T, token string) *client {
	c := ta.client(t)
	rr := c.json("POST", "/api/v1/join", map[string]string{"token": token})
	checkResponseCode(t, http.StatusOK, rr)
	require.NotNil(t, c.cookie)
	return c
}

func TestUnknownRoute(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.client(t).json("GET", "/asdf", nil)

	checkResponseCode(t, http.StatusNotFound, rr)
}

func TestHealthCheckRoute(t *testing.T) {
	ta := newTestApp(t)
	rr := ta.client(t).json("GET", "/health", nil)

	checkResponseCode(t, http.StatusOK, rr)
	assert.JSONEq(t, `{"alive": true}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-Id"))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrInvalidFilter))
	assert.Equal(t, http.StatusBadRequest, statusFor(models.ErrDocketExists))
	assert.Equal(t, http.StatusUnauthorized, statusFor(models.ErrUnauthorized))
	assert.Equal(t, http.StatusNotFound, statusFor(models.ErrCaseNotFound))
	assert.Equal(t, http.StatusNotFound, statusFor(models.ErrFileNotFound))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.ErrUploadFailed))
	assert.Equal(t, http.StatusInternalServerError, statusFor(models.ErrPersistFailed))
}

func TestCaseURL(t *testing.T) {
	assert.Equal(t, "/case/judge?docket=12-345", CaseURL(models.RoleJudge, "12-345"))
	assert.Equal(t, "/case?docket=12-345", CaseURL(models.RoleAmici, "12-345"))
	assert.Equal(t, "/case/plaintiff?docket=a%26b", CaseURL(models.RolePlaintiff, "a&b"))
}

func jsonBody(t *testing.T, v interface{}) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(v))
	return &buf
}
