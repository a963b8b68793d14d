package httpserver_test

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/publicsuffix"

	"github.com/tarakkrishna/StyleSense/internal/testutil"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\nfake-image-data")

type fakeBackend struct {
	*httptest.Server

	uploads    atomic.Int32
	recommends atomic.Int32
	healthy    atomic.Bool

	mu       sync.Mutex
	lastBody map[string]string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	fb := &fakeBackend{}
	fb.healthy.Store(true)

	mux := http.NewServeMux()
	mux.HandleFunc("/upload", func(w http.ResponseWriter, r *http.Request) {
		fb.uploads.Add(1)
		if _, _, err := r.FormFile("image"); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"success":false,"error":"No image"}`)
			return
		}
		_, _ = io.WriteString(w, `{"success":true,"skin_tone":"Olive"}`)
	})
	mux.HandleFunc("/recommend", func(w http.ResponseWriter, r *http.Request) {
		fb.recommends.Add(1)
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		fb.mu.Lock()
		fb.lastBody = body
		fb.mu.Unlock()
		_, _ = io.WriteString(w, `{
			"success": true,
			"ai_recommendation": {
				"mandatory_outfit": {"top": "Linen shirt", "bottom": "Chinos", "footwear": "Loafers"},
				"outfit": ["Linen shirt", "Chinos", "Loafers"],
				"colors": ["Olive", "Cream"],
				"accessories": ["Watch"],
				"hairstyle": "Soft waves",
				"why_it_works": "Earthy tones flatter olive skin."
			},
			"products": [
				{"title": "Linen shirt", "image_url": "https://cdn.example.com/shirt.jpg", "product_link": "https://shop.example.com/shirt", "price": "$40", "source_store": "Example"}
			]
		}`)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if !fb.healthy.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})

	fb.Server = httptest.NewServer(mux)
	t.Cleanup(fb.Close)
	return fb
}

func (fb *fakeBackend) body() map[string]string {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastBody
}

type browser struct {
	t      *testing.T
	base   string
	client *http.Client
	token  string
}

func newBrowser(t *testing.T, base string) *browser {
	t.Helper()
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	require.NoError(t, err)
	return &browser{
		t:    t,
		base: base,
		client: &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

func (b *browser) load() *goquery.Document {
	resp := b.do(http.MethodGet, "/", nil, "", false)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(b.t, readBody(b.t, resp))
	token, ok := doc.Find(`input[name="_csrf"]`).First().Attr("value")
	require.True(b.t, ok, "page should embed a csrf token")
	b.token = token
	return doc
}

func (b *browser) do(method, path string, body io.Reader, contentType string, htmx bool) *http.Response {
	b.t.Helper()
	req, err := http.NewRequest(method, b.base+path, body)
	require.NoError(b.t, err)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if b.token != "" {
		req.Header.Set(testutil.CSRFHeader, b.token)
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	resp, err := b.client.Do(req)
	require.NoError(b.t, err)
	b.t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (b *browser) action(path string, form url.Values) *goquery.Document {
	b.t.Helper()
	resp := b.do(http.MethodPost, path, strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", true)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	return testutil.ParseHTML(b.t, readBody(b.t, resp))
}

func (b *browser) upload(name, contentType string, data []byte) *goquery.Document {
	b.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="`+name+`"`)
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	require.NoError(b.t, err)
	_, err = part.Write(data)
	require.NoError(b.t, err)
	require.NoError(b.t, mw.Close())

	resp := b.do(http.MethodPost, "/actions/upload", &buf, mw.FormDataContentType(), true)
	require.Equal(b.t, http.StatusOK, resp.StatusCode)
	return testutil.ParseHTML(b.t, readBody(b.t, resp))
}

func readBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func activeView(doc *goquery.Document) string {
	return doc.Find("section.view.active").AttrOr("id", "")
}

func TestFullStylingFlow(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	ts := testutil.NewServer(t, testutil.WithBackendURL(backend.URL))
	b := newBrowser(t, ts.URL)

	doc := b.load()
	require.Equal(t, "StyleAI", doc.Find("title").Text())
	require.Equal(t, "landing", activeView(doc))
	require.Contains(t, doc.Find("body").AttrOr("hx-headers", ""), b.token)

	doc = b.action("/actions/start", nil)
	require.Equal(t, "upload", activeView(doc))
	require.Equal(t, "upload", doc.Find("#app").AttrOr("data-scroll-target", ""))
	_, disabled := doc.Find("#recommendBtn").Attr("disabled")
	require.True(t, disabled, "recommend starts disabled")

	doc = b.upload("me.png", "image/png", pngBytes)
	require.EqualValues(t, 1, backend.uploads.Load())
	require.Equal(t, "Detected Skin Tone: Olive", doc.Find("#detectedTone").Text())
	_, disabled = doc.Find("#recommendBtn").Attr("disabled")
	require.False(t, disabled, "recommend enabled after analysis")
	require.Contains(t, doc.Find("#toastContainer .toast.success").Text(), "Image analyzed successfully.")
	require.False(t, doc.Find("#uploadLoader").HasClass("active"), "loader idle after upload")

	src, ok := doc.Find("#previewImage").Attr("src")
	require.True(t, ok)
	resp := b.do(http.MethodGet, src, nil, "", false)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "image/png", resp.Header.Get("Content-Type"))
	require.Equal(t, pngBytes, readBody(t, resp))

	doc = b.action("/actions/recommend", url.Values{
		"gender":   {"women"},
		"occasion": {"work"},
		"season":   {"summer"},
	})
	require.Equal(t, map[string]string{
		"skin_tone": "Olive",
		"gender":    "women",
		"occasion":  "work",
		"season":    "summer",
	}, backend.body())
	require.Equal(t, "results", activeView(doc))
	require.True(t, doc.Find("#skeleton").HasClass("hidden"))
	require.False(t, doc.Find("#resultsGrid").HasClass("hidden"))
	require.True(t, doc.Find("#retryBtn").HasClass("hidden"))
	require.Equal(t, "Linen shirt", doc.Find("#mandatoryTop").Text())
	require.Equal(t, "Loafers", doc.Find("#mandatoryFootwear").Text())
	require.Equal(t, 2, doc.Find("#colorList li").Length())
	require.Equal(t, 1, doc.Find("#shoppingGrid .shopping-item").Length())
	require.Contains(t, doc.Find("#toastContainer").Text(), "Recommendations generated.")

	doc = b.action("/actions/retry", nil)
	require.EqualValues(t, 2, backend.recommends.Load())
	require.Equal(t, "results", activeView(doc))

	doc = b.action("/actions/reset", nil)
	require.Equal(t, "upload", activeView(doc))
	require.True(t, doc.Find("#previewWrapper").HasClass("hidden"))
	require.True(t, doc.Find("#detectedTone").HasClass("hidden"))
	require.Equal(t, "1", doc.Find("#fileInput").AttrOr("data-generation", ""))

	resp = b.do(http.MethodGet, "/preview", nil, "", false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	b.action("/actions/recommend", url.Values{"gender": {"women"}})
	require.EqualValues(t, 2, backend.recommends.Load(), "no request without a skin tone")
}

func TestUploadRejectsNonImage(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	ts := testutil.NewServer(t, testutil.WithBackendURL(backend.URL))
	b := newBrowser(t, ts.URL)
	b.load()

	doc := b.upload("notes.txt", "text/plain", []byte("hello"))
	require.Zero(t, backend.uploads.Load())
	require.Contains(t, doc.Find("#toastContainer .toast.error").Text(), "Please upload a valid image file.")
	require.Equal(t, "/fragments/toasts", doc.Find("#toastContainer").AttrOr("hx-get", ""))
}

func TestUploadTooLarge(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	ts := testutil.NewServer(t, testutil.WithBackendURL(backend.URL), testutil.WithMaxUploadBytes(8))
	b := newBrowser(t, ts.URL)
	b.load()
	b.action("/actions/start", nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="image"; filename="big.png"`)
	header.Set("Content-Type", "image/png")
	part, err := mw.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(pngBytes)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := b.do(http.MethodPost, "/actions/upload", &buf, mw.FormDataContentType(), true)
	require.Equal(t, http.StatusOK, resp.StatusCode, "htmx only swaps 2xx responses")
	doc := testutil.ParseHTML(t, readBody(t, resp))
	require.Equal(t, "Image is too large.", doc.Find("#toastContainer .toast.error").Text())
	require.Equal(t, "upload", activeView(doc))
	require.Zero(t, backend.uploads.Load())
}

func TestOversizedPlainUploadIs413(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	ts := testutil.NewServer(t, testutil.WithBackendURL(backend.URL), testutil.WithMaxUploadBytes(8))
	b := newBrowser(t, ts.URL)
	b.load()
	token := b.token
	b.token = ""

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("_csrf", token))
	part, err := mw.CreateFormFile("image", "huge.png")
	require.NoError(t, err)
	_, err = part.Write(bytes.Repeat([]byte{0x89}, 96<<10))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	resp := b.do(http.MethodPost, "/actions/upload", &buf, mw.FormDataContentType(), false)
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
	require.Zero(t, backend.uploads.Load())
}

func TestActionsRequireCSRFToken(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)
	b.load()
	b.token = ""

	resp := b.do(http.MethodPost, "/actions/start", nil, "", true)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	var envelope struct {
		Success bool   `json:"success"`
		Error   string `json:"error"`
	}
	require.NoError(t, json.Unmarshal(readBody(t, resp), &envelope))
	require.False(t, envelope.Success)
	require.NotEmpty(t, envelope.Error, "htmx callers get a message to toast")
}

func TestPlainFormPostRedirectsHome(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)
	b.load()
	token := b.token
	b.token = ""

	form := url.Values{"_csrf": {token}}
	resp := b.do(http.MethodPost, "/actions/start", strings.NewReader(form.Encode()), "application/x-www-form-urlencoded", false)
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/", resp.Header.Get("Location"))

	doc := b.load()
	require.Equal(t, "upload", activeView(doc), "state survives the redirect")
}

func TestToastFragmentRequiresHTMX(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	b := newBrowser(t, ts.URL)
	b.load()

	resp := b.do(http.MethodGet, "/fragments/toasts", nil, "", false)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp = b.do(http.MethodGet, "/fragments/toasts", nil, "", true)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	doc := testutil.ParseHTML(t, readBody(t, resp))
	require.Equal(t, 1, doc.Find("#toastContainer").Length())
}

func TestSessionsAreIsolated(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	first := newBrowser(t, ts.URL)
	first.load()
	first.action("/actions/start", nil)

	second := newBrowser(t, ts.URL)
	require.Equal(t, "landing", activeView(second.load()))
	require.Equal(t, "upload", activeView(first.load()))
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	backend := newFakeBackend(t)
	ts := testutil.NewServer(t, testutil.WithBackendURL(backend.URL))

	resp, err := http.Get(ts.URL + "/healthz")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusOK, resp.StatusCode)

	backend.healthy.Store(false)
	resp, err = http.Get(ts.URL + "/readyz")
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	require.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestStaticAssetsServed(t *testing.T) {
	t.Parallel()

	ts := testutil.NewServer(t)
	for _, name := range []string{"app.js", "app.css"} {
		resp, err := http.Get(ts.URL + "/public/static/" + name)
		require.NoError(t, err)
		t.Cleanup(func() { resp.Body.Close() })
		require.Equal(t, http.StatusOK, resp.StatusCode, name)
	}
}
