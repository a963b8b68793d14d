package public

import (
	"io/fs"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func readStatic(t *testing.T, name string) string {
	t.Helper()

	fsys, err := StaticFS()
	require.NoError(t, err)
	body, err := fs.ReadFile(fsys, name)
	require.NoError(t, err)
	return string(body)
}

func TestLoaderVisibleWhileRequestInFlight(t *testing.T) {
	t.Parallel()

	css := readStatic(t, "app.css")
	require.Contains(t, css, ".loader { display: none;")
	require.Contains(t, css, ".loader.htmx-request { display: block; }")
	require.Contains(t, css, ".loader.active,")
}

func TestScriptPreviewsFileBeforeUpload(t *testing.T) {
	t.Parallel()

	js := readStatic(t, "app.js")
	require.Contains(t, js, `byId("fileInput")`)
	require.Contains(t, js, "URL.createObjectURL(file)")
	require.Contains(t, js, `wrapper.classList.remove("hidden")`)
}

func TestScriptToastsErrorResponses(t *testing.T) {
	t.Parallel()

	js := readStatic(t, "app.js")
	idx := strings.Index(js, `"htmx:responseError"`)
	require.GreaterOrEqual(t, idx, 0)
	handler := js[idx:]
	require.Contains(t, handler, "JSON.parse(xhr.responseText)")
	require.Contains(t, handler, "body.success === false")
	require.Contains(t, handler, `showToast(message, "error")`)
}
