package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/content"
	"github.com/tarakkrishna/StyleSense/internal/controller"
	custommw "github.com/tarakkrishna/StyleSense/internal/httpserver/middleware"
	"github.com/tarakkrishna/StyleSense/internal/observability"
	appsession "github.com/tarakkrishna/StyleSense/internal/session"
	"github.com/tarakkrishna/StyleSense/internal/styleapi"
	"github.com/tarakkrishna/StyleSense/internal/ui"
)

const (
	uploadField     = "image"
	uploadMemory    = 8 << 20
	readinessBudget = 5 * time.Second

	msgTooLarge      = "Image is too large."
	msgInvalidUpload = "Upload could not be read."
	msgInvalidForm   = "Your selection could not be read."
)

type handlers struct {
	backend    Backend
	workspaces *appsession.Store
	content    *content.Loader
	maxUpload  int64
	csrfHeader string
}

func newHandlers(cfg Config) *handlers {
	return &handlers{
		backend:    cfg.Backend,
		workspaces: cfg.Workspaces,
		content:    cfg.Content,
		maxUpload:  cfg.MaxUploadBytes,
		csrfHeader: cfg.CSRFHeaderName,
	}
}

func (h *handlers) healthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "ok")
}

func (h *handlers) readyz(w http.ResponseWriter, r *http.Request) {
	if h.backend == nil {
		h.healthz(w, r)
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), readinessBudget)
	defer cancel()
	if err := h.backend.Health(ctx); err != nil {
		observability.FromContext(r.Context()).Warn("backend not ready", zap.Error(err))
		http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
		return
	}
	h.healthz(w, r)
}

func (h *handlers) page(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.render(w, r, ui.Page(h.pageData(r, ctrl.Snapshot())))
}

func (h *handlers) toasts(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.render(w, r, ui.Toasts(ctrl.Snapshot()))
}

func (h *handlers) preview(w http.ResponseWriter, r *http.Request) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	file, ok := ctrl.Preview()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", file.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(file.Data)))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	_, _ = w.Write(file.Data)
}

func (h *handlers) start(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *controller.Controller) { c.Navigate(ui.ViewUpload) })
}

func (h *handlers) back(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *controller.Controller) { c.Navigate(ui.ViewLanding) })
}

func (h *handlers) retry(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, func(c *controller.Controller) { c.Retry(r.Context()) })
}

func (h *handlers) reset(w http.ResponseWriter, r *http.Request) {
	h.act(w, r, (*controller.Controller).Reset)
}

func (h *handlers) recommend(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.reject(w, r, http.StatusBadRequest, msgInvalidForm)
		return
	}
	sel := ui.NormalizeSelection(ui.Selection{
		Gender:   r.PostFormValue("gender"),
		Occasion: r.PostFormValue("occasion"),
		Season:   r.PostFormValue("season"),
	})
	h.act(w, r, func(c *controller.Controller) { c.Recommend(r.Context(), sel) })
}

func (h *handlers) upload(w http.ResponseWriter, r *http.Request) {
	file, ok, status := h.readUpload(r)
	if status != 0 {
		msg := msgInvalidUpload
		if status == http.StatusRequestEntityTooLarge {
			msg = msgTooLarge
		}
		h.reject(w, r, status, msg)
		return
	}
	h.act(w, r, func(c *controller.Controller) {
		// an emptied picker submits no file and changes nothing
		if ok {
			c.HandleFile(r.Context(), file)
		}
	})
}

// readUpload extracts the image part. A zero status with ok false means no
// file was submitted.
func (h *handlers) readUpload(r *http.Request) (styleapi.ImageFile, bool, int) {
	logger := observability.FromContext(r.Context())
	if err := r.ParseMultipartForm(uploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return styleapi.ImageFile{}, false, http.StatusRequestEntityTooLarge
		}
		logger.Info("multipart parse failed", zap.Error(err))
		return styleapi.ImageFile{}, false, http.StatusBadRequest
	}

	part, header, err := r.FormFile(uploadField)
	if errors.Is(err, http.ErrMissingFile) {
		return styleapi.ImageFile{}, false, 0
	}
	if err != nil {
		logger.Info("upload part unreadable", zap.Error(err))
		return styleapi.ImageFile{}, false, http.StatusBadRequest
	}
	defer part.Close()

	if header.Size > h.maxUpload {
		return styleapi.ImageFile{}, false, http.StatusRequestEntityTooLarge
	}
	data, err := io.ReadAll(io.LimitReader(part, h.maxUpload+1))
	if err != nil {
		logger.Info("upload read failed", zap.Error(err))
		return styleapi.ImageFile{}, false, http.StatusBadRequest
	}
	if int64(len(data)) > h.maxUpload {
		return styleapi.ImageFile{}, false, http.StatusRequestEntityTooLarge
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}
	return styleapi.ImageFile{Name: header.Filename, ContentType: contentType, Data: data}, true, 0
}

// act runs fn against the session's controller and answers with the #app
// fragment for htmx, or a redirect home for plain form posts.
func (h *handlers) act(w http.ResponseWriter, r *http.Request, fn func(*controller.Controller)) {
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	fn(ctrl)

	info := custommw.HTMXInfoFromContext(r.Context())
	observability.FromContext(r.Context()).Debug("action applied",
		zap.String("path", r.URL.Path),
		zap.String("trigger", info.TriggerID),
		zap.Bool("htmx", info.IsHTMX),
	)
	if !info.IsHTMX {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	h.render(w, r, ui.App(h.pageData(r, ctrl.Snapshot())))
}

// reject reports a request that could not be parsed. htmx does not swap error
// responses, so htmx callers get the message as a toast on a normal #app render.
func (h *handlers) reject(w http.ResponseWriter, r *http.Request, status int, message string) {
	observability.FromContext(r.Context()).Info("action rejected",
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
	)
	if !custommw.IsHTMXRequest(r.Context()) {
		custommw.WriteError(w, r, status, message)
		return
	}
	ctrl, ok := h.controller(w, r)
	if !ok {
		return
	}
	ctrl.Notify(message, ui.ToastError)
	h.render(w, r, ui.App(h.pageData(r, ctrl.Snapshot())))
}

func (h *handlers) controller(w http.ResponseWriter, r *http.Request) (*controller.Controller, bool) {
	sess, ok := custommw.SessionFromContext(r.Context())
	if !ok {
		observability.FromContext(r.Context()).Error("session missing from request context")
		custommw.WriteError(w, r, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return nil, false
	}
	return h.workspaces.Controller(sess.ID()), true
}

func (h *handlers) pageData(r *http.Request, screen ui.Screen) ui.PageData {
	data := ui.PageData{
		CSRFToken:  custommw.CSRFTokenFromContext(r.Context()),
		CSRFHeader: h.csrfHeader,
		Screen:     screen,
	}
	landing, err := h.content.Landing()
	if err != nil {
		observability.FromContext(r.Context()).Warn("landing content unavailable", zap.Error(err))
		return data
	}
	data.Title = landing.Title
	data.LandingHTML = landing.HTML
	return data
}

func (h *handlers) render(w http.ResponseWriter, r *http.Request, component templ.Component) {
	templ.Handler(component, templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
		observability.FromContext(r.Context()).Error("render failed", zap.Error(err))
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		})
	})).ServeHTTP(w, r)
}
