// Package controller sequences user actions into backend calls and screen updates
// for a single browser session.
package controller

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tarakkrishna/StyleSense/internal/styleapi"
	"github.com/tarakkrishna/StyleSense/internal/ui"
)

// User-facing messages.
const (
	MsgInvalidImage        = "Please upload a valid image file."
	MsgImageAnalyzed       = "Image analyzed successfully."
	MsgUploadFailed        = "Image upload failed."
	MsgNeedSkinTone        = "Upload a photo first to detect skin tone."
	MsgRecommendationsDone = "Recommendations generated."
	MsgRecommendFailed     = "Could not fetch recommendations."
)

var errNoSkinTone = errors.New("controller: upload response carried no skin tone")

// API is the subset of the backend client the controller drives.
type API interface {
	UploadImage(ctx context.Context, file styleapi.ImageFile) (styleapi.UploadResult, error)
	FetchRecommendation(ctx context.Context, req styleapi.RecommendationRequest) (styleapi.RecommendationResult, error)
}

// State is the per-session application state. Every field starts absent.
type State struct {
	file        *styleapi.ImageFile
	skinTone    *string
	lastRequest *styleapi.RecommendationRequest
}

// SelectedFile returns the stored image, if any.
func (s State) SelectedFile() (styleapi.ImageFile, bool) {
	if s.file == nil {
		return styleapi.ImageFile{}, false
	}
	return *s.file, true
}

// SkinTone returns the detected skin tone, if any.
func (s State) SkinTone() (string, bool) {
	if s.skinTone == nil {
		return "", false
	}
	return *s.skinTone, true
}

// LastRequest returns the most recent recommendation request, if any.
func (s State) LastRequest() (styleapi.RecommendationRequest, bool) {
	if s.lastRequest == nil {
		return styleapi.RecommendationRequest{}, false
	}
	return *s.lastRequest, true
}

// Option customises a Controller.
type Option func(*Controller)

// WithLogger attaches a logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the clock used for toast expiry.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		if now != nil {
			c.now = now
		}
	}
}

// Controller owns one session's State and Screen. Mutations are serialised
// by mu; backend calls run outside it.
type Controller struct {
	api    API
	logger *zap.Logger
	now    func() time.Time

	mu     sync.Mutex
	state  State
	screen *ui.Screen
}

// New returns a controller showing the landing view.
func New(api API, opts ...Option) *Controller {
	c := &Controller{
		api:    api,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.screen = ui.NewScreen(c.now)
	return c
}

// Snapshot prunes expired toasts and returns a copy of the screen for rendering.
func (c *Controller) Snapshot() ui.Screen {
	c.mu.Lock()
	defer c.mu.Unlock()
	ui.PruneToasts(c.screen)
	return c.screen.Clone()
}

// State returns a copy of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Preview returns the selected file for the preview image.
func (c *Controller) Preview() (styleapi.ImageFile, bool) {
	return c.State().SelectedFile()
}

// Notify shows a toast without touching session state. Request-level
// failures that never reach the controller's actions use it.
func (c *Controller) Notify(message string, kind ui.ToastKind) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ui.ShowToast(c.screen, message, kind)
}

// Navigate switches views (start and back buttons).
func (c *Controller) Navigate(view ui.ViewID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	ui.SetView(c.screen, view)
}

// HandleFile validates, previews and uploads a picked or dropped file.
func (c *Controller) HandleFile(ctx context.Context, file styleapi.ImageFile) {
	if !file.IsImage() {
		c.mu.Lock()
		ui.ShowToast(c.screen, MsgInvalidImage, ui.ToastError)
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	stored := file
	c.state.file = &stored
	ui.ShowPreview(c.screen)
	ui.SetUploadLoading(c.screen, true)
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		ui.SetUploadLoading(c.screen, false)
		c.mu.Unlock()
	}()

	res, err := c.api.UploadImage(context.WithoutCancel(ctx), file)
	tone, ok := res.SkinTone.Get()
	if err == nil && !ok {
		err = errNoSkinTone
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Info("image upload failed", zap.String("file", file.Name), zap.Error(err))
		c.state.skinTone = nil
		ui.HideDetectedTone(c.screen)
		ui.ShowToast(c.screen, styleapi.Message(err, MsgUploadFailed), ui.ToastError)
		return
	}
	c.state.skinTone = &tone
	ui.ShowDetectedTone(c.screen, tone)
	ui.ShowToast(c.screen, MsgImageAnalyzed, ui.ToastSuccess)
}

// Recommend requests an outfit for the detected tone and the picker selection.
func (c *Controller) Recommend(ctx context.Context, sel ui.Selection) {
	c.mu.Lock()
	c.screen.Selection = sel
	if c.state.skinTone == nil {
		ui.ShowToast(c.screen, MsgNeedSkinTone, ui.ToastError)
		c.mu.Unlock()
		return
	}
	req := styleapi.RecommendationRequest{
		SkinTone: *c.state.skinTone,
		Gender:   sel.Gender,
		Occasion: sel.Occasion,
		Season:   sel.Season,
	}
	last := req
	c.state.lastRequest = &last
	c.mu.Unlock()

	c.runRecommendation(ctx, req)
}

// Retry re-issues the last recommendation request unchanged. It does nothing
// before the first request.
func (c *Controller) Retry(ctx context.Context) {
	req, ok := c.State().LastRequest()
	if !ok {
		return
	}
	c.runRecommendation(ctx, req)
}

// Reset clears the session and returns to the upload view.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = State{}
	ui.HidePreview(c.screen)
	ui.HideDetectedTone(c.screen)
	ui.SetRetryVisible(c.screen, false)
	ui.ClearFileInput(c.screen)
	ui.SetView(c.screen, ui.ViewUpload)
}

func (c *Controller) runRecommendation(ctx context.Context, req styleapi.RecommendationRequest) {
	c.mu.Lock()
	ui.SetView(c.screen, ui.ViewResults)
	ui.SetRetryVisible(c.screen, false)
	ui.ShowSkeleton(c.screen, true)
	c.mu.Unlock()

	res, err := c.api.FetchRecommendation(context.WithoutCancel(ctx), req)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		c.logger.Info("recommendation failed",
			zap.String("occasion", req.Occasion),
			zap.String("season", req.Season),
			zap.Error(err),
		)
		ui.ShowSkeleton(c.screen, false)
		ui.SetRetryVisible(c.screen, true)
		ui.ShowToast(c.screen, styleapi.Message(err, MsgRecommendFailed), ui.ToastError)
		return
	}

	ui.RenderRecommendation(c.screen, res)
	ui.ShowSkeleton(c.screen, false)
	if warning, ok := res.Warning(); ok {
		ui.ShowToast(c.screen, warning, ui.ToastError)
		return
	}
	ui.ShowToast(c.screen, MsgRecommendationsDone, ui.ToastSuccess)
}
