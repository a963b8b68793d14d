package ui

import (
	"slices"
	"time"
)

// ViewID names one of the top-level views.
type ViewID string

const (
	ViewLanding ViewID = "landing"
	ViewUpload  ViewID = "upload"
	ViewResults ViewID = "results"
)

// Views lists every view in document order.
var Views = []ViewID{ViewLanding, ViewUpload, ViewResults}

// Known reports whether id is one of Views.
func (id ViewID) Known() bool {
	return slices.Contains(Views, id)
}

// ToastKind selects the toast styling.
type ToastKind string

const (
	ToastError   ToastKind = "error"
	ToastSuccess ToastKind = "success"
)

// ToastLifetime is how long a toast stays on screen.
const ToastLifetime = 3200 * time.Millisecond

// Toast is a transient notification.
type Toast struct {
	ID        string
	Message   string
	Kind      ToastKind
	ExpiresAt time.Time
}

// Selection is the current value of the gender/occasion/season pickers.
type Selection struct {
	Gender   string
	Occasion string
	Season   string
}

// Screen is the server-side document for one browser session. View functions
// mutate it and the page components render it.
type Screen struct {
	ActiveView   ViewID
	ScrollTarget ViewID

	Toasts []Toast

	UploadLoading      bool
	SkeletonVisible    bool
	ResultsGridVisible bool
	RetryVisible       bool

	PreviewVisible bool
	// PreviewVersion changes with every stored file so the browser refetches /preview.
	PreviewVersion int

	DetectedTone        string
	DetectedToneVisible bool
	RecommendEnabled    bool

	MandatoryTop      string
	MandatoryBottom   string
	MandatoryFootwear string
	OutfitListHTML    string
	ColorListHTML     string
	AccessoryListHTML string
	HairstyleText     string
	WhyText           string
	ShoppingGridHTML  string

	// FileInputGeneration bumps whenever the file picker must be cleared.
	FileInputGeneration int

	Selection Selection

	now func() time.Time
}

// NewScreen returns the initial document: landing view, nothing detected,
// recommend disabled. A nil clock uses time.Now.
func NewScreen(now func() time.Time) *Screen {
	if now == nil {
		now = time.Now
	}
	return &Screen{
		ActiveView:         ViewLanding,
		ResultsGridVisible: true,
		MandatoryTop:       EmptySlot,
		MandatoryBottom:    EmptySlot,
		MandatoryFootwear:  EmptySlot,
		HairstyleText:      EmptySlot,
		WhyText:            EmptySlot,
		Selection:          DefaultSelection(),
		now:                now,
	}
}

// Now reports the screen clock.
func (s *Screen) Now() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}

// Clone returns a copy that shares no mutable state with s.
func (s *Screen) Clone() Screen {
	out := *s
	out.Toasts = slices.Clone(s.Toasts)
	return out
}

// ActiveToasts returns toasts that have not expired at the screen clock.
func (s *Screen) ActiveToasts() []Toast {
	now := s.Now()
	out := make([]Toast, 0, len(s.Toasts))
	for _, t := range s.Toasts {
		if now.Before(t.ExpiresAt) {
			out = append(out, t)
		}
	}
	return out
}

// PruneToasts drops expired toasts.
func PruneToasts(s *Screen) {
	s.Toasts = s.ActiveToasts()
}
