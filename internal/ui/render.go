package ui

import (
	"strings"

	"github.com/a-h/templ"
	"github.com/oklog/ulid/v2"

	"github.com/tarakkrishna/StyleSense/internal/styleapi"
)

// EmptySlot fills a recommendation slot with no value.
const EmptySlot = "-"

// DetectedTonePrefix prefixes the detected skin tone label.
const DetectedTonePrefix = "Detected Skin Tone: "

// EscapeHTML escapes & < > " and ' for safe insertion into markup.
func EscapeHTML(value string) string {
	return templ.EscapeString(value)
}

// ShowToast appends a toast. An empty kind means ToastError.
func ShowToast(s *Screen, message string, kind ToastKind) Toast {
	if kind == "" {
		kind = ToastError
	}
	t := Toast{
		ID:        ulid.Make().String(),
		Message:   message,
		Kind:      kind,
		ExpiresAt: s.Now().Add(ToastLifetime),
	}
	s.Toasts = append(s.Toasts, t)
	return t
}

// SetView activates exactly one view and scrolls to it. An unknown id
// deactivates every view and leaves the scroll target alone.
func SetView(s *Screen, id ViewID) {
	s.ActiveView = ""
	if !id.Known() {
		return
	}
	s.ActiveView = id
	s.ScrollTarget = id
}

// SetUploadLoading toggles the upload spinner.
func SetUploadLoading(s *Screen, visible bool) {
	s.UploadLoading = visible
}

// ShowSkeleton toggles the results skeleton; the grid is always its opposite.
func ShowSkeleton(s *Screen, visible bool) {
	s.SkeletonVisible = visible
	s.ResultsGridVisible = !visible
}

// SetRetryVisible toggles the retry button.
func SetRetryVisible(s *Screen, visible bool) {
	s.RetryVisible = visible
}

// ShowPreview reveals the preview of the newly stored file.
func ShowPreview(s *Screen) {
	s.PreviewVisible = true
	s.PreviewVersion++
}

// HidePreview hides the preview wrapper.
func HidePreview(s *Screen) {
	s.PreviewVisible = false
}

// ShowDetectedTone labels the detected tone and enables recommend.
func ShowDetectedTone(s *Screen, tone string) {
	s.DetectedTone = DetectedTonePrefix + tone
	s.DetectedToneVisible = true
	s.RecommendEnabled = true
}

// HideDetectedTone hides the label and disables recommend.
func HideDetectedTone(s *Screen) {
	s.DetectedToneVisible = false
	s.RecommendEnabled = false
}

// ClearFileInput forces a fresh, empty file picker on the next render.
func ClearFileInput(s *Screen) {
	s.FileInputGeneration++
}

// RenderRecommendation fills the results slots from a recommendation.
// Missing mandatory pieces fall back to the positional outfit entry, then EmptySlot.
func RenderRecommendation(s *Screen, result styleapi.RecommendationResult) {
	rec := styleapi.AIRecommendation{}
	if result.AIRecommendation != nil {
		rec = *result.AIRecommendation
	}
	mandatory := styleapi.MandatoryOutfit{}
	if rec.MandatoryOutfit != nil {
		mandatory = *rec.MandatoryOutfit
	}

	top, ok := mandatory.Top.Get()
	s.MandatoryTop = slotValue(top, ok, rec.Outfit, 0)
	bottom, ok := mandatory.Bottom.Get()
	s.MandatoryBottom = slotValue(bottom, ok, rec.Outfit, 1)
	footwear, ok := mandatory.FootwearText()
	s.MandatoryFootwear = slotValue(footwear, ok, rec.Outfit, 2)

	s.OutfitListHTML = ListHTML(rec.Outfit)
	s.ColorListHTML = ListHTML(rec.Colors)
	s.AccessoryListHTML = ListHTML(rec.Accessories)
	s.HairstyleText = rec.Hairstyle.Or(EmptySlot)
	s.WhyText = rec.WhyItWorks.Or(EmptySlot)
	s.ShoppingGridHTML = ShoppingGridHTML(result.Products)
}

// ListHTML renders items as escaped <li> elements.
func ListHTML(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("<li>")
		b.WriteString(EscapeHTML(item))
		b.WriteString("</li>")
	}
	return b.String()
}

func slotValue(explicit string, ok bool, outfit []string, index int) string {
	if ok {
		return explicit
	}
	if index < len(outfit) && outfit[index] != "" {
		return outfit[index]
	}
	return EmptySlot
}
