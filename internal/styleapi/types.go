package styleapi

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// ImageFile is a user-selected image held in memory until it is uploaded.
type ImageFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// IsImage reports whether the declared MIME type marks the file as an image.
func (f ImageFile) IsImage() bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.ContentType)), "image/")
}

// Text is an optional scalar from a backend payload. Strings are kept as-is.
// Numbers and true keep their JSON spelling so "price": 19.99 still renders;
// false and zero count as absent, like the empty string.
type Text struct {
	value string
	set   bool
}

// TextOf wraps a present value.
func TextOf(v string) Text {
	return Text{value: v, set: true}
}

// Get returns the value when it is present and non-empty.
func (t Text) Get() (string, bool) {
	if !t.set || t.value == "" {
		return "", false
	}
	return t.value, true
}

// Or returns the value or fallback when absent.
func (t Text) Or(fallback string) string {
	if v, ok := t.Get(); ok {
		return v
	}
	return fallback
}

func (t *Text) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*t = Text{}
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*t = TextOf(s)
		return nil
	}
	if b[0] == '{' || b[0] == '[' {
		// objects and arrays have no sensible text form
		*t = Text{}
		return nil
	}
	switch string(b) {
	case "false":
		*t = Text{}
		return nil
	case "true":
		*t = TextOf("true")
		return nil
	}
	if n, err := strconv.ParseFloat(string(b), 64); err == nil && n == 0 {
		*t = Text{}
		return nil
	}
	*t = TextOf(string(b))
	return nil
}

func (t Text) MarshalJSON() ([]byte, error) {
	if !t.set {
		return []byte("null"), nil
	}
	return json.Marshal(t.value)
}

// FaceBox is the detected face rectangle in image pixels.
type FaceBox struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// UploadResult is the success payload of POST /upload.
type UploadResult struct {
	SkinTone   Text      `json:"skin_tone"`
	Filename   string    `json:"filename,omitempty"`
	FaceBox    *FaceBox  `json:"face_box,omitempty"`
	AverageRGB []float64 `json:"average_rgb,omitempty"`
}

// RecommendationRequest is the JSON body of POST /recommend.
type RecommendationRequest struct {
	SkinTone string `json:"skin_tone"`
	Gender   string `json:"gender"`
	Occasion string `json:"occasion"`
	Season   string `json:"season"`
}

// MandatoryOutfit holds the pieces that are always shown in fixed slots.
type MandatoryOutfit struct {
	Top      Text `json:"top"`
	Bottom   Text `json:"bottom"`
	Footwear Text `json:"footwear"`
	// Footware is the legacy misspelling some backend builds still emit.
	Footware Text `json:"footware"`
}

// FootwearText prefers the correct key and falls back to the legacy one.
func (m MandatoryOutfit) FootwearText() (string, bool) {
	if v, ok := m.Footwear.Get(); ok {
		return v, true
	}
	return m.Footware.Get()
}

// AIRecommendation is the generated styling advice.
type AIRecommendation struct {
	MandatoryOutfit *MandatoryOutfit `json:"mandatory_outfit,omitempty"`
	Outfit          []string         `json:"outfit,omitempty"`
	Colors          []string         `json:"colors,omitempty"`
	Accessories     []string         `json:"accessories,omitempty"`
	Hairstyle       Text             `json:"hairstyle"`
	WhyItWorks      Text             `json:"why_it_works"`
}

// Product is a shopping result attached to a recommendation.
type Product struct {
	Title       Text `json:"title"`
	ImageURL    Text `json:"image_url"`
	ProductLink Text `json:"product_link"`
	Price       Text `json:"price"`
	SourceStore Text `json:"source_store"`
}

// RecommendationResult is the success payload of POST /recommend.
type RecommendationResult struct {
	AIRecommendation *AIRecommendation `json:"ai_recommendation,omitempty"`
	Products         []Product         `json:"products,omitempty"`
	ProductWarning   Text              `json:"product_warning"`
}

// Warning returns the product-availability warning when one was sent.
func (r RecommendationResult) Warning() (string, bool) {
	return r.ProductWarning.Get()
}
