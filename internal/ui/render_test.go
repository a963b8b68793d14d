package ui

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tarakkrishna/StyleSense/internal/styleapi"
)

type fixedClock struct {
	current time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.current
}

func newTestScreen(t *testing.T) (*Screen, *fixedClock) {
	t.Helper()

	clock := &fixedClock{current: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	return NewScreen(clock.Now), clock
}

func decodeRecommendation(t *testing.T, raw string) styleapi.RecommendationResult {
	t.Helper()

	var res styleapi.RecommendationResult
	require.NoError(t, json.Unmarshal([]byte(raw), &res))
	return res
}

func TestShowSkeletonKeepsGridOpposite(t *testing.T) {
	t.Parallel()

	s, _ := newTestScreen(t)
	for _, visible := range []bool{true, true, false, true, false, false} {
		ShowSkeleton(s, visible)
		require.Equal(t, visible, s.SkeletonVisible)
		require.Equal(t, !visible, s.ResultsGridVisible)
	}
}

func TestSetView(t *testing.T) {
	t.Parallel()

	s, _ := newTestScreen(t)
	require.Equal(t, ViewLanding, s.ActiveView)

	SetView(s, ViewResults)
	require.Equal(t, ViewResults, s.ActiveView)
	require.Equal(t, ViewResults, s.ScrollTarget)

	SetView(s, ViewLanding)
	require.Equal(t, ViewLanding, s.ActiveView)

	SetView(s, ViewID("settings"))
	require.Empty(t, s.ActiveView, "unknown view leaves every view inactive")
	require.Equal(t, ViewLanding, s.ScrollTarget)
}

func TestShowToastAppendsAndExpires(t *testing.T) {
	t.Parallel()

	s, clock := newTestScreen(t)
	first := ShowToast(s, "Please upload a valid image file.", "")
	second := ShowToast(s, "Please upload a valid image file.", ToastSuccess)

	require.Len(t, s.Toasts, 2, "identical messages are not deduplicated")
	require.Equal(t, ToastError, first.Kind)
	require.Equal(t, ToastSuccess, second.Kind)
	require.NotEqual(t, first.ID, second.ID)
	require.Equal(t, first.ID, s.Toasts[0].ID, "insertion order is kept")

	clock.current = clock.current.Add(3 * time.Second)
	third := ShowToast(s, "later", ToastError)
	PruneToasts(s)
	require.Len(t, s.Toasts, 3)

	clock.current = clock.current.Add(300 * time.Millisecond)
	PruneToasts(s)
	require.Len(t, s.Toasts, 1)
	require.Equal(t, third.ID, s.Toasts[0].ID)
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	got := EscapeHTML(`<a href="x">Tom & 'Jerry'</a>`)
	for _, raw := range []string{"<", ">", `"`, "'"} {
		require.NotContains(t, got, raw)
	}
	require.Contains(t, got, "&amp;")
	require.Contains(t, got, "&lt;a")
}

func TestRenderRecommendationFallbackChain(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name                  string
		raw                   string
		top, bottom, footwear string
		hairstyle, why        string
	}{
		{
			name:      "explicit mandatory fields win",
			raw:       `{"ai_recommendation":{"mandatory_outfit":{"top":"Silk blouse","bottom":"Chinos","footwear":"Mules"},"outfit":["a","b","c"],"hairstyle":"Bob","why_it_works":"Warm tones"}}`,
			top:       "Silk blouse",
			bottom:    "Chinos",
			footwear:  "Mules",
			hairstyle: "Bob",
			why:       "Warm tones",
		},
		{
			name:      "positional outfit entries fill gaps",
			raw:       `{"ai_recommendation":{"mandatory_outfit":{"top":""},"outfit":["Linen shirt","Trousers","Loafers"]}}`,
			top:       "Linen shirt",
			bottom:    "Trousers",
			footwear:  "Loafers",
			hairstyle: EmptySlot,
			why:       EmptySlot,
		},
		{
			name:      "legacy footware key",
			raw:       `{"ai_recommendation":{"mandatory_outfit":{"footware":"Sandals"},"outfit":["Tee"]}}`,
			top:       "Tee",
			bottom:    EmptySlot,
			footwear:  "Sandals",
			hairstyle: EmptySlot,
			why:       EmptySlot,
		},
		{
			name:      "empty payload",
			raw:       `{}`,
			top:       EmptySlot,
			bottom:    EmptySlot,
			footwear:  EmptySlot,
			hairstyle: EmptySlot,
			why:       EmptySlot,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			s, _ := newTestScreen(t)
			RenderRecommendation(s, decodeRecommendation(t, tc.raw))
			require.Equal(t, tc.top, s.MandatoryTop)
			require.Equal(t, tc.bottom, s.MandatoryBottom)
			require.Equal(t, tc.footwear, s.MandatoryFootwear)
			require.Equal(t, tc.hairstyle, s.HairstyleText)
			require.Equal(t, tc.why, s.WhyText)
		})
	}
}

func TestRenderRecommendationIsIdempotent(t *testing.T) {
	t.Parallel()

	res := decodeRecommendation(t, `{"ai_recommendation":{"outfit":["a"],"colors":["Olive","Rust"]},"products":[{"title":"Shirt"}]}`)
	s, _ := newTestScreen(t)
	RenderRecommendation(s, res)
	first := s.Clone()
	RenderRecommendation(s, res)
	require.Equal(t, first.ColorListHTML, s.ColorListHTML)
	require.Equal(t, first.ShoppingGridHTML, s.ShoppingGridHTML)
	require.Equal(t, "<li>Olive</li><li>Rust</li>", s.ColorListHTML)
}

func TestListHTMLEscapesItems(t *testing.T) {
	t.Parallel()

	got := ListHTML([]string{"<b>bold</b>", "plain"})
	require.Equal(t, "<li>&lt;b&gt;bold&lt;/b&gt;</li><li>plain</li>", got)
	require.Empty(t, ListHTML(nil))
}

func TestDetectedToneHelpers(t *testing.T) {
	t.Parallel()

	s, _ := newTestScreen(t)
	require.False(t, s.RecommendEnabled)

	ShowDetectedTone(s, "Olive")
	require.Equal(t, "Detected Skin Tone: Olive", s.DetectedTone)
	require.True(t, s.DetectedToneVisible)
	require.True(t, s.RecommendEnabled)

	HideDetectedTone(s)
	require.False(t, s.DetectedToneVisible)
	require.False(t, s.RecommendEnabled)
}

func TestCloneDoesNotShareToasts(t *testing.T) {
	t.Parallel()

	s, _ := newTestScreen(t)
	ShowToast(s, "one", ToastError)
	snap := s.Clone()
	ShowToast(s, "two", ToastError)
	require.Len(t, snap.Toasts, 1)
	require.True(t, strings.HasPrefix(snap.Toasts[0].Message, "one"))
}
