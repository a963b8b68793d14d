package ui

import (
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"io"
	"strconv"

	"github.com/a-h/templ"
)

// Routes used by the rendered markup.
const (
	RouteStart     = "/actions/start"
	RouteBack      = "/actions/back"
	RouteUpload    = "/actions/upload"
	RouteRecommend = "/actions/recommend"
	RouteRetry     = "/actions/retry"
	RouteReset     = "/actions/reset"
	RoutePreview   = "/preview"
	RouteToasts    = "/fragments/toasts"
	StaticPrefix   = "/public/static/"

	// CSRFFieldName carries the token on plain form posts.
	CSRFFieldName = "_csrf"

	htmxScript = "https://unpkg.com/htmx.org@2.0.3"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var templates = template.Must(template.New("ui").ParseFS(templateFS, "templates/*.tmpl"))

// PageData is everything the full page needs.
type PageData struct {
	Title       string
	LandingHTML string
	CSRFToken   string
	CSRFHeader  string
	Screen      Screen
}

// Page renders the full document.
func Page(data PageData) templ.Component {
	view, err := newAppView(data)
	if err != nil {
		return errorComponent(err)
	}
	return templ.FromGoHTML(templates.Lookup("page"), view)
}

// App renders the #app root that every action swaps.
func App(data PageData) templ.Component {
	view, err := newAppView(data)
	if err != nil {
		return errorComponent(err)
	}
	return templ.FromGoHTML(templates.Lookup("app"), view)
}

// Toasts renders the toast region. It polls for updates only while toasts are showing.
func Toasts(s Screen) templ.Component {
	return templ.FromGoHTML(templates.Lookup("toasts"), newToastsView(s))
}

type routesView struct {
	Start, Back, Upload, Recommend, Retry, Reset string
}

type selectView struct {
	ID       string
	Name     string
	Label    string
	Selected string
	Options  []Option
}

type slotView struct {
	ID    string
	Label string
	Value string
}

type toastView struct {
	ID        string
	Kind      ToastKind
	Message   string
	ExpiresAt int64
}

type toastsView struct {
	Route string
	Items []toastView
}

type appView struct {
	Title        string
	StaticPrefix string
	HTMXScript   string
	HXHeaders    string
	CSRFToken    string
	Routes       routesView
	ScrollTarget string
	Toasts       toastsView

	LandingClass string
	LandingHTML  template.HTML

	UploadClass         string
	FileInputGeneration int
	LoaderClass         string
	PreviewClass        string
	PreviewSrc          string
	DetectedToneClass   string
	DetectedTone        string
	Gender              selectView
	Occasion            selectView
	Season              selectView
	RecommendEnabled    bool

	ResultsClass      string
	SkeletonClass     string
	ResultsGridClass  string
	Slots             []slotView
	OutfitListHTML    template.HTML
	ColorListHTML     template.HTML
	AccessoryListHTML template.HTML
	HairstyleText     string
	WhyText           string
	ShoppingGridHTML  template.HTML
	RetryClass        string
}

func newAppView(data PageData) (appView, error) {
	s := data.Screen
	v := appView{
		Title:        data.Title,
		StaticPrefix: StaticPrefix,
		HTMXScript:   htmxScript,
		CSRFToken:    data.CSRFToken,
		Routes: routesView{
			Start:     RouteStart,
			Back:      RouteBack,
			Upload:    RouteUpload,
			Recommend: RouteRecommend,
			Retry:     RouteRetry,
			Reset:     RouteReset,
		},
		ScrollTarget: string(s.ScrollTarget),
		Toasts:       newToastsView(s),

		LandingClass: viewClass(s, ViewLanding),
		LandingHTML:  template.HTML(data.LandingHTML),

		UploadClass:         viewClass(s, ViewUpload),
		FileInputGeneration: s.FileInputGeneration,
		LoaderClass:         stateClass("loader", "active", s.UploadLoading),
		PreviewClass:        hiddenClass("preview", !s.PreviewVisible),
		DetectedToneClass:   hiddenClass("detected-tone", !s.DetectedToneVisible),
		Gender:              selectView{ID: "genderSelect", Name: "gender", Label: "Gender", Selected: s.Selection.Gender, Options: GenderOptions()},
		Occasion:            selectView{ID: "occasionSelect", Name: "occasion", Label: "Occasion", Selected: s.Selection.Occasion, Options: OccasionOptions()},
		Season:              selectView{ID: "seasonSelect", Name: "season", Label: "Season", Selected: s.Selection.Season, Options: SeasonOptions()},
		RecommendEnabled:    s.RecommendEnabled,

		ResultsClass:     viewClass(s, ViewResults),
		SkeletonClass:    hiddenClass("skeleton", !s.SkeletonVisible),
		ResultsGridClass: hiddenClass("results-grid", !s.ResultsGridVisible),
		Slots: []slotView{
			{ID: "mandatoryTop", Label: "Top", Value: s.MandatoryTop},
			{ID: "mandatoryBottom", Label: "Bottom", Value: s.MandatoryBottom},
			{ID: "mandatoryFootwear", Label: "Footwear", Value: s.MandatoryFootwear},
		},
		OutfitListHTML:    template.HTML(s.OutfitListHTML),
		ColorListHTML:     template.HTML(s.ColorListHTML),
		AccessoryListHTML: template.HTML(s.AccessoryListHTML),
		HairstyleText:     s.HairstyleText,
		WhyText:           s.WhyText,
		ShoppingGridHTML:  template.HTML(s.ShoppingGridHTML),
		RetryClass:        hiddenClass("btn btn-secondary", !s.RetryVisible),
	}
	if v.Title == "" {
		v.Title = "StyleAI"
	}
	if s.PreviewVisible {
		v.PreviewSrc = RoutePreview + "?v=" + strconv.Itoa(s.PreviewVersion)
	}
	if s.DetectedToneVisible {
		v.DetectedTone = s.DetectedTone
	}
	if data.CSRFHeader != "" && data.CSRFToken != "" {
		headers, err := json.Marshal(map[string]string{data.CSRFHeader: data.CSRFToken})
		if err != nil {
			return appView{}, err
		}
		v.HXHeaders = string(headers)
	}
	return v, nil
}

func newToastsView(s Screen) toastsView {
	active := s.ActiveToasts()
	v := toastsView{Route: RouteToasts, Items: make([]toastView, 0, len(active))}
	for _, t := range active {
		v.Items = append(v.Items, toastView{
			ID:        t.ID,
			Kind:      t.Kind,
			Message:   t.Message,
			ExpiresAt: t.ExpiresAt.UnixMilli(),
		})
	}
	return v
}

func errorComponent(err error) templ.Component {
	return templ.ComponentFunc(func(context.Context, io.Writer) error { return err })
}

func viewClass(s Screen, id ViewID) string {
	return stateClass("view", "active", s.ActiveView == id)
}

func hiddenClass(base string, hidden bool) string {
	return stateClass(base, "hidden", hidden)
}

func stateClass(base, modifier string, on bool) string {
	if on {
		return base + " " + modifier
	}
	return base
}
