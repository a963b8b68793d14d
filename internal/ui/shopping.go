package ui

import (
	"net/url"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"

	"github.com/tarakkrishna/StyleSense/internal/styleapi"
)

const (
	// NoProductsMessage replaces the grid when the backend found nothing.
	NoProductsMessage = "No product results found right now. Try another occasion or season."

	defaultProductTitle = "Style pick"
	defaultProductPrice = "N/A"
	defaultProductStore = "Store"
	defaultProductLink  = "#"
)

const placeholderSVG = `<svg xmlns='http://www.w3.org/2000/svg' width='800' height='1000'>` +
	`<rect width='100%' height='100%' fill='#1a2238'/>` +
	`<text x='50%' y='50%' dominant-baseline='middle' text-anchor='middle' fill='#eaf2ff' font-size='42' font-family='Arial'>StyleAI Item</text>` +
	`</svg>`

// PlaceholderImage is swapped in by the browser when a product image fails to load.
var PlaceholderImage = "data:image/svg+xml;utf8," + url.PathEscape(placeholderSVG)

var (
	gridPolicyOnce sync.Once
	gridPolicy     *bluemonday.Policy
)

// shoppingPolicy allows only the card markup and http(s) or relative links.
func shoppingPolicy() *bluemonday.Policy {
	gridPolicyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements("article", "div", "p", "a", "img")
		p.AllowAttrs("class").Globally()
		p.AllowAttrs("src", "alt", "loading", "data-fallback-src").OnElements("img")
		p.AllowAttrs("href", "target", "rel").OnElements("a")
		p.AllowURLSchemes("http", "https")
		p.AllowRelativeURLs(true)
		gridPolicy = p
	})
	return gridPolicy
}

// ShoppingGridHTML renders product cards, or NoProductsMessage when there are none.
func ShoppingGridHTML(products []styleapi.Product) string {
	if len(products) == 0 {
		return `<p class="muted">` + EscapeHTML(NoProductsMessage) + `</p>`
	}

	var b strings.Builder
	for _, item := range products {
		writeProductCard(&b, item)
	}
	return shoppingPolicy().Sanitize(b.String())
}

func writeProductCard(b *strings.Builder, item styleapi.Product) {
	name := EscapeHTML(item.Title.Or(defaultProductTitle))

	b.WriteString(`<article class="shopping-item"><div class="shopping-image-wrap"><img`)
	if image, ok := item.ImageURL.Get(); ok {
		b.WriteString(` src="`)
		b.WriteString(EscapeHTML(image))
		b.WriteString(`"`)
	}
	b.WriteString(` alt="`)
	b.WriteString(name)
	b.WriteString(`" loading="lazy" data-fallback-src="`)
	b.WriteString(EscapeHTML(PlaceholderImage))
	b.WriteString(`"/></div><div class="shopping-item-body">`)

	b.WriteString(`<p class="shopping-title">`)
	b.WriteString(name)
	b.WriteString(`</p><p class="shopping-price">`)
	b.WriteString(EscapeHTML(item.Price.Or(defaultProductPrice)))
	b.WriteString(`</p><p class="shopping-store">`)
	b.WriteString(EscapeHTML(item.SourceStore.Or(defaultProductStore)))
	b.WriteString(`</p><a href="`)
	b.WriteString(EscapeHTML(item.ProductLink.Or(defaultProductLink)))
	b.WriteString(`" target="_blank" rel="noopener noreferrer" class="btn btn-secondary">Buy Now</a>`)
	b.WriteString(`</div></article>`)
}
