package extract

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// PlaceholderImage is substituted when no product image can be located.
// The image is best-effort; its absence never fails an extraction.
const PlaceholderImage = "https://via.placeholder.com/300"

// Selector chains are ordered data: the first selector that yields a usable
// value wins. Order encodes priority and is exercised directly by tests.
var (
	nameSelectors = []string{
		"span#productTitle",
		"#productTitle",
		"h1#title",
		"h1 span#title",
	}

	priceSelectors = []string{
		"span.a-offscreen",
		"span.a-price span.a-offscreen",
		"span.a-price-whole",
		"span#priceblock_ourprice",
		"span#priceblock_dealprice",
		"span.a-price",
		"div#priceblock_ourprice",
		"div#priceblock_dealprice",
		"span.a-color-price",
		"div.a-section span.a-color-price",
	}

	imageSelectors = []string{
		"img#landingImage",
		"img#imgBlkFront",
		"img.a-dynamic-image",
		"div#imageBlock img",
		"div#main-image-container img",
	}

	// Markers of a block/challenge page. Matched against the raw document so
	// a challenge is recognized even when it replaces the whole DOM.
	blockMarkers = []string{
		"Robot Check",
		"Enter the characters you see below",
		"api-services-support@amazon.com",
	}
)

var scriptPriceRe = regexp.MustCompile(`price["']?\s*:\s*["']?(\d+\.?\d*)`)

// Result is a successfully extracted product record. Name and Price are
// always set; ImageURL falls back to PlaceholderImage.
type Result struct {
	Name     string
	Price    float64
	ImageURL string
}

type Extractor struct {
	logger *slog.Logger
}

func New(logger *slog.Logger) *Extractor {
	return &Extractor{logger: logger.With("component", "extract")}
}

// Extract derives a structured (name, price, image) record from a fully
// rendered product page. It returns *Error on failure; a result is never
// partially valid. Retry policy belongs to the caller.
func (e *Extractor) Extract(html []byte, sourceURL string) (*Result, error) {
	for _, marker := range blockMarkers {
		if bytes.Contains(html, []byte(marker)) {
			return nil, &Error{Kind: KindBlocked, URL: sourceURL, Msg: "bot-detection marker: " + marker}
		}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(html))
	if err != nil {
		return nil, &Error{Kind: KindMalformed, URL: sourceURL, Msg: err.Error()}
	}

	name := firstText(doc, nameSelectors)
	if name == "" {
		return nil, &Error{Kind: KindNotFound, URL: sourceURL, Msg: "product name not found"}
	}

	price, ok := e.resolvePrice(doc, sourceURL)
	if !ok {
		return nil, &Error{Kind: KindNotFound, URL: sourceURL, Msg: "product price not found"}
	}

	image := resolveImage(doc)

	e.logger.Debug("extracted product",
		"url", sourceURL,
		"name", name,
		"price", price,
	)

	return &Result{Name: name, Price: price, ImageURL: image}, nil
}

// firstText returns the first non-empty trimmed text across the chain.
func firstText(doc *goquery.Document, selectors []string) string {
	for _, sel := range selectors {
		text := strings.TrimSpace(doc.Find(sel).First().Text())
		if text != "" {
			return text
		}
	}
	return ""
}

// resolvePrice walks the selector chain, then the JSON-LD offer, then
// embedded script bodies. A price string that fails to normalize, or
// normalizes to a non-positive number, is treated as no match for that
// element and the scan continues.
func (e *Extractor) resolvePrice(doc *goquery.Document, sourceURL string) (float64, bool) {
	for _, sel := range priceSelectors {
		var price float64
		doc.Find(sel).EachWithBreak(func(_ int, s *goquery.Selection) bool {
			val, err := NormalizePrice(s.Text())
			if err != nil || val <= 0 {
				return true
			}
			price = val
			return false
		})
		if price > 0 {
			return price, true
		}
	}

	if price, ok := jsonLDPrice(doc); ok {
		e.logger.Debug("price found in structured data", "url", sourceURL, "price", price)
		return price, true
	}

	if price, ok := scriptPrice(doc); ok {
		e.logger.Debug("price found in script body", "url", sourceURL, "price", price)
		return price, true
	}

	return 0, false
}

// NormalizePrice converts a price string like "₹24,990.00" or "$1,234.56"
// into a decimal. Currency symbols, thousands separators and every other
// rune that is not a digit or decimal point are stripped before parsing.
func NormalizePrice(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)

	return strconv.ParseFloat(cleaned, 64)
}

type ldOffer struct {
	Price json.RawMessage `json:"price"`
}

type ldProduct struct {
	Offers json.RawMessage `json:"offers"`
}

// jsonLDPrice searches application/ld+json blocks for an offer price.
// The price field appears both as a string and as a number in the wild,
// and offers may be a single object or an array.
func jsonLDPrice(doc *goquery.Document) (float64, bool) {
	var price float64
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		var prod ldProduct
		if err := json.Unmarshal([]byte(s.Text()), &prod); err != nil || len(prod.Offers) == 0 {
			return true
		}

		var offers []ldOffer
		var single ldOffer
		if err := json.Unmarshal(prod.Offers, &single); err == nil {
			offers = append(offers, single)
		} else if err := json.Unmarshal(prod.Offers, &offers); err != nil {
			return true
		}

		for _, offer := range offers {
			if val, ok := rawPrice(offer.Price); ok {
				price = val
				return false
			}
		}
		return true
	})
	return price, price > 0
}

func rawPrice(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}

	var str string
	if err := json.Unmarshal(raw, &str); err != nil {
		str = string(raw)
	}
	str = strings.Trim(str, `"'`)

	val, err := strconv.ParseFloat(str, 64)
	if err != nil || val <= 0 {
		return 0, false
	}
	return val, true
}

// scriptPrice scans embedded script bodies for a `price: <number>` pattern.
// Last-resort tier; takes the first parseable positive match.
func scriptPrice(doc *goquery.Document) (float64, bool) {
	var price float64
	doc.Find("script").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		body := s.Text()
		if !strings.Contains(strings.ToLower(body), "price") {
			return true
		}
		for _, m := range scriptPriceRe.FindAllStringSubmatch(body, -1) {
			val, err := strconv.ParseFloat(m[1], 64)
			if err == nil && val > 0 {
				price = val
				return false
			}
		}
		return true
	})
	return price, price > 0
}

// resolveImage prefers the high-resolution attribute over the default source.
func resolveImage(doc *goquery.Document) string {
	for _, sel := range imageSelectors {
		img := doc.Find(sel).First()
		if img.Length() == 0 {
			continue
		}
		if hires, ok := img.Attr("data-old-hires"); ok && hires != "" {
			return hires
		}
		if src, ok := img.Attr("src"); ok && src != "" {
			return src
		}
	}
	return PlaceholderImage
}
