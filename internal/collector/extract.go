package collector

import (
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"GoldSentinel/internal/model"
)

var (
	reYieldPrice   = regexp.MustCompile(`([\d,]+\.?\d*)%`)
	reNumber       = regexp.MustCompile(`[\d,]+\.?\d*`)
	reCombined     = regexp.MustCompile(`([+-]?\d+\.?\d*)\s*\(([+-]?\d+\.?\d*)%\)`)
	reSpanPercent  = regexp.MustCompile(`^([+-]?\d+\.?\d*)%$`)
	reSpanValue    = regexp.MustCompile(`^([+-]?\d+\.?\d*)$`)
	reChangeLabel  = regexp.MustCompile(`Change.*?([+-]?\d+\.?\d*)\s*\(([+-]?\d+\.?\d*)%\)`)
	reBasisPoints  = regexp.MustCompile(`(?i)([+-]?\d+\.?\d*)\s*(?:basis points|bps)`)
	reSmallPercent = regexp.MustCompile(`([+-]?0\.\d+)%`)
	reShortPercent = regexp.MustCompile(`([+-]?\d{1,2}\.\d+)%`)
	reDayRange     = regexp.MustCompile(`(?i)Day Range.*?([\d,]+\.?\d*)\s*-\s*([\d,]+\.?\d*)`)
	rePrevClose    = regexp.MustCompile(`(?i)Previous Close.*?([\d,]+\.?\d*)`)
)

const (
	maxSpanPercentLen = 12
	maxSpanValueLen   = 10
	maxAbsChange      = 1000
	yieldSpanCap      = 1.0
	yieldPageCap      = 2.0
)

// extractQuote reads price and change data from a quote page. Fields it
// cannot find are left nil. The change extractors run in order and the
// first that yields a percentage wins.
func extractQuote(doc *goquery.Document, in model.Instrument) model.Quote {
	q := model.Quote{Symbol: in.Symbol, Name: in.Name, Source: "CNBC"}

	if p, ok := extractPrice(doc); ok {
		q.Price = p
	}

	change, pct := extractFromQuoteStrip(doc, in.YieldLike)
	pageText := doc.Text()
	if pct == nil {
		if c, p := extractFromPageText(pageText, in.Symbol, in.YieldLike); p != nil {
			change, pct = c, p
		}
	}
	if pct == nil && in.YieldLike {
		pct = extractYieldChange(pageText)
	}
	q.Change = change
	q.ChangePercent = pct

	if m := reDayRange.FindStringSubmatch(pageText); m != nil {
		q.DayLow = model.ParseNumber(m[1])
		q.DayHigh = model.ParseNumber(m[2])
	}
	if m := rePrevClose.FindStringSubmatch(pageText); m != nil {
		q.PrevClose = model.ParseNumber(m[1])
	}
	return q
}

func extractPrice(doc *goquery.Document) (float64, bool) {
	text := strings.TrimSpace(doc.Find(".QuoteStrip-lastPrice").First().Text())
	if text == "" {
		return 0, false
	}
	var raw string
	if strings.Contains(text, "%") {
		m := reYieldPrice.FindStringSubmatch(text)
		if m == nil {
			return 0, false
		}
		raw = m[1]
	} else {
		raw = reNumber.FindString(strings.ReplaceAll(text, ",", ""))
	}
	v := model.ParseNumber(raw)
	if v == nil {
		return 0, false
	}
	return *v, true
}

// extractFromQuoteStrip looks at the spans of the quote strip, first for a
// combined "+x (+y%)" string and then for separate value and percentage
// spans.
func extractFromQuoteStrip(doc *goquery.Document, yieldLike bool) (change, pct *float64) {
	spans := doc.Find("div[class*='QuoteStrip']").First().Find("span")
	if spans.Length() == 0 {
		return nil, nil
	}

	var texts []string
	spans.Each(func(_ int, s *goquery.Selection) {
		texts = append(texts, strings.TrimSpace(s.Text()))
	})

	for _, text := range texts {
		if m := reCombined.FindStringSubmatch(text); m != nil {
			c, p := parseFloat(m[1]), parseFloat(m[2])
			if c != nil && p != nil {
				return c, p
			}
		}
	}

	for _, text := range texts {
		if pct == nil && len(text) < maxSpanPercentLen {
			if m := reSpanPercent.FindStringSubmatch(text); m != nil {
				if v := parseFloat(m[1]); v != nil && !(yieldLike && math.Abs(*v) > yieldSpanCap) {
					pct = v
				}
			}
		}
		if change == nil && len(text) < maxSpanValueLen {
			if m := reSpanValue.FindStringSubmatch(text); m != nil {
				if v := parseFloat(m[1]); v != nil && math.Abs(*v) < maxAbsChange {
					change = v
				}
			}
		}
	}
	return change, pct
}

// extractFromPageText scans the whole page for "+x (+y%)" patterns, trying
// the symbol-prefixed form first.
func extractFromPageText(text, symbol string, yieldLike bool) (change, pct *float64) {
	patterns := []*regexp.Regexp{
		regexp.MustCompile(regexp.QuoteMeta(symbol) + `.*?([+-]?\d+\.?\d*)\s*\(([+-]?\d+\.?\d*)%\)`),
		reChangeLabel,
		reCombined,
	}
	for _, re := range patterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			c, p := parseFloat(m[1]), parseFloat(m[2])
			if c == nil || p == nil {
				continue
			}
			if yieldLike && math.Abs(*p) > yieldPageCap {
				continue
			}
			if math.Abs(*c) < maxAbsChange {
				return c, p
			}
		}
	}
	return nil, nil
}

// extractYieldChange is the last resort for yields: a basis-point move or a
// small bare percentage. Only the first pattern with any match is consulted.
func extractYieldChange(text string) *float64 {
	if m := reBasisPoints.FindStringSubmatch(text); m != nil {
		bp := parseFloat(m[1])
		if bp == nil {
			return nil
		}
		// Basis points to percent, two decimals.
		v := math.Round(*bp) / 100
		return &v
	}
	for _, re := range []*regexp.Regexp{reSmallPercent, reShortPercent} {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if v := parseFloat(m[1]); v != nil && math.Abs(*v) <= yieldPageCap {
			return v
		}
		return nil
	}
	return nil
}

func parseFloat(s string) *float64 {
	v, err := strconv.ParseFloat(strings.TrimPrefix(s, "+"), 64)
	if err != nil {
		return nil
	}
	return &v
}
