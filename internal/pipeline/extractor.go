package pipeline

import (
	"bytes"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"
)

// Fragments closer than this vertically are treated as one line and
// ordered left-to-right.
const sameLineTolerance = 5.0

const defaultTitle = "Untitled Presentation"

var (
	multiSpace    = regexp.MustCompile(`[^\S\n]+`)
	multiNewline  = regexp.MustCompile(`\n{2,}`)
	bulletMarker  = regexp.MustCompile(`\s*[•▪●]\s*`)
	sentenceBreak = regexp.MustCompile(`([.!?])\s+`)
	titlePattern  = regexp.MustCompile(`(?i)^(?:Title:|Slide 1:?)?\s*([^\n.]+)`)
)

type fragment struct {
	x, y float64
	text string
}

// PDFExtractor produces one normalized text block per non-empty PDF page.
// Pages that normalize to nothing are dropped, so slide numbering is dense
// over pages with content.
type PDFExtractor struct{}

func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (e *PDFExtractor) Extract(pdfBytes []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(pdfBytes), int64(len(pdfBytes)))
	if err != nil {
		return nil, fmt.Errorf("%w: parse pdf: %v", ErrExtraction, err)
	}

	var slides []string
	for pageIndex := 1; pageIndex <= reader.NumPage(); pageIndex++ {
		frags := pageFragments(reader, pageIndex)
		text := normalizePageText(joinFragments(frags))
		if text == "" {
			continue
		}
		slides = append(slides, text)
	}

	if len(slides) == 0 {
		return nil, ErrExtraction
	}
	return slides, nil
}

// pageFragments pulls positioned text off one page. The underlying parser
// panics on some malformed content streams; such pages are treated as
// empty.
func pageFragments(reader *pdf.Reader, pageIndex int) (frags []fragment) {
	defer func() {
		if r := recover(); r != nil {
			frags = nil
		}
	}()

	page := reader.Page(pageIndex)
	if page.V.IsNull() {
		return nil
	}
	for _, t := range page.Content().Text {
		if strings.TrimSpace(t.S) == "" {
			continue
		}
		frags = append(frags, fragment{x: t.X, y: t.Y, text: t.S})
	}
	return frags
}

// joinFragments orders fragments top-to-bottom then left-to-right and
// joins them with single spaces. PDF coordinates grow upward, so a larger
// Y means closer to the top of the page.
func joinFragments(frags []fragment) string {
	sorted := make([]fragment, len(frags))
	copy(sorted, frags)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if diff := a.y - b.y; diff > sameLineTolerance || diff < -sameLineTolerance {
			return a.y > b.y
		}
		return a.x < b.x
	})

	parts := make([]string, 0, len(sorted))
	for _, f := range sorted {
		parts = append(parts, strings.TrimSpace(f.text))
	}
	return strings.Join(parts, " ")
}

func normalizePageText(text string) string {
	text = multiSpace.ReplaceAllString(text, " ")
	text = bulletMarker.ReplaceAllString(text, "\n• ")
	text = sentenceBreak.ReplaceAllString(text, "$1\n")
	text = multiNewline.ReplaceAllString(text, "\n")
	return strings.TrimSpace(text)
}

// DeriveTitle picks the first title-like line of the first slide.
func DeriveTitle(slides []string) string {
	if len(slides) == 0 {
		return defaultTitle
	}
	if m := titlePattern.FindStringSubmatch(slides[0]); m != nil {
		if title := strings.TrimSpace(m[1]); title != "" {
			return title
		}
	}
	return defaultTitle
}
