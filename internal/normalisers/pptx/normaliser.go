package pptx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/dhluong90/presale-assistance-backend/internal/core/domain"
	"github.com/dhluong90/presale-assistance-backend/internal/core/ports/driven"
)

// Ensure Extractor implements the interface.
var _ driven.TextExtractor = (*Extractor)(nil)

// Extractor handles PPTX presentations. A PPTX file is a ZIP archive
// with one XML part per slide under ppt/slides/.
type Extractor struct{}

// New creates a new PPTX extractor.
func New() *Extractor {
	return &Extractor{}
}

// SupportedMIMETypes returns the MIME types this extractor handles.
func (e *Extractor) SupportedMIMETypes() []string {
	return []string{
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
}

var slidePattern = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)

// Extract pulls the text from every slide in deck order. Each slide is
// rendered as a header line followed by its shape text; slides are
// separated by a blank line.
func (e *Extractor) Extract(_ context.Context, raw []byte) (string, error) {
	reader, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("%w: not a zip archive", domain.ErrCorruptDocument)
	}

	type slideFile struct {
		number int
		file   *zip.File
	}
	var slides []slideFile
	for _, f := range reader.File {
		m := slidePattern.FindStringSubmatch(f.Name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		slides = append(slides, slideFile{number: n, file: f})
	}
	if len(slides) == 0 {
		return "", fmt.Errorf("%w: no slides found", domain.ErrCorruptDocument)
	}

	// Archive order is arbitrary; deck order is the slide number.
	sort.Slice(slides, func(i, j int) bool {
		return slides[i].number < slides[j].number
	})

	var parts []string
	for _, s := range slides {
		text, err := extractSlideText(s.file)
		if err != nil {
			return "", err
		}
		parts = append(parts, renderSlide(s.number, text))
	}
	return strings.Join(parts, "\n\n"), nil
}

// slideXML mirrors the parts of a slide part we read. Namespace
// prefixes are ignored; encoding/xml matches on local names.
type slideXML struct {
	ShapeTree struct {
		Shapes []shape `xml:"sp"`
	} `xml:"cSld>spTree"`
}

type shape struct {
	NonVisual struct {
		Placeholder struct {
			Type string `xml:"type,attr"`
		} `xml:"nvPr>ph"`
	} `xml:"nvSpPr"`
	TextBody struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"txBody"`
}

type paragraph struct {
	Runs []struct {
		Text string `xml:"t"`
	} `xml:"r"`
}

// slideText is one slide's content split into title and body lines.
type slideText struct {
	title string
	body  []string
}

// extractSlideText parses one slide part. Shapes whose placeholder is
// a title become the slide title; everything else is body text.
func extractSlideText(f *zip.File) (slideText, error) {
	rc, err := f.Open()
	if err != nil {
		return slideText{}, fmt.Errorf("%w: open %s", domain.ErrCorruptDocument, f.Name)
	}
	content, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return slideText{}, fmt.Errorf("%w: read %s", domain.ErrCorruptDocument, f.Name)
	}

	var slide slideXML
	if err := xml.Unmarshal(content, &slide); err != nil {
		return slideText{}, fmt.Errorf("%w: parse %s", domain.ErrCorruptDocument, f.Name)
	}

	var out slideText
	for _, sp := range slide.ShapeTree.Shapes {
		phType := sp.NonVisual.Placeholder.Type
		isTitle := phType == "title" || phType == "ctrTitle"

		for _, para := range sp.TextBody.Paragraphs {
			var line strings.Builder
			for _, run := range para.Runs {
				line.WriteString(run.Text)
			}
			text := strings.TrimSpace(line.String())
			if text == "" {
				continue
			}
			if isTitle && out.title == "" {
				out.title = text
				continue
			}
			out.body = append(out.body, text)
		}
	}
	return out, nil
}

// renderSlide formats a slide as a header line plus its body lines.
func renderSlide(number int, text slideText) string {
	header := fmt.Sprintf("Slide %d", number)
	if text.title != "" {
		header += " - " + text.title
	}
	lines := append([]string{header}, text.body...)
	return strings.Join(lines, "\n")
}
