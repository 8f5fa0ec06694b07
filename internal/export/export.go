// Package export renders resume fields as a PDF document and reads them back.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"resumebuilder/internal/config"
	"resumebuilder/internal/errors"
	"resumebuilder/internal/types"
	"resumebuilder/internal/utils"

	"github.com/go-pdf/fpdf"
)

// points per millimetre
const ptPerMM = 72.0 / 25.4

// section anchors are offsets from the top margin on the first page
type section struct {
	field  types.Field
	label  float64
	anchor float64
}

var sections = []section{
	{types.FieldSummary, 30, 40},
	{types.FieldExperience, 60, 70},
	{types.FieldEducation, 90, 100},
	{types.FieldSkills, 120, 130},
}

// Exporter writes resume fields to PDF using a fixed single-column layout
type Exporter struct {
	cfg config.ExportConfig
	now func() time.Time
}

// New creates an exporter from the export configuration
func New(cfg config.ExportConfig) *Exporter {
	return &Exporter{cfg: cfg, now: time.Now}
}

// FileName returns the configured artifact name
func (e *Exporter) FileName() string {
	if e.cfg.FileName == "" {
		return "resume.pdf"
	}
	return e.cfg.FileName
}

func (e *Exporter) lineHeight() float64 {
	if e.cfg.LineHeight > 0 {
		return e.cfg.LineHeight
	}
	return e.cfg.BodyFontSize * 1.15 / ptPerMM
}

// Export renders fields as a PDF document into w
func (e *Exporter) Export(w io.Writer, fields types.ResumeFields) error {
	pdf := fpdf.New(e.cfg.Orientation, "mm", e.cfg.PageSize, "")
	pdf.SetTitle(fields.Name, true)
	pdf.SetCreator("resumebuilder", true)
	if e.cfg.Author != "" {
		pdf.SetAuthor(e.cfg.Author, true)
	}
	pdf.SetCreationDate(e.now())
	pdf.SetAutoPageBreak(false, e.cfg.BottomMargin)
	pdf.AddPage()

	_, pageHeight := pdf.GetPageSize()
	enc := codepage(pdf.UnicodeTranslatorFromDescriptor(""))
	p := &pen{
		pdf:    pdf,
		x:      e.cfg.LeftMargin,
		top:    e.cfg.TopMargin,
		limit:  pageHeight - e.cfg.BottomMargin,
		lineH:  e.lineHeight(),
		cursor: e.cfg.TopMargin,
	}

	pdf.SetFont(e.cfg.FontFamily, "", e.cfg.TitleFontSize)
	p.text(e.cfg.TopMargin, enc(fields.Name))

	pdf.SetFont(e.cfg.FontFamily, "", e.cfg.BodyFontSize)
	p.text(p.next(10, 1), enc("Email: "+fields.Email))
	p.text(p.next(20, 1), enc("Phone: "+fields.Phone))

	for _, s := range sections {
		p.text(p.next(s.label, 2), s.field.Label()+":")

		lines := pdf.SplitText(enc(fields.Get(s.field)), e.cfg.ContentWidth)
		for i, line := range lines {
			if i == 0 {
				p.text(p.next(s.anchor, 1), line)
				continue
			}
			p.text(p.next(0, 1), line)
		}
	}

	if pdf.Err() {
		return errors.NewInternalError(errors.ErrCodeExportFailed, "Failed to render PDF", pdf.Error())
	}
	if err := pdf.Output(w); err != nil {
		return errors.NewIOError(errors.ErrCodeExportFailed, "Failed to write PDF", err)
	}
	return nil
}

// ExportFile renders fields into a PDF file at path
func (e *Exporter) ExportFile(path string, fields types.ResumeFields) (err error) {
	if err := utils.ValidateOutputFile(path); err != nil {
		return errors.NewIOError(errors.ErrCodeExportFailed, "Invalid output path", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewIOError(errors.ErrCodeExportFailed,
			fmt.Sprintf("Cannot create file: %s", path), err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = errors.NewIOError(errors.ErrCodeExportFailed,
				fmt.Sprintf("Cannot close file: %s", path), cerr)
		}
	}()

	return e.Export(f, fields)
}

// pen tracks the baseline of the last drawn line and breaks pages
type pen struct {
	pdf    *fpdf.Fpdf
	x      float64
	top    float64
	limit  float64
	lineH  float64
	cursor float64
}

// next returns the baseline for the following line. On the first page the
// line sits at its anchor unless earlier content has already passed it.
func (p *pen) next(anchor float64, gap float64) float64 {
	y := p.cursor + gap*p.lineH
	if p.pdf.PageNo() == 1 && anchor > 0 && p.top+anchor > y {
		y = p.top + anchor
	}
	if y > p.limit {
		p.pdf.AddPage()
		y = p.top
	}
	return y
}

// text draws an encoded line. Encoded runes are cp1252 codes, written out
// as the single bytes the core fonts expect.
func (p *pen) text(y float64, s string) {
	p.cursor = y
	if s == "" {
		return
	}
	raw := make([]byte, 0, len(s))
	for _, r := range s {
		raw = append(raw, byte(r))
	}
	p.pdf.Text(p.x, y, string(raw))
}

// codepage returns an encoder mapping text onto cp1252 through the
// translator of the core fonts. Each rune becomes the rune of its cp1252
// code so SplitText can measure it; runes without a code become '?'.
func codepage(tr func(string) string) func(string) string {
	codes := make(map[rune]rune)
	return func(s string) string {
		s = strings.ReplaceAll(s, "\r\n", "\n")
		return strings.Map(func(r rune) rune {
			switch {
			case r == '\r':
				return -1
			case r < 0x80:
				return r
			}
			if c, ok := codes[r]; ok {
				return c
			}
			c := rune('?')
			// the translator writes '.' for runes outside the code page
			if b := tr(string(r)); len(b) == 1 && b[0] >= 0x80 {
				c = rune(b[0])
			}
			codes[r] = c
			return c
		}, s)
	}
}
