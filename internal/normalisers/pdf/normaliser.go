// Package pdf provides a Normaliser for PDF documents.
//
// Text is read from the PDF's text layer with pdftotext. When the layer is
// missing or too short (scanned documents), pages are rasterised with
// pdftoppm and recognised one by one with tesseract.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/custodia-labs/foldertalk/internal/core/domain"
	"github.com/custodia-labs/foldertalk/internal/core/ports/driven"
	"github.com/custodia-labs/foldertalk/internal/logger"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// External tools.
const (
	pdftotextCmd = "pdftotext"
	pdftoppmCmd  = "pdftoppm"
	tesseractCmd = "tesseract"
)

// Defaults.
const (
	DefaultMinTextLength = 50
	DefaultOCRLanguage   = "eng"
	DefaultDPI           = 300

	maxTitleLength = 200
	pagePrefix     = "page"
)

var (
	// ErrPDFToolNotFound indicates pdftotext is not installed.
	ErrPDFToolNotFound = errors.New("pdftotext not found in PATH")

	// ErrOCRToolNotFound indicates pdftoppm or tesseract is not installed.
	ErrOCRToolNotFound = errors.New("pdftoppm or tesseract not found in PATH")
)

// CommandRunner runs an external program and returns its standard output.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return out, nil
}

// Normaliser handles PDF documents.
type Normaliser struct {
	runner        CommandRunner
	minTextLength int
	ocr           bool
	ocrLanguage   string
	dpi           int
}

// Option configures the PDF normaliser.
type Option func(*Normaliser)

// WithMinTextLength sets how many non-space characters the text layer
// needs before OCR is skipped.
func WithMinTextLength(n int) Option {
	return func(p *Normaliser) {
		if n >= 0 {
			p.minTextLength = n
		}
	}
}

// WithOCR enables or disables the OCR fallback.
func WithOCR(enabled bool) Option {
	return func(p *Normaliser) {
		p.ocr = enabled
	}
}

// WithOCRLanguage sets the tesseract language code.
func WithOCRLanguage(lang string) Option {
	return func(p *Normaliser) {
		if lang != "" {
			p.ocrLanguage = lang
		}
	}
}

// WithDPI sets the rasterisation resolution used for OCR.
func WithDPI(dpi int) Option {
	return func(p *Normaliser) {
		if dpi > 0 {
			p.dpi = dpi
		}
	}
}

// New creates a PDF normaliser that runs the installed poppler and
// tesseract tools.
func New(opts ...Option) *Normaliser {
	return NewWithRunner(execRunner{}, opts...)
}

// NewWithRunner creates a PDF normaliser with a custom command runner.
func NewWithRunner(runner CommandRunner, opts ...Option) *Normaliser {
	n := &Normaliser{
		runner:        runner,
		minTextLength: DefaultMinTextLength,
		ocr:           true,
		ocrLanguage:   DefaultOCRLanguage,
		dpi:           DefaultDPI,
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// CheckAvailable reports whether pdftotext is installed.
func CheckAvailable() error {
	if _, err := exec.LookPath(pdftotextCmd); err != nil {
		return ErrPDFToolNotFound
	}
	return nil
}

// CheckOCRAvailable reports whether the OCR tools are installed.
func CheckOCRAvailable() error {
	for _, tool := range []string{pdftoppmCmd, tesseractCmd} {
		if _, err := exec.LookPath(tool); err != nil {
			return ErrOCRToolNotFound
		}
	}
	return nil
}

// InstallInstructions describes how to install the external tools.
func InstallInstructions() string {
	return `PDF extraction needs pdftotext and pdftoppm (poppler) and, for scanned
documents, tesseract.

  macOS:          brew install poppler tesseract
  Debian/Ubuntu:  apt install poppler-utils tesseract-ocr
  Fedora:         dnf install poppler-utils tesseract`
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{domain.MIMETypePDF}
}

// Normalise extracts a PDF's text, falling back to OCR when the text layer
// is shorter than the configured minimum.
func (n *Normaliser) Normalise(ctx context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	dir, err := os.MkdirTemp("", "foldertalk-pdf-*")
	if err != nil {
		return nil, domain.NewExtractionError(raw.MIMEType, "create work dir", err)
	}
	defer os.RemoveAll(dir)

	input := filepath.Join(dir, "input.pdf")
	if err := os.WriteFile(input, raw.Content, 0o600); err != nil {
		return nil, domain.NewExtractionError(raw.MIMEType, "write input", err)
	}

	text, textErr := n.textLayer(ctx, input)
	usedOCR := false

	if len(strings.TrimSpace(text)) < n.minTextLength && n.ocr {
		logger.Debug("pdf %s: text layer has %d characters, trying OCR", raw.File.Name, len(strings.TrimSpace(text)))
		ocrText, ocrErr := n.recognise(ctx, dir, input)
		switch {
		case ocrErr == nil:
			text, usedOCR = ocrText, true
		case strings.TrimSpace(text) == "":
			return nil, domain.NewExtractionError(raw.MIMEType, "ocr", errors.Join(textErr, ocrErr))
		default:
			logger.Warn("pdf %s: OCR failed, keeping short text layer: %v", raw.File.Name, ocrErr)
		}
	}

	if strings.TrimSpace(text) == "" {
		if textErr != nil {
			return nil, domain.NewExtractionError(raw.MIMEType, "text layer", textErr)
		}
		return nil, domain.NewExtractionError(raw.MIMEType, "no text", nil)
	}

	doc := domain.Document{
		FileID:   raw.File.ID,
		FileName: raw.File.Name,
		MIMEType: raw.MIMEType,
		Title:    extractTitle(text, raw.File.Name),
		Content:  text,
		Metadata: map[string]any{
			"mime_type": raw.MIMEType,
			"format":    "pdf",
			"ocr":       usedOCR,
		},
	}

	return &driven.NormaliseResult{
		Document: doc,
	}, nil
}

func (n *Normaliser) textLayer(ctx context.Context, input string) (string, error) {
	out, err := n.runner.Run(ctx, pdftotextCmd, "-enc", "UTF-8", "-layout", input, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext failed: %w", err)
	}
	return strings.ToValidUTF8(string(out), "�"), nil
}

// recognise rasterises every page and OCRs each one independently. Pages
// that fail are skipped; an error is returned only when no page yields text.
func (n *Normaliser) recognise(ctx context.Context, dir, input string) (string, error) {
	prefix := filepath.Join(dir, pagePrefix)
	if _, err := n.runner.Run(ctx, pdftoppmCmd, "-r", strconv.Itoa(n.dpi), "-png", input, prefix); err != nil {
		return "", fmt.Errorf("pdftoppm failed: %w", err)
	}

	pages, err := pageImages(dir)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", errors.New("pdftoppm produced no pages")
	}

	var (
		sb     strings.Builder
		failed []error
	)
	for _, page := range pages {
		out, err := n.runner.Run(ctx, tesseractCmd, page.path, "stdout", "-l", n.ocrLanguage)
		if err != nil {
			failed = append(failed, fmt.Errorf("page %d: %w", page.number, err))
			continue
		}
		text := strings.TrimSpace(strings.ToValidUTF8(string(out), "�"))
		if text == "" {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "--- Page %d ---\n%s", page.number, text)
	}

	if sb.Len() == 0 {
		if len(failed) > 0 {
			return "", fmt.Errorf("tesseract failed: %w", errors.Join(failed...))
		}
		return "", errors.New("no text recognised")
	}
	if len(failed) > 0 {
		logger.Warn("pdf OCR skipped %d of %d pages", len(failed), len(pages))
	}
	return sb.String(), nil
}

type pageImage struct {
	number int
	path   string
}

// pageImages lists the images written by pdftoppm ("page-1.png" or
// zero-padded "page-01.png") in page order.
func pageImages(dir string) ([]pageImage, error) {
	matches, err := filepath.Glob(filepath.Join(dir, pagePrefix+"-*.png"))
	if err != nil {
		return nil, err
	}

	pages := make([]pageImage, 0, len(matches))
	for _, path := range matches {
		base := strings.TrimSuffix(filepath.Base(path), ".png")
		num, err := strconv.Atoi(strings.TrimPrefix(base, pagePrefix+"-"))
		if err != nil {
			continue
		}
		pages = append(pages, pageImage{number: num, path: path})
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].number < pages[j].number })
	return pages, nil
}

// extractTitle uses the first short non-empty line, or the file name.
func extractTitle(content, fileName string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "--- Page ") {
			continue
		}
		if len(line) <= maxTitleLength {
			return line
		}
	}
	return fileName
}
