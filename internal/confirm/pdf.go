// Package confirm renders the PDF certificate of a recorded consent event.
package confirm

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-pdf/fpdf"
	"go.uber.org/zap"

	"consentbot/internal/models"
)

// ErrRender marks document generation failures. A render failure never
// invalidates the already-recorded consent event.
var ErrRender = errors.New("confirmation render error")

const (
	pageMargin = 14.0
	textWidth  = 182.0 // A4 width minus margins, keeps lines at a fixed column
	lineHeight = 6.0

	title = "Подтверждение выбора по согласию на обработку ПДн"

	boilerplate = "Настоящим подтверждается зафиксированное волеизъявление пользователя " +
		"в электронном виде. Содержание согласия и политики конфиденциальности " +
		"предоставлено пользователю в виде файлов PDF."
)

// Default locations probed when no font is configured. DejaVu covers the
// Cyrillic alphabet the bot operates in.
var defaultFontPaths = []string{
	"fonts/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/TTF/DejaVuSans.ttf",
}

var defaultBoldFontPaths = []string{
	"fonts/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans-Bold.ttf",
	"/usr/share/fonts/TTF/DejaVuSans-Bold.ttf",
}

// Renderer produces consent confirmation PDFs. FontPath and BoldFontPath
// override the default probe locations; when no TTF can be found the renderer
// falls back to the built-in Helvetica so a missing font file never fails the
// render.
type Renderer struct {
	FontPath     string
	BoldFontPath string
	logger       *zap.Logger
}

// NewRenderer creates a confirmation document renderer
func NewRenderer(fontPath, boldFontPath string, logger *zap.Logger) *Renderer {
	return &Renderer{
		FontPath:     fontPath,
		BoldFontPath: boldFontPath,
		logger:       logger,
	}
}

// findFont returns the first existing path from the configured one plus the
// defaults, or "" when none exists
func findFont(configured string, fallbacks []string) string {
	candidates := fallbacks
	if configured != "" {
		candidates = append([]string{configured}, fallbacks...)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Render produces the confirmation certificate for a recorded event.
// docRefs are the filenames of the policy/consent documents the user was shown.
func (r *Renderer) Render(event models.ConsentEvent, docRefs []string) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)

	family, boldFamily := "Helvetica", "Helvetica"
	if path := findFont(r.FontPath, defaultFontPaths); path != "" {
		pdf.AddUTF8Font("DejaVu", "", path)
		family = "DejaVu"

		boldFamily = family
		if boldPath := findFont(r.BoldFontPath, defaultBoldFontPaths); boldPath != "" {
			pdf.AddUTF8Font("DejaVu-Bold", "", boldPath)
			boldFamily = "DejaVu-Bold"
		}
	} else {
		r.logger.Warn("No TTF font found, confirmation falls back to the built-in font",
			zap.String("configured_path", r.FontPath),
		)
	}

	pdf.AddPage()

	pdf.SetFont(boldFamily, "", 14)
	pdf.MultiCell(textWidth, lineHeight+1, title, "", "L", false)
	pdf.Ln(3)

	handle := fmt.Sprintf("Telegram user_id: %d", event.User.ID)
	if event.User.Username != "" {
		handle = "Telegram: @" + event.User.Username
	}

	fields := []string{
		fmt.Sprintf("Выбор: %s", statusLabel(event.Status)),
		fmt.Sprintf("Дата и время: %s", event.Timestamp.Format("2006-01-02 15:04:05")),
		handle,
		fmt.Sprintf("ФИО: %s", event.User.DisplayName()),
		fmt.Sprintf("Документы: %s", strings.Join(docRefs, " / ")),
	}

	pdf.SetFont(family, "", 11)
	for _, line := range fields {
		pdf.MultiCell(textWidth, lineHeight, line, "", "L", false)
	}

	pdf.Ln(3)
	pdf.MultiCell(textWidth, lineHeight, boilerplate, "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRender, err)
	}
	return buf.Bytes(), nil
}

// statusLabel maps a status to the wording shown to the user
func statusLabel(status models.Status) string {
	if status == models.StatusAgreed {
		return "Согласен"
	}
	return "Не согласен"
}
