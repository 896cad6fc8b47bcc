// Package textclean turns raw PDF page text into a narration-ready string.
package textclean

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/Lllllllleong/bookletflow/internal/models"
)

var (
	newLineArtifactRegex = regexp.MustCompile(`/\n`)
	numberAtStartRegex   = regexp.MustCompile(`^(?:.?\d+)+`)
	urlRegex             = regexp.MustCompile(`https?://(?:www\.)?\S+`)
	wwwRegex             = regexp.MustCompile(`www\.\S+`)
	copyrightRegex       = regexp.MustCompile(`[\x{00A9}\x{2122}\x{00AE}]`)
	emailRegex           = regexp.MustCompile(`[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}`)
)

// Clean strips URLs, emails, copyright glyphs, a leading running-header
// number and line breaks. The result is a fixpoint, so Clean(Clean(x)) == Clean(x).
func Clean(raw string) (string, error) {
	if !utf8.ValidString(raw) {
		return "", models.CleaningError("page text is not valid UTF-8", nil)
	}

	// A pass that changes the text either shortens it or turns a newline
	// into a space, so the loop ends.
	text := raw
	for {
		next := pass(text)
		if next == text {
			return text, nil
		}
		text = next
	}
}

// pass applies every rule once. URL and email stripping run before the final
// newline collapse so a URL broken across lines is not glued to its neighbours.
func pass(text string) string {
	text = newLineArtifactRegex.ReplaceAllString(text, "")
	text = numberAtStartRegex.ReplaceAllString(text, "")
	text = urlRegex.ReplaceAllString(text, "")
	text = wwwRegex.ReplaceAllString(text, "")
	text = copyrightRegex.ReplaceAllString(text, "")
	text = emailRegex.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "\n", " ")
	return strings.TrimSpace(text)
}
