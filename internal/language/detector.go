// Package language guesses the language of cleaned page text.
package language

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"github.com/pemistahl/lingua-go"
)

const (
	// NoInput is returned for empty or whitespace-only text.
	NoInput = ""
	// NotDetected is returned when the classifier fails.
	NotDetected = "err"
)

// Classifier ranks languages for a piece of text and returns the best one
// as an ISO 639-1 code with its probability in [0,1].
type Classifier interface {
	Classify(text string) (code string, probability float64, err error)
}

// Detector wraps a Classifier with the short-circuit and sentinel rules the
// pipeline relies on.
type Detector struct {
	classifier Classifier
}

func NewDetector(c Classifier) *Detector {
	return &Detector{classifier: c}
}

// Detect returns ("", 0) for blank text without calling the classifier, and
// ("err", 0) if the classifier fails. Confidence is always in [0,100].
func (d *Detector) Detect(text string) (string, int) {
	if strings.TrimSpace(text) == "" {
		return NoInput, 0
	}

	code, prob, err := d.classify(text)
	if err != nil {
		slog.Warn("Language detection failed.", "error", err)
		return NotDetected, 0
	}
	return code, confidence(prob)
}

func (d *Detector) classify(text string) (code string, prob float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("classifier panicked: %v", r)
		}
	}()
	code, prob, err = d.classifier.Classify(text)
	if err == nil && code == "" {
		err = errors.New("classifier returned no language")
	}
	return code, prob, err
}

func confidence(prob float64) int {
	c := int(math.Round(prob * 100))
	switch {
	case c < 0:
		return 0
	case c > 100:
		return 100
	}
	return c
}

// LinguaClassifier is a Classifier backed by lingua-go.
type LinguaClassifier struct {
	detector lingua.LanguageDetector
}

// NewLinguaClassifier builds a detector for the given languages, or for every
// language lingua knows when none are given.
func NewLinguaClassifier(languages ...lingua.Language) *LinguaClassifier {
	builder := lingua.NewLanguageDetectorBuilder()
	var detector lingua.LanguageDetector
	if len(languages) >= 2 {
		detector = builder.FromLanguages(languages...).Build()
	} else {
		detector = builder.FromAllLanguages().Build()
	}
	return &LinguaClassifier{detector: detector}
}

// LanguagesFromCodes maps ISO 639-1 codes such as "es" to lingua languages.
// Unknown codes are skipped.
func LanguagesFromCodes(codes []string) []lingua.Language {
	var out []lingua.Language
	for _, code := range codes {
		iso := lingua.GetIsoCode639_1FromValue(strings.ToUpper(strings.TrimSpace(code)))
		if iso == lingua.UnknownIsoCode639_1 {
			continue
		}
		out = append(out, lingua.GetLanguageFromIsoCode639_1(iso))
	}
	return out
}

func (c *LinguaClassifier) Classify(text string) (string, float64, error) {
	values := c.detector.ComputeLanguageConfidenceValues(text)
	if len(values) == 0 {
		return "", 0, errors.New("no confidence values computed")
	}
	top := values[0]
	if top.Language() == lingua.Unknown {
		return "", 0, errors.New("language is unknown")
	}
	return strings.ToLower(top.Language().IsoCode639_1().String()), top.Value(), nil
}
