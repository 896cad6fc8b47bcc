package language

import (
	"errors"
	"testing"

	"github.com/pemistahl/lingua-go"
	"github.com/stretchr/testify/assert"
)

type stubClassifier struct {
	code  string
	prob  float64
	err   error
	panic bool
	calls int
}

func (s *stubClassifier) Classify(string) (string, float64, error) {
	s.calls++
	if s.panic {
		panic("model not loaded")
	}
	return s.code, s.prob, s.err
}

func TestDetectBlankShortCircuits(t *testing.T) {
	stub := &stubClassifier{code: "en", prob: 0.9}
	d := NewDetector(stub)

	for _, in := range []string{"", " ", "\n\t  \n"} {
		code, conf := d.Detect(in)
		assert.Equal(t, NoInput, code)
		assert.Equal(t, 0, conf)
	}
	assert.Equal(t, 0, stub.calls, "classifier must not be called for blank input")
}

func TestDetect(t *testing.T) {
	tests := []struct {
		name     string
		stub     *stubClassifier
		wantCode string
		wantConf int
	}{
		{"confident", &stubClassifier{code: "es", prob: 0.987}, "es", 99},
		{"rounding", &stubClassifier{code: "fr", prob: 0.506}, "fr", 51},
		{"clamped high", &stubClassifier{code: "en", prob: 1.7}, "en", 100},
		{"clamped low", &stubClassifier{code: "en", prob: -0.2}, "en", 0},
		{"classifier error", &stubClassifier{err: errors.New("boom")}, NotDetected, 0},
		{"empty code", &stubClassifier{code: "", prob: 0.4}, NotDetected, 0},
		{"classifier panic", &stubClassifier{panic: true}, NotDetected, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, conf := NewDetector(tt.stub).Detect("algo de texto")
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, tt.wantConf, conf)
		})
	}
}

func TestLanguagesFromCodes(t *testing.T) {
	langs := LanguagesFromCodes([]string{"es", "EN", " fr ", "zz"})
	assert.Equal(t, []lingua.Language{lingua.Spanish, lingua.English, lingua.French}, langs)
}

func TestLinguaClassifier(t *testing.T) {
	if testing.Short() {
		t.Skip("loads language models")
	}
	d := NewDetector(NewLinguaClassifier(lingua.English, lingua.French, lingua.Spanish))

	code, conf := d.Detect("The little fox jumped over the sleeping dog and ran into the forest.")
	assert.Equal(t, "en", code)
	assert.Greater(t, conf, 50)

	code, _ = d.Detect("Le petit renard a sauté par-dessus le chien endormi et a couru dans la forêt.")
	assert.Equal(t, "fr", code)

	code, _ = d.Detect("El pequeño zorro saltó sobre el perro dormido y corrió hacia el bosque.")
	assert.Equal(t, "es", code)
}
