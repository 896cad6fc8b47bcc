// Package narration turns text into MP3 narration through Cloud Text-to-Speech.
package narration

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Lllllllleong/bookletflow/internal/models"
	"google.golang.org/api/texttospeech/v1"
)

// Gender selects one of the two configured voices. Anything other than
// Female picks the default voice.
type Gender string

const (
	Female  Gender = "female"
	Default Gender = "default"
)

// AudioEncoding is fixed; readers only play MP3.
const AudioEncoding = "MP3"

// Voice identifies a Standard-tier Text-to-Speech voice.
type Voice struct {
	LanguageCode string
	Name         string
}

// Config holds the two voice identities.
type Config struct {
	FemaleVoice  Voice
	DefaultVoice Voice
}

// DefaultConfig mirrors the Spanish (US) Standard voices used by the readers.
func DefaultConfig() Config {
	return Config{
		FemaleVoice:  Voice{LanguageCode: "es-US", Name: "es-US-Standard-A"},
		DefaultVoice: Voice{LanguageCode: "es-US", Name: "es-US-Standard-B"},
	}
}

// speechAPI is the slice of the Text-to-Speech client we call.
type speechAPI interface {
	Synthesize(ctx context.Context, req *texttospeech.SynthesizeSpeechRequest) (*texttospeech.SynthesizeSpeechResponse, error)
}

type googleSpeechAPI struct {
	svc *texttospeech.Service
}

func (g googleSpeechAPI) Synthesize(ctx context.Context, req *texttospeech.SynthesizeSpeechRequest) (*texttospeech.SynthesizeSpeechResponse, error) {
	return g.svc.Text.Synthesize(req).Context(ctx).Do()
}

// Synthesizer has no local state beyond its configuration and is safe to share.
type Synthesizer struct {
	api    speechAPI
	config Config
}

// NewSynthesizer wraps an existing Text-to-Speech service.
func NewSynthesizer(svc *texttospeech.Service, cfg Config) *Synthesizer {
	return &Synthesizer{api: googleSpeechAPI{svc: svc}, config: cfg}
}

// VoiceFor applies the two-way voice switch.
func (s *Synthesizer) VoiceFor(gender Gender) Voice {
	if gender == Female {
		return s.config.FemaleVoice
	}
	return s.config.DefaultVoice
}

// Synthesize returns MP3 bytes for text. Failures come back as SynthesisError
// and the caller decides what to do with them.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, gender Gender) ([]byte, error) {
	if strings.TrimSpace(text) == "" {
		return nil, models.SynthesisError("refusing to synthesize empty text", nil)
	}

	voice := s.VoiceFor(gender)
	req := &texttospeech.SynthesizeSpeechRequest{
		Input: &texttospeech.SynthesisInput{Text: text},
		Voice: &texttospeech.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.Name,
		},
		AudioConfig: &texttospeech.AudioConfig{AudioEncoding: AudioEncoding},
	}

	resp, err := s.api.Synthesize(ctx, req)
	if err != nil {
		return nil, models.SynthesisError(fmt.Sprintf("text-to-speech call failed for voice %s", voice.Name), err)
	}
	if resp == nil || resp.AudioContent == "" {
		return nil, models.SynthesisError("text-to-speech returned no audio", nil)
	}

	audio, err := base64.StdEncoding.DecodeString(resp.AudioContent)
	if err != nil {
		return nil, models.SynthesisError("failed to decode audio content", err)
	}
	return audio, nil
}
