package narration

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/texttospeech/v1"
)

type fakeSpeechAPI struct {
	last *texttospeech.SynthesizeSpeechRequest
	resp *texttospeech.SynthesizeSpeechResponse
	err  error
}

func (f *fakeSpeechAPI) Synthesize(_ context.Context, req *texttospeech.SynthesizeSpeechRequest) (*texttospeech.SynthesizeSpeechResponse, error) {
	f.last = req
	return f.resp, f.err
}

func newTestSynthesizer(api speechAPI) *Synthesizer {
	return &Synthesizer{api: api, config: DefaultConfig()}
}

func TestSynthesizeVoiceSwitch(t *testing.T) {
	audio := []byte("ID3-fake-mp3")
	api := &fakeSpeechAPI{resp: &texttospeech.SynthesizeSpeechResponse{
		AudioContent: base64.StdEncoding.EncodeToString(audio),
	}}
	s := newTestSynthesizer(api)

	tests := []struct {
		gender Gender
		voice  string
	}{
		{Female, "es-US-Standard-A"},
		{Default, "es-US-Standard-B"},
		{Gender("male"), "es-US-Standard-B"},
		{Gender(""), "es-US-Standard-B"},
	}
	for _, tt := range tests {
		t.Run(string(tt.gender), func(t *testing.T) {
			got, err := s.Synthesize(context.Background(), "Había una vez", tt.gender)
			require.NoError(t, err)
			assert.Equal(t, audio, got)
			assert.Equal(t, tt.voice, api.last.Voice.Name)
			assert.Equal(t, "MP3", api.last.AudioConfig.AudioEncoding)
			assert.Equal(t, "Había una vez", api.last.Input.Text)
		})
	}
}

func TestSynthesizeErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestSynthesizer(&fakeSpeechAPI{}).Synthesize(ctx, "   ", Default)
	assert.True(t, models.IsKind(err, models.KindSynthesis))

	cause := errors.New("quota exceeded")
	_, err = newTestSynthesizer(&fakeSpeechAPI{err: cause}).Synthesize(ctx, "hola", Default)
	assert.True(t, models.IsKind(err, models.KindSynthesis))
	assert.ErrorIs(t, err, cause)

	_, err = newTestSynthesizer(&fakeSpeechAPI{resp: &texttospeech.SynthesizeSpeechResponse{}}).Synthesize(ctx, "hola", Default)
	assert.True(t, models.IsKind(err, models.KindSynthesis))

	_, err = newTestSynthesizer(&fakeSpeechAPI{resp: &texttospeech.SynthesizeSpeechResponse{AudioContent: "%%%"}}).Synthesize(ctx, "hola", Default)
	assert.True(t, models.IsKind(err, models.KindSynthesis))
}
