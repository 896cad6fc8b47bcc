package vision

import (
	"context"
	"errors"
	"testing"

	"cloud.google.com/go/vertexai/genai"
	"github.com/Lllllllleong/bookletflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeModel struct {
	calls int
	parts []genai.Part
	text  []string
	err   error
}

func (f *fakeModel) GenerateContent(_ context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error) {
	f.calls++
	f.parts = parts
	if f.err != nil {
		return nil, f.err
	}
	content := &genai.Content{}
	for _, t := range f.text {
		content.Parts = append(content.Parts, genai.Text(t))
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}, nil
}

func TestDescribeUnsupportedLanguageSkipsModel(t *testing.T) {
	m := &fakeModel{text: []string{"unused"}}
	d := newDescriber(m, Config{})

	for _, lang := range []string{"fr", "", "err"} {
		got, ok, err := d.Describe(context.Background(), Image{URI: "gs://bucket/p.png"}, lang)
		require.NoError(t, err)
		assert.False(t, ok)
		assert.Empty(t, got)
	}
	assert.Equal(t, 0, m.calls)
}

func TestDescribeProducesDescription(t *testing.T) {
	m := &fakeModel{text: []string{"  Un perro ", "juega con una pelota. "}}
	d := newDescriber(m, Config{MaxLines: 2, MaxChars: 100})

	got, ok, err := d.Describe(context.Background(), Image{URI: "gs://bucket/img/p.png", Data: []byte("png")}, "es")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Un perro juega con una pelota.", got)

	require.Len(t, m.parts, 2)
	file, isFile := m.parts[0].(genai.FileData)
	require.True(t, isFile)
	assert.Equal(t, "image/png", file.MIMEType)
	assert.Equal(t, "gs://bucket/img/p.png", file.FileURI)
	prompt, isText := m.parts[1].(genai.Text)
	require.True(t, isText)
	assert.Contains(t, string(prompt), "100 caracteres")
}

func TestDescribeEngineFailureIsAnError(t *testing.T) {
	cause := errors.New("deadline exceeded")
	d := newDescriber(&fakeModel{err: cause}, Config{})

	_, ok, err := d.Describe(context.Background(), Image{Data: []byte("png")}, "en")
	assert.False(t, ok)
	assert.True(t, models.IsKind(err, models.KindDescription))
	assert.ErrorIs(t, err, cause)
}

func TestDescribeRefusalAndEmpty(t *testing.T) {
	d := newDescriber(&fakeModel{text: []string{"As a large language model, I cannot help."}}, Config{})
	_, _, err := d.Describe(context.Background(), Image{Data: []byte("png")}, "en")
	assert.True(t, models.IsKind(err, models.KindDescription))

	d = newDescriber(&fakeModel{text: []string{"   "}}, Config{})
	got, ok, err := d.Describe(context.Background(), Image{Data: []byte("png")}, "en")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, got)
}

func TestDescribeSendsInlineImageWithoutBucketURI(t *testing.T) {
	m := &fakeModel{text: []string{"A dog."}}
	d := newDescriber(m, Config{})

	for _, uri := range []string{"", "https://signed.example.com/p.png?X-Goog-Signature=abc", "memory://test/img/p.png"} {
		_, ok, err := d.Describe(context.Background(), Image{URI: uri, Data: []byte("\x89PNG")}, "en")
		require.NoError(t, err)
		assert.True(t, ok)

		require.Len(t, m.parts, 2)
		blob, isBlob := m.parts[0].(genai.Blob)
		require.True(t, isBlob, uri)
		assert.Equal(t, "image/png", blob.MIMEType)
		assert.Equal(t, []byte("\x89PNG"), blob.Data)
	}
}
