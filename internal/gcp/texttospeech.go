package gcp

import (
	"context"
	"fmt"

	"google.golang.org/api/texttospeech/v1"
)

// NewTextToSpeechService creates a Cloud Text-to-Speech REST client using
// application default credentials.
func NewTextToSpeechService(ctx context.Context) (*texttospeech.Service, error) {
	svc, err := texttospeech.NewService(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Text-to-Speech client: %w", err)
	}
	return svc, nil
}
