package pdfdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLooksLikePDF(t *testing.T) {
	assert.True(t, LooksLikePDF([]byte("%PDF-1.7\n%âãÏÓ\n")))
	assert.True(t, LooksLikePDF([]byte("\r\n%PDF-1.4")))
	assert.False(t, LooksLikePDF([]byte("PK\x03\x04")))
	assert.False(t, LooksLikePDF(nil))
}

func TestValidateRejectsGarbage(t *testing.T) {
	_, err := Validate([]byte("definitely not a pdf"))
	assert.Error(t, err)
}

func TestFitzOpenerRejectsGarbage(t *testing.T) {
	_, err := FitzOpener{}.Open([]byte("definitely not a pdf"))
	assert.Error(t, err)
}
