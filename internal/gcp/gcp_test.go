package gcp

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetEnv(t *testing.T) {
	t.Setenv("BOOKLET_TEST_VALUE", "set")
	assert.Equal(t, "set", GetEnv("BOOKLET_TEST_VALUE", "fallback"))
	assert.Equal(t, "fallback", GetEnv("BOOKLET_TEST_MISSING", "fallback"))
}

func TestGetEnvInt(t *testing.T) {
	t.Setenv("BOOKLET_TEST_INT", "42")
	t.Setenv("BOOKLET_TEST_BAD_INT", "forty")
	assert.Equal(t, 42, GetEnvInt("BOOKLET_TEST_INT", 7))
	assert.Equal(t, 7, GetEnvInt("BOOKLET_TEST_BAD_INT", 7))
	assert.Equal(t, 7, GetEnvInt("BOOKLET_TEST_MISSING_INT", 7))
}

func TestDescriberPrompts(t *testing.T) {
	prompts := DescriberPrompts(3, 250)
	assert.Len(t, prompts, 2)
	assert.Contains(t, prompts["es"], "3 líneas y 250 caracteres")
	assert.Contains(t, prompts["en"], "3 lines and 250 characters")
}

func TestWorkflowParent(t *testing.T) {
	assert.Equal(t,
		"projects/p/locations/us-central1/workflows/booklet-published",
		WorkflowParent("p", "us-central1", "booklet-published"))
}
