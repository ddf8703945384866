package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProcessHTMLContentAddsClasses(t *testing.T) {
	out := ProcessHTMLContent("<h1>Impressum</h1><p>Hallo</p>")
	assert.Contains(t, out, `<h1 class="text-4xl font-bold mb-4 mt-6">`)
	assert.Contains(t, out, `<p class="mb-4 text-base-content leading-relaxed">`)
}

func TestProcessHTMLContentKeepsExistingClasses(t *testing.T) {
	in := `<p class="custom">Text</p>`
	assert.Equal(t, in, ProcessHTMLContent(in))
}

func TestFormatPriceCents(t *testing.T) {
	assert.Equal(t, "349.500 €", FormatPriceCents(34950000, false))
	assert.Equal(t, "1.250,50 €", FormatPriceCents(125050, true))
	assert.Equal(t, "0 €", FormatPriceCents(0, false))
	assert.Equal(t, "950 €", FormatPriceCents(95000, false))
}
