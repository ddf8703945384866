package photos

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *Config {
	return &Config{
		Region:     "eu-central-1",
		BucketName: "immofox-test",
	}
}

func solidImage(w, h int) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for x := 0; x < w; x++ {
		for y := 0; y < h; y++ {
			img.Set(x, y, color.RGBA{R: 200, G: 120, B: 40, A: 255})
		}
	}
	return img
}

func TestObjectKeyScheme(t *testing.T) {
	cfg := testConfig()

	assert.Equal(t, "properties/2026/03/abc-123.jpg", cfg.ObjectKey("abc-123", "", 2026, 3))
	assert.Equal(t, "properties/2026/03/abc-123_thumb.jpg", cfg.ObjectKey("abc-123", "thumb", 2026, 3))
	assert.Equal(t, "properties/2026/11/abc-123_medium.jpg", cfg.ObjectKey("abc-123", "medium", 2026, 11))
}

func TestPublicURL(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "https://immofox-test.s3.eu-central-1.amazonaws.com/properties/2026/03/x.jpg",
		cfg.PublicURL("properties/2026/03/x.jpg"))

	cfg.PublicBaseURL = "https://cdn.immofox.example"
	assert.Equal(t, "https://cdn.immofox.example/properties/2026/03/x.jpg",
		cfg.PublicURL("properties/2026/03/x.jpg"))
}

func TestMakeVariantDownscalesKeepingAspect(t *testing.T) {
	cfg := testConfig()
	src := solidImage(1600, 800)

	v, err := MakeVariant(src, "uuid-1", "thumb", ThumbnailWidth, 2026, 3, cfg)
	require.NoError(t, err)

	assert.Equal(t, ThumbnailWidth, v.Width)
	assert.Equal(t, ThumbnailWidth/2, v.Height)
	assert.Equal(t, "properties/2026/03/uuid-1_thumb.jpg", v.ObjectKey)
	assert.NotEmpty(t, v.Data)
}

func TestMakeVariantDoesNotUpscale(t *testing.T) {
	cfg := testConfig()
	src := solidImage(200, 150)

	v, err := MakeVariant(src, "uuid-2", "medium", MediumWidth, 2026, 3, cfg)
	require.NoError(t, err)

	assert.Equal(t, 200, v.Width)
	assert.Equal(t, 150, v.Height)
}
