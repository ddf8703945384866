package shortener

import (
	"strings"
	"testing"
)

func TestGenerateSecureSlug_InvalidLength(t *testing.T) {
	t.Parallel()

	if _, err := GenerateSecureSlug(0); err == nil {
		t.Fatalf("expected error for invalid length")
	}
}

func TestGenerateShareLink_LengthAndAlphabet(t *testing.T) {
	t.Parallel()

	slug, err := GenerateShareLink()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(slug) != ShareLinkLength {
		t.Fatalf("expected slug length %d, got %d", ShareLinkLength, len(slug))
	}

	for i := 0; i < len(slug); i++ {
		if strings.IndexByte(alphabet, slug[i]) == -1 {
			t.Fatalf("slug contains invalid character %q", slug[i])
		}
	}
}

func TestGenerateShareLink_UniqueWithinSmallBatch(t *testing.T) {
	t.Parallel()

	seen := make(map[string]struct{})

	for i := 0; i < 100; i++ {
		slug, err := GenerateShareLink()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, exists := seen[slug]; exists {
			t.Fatalf("duplicate slug generated in small batch: %s", slug)
		}
		seen[slug] = struct{}{}
	}
}

func TestEncodeDecodeID_RoundTrip(t *testing.T) {
	t.Parallel()

	for _, id := range []uint{0, 1, 61, 62, 12345, 999999999} {
		encoded := EncodeID(id)
		if decoded := DecodeID(encoded); decoded != id {
			t.Fatalf("round trip failed for %d: encoded %q decoded %d", id, encoded, decoded)
		}
	}
}
