package viewmodel

import (
	"fmt"

	"github.com/ManuelReschke/ImmoFox/app/models"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/photos"
	"github.com/ManuelReschke/ImmoFox/internal/pkg/utils"
)

// OpenGraph holds the meta tags for link previews of an expose page
type OpenGraph struct {
	Title       string
	Description string
	URL         string
	Image       string
	Type        string
}

// Expose bundles everything the expose template needs beyond the raw model
type Expose struct {
	Property       *models.Property
	PriceFormatted string
	PhotoURLs      []string
	CoverURL       string
	OG             *OpenGraph
}

// NewExpose builds the view model for a listing detail page.
// domain is the absolute base URL without trailing slash.
func NewExpose(property *models.Property, domain string) *Expose {
	vm := &Expose{
		Property:       property,
		PriceFormatted: utils.FormatPriceCents(property.PriceCents, property.OfferType == models.OfferTypeRent),
	}

	cfg, err := photos.LoadConfig()
	if err == nil {
		for i := range property.Images {
			img := &property.Images[i]
			if img.MediumObjectKey == "" {
				continue
			}
			url := cfg.PublicURL(img.MediumObjectKey)
			vm.PhotoURLs = append(vm.PhotoURLs, url)
			if img.IsCover || vm.CoverURL == "" {
				vm.CoverURL = url
			}
		}
	}

	description := fmt.Sprintf("%s in %s, %s", kindLabel(property.Kind), property.City, vm.PriceFormatted)
	vm.OG = &OpenGraph{
		Title:       property.Title,
		Description: description,
		URL:         domain + "/expose/" + property.ShareLink,
		Image:       vm.CoverURL,
		Type:        "website",
	}

	return vm
}

func kindLabel(kind string) string {
	switch kind {
	case models.PropertyKindApartment:
		return "Wohnung"
	case models.PropertyKindHouse:
		return "Haus"
	case models.PropertyKindLand:
		return "Grundstück"
	case models.PropertyKindCommercial:
		return "Gewerbeobjekt"
	default:
		return "Immobilie"
	}
}
