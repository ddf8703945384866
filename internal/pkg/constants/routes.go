package constants

// Static route constants
const (
	PublicRoute     = "/"
	SearchRoute     = "/suche"
	PropertiesRoute = "/inserate"
	ExposeRoute     = "/expose"
	PricingRoute    = "/preise"
)
