package risk

// countryCodes maps profile country names to ISO 3166-1 alpha-2 codes for
// comparison against payment-instrument countries. Unknown countries map to
// "" and are treated as neutral rather than suspicious.
var countryCodes = map[string]string{
	"United States":  "US",
	"USA":            "US",
	"Canada":         "CA",
	"Mexico":         "MX",
	"United Kingdom": "GB",
	"UK":             "GB",
	"Ireland":        "IE",
	"Germany":        "DE",
	"France":         "FR",
	"Spain":          "ES",
	"Italy":          "IT",
	"Netherlands":    "NL",
	"Belgium":        "BE",
	"Switzerland":    "CH",
	"Austria":        "AT",
	"Portugal":       "PT",
	"Sweden":         "SE",
	"Norway":         "NO",
	"Denmark":        "DK",
	"Finland":        "FI",
	"Poland":         "PL",
	"China":          "CN",
	"Japan":          "JP",
	"South Korea":    "KR",
	"India":          "IN",
	"Singapore":      "SG",
	"Australia":      "AU",
	"New Zealand":    "NZ",
	"Brazil":         "BR",
	"Argentina":      "AR",
	"Chile":          "CL",
	"Colombia":       "CO",
	"Peru":           "PE",
	"South Africa":   "ZA",
	"Nigeria":        "NG",
	"Egypt":          "EG",
	"Kenya":          "KE",
	"Israel":         "IL",
	"Turkey":         "TR",
	"Russia":         "RU",
	"Ukraine":        "UA",
	"Saudi Arabia":   "SA",
	"UAE":            "AE",
	"Thailand":       "TH",
	"Vietnam":        "VN",
	"Indonesia":      "ID",
	"Philippines":    "PH",
	"Malaysia":       "MY",
}

// ISOCode returns the ISO 3166-1 alpha-2 code for a country name, or "" when
// the country is unknown.
func ISOCode(country string) string {
	return countryCodes[country]
}
