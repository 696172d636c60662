package aggregate

// Region codes attached to aggregates for downstream reporting.
const (
	RegionNorthAmerica = "NORTH_AMERICA"
	RegionSouthAmerica = "SOUTH_AMERICA"
	RegionEurope       = "EUROPE"
	RegionAsia         = "ASIA"
	RegionOceania      = "OCEANIA"
	RegionMiddleEast   = "MIDDLE_EAST"
	RegionAfrica       = "AFRICA"
	RegionOther        = "OTHER"
)

var countryRegions = map[string]string{
	"United States": RegionNorthAmerica,
	"Canada":        RegionNorthAmerica,
	"Mexico":        RegionNorthAmerica,

	"Brazil":    RegionSouthAmerica,
	"Argentina": RegionSouthAmerica,
	"Chile":     RegionSouthAmerica,
	"Colombia":  RegionSouthAmerica,
	"Peru":      RegionSouthAmerica,

	"United Kingdom": RegionEurope,
	"Germany":        RegionEurope,
	"France":         RegionEurope,
	"Spain":          RegionEurope,
	"Italy":          RegionEurope,
	"Netherlands":    RegionEurope,
	"Poland":         RegionEurope,
	"Sweden":         RegionEurope,
	"Norway":         RegionEurope,
	"Denmark":        RegionEurope,
	"Belgium":        RegionEurope,
	"Austria":        RegionEurope,
	"Switzerland":    RegionEurope,
	"Ireland":        RegionEurope,
	"Portugal":       RegionEurope,
	"Greece":         RegionEurope,
	"Czech Republic": RegionEurope,
	"Finland":        RegionEurope,

	"China":       RegionAsia,
	"Japan":       RegionAsia,
	"India":       RegionAsia,
	"South Korea": RegionAsia,
	"Singapore":   RegionAsia,
	"Thailand":    RegionAsia,
	"Vietnam":     RegionAsia,
	"Indonesia":   RegionAsia,
	"Malaysia":    RegionAsia,
	"Philippines": RegionAsia,
	"Pakistan":    RegionAsia,
	"Bangladesh":  RegionAsia,
	"Taiwan":      RegionAsia,

	"Australia":   RegionOceania,
	"New Zealand": RegionOceania,

	"United Arab Emirates": RegionMiddleEast,
	"Saudi Arabia":         RegionMiddleEast,
	"Israel":               RegionMiddleEast,
	"Turkey":               RegionMiddleEast,

	"South Africa": RegionAfrica,
	"Nigeria":      RegionAfrica,
	"Egypt":        RegionAfrica,
	"Kenya":        RegionAfrica,
	"Morocco":      RegionAfrica,
}

// Region maps a country name to its geographic region code.
func Region(country string) string {
	if r, ok := countryRegions[country]; ok {
		return r
	}
	return RegionOther
}
