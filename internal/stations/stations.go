// Package stations holds the fixed registry of MeteoSwiss SwissMetNet
// stations used for extraction, with the demographic figures backing
// the population-weighted national aggregate.
package stations

import "sort"

// Station is a fixed observation point of the SwissMetNet network.
// Population figures are the latest municipal/district/canton counts
// for the locality hosting the station; Population and District are 0
// when no local figure is available and the station then stands for
// its whole canton.
type Station struct {
	Name       string // registry name, e.g. "Bern_Zollikofen"
	ID         string // MeteoSwiss station code, e.g. "BER"
	Canton     string // two-letter canton code
	Population int    // locality population, 0 if unknown
	District   int    // district population, 0 if unknown
	CantonPop  int    // canton population
}

// Registry maps station names to their descriptors. Static reference
// data, never mutated at runtime.
var Registry = map[string]Station{
	"Adelboden":       {Name: "Adelboden", ID: "ABO", Canton: "BE", Population: 3340, District: 40674, CantonPop: 1047473},
	"Bern_Zollikofen": {Name: "Bern_Zollikofen", ID: "BER", Canton: "BE", Population: 10825, District: 418858, CantonPop: 1047473},
	"Interlaken":      {Name: "Interlaken", ID: "INT", Canton: "BE", Population: 5821, District: 47811, CantonPop: 1047473},
	"Basel_Binningen": {Name: "Basel_Binningen", ID: "BAS", Canton: "BL", Population: 15616, District: 157641, CantonPop: 292817},
	"Geneve_Cointrin": {Name: "Geneve_Cointrin", ID: "GVE", Canton: "GE", CantonPop: 509448},
	"Chur_Ems":        {Name: "Chur_Ems", ID: "CHU", Canton: "GR", Population: 37875, District: 43233, CantonPop: 201376},
	"Disentis":        {Name: "Disentis", ID: "DIS", Canton: "GR", Population: 2033, District: 21438, CantonPop: 201376},
	"Davos":           {Name: "Davos", ID: "DAV", Canton: "GR", Population: 10648, District: 26060, CantonPop: 201376},
	"Samedan":         {Name: "Samedan", ID: "SAM", Canton: "GR", Population: 3035, District: 18236, CantonPop: 201376},
	"Luzern":          {Name: "Luzern", ID: "LUZ", Canton: "LU", CantonPop: 420326},
	"Neuchatel":       {Name: "Neuchatel", ID: "NEU", Canton: "NE", Population: 44485, District: 176166, CantonPop: 176166},
	"Buchs_Suhr":      {Name: "Buchs_Suhr", ID: "BUS", Canton: "AG", Population: 8270, District: 81275, CantonPop: 703086},
	"Engelberg":       {Name: "Engelberg", ID: "ENG", Canton: "OW", CantonPop: 38435},
	"St_Gallen":       {Name: "St_Gallen", ID: "STG", Canton: "SG", Population: 76328, District: 123274, CantonPop: 519245},
	"Schaffhausen":    {Name: "Schaffhausen", ID: "SHA", Canton: "SH", Population: 37248, District: 55740, CantonPop: 83995},
	"Lugano":          {Name: "Lugano", ID: "LUG", Canton: "TI", Population: 62123, District: 151242, CantonPop: 352181},
	"Piotta":          {Name: "Piotta", ID: "PIO", Canton: "TI", Population: 974, District: 8718, CantonPop: 352181},
	"Altdorf":         {Name: "Altdorf", ID: "ALT", Canton: "UR", CantonPop: 37047},
	"Pully":           {Name: "Pully", ID: "PUY", Canton: "VD", Population: 18128, District: 64270, CantonPop: 822968},
	"Sion":            {Name: "Sion", ID: "SIO", Canton: "VS", Population: 35259, District: 49023, CantonPop: 353209},
	"Zermatt":         {Name: "Zermatt", ID: "ZER", Canton: "VS", Population: 5769, District: 28706, CantonPop: 353209},
	"Zuerich_Kloten":  {Name: "Zuerich_Kloten", ID: "KLO", Canton: "ZH", CantonPop: 1564662},
}

// All returns the registry stations sorted by name, for deterministic
// iteration order across runs.
func All() []Station {
	out := make([]Station, 0, len(Registry))
	for _, s := range Registry {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
