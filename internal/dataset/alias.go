package dataset

// aliases maps counter names used by the locations dataset to the names used
// as column headers in the count datasets. No value may also be a key.
var aliases = map[string]string{
	"Brebeuf":                   "Brébeuf",
	"CSC":                       "CSC (Côte Sainte-Catherine)",
	"Parc U-Zelt Test":          "Parc",
	"Pont_Jacques-Cartier":      "Pont Jacques-Cartier",
	"Rachel/Hôtel de Ville":     "Rachel / Hôtel de Ville",
	"Rachel/Papineau":           "Rachel / Papineau",
	"Saint-Laurent U-Zelt Test": "Saint-Laurent/Bellechasse",
	"Totem_Laurier":             "Eco-Totem - Métro Laurier",
}

// Canonical returns the canonical counter name. Names not in the alias table
// pass through unchanged.
func Canonical(name string) string {
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// Aliases returns a copy of the alias table
func Aliases() map[string]string {
	result := make(map[string]string, len(aliases))
	for k, v := range aliases {
		result[k] = v
	}
	return result
}
