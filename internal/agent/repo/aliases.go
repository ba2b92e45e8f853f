package repo

import "strings"

// Catalog values are stored in English; customers and the model may use Russian.
var (
	brandAliases = map[string]string{
		"мерседес":    "Mercedes-Benz",
		"мерс":        "Mercedes-Benz",
		"mercedes":    "Mercedes-Benz",
		"бмв":         "BMW",
		"тойота":      "Toyota",
		"лексус":      "Lexus",
		"хендай":      "Hyundai",
		"хундай":      "Hyundai",
		"хёндай":      "Hyundai",
		"киа":         "Kia",
		"ауди":        "Audi",
		"порше":       "Porsche",
		"ленд ровер":  "Land Rover",
		"рендж ровер": "Land Rover",
		"range rover": "Land Rover",
		"генезис":     "Genesis",
	}
	countryAliases = map[string]string{
		"япония":      "Japan",
		"корея":       "Korea",
		"южная корея": "Korea",
		"south korea": "Korea",
		"германия":    "Germany",
		"оаэ":         "UAE",
		"эмираты":     "UAE",
		"дубай":       "UAE",
		"dubai":       "UAE",
		"сша":         "USA",
		"америка":     "USA",
		"китай":       "China",
	}
	bodyAliases = map[string]string{
		"седан":       "Sedan",
		"кроссовер":   "Crossover",
		"внедорожник": "SUV",
		"джип":        "SUV",
		"хэтчбек":     "Hatchback",
		"хетчбек":     "Hatchback",
		"минивэн":     "Minivan",
		"купе":        "Coupe",
	}
	engineAliases = map[string]string{
		"бензин":        "Petrol",
		"gasoline":      "Petrol",
		"дизель":        "Diesel",
		"гибрид":        "Hybrid",
		"электро":       "Electric",
		"электрический": "Electric",
		"ev":            "Electric",
	}
)

// normalize maps v through aliases, case-insensitively. Unknown values are returned trimmed.
func normalize(aliases map[string]string, v string) string {
	v = strings.TrimSpace(v)
	if canonical, ok := aliases[strings.ToLower(v)]; ok {
		return canonical
	}
	return v
}
