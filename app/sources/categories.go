package sources

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var categoryInfos = map[Category]CategoryInfo{
	CategoryEarthquakes: {
		Label:       "Earthquakes",
		Icon:        "activity",
		Description: "Seismic event bulletins and significant earthquake reports",
	},
	CategoryVolcanoes: {
		Label:       "Volcanoes",
		Icon:        "triangle",
		Description: "Volcanic activity reports and eruption alerts",
	},
	CategorySpace: {
		Label:       "Space Weather",
		Icon:        "sun",
		Description: "Solar activity, geomagnetic storms and space agency news",
	},
	CategoryClimate: {
		Label:       "Climate",
		Icon:        "thermometer",
		Description: "Climate research news and long-term trend reports",
	},
	CategorySevere: {
		Label:       "Severe Weather",
		Icon:        "cloud-lightning",
		Description: "Active severe weather warnings and watches",
	},
	CategoryScience: {
		Label:       "Science",
		Icon:        "flask",
		Description: "General earth and natural science headlines",
	},
	CategoryHurricanes: {
		Label:       "Hurricanes",
		Icon:        "wind",
		Description: "Tropical cyclone outlooks and advisories",
	},
}

var titleCaser = cases.Title(language.English)

// Info returns display metadata for a category. Unknown categories get a
// title-cased label so the UI always has something to render.
func Info(category Category) CategoryInfo {
	if info, ok := categoryInfos[category]; ok {
		return info
	}
	return CategoryInfo{Label: titleCaser.String(string(category))}
}
