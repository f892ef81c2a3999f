package domain

import "strings"

// EventCategory is the display metadata (material icon name + hex color) the
// calendar screen renders next to an event. Pure lookup, no state.
type EventCategory struct {
	Icon  string
	Color string
}

// activityCategories maps activity-name keywords to display metadata.
// Matched against the lower-cased title, first hit wins.
var activityCategories = []struct {
	keywords []string
	category EventCategory
}{
	{[]string{"irrigat", "water"}, EventCategory{Icon: "water_drop", Color: "#1E88E5"}},
	{[]string{"fertiliz", "manure", "compost"}, EventCategory{Icon: "compost", Color: "#6D4C41"}},
	{[]string{"harvest"}, EventCategory{Icon: "agriculture", Color: "#F57C00"}},
	{[]string{"sow", "seed", "plant", "transplant"}, EventCategory{Icon: "spa", Color: "#43A047"}},
	{[]string{"spray", "pest", "insect", "fungicide"}, EventCategory{Icon: "pest_control", Color: "#E53935"}},
	{[]string{"weed"}, EventCategory{Icon: "grass", Color: "#7CB342"}},
	{[]string{"prune", "trim", "thin"}, EventCategory{Icon: "content_cut", Color: "#8E24AA"}},
	{[]string{"plough", "plow", "till", "soil"}, EventCategory{Icon: "landscape", Color: "#795548"}},
}

var defaultCategory = EventCategory{Icon: "event_note", Color: "#546E7A"}

// CategoryFor maps an event to its display metadata. Crop activities are
// matched by keyword on the lower-cased title; the other types have fixed
// icons; anything unrecognized falls back to a neutral default.
func CategoryFor(e CalendarEvent) EventCategory {
	switch e.Type {
	case EventWeather:
		return EventCategory{Icon: "cloud", Color: "#42A5F5"}
	case EventReminder:
		return EventCategory{Icon: "notifications", Color: "#FFB300"}
	case EventCropActivity:
		title := strings.ToLower(e.Title)
		for _, m := range activityCategories {
			for _, kw := range m.keywords {
				if strings.Contains(title, kw) {
					return m.category
				}
			}
		}
	}
	return defaultCategory
}
