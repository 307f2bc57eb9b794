package handlers

import (
	"html/template"
	"time"
)

// TemplateFuncs returns the helpers available to the HTML templates.
func TemplateFuncs() template.FuncMap {
	return template.FuncMap{
		"mmddyyyy": formatDateMMDDYYYY,
	}
}

// formatDateMMDDYYYY renders ISO dates as mm/dd/yyyy for display. Values that
// do not parse are passed through unchanged rather than breaking the page.
func formatDateMMDDYYYY(v interface{}) string {
	switch val := v.(type) {
	case nil:
		return ""
	case time.Time:
		return val.Format("01/02/2006")
	case string:
		if d, err := time.Parse("2006-01-02", val); err == nil {
			return d.Format("01/02/2006")
		}
		return val
	default:
		return ""
	}
}
