package handlers

import "time"

// Placeholder page data for the phase-1 route skeletons. Replaced by
// DB-driven queries once bus run storage lands.

type optionItem struct {
	Code  string
	Label string
}

type checkedOption struct {
	Code    string
	Label   string
	Checked bool
}

type homeOptions struct {
	RunTypeOptions     []optionItem
	BusOptions         []optionItem
	DefaultRunTypeCode string
	DefaultDateISO     string
}

type busRunTile struct {
	BusLabel      string
	CheckInTime   string
	StudentCount  string
	DepartureTime string
	StatusLabel   string
}

type busRunView struct {
	BusRunPublicID   string
	SchoolName       string
	RunDate          string
	RunTypeLabel     string
	ShowBusesRolling bool
	Tiles            []busRunTile
}

type busRunEditView struct {
	BusRunPublicID string
	SchoolName     string
	RunDate        string
	RunTypeLabel   string
	BusOptions     []checkedOption
}

func demoHomeOptions() homeOptions {
	return homeOptions{
		RunTypeOptions: []optionItem{
			{Code: "arrival", Label: "Arrival"},
			{Code: "dismissal", Label: "Dismissal"},
		},
		BusOptions: []optionItem{
			{Code: "purple", Label: "Purple Bus"},
			{Code: "green", Label: "Green Bus"},
			{Code: "blue", Label: "Blue Bus"},
			{Code: "red", Label: "Red Bus"},
			{Code: "yellow", Label: "Yellow Bus"},
		},
		DefaultRunTypeCode: "arrival",
		DefaultDateISO:     time.Now().Format("2006-01-02"),
	}
}

func demoBusRunView(publicID string) busRunView {
	return busRunView{
		BusRunPublicID:   publicID,
		SchoolName:       "Example Elementary",
		RunDate:          time.Now().Format("2006-01-02"),
		RunTypeLabel:     "Arrival",
		ShowBusesRolling: false,
		Tiles: []busRunTile{
			{BusLabel: "Purple Bus", CheckInTime: "7:08 AM", StudentCount: "22", StatusLabel: "Checked in"},
			{BusLabel: "Green Bus", StatusLabel: "Waiting"},
			{BusLabel: "Blue Bus", CheckInTime: "7:14 AM", StudentCount: "17", StatusLabel: "Checked in"},
			{BusLabel: "Red Bus", StatusLabel: "Waiting"},
		},
	}
}

func demoBusRunEditView(publicID string) busRunEditView {
	return busRunEditView{
		BusRunPublicID: publicID,
		SchoolName:     "Example Elementary",
		RunDate:        time.Now().Format("2006-01-02"),
		RunTypeLabel:   "Arrival",
		BusOptions: []checkedOption{
			{Code: "purple", Label: "Purple Bus", Checked: true},
			{Code: "green", Label: "Green Bus", Checked: true},
			{Code: "blue", Label: "Blue Bus", Checked: true},
			{Code: "red", Label: "Red Bus", Checked: false},
			{Code: "yellow", Label: "Yellow Bus", Checked: false},
		},
	}
}
