package calendar

// DayStatus is one calendar row: a market day that is explicitly open or closed.
// Closed days are data too; only days with no row at all are unknown.
type DayStatus struct {
	Day    string `json:"day"` // YYYY-MM-DD
	IsOpen bool   `json:"is_open"`
}

// Coverage describes the contiguous span of known days for a market.
type Coverage struct {
	Market   string `json:"market"`
	FirstDay string `json:"first_day"`
	LastDay  string `json:"last_day"`
	Days     int    `json:"days"`
}
