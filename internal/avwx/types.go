package avwx

import "time"

// Station is the subset of an AVWX station report the airport catalog keeps.
type Station struct {
	ICAO        string   `json:"icao"`
	City        string   `json:"city"`
	State       string   `json:"state"`
	ElevationFt float64  `json:"elevation_ft"`
	Name        string   `json:"name"`
	Latitude    float64  `json:"latitude"`
	Longitude   float64  `json:"longitude"`
	Runways     []Runway `json:"runways"`
}

type Runway struct {
	Ident1   string `json:"ident1"`
	Ident2   string `json:"ident2"`
	LengthFt int    `json:"length_ft"`
	WidthFt  int    `json:"width_ft"`
}

type Time struct {
	Dt   time.Time `json:"dt"`
	Repr string    `json:"repr"`
}

type METAR struct {
	Raw         string `json:"raw"`
	Time        Time   `json:"time"`
	FlightRules string `json:"flight_rules"`
}

type TAF struct {
	StartTime Time       `json:"start_time"`
	EndTime   Time       `json:"end_time"`
	Forecast  []Forecast `json:"forecast"`
}

type Forecast struct {
	Raw           string         `json:"raw"`
	StartTime     Time           `json:"start_time"`
	EndTime       Time           `json:"end_time"`
	FlightRules   string         `json:"flight_rules"`
	Visibility    *Visibility    `json:"visibility"`
	WindDirection *WindDirection `json:"wind_direction"`
	WindSpeed     *WindSpeed     `json:"wind_speed"`
	Other         []string       `json:"other"`
}

type Visibility struct {
	Repr string `json:"repr"`
}

type WindDirection struct {
	Repr string `json:"repr"`
}

type WindSpeed struct {
	Repr string `json:"repr"`
}
