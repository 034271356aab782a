package airport

import (
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/yungbote/flightwx/internal/avwx"
)

// Airport is one catalog entry, keyed by ICAO code.
type Airport struct {
	ICAO        string                           `gorm:"column:icao;primaryKey;size:8" json:"icao"`
	City        string                           `gorm:"column:city" json:"city"`
	State       string                           `gorm:"column:state" json:"state"`
	ElevationFt float64                          `gorm:"column:elevation_ft" json:"elevation_ft"`
	Name        string                           `gorm:"column:name" json:"name"`
	Latitude    float64                          `gorm:"column:latitude" json:"latitude"`
	Longitude   float64                          `gorm:"column:longitude" json:"longitude"`
	Runways     datatypes.JSONSlice[avwx.Runway] `gorm:"column:runways" json:"runways"`
	CreatedAt   time.Time                        `json:"-"`
	UpdatedAt   time.Time                        `json:"-"`
}

func (Airport) TableName() string { return "airports" }

func FromStation(st avwx.Station) *Airport {
	runways := st.Runways
	if runways == nil {
		runways = []avwx.Runway{}
	}
	return &Airport{
		ICAO:        strings.ToUpper(strings.TrimSpace(st.ICAO)),
		City:        st.City,
		State:       st.State,
		ElevationFt: st.ElevationFt,
		Name:        st.Name,
		Latitude:    st.Latitude,
		Longitude:   st.Longitude,
		Runways:     datatypes.NewJSONSlice(runways),
	}
}

// FormatList renders the plain-text catalog listing, one "ICAO, Name" line
// per airport.
func FormatList(airports []*Airport) string {
	var b strings.Builder
	for _, ap := range airports {
		b.WriteString(ap.ICAO)
		b.WriteString(", ")
		b.WriteString(ap.Name)
		b.WriteByte('\n')
	}
	return b.String()
}
