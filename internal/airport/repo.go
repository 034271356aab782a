package airport

import (
	"errors"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/yungbote/flightwx/internal/platform/dbctx"
	"github.com/yungbote/flightwx/internal/platform/logger"
)

type Repo interface {
	DeleteAll(dbc dbctx.Context) error
	Save(dbc dbctx.Context, ap *Airport) error
	List(dbc dbctx.Context) ([]*Airport, error)
	// Get returns nil, nil when icao is unknown.
	Get(dbc dbctx.Context, icao string) (*Airport, error)
}

type repo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRepo(db *gorm.DB, baseLog *logger.Logger) Repo {
	if baseLog == nil {
		baseLog = logger.Nop()
	}
	return &repo{db: db, log: baseLog.With("repo", "AirportRepo")}
}

func (r *repo) DeleteAll(dbc dbctx.Context) error {
	return dbc.DB(r.db).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&Airport{}).Error
}

func (r *repo) Save(dbc dbctx.Context, ap *Airport) error {
	if ap == nil || ap.ICAO == "" {
		return nil
	}
	return dbc.DB(r.db).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "icao"}},
			DoUpdates: clause.AssignmentColumns([]string{"city", "state", "elevation_ft", "name", "latitude", "longitude", "runways", "updated_at"}),
		}).
		Create(ap).Error
}

func (r *repo) List(dbc dbctx.Context) ([]*Airport, error) {
	var out []*Airport
	if err := dbc.DB(r.db).Order("icao ASC").Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *repo) Get(dbc dbctx.Context, icao string) (*Airport, error) {
	icao = strings.ToUpper(strings.TrimSpace(icao))
	if icao == "" {
		return nil, nil
	}
	var row Airport
	err := dbc.DB(r.db).Where("icao = ?", icao).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}
