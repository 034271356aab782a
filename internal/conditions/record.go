package conditions

import (
	"github.com/yungbote/flightwx/internal/aggregate"
	"github.com/yungbote/flightwx/internal/avwx"
)

const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Record is the wire shape of one outcome.
type Record struct {
	ID     string       `json:"id"`
	Status string       `json:"status"`
	Metar  *avwx.METAR  `json:"metar,omitempty"`
	Error  *RecordError `json:"error,omitempty"`
}

type RecordError struct {
	Kind     string `json:"kind"`
	Attempts int    `json:"attempts"`
	Code     int    `json:"code,omitempty"`
	Message  string `json:"message"`
}

type SummaryRecord struct {
	Summary aggregate.Summary `json:"summary"`
}

func NewRecord(o aggregate.Outcome[avwx.METAR]) Record {
	if o.OK() {
		m := o.Record
		return Record{ID: string(o.ID), Status: StatusSuccess, Metar: &m}
	}
	r := Record{ID: string(o.ID), Status: StatusFailure, Error: &RecordError{
		Kind:     o.Err.Kind.String(),
		Attempts: o.Err.Attempts,
		Code:     o.Err.Code,
	}}
	if o.Err.Err != nil {
		r.Error.Message = o.Err.Err.Error()
	}
	return r
}
