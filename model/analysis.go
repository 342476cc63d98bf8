package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// ResultBlob stores a Result in a JSON column.
type ResultBlob struct {
	Result
}

// Scan implements sql.Scanner.
func (b *ResultBlob) Scan(value interface{}) error {
	var bytes []byte
	switch v := value.(type) {
	case nil:
		return nil
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported result column type %T", value)
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		return nil
	}
	return json.Unmarshal(bytes, &b.Result)
}

// Value implements driver.Valuer.
func (b ResultBlob) Value() (driver.Value, error) {
	data, err := json.Marshal(b.Result)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// AnalysisRecord is the history row kept for every finished job.
type AnalysisRecord struct {
	ID           string      `json:"id" gorm:"primaryKey;size:36"`
	State        JobState    `json:"status" gorm:"size:16;index;not null"`
	ErrorKind    ErrorKind   `json:"errorKind,omitempty" gorm:"size:32"`
	ErrorMessage string      `json:"errorMessage,omitempty" gorm:"type:text"`
	UserLUFS     *float64    `json:"userLufs"` // nil when the mix never passed the gate
	RefLUFS      *float64    `json:"refLufs"`
	RecCount     int         `json:"recCount"`
	Stems        string      `json:"stems" gorm:"size:64"` // comma separated
	Result       *ResultBlob `json:"result,omitempty" gorm:"type:json"`
	CreatedAt    time.Time   `json:"createdAt" gorm:"index"`
	UpdatedAt    time.Time   `json:"updatedAt"`
}

// TableName returns the table used for analysis history.
func (AnalysisRecord) TableName() string {
	return "analyses"
}

// NewAnalysisRecord summarises a job and its result for the history table.
// res may be nil for failed jobs.
func NewAnalysisRecord(job Job, res *Result) *AnalysisRecord {
	rec := &AnalysisRecord{
		ID:        job.ID,
		State:     job.State,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
	if job.Error != nil {
		rec.ErrorKind = job.Error.Kind
		rec.ErrorMessage = job.Error.Message
	}
	if res == nil {
		return rec
	}

	rec.Result = &ResultBlob{Result: *res}
	if user, ok := res.User[SourceMix]; ok {
		rec.UserLUFS = finiteOrNil(user.Loudness.Integrated)
	}
	if ref, ok := res.Ref[SourceMix]; ok {
		rec.RefLUFS = finiteOrNil(ref.Loudness.Integrated)
	}
	for _, recs := range res.Recs {
		rec.RecCount += len(recs)
	}
	var stems []string
	for _, stem := range Stems {
		if _, ok := res.Recs[stem]; ok {
			stems = append(stems, string(stem))
		}
	}
	rec.Stems = strings.Join(stems, ",")
	return rec
}
