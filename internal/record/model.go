package record

import (
	"encoding/json"
	"fmt"
	"time"
)

const (
	FieldName          = "patient_name"
	FieldDiagnosis     = "primary_diagnosis"
	FieldDischargeDate = "discharge_date"
	FieldFollowUp      = "follow_up"
)

// PatientRecord is one discharge report. Name alone is not unique; identity
// is name + diagnosis + discharge date.
type PatientRecord struct {
	Name          string         `json:"patient_name"`
	Diagnosis     string         `json:"primary_diagnosis"`
	DischargeDate string         `json:"discharge_date"`
	Source        string         `json:"source"` // file name inside the store
	Fields        map[string]any `json:"fields"` // the document as stored
}

func newRecord(source string, fields map[string]any) PatientRecord {
	return PatientRecord{
		Name:          stringField(fields, FieldName),
		Diagnosis:     stringField(fields, FieldDiagnosis),
		DischargeDate: stringField(fields, FieldDischargeDate),
		Source:        source,
		Fields:        fields,
	}
}

func stringField(fields map[string]any, key string) string {
	switch v := fields[key].(type) {
	case string:
		return v
	case nil:
		return ""
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return fmt.Sprint(v)
	}
}

// JSON renders the stored document as indented JSON, the form the language
// model sees.
func (r PatientRecord) JSON() string {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{
			FieldName:          r.Name,
			FieldDiagnosis:     r.Diagnosis,
			FieldDischargeDate: r.DischargeDate,
		}
	}
	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return fmt.Sprintf("%s: %s, %s: %s, %s: %s",
			FieldName, r.Name, FieldDiagnosis, r.Diagnosis, FieldDischargeDate, r.DischargeDate)
	}
	return string(b)
}

// Field returns a free-form clinical field as text. Lists, nested sections
// and absent keys give "".
func (r PatientRecord) Field(key string) string {
	switch r.Fields[key].(type) {
	case map[string]any, []any:
		return ""
	}
	return stringField(r.Fields, key)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}
