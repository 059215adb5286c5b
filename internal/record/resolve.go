package record

import "strings"

// Resolve narrows candidates with a detail the patient typed: a fragment of
// the diagnosis or the exact discharge date. More than one hit is Ambiguous.
func Resolve(candidates []PatientRecord, detail string) Result {
	d := fold(detail)
	if d == "" {
		return Result{Outcome: NoMatch}
	}

	var match *PatientRecord
	for i := range candidates {
		c := candidates[i]
		if !strings.Contains(fold(c.Diagnosis), d) && fold(c.DischargeDate) != d {
			continue
		}
		if match != nil {
			return Result{Outcome: Ambiguous}
		}
		match = &c
	}

	if match == nil {
		return Result{Outcome: NoMatch}
	}
	return Result{Outcome: Resolved, Record: match}
}
