package view

import "github.com/semanticallynull/spinroom/attendance"

type CheckInRow struct {
	attendance.Record
	Label string `json:"label"`
}

type CheckIn struct {
	ClassKey string `json:"classKey"`
	// ClassName is set when the class is in the cached schedule.
	ClassName string             `json:"className,omitempty"`
	Rows      []CheckInRow       `json:"rows"`
	Summary   attendance.Summary `json:"summary"`
	// Empty is set when there are no reservations for the class.
	Empty bool `json:"empty"`
}

func CheckInList(classKey string, recs []attendance.Record) CheckIn {
	rows := make([]CheckInRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, CheckInRow{Record: r, Label: r.Status.Label()})
	}
	return CheckIn{
		ClassKey: classKey,
		Rows:     rows,
		Summary:  attendance.Summarize(recs),
		Empty:    len(recs) == 0,
	}
}
