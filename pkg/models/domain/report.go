package domain

// Report represents a complete projection report
type Report struct {
	Title    string
	Model    string
	Horizon  int // in days
	Sections []ReportSection
}

// ReportSection represents a logical section in the report
type ReportSection struct {
	Title   string
	Summary map[string]interface{}
	Details []ReportDetail
	Series  *SeriesTable
}

// ReportDetail represents detailed information within a section
type ReportDetail struct {
	Name        string
	Value       interface{}
	Unit        string
	Description string
}

// SeriesTable is a sampled view of a trajectory: one row per reported day.
type SeriesTable struct {
	Columns []string
	Days    []int
	Rows    [][]float64
}
