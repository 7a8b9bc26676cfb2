package dataset

// Row is a single labeled comment.
type Row struct {
	Comment string `json:"comment" yaml:"comment"`
	Label   Label  `json:"label" yaml:"label"`
	// Line is the 1-based position of the row in its source.
	Line int `json:"line" yaml:"line"`
}

// Frame is one loaded dataset split held in memory.
type Frame struct {
	Name    string
	Source  string
	Columns []string
	Rows    []Row
}

// Shape returns the row and column counts of the frame.
func (f *Frame) Shape() (rows, cols int) {
	if f == nil {
		return 0, 0
	}
	return len(f.Rows), len(f.Columns)
}

// Len returns the number of rows.
func (f *Frame) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Rows)
}
