package batch

// Result is the outcome of importing one document, in submission order.
type Result struct {
	Success  bool   `json:"success"`
	Error    string `json:"error,omitempty"`
	Document string `json:"document,omitempty"`
}

// NewOK creates a successful result.
func NewOK() Result { return Result{Success: true} }

// NewError creates a failed result.
func NewError(msg string) Result { return Result{Error: msg} }

// Summary tallies a run of import results.
type Summary struct {
	Succeeded  int
	Failed     int
	FirstError string
}

// Tally counts successes and failures and keeps the first failure reason verbatim.
func Tally(results []Result) Summary {
	var s Summary
	for _, r := range results {
		if r.Success {
			s.Succeeded++
			continue
		}
		if s.Failed == 0 {
			s.FirstError = r.Error
		}
		s.Failed++
	}
	return s
}
