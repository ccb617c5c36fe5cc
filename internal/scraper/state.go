package scraper

// State is the lifecycle position of a Scraper.
type State int

const (
	// StateUninitialized is the state of a new Scraper.
	StateUninitialized State = iota
	// StateValidated follows a successful Validate.
	StateValidated
	// StatePrepared follows a successful Prepare.
	StatePrepared
	// StateLoading is entered when Load starts.
	StateLoading
	// StateDone follows a successful Scrape.
	StateDone
	// StateErrored is entered by ErrorCleanup.
	StateErrored
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateValidated:
		return "validated"
	case StatePrepared:
		return "prepared"
	case StateLoading:
		return "loading"
	case StateDone:
		return "done"
	case StateErrored:
		return "errored"
	default:
		return "unknown"
	}
}
