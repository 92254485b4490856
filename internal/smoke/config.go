package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL string        // Base URL of the service
	Runs    int           // Number of scenario runs
	Workers int           // Number of runs in flight at once
	Timeout time.Duration // HTTP request timeout
	UserID  int64         // Existing user the checklists are assigned to; 0 leaves them unassigned
	LogFile string        // Log file for test output
	Verbose bool          // Log every step
}

// Stats holds run statistics.
type Stats struct {
	Runs      int
	Passed    int
	Failed    int
	Requests  int64
	Failures  []string
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
}

// item is the subset of an item row the checks look at.
type item struct {
	ID        int64   `json:"id"`
	Text      string  `json:"text"`
	Order     int     `json:"order"`
	IsChecked bool    `json:"is_checked"`
	CheckedAt *string `json:"checked_at"`
}

// checklist is the subset of a checklist row the checks look at.
type checklist struct {
	ID             int64   `json:"id"`
	Title          string  `json:"title"`
	CreatedByID    *int64  `json:"created_by_id"`
	AssignedUserID *int64  `json:"assigned_user_id"`
	Items          []item  `json:"items"`
	Description    *string `json:"description"`
}

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}
