package autosign

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// MaxDetails is how many detail lines a Report keeps, older ones are evicted.
const MaxDetails = 20

const progressBarWidth = 20

// Report is the running tally of a batch run.
type Report struct {
	RunID      string
	Total      int
	Processed  int
	Succeeded  int
	Failed     int
	Details    []string
	StartedAt  time.Time
	FinishedAt time.Time
}

func (r *Report) addDetail(line string) {
	r.Details = append(r.Details, line)
	if len(r.Details) > MaxDetails {
		kept := make([]string, MaxDetails)
		copy(kept, r.Details[len(r.Details)-MaxDetails:])
		r.Details = kept
	}
}

// snapshot returns a copy that does not share the details slice.
func (r Report) snapshot() Report {
	out := r
	out.Details = make([]string, len(r.Details))
	copy(out.Details, r.Details)
	return out
}

// Finished reports whether the run has ended, successfully or not.
func (r Report) Finished() bool {
	return !r.FinishedAt.IsZero()
}

// Percent is the share of processed accounts, 0 for an empty run.
func (r Report) Percent() float64 {
	if r.Total == 0 {
		return 0
	}
	return float64(r.Processed) / float64(r.Total) * 100
}

// ProgressBar renders the processed share as [####------].
func (r Report) ProgressBar(width int) string {
	if width <= 0 {
		width = progressBarWidth
	}
	filled := 0
	if r.Total > 0 {
		filled = int(math.Round(float64(width) * float64(r.Processed) / float64(r.Total)))
	}
	filled = min(max(filled, 0), width)
	return "[" + strings.Repeat("#", filled) + strings.Repeat("-", width-filled) + "]"
}

func (r Report) Title() string {
	if r.Finished() {
		return "Daily Sign Completed"
	}
	return "Daily Sign Progress"
}

func (r Report) Description() string {
	if r.Processed == 0 && !r.Finished() {
		return "Starting sign process..."
	}
	text := fmt.Sprintf("Progress: %s %.1f%%", r.ProgressBar(progressBarWidth), r.Percent())
	if r.Finished() {
		text += "\nProcess finished."
	}
	return text
}

func (r Report) Footer() string {
	if r.Finished() {
		return fmt.Sprintf("Total: %d | Success: %d | Failed: %d", r.Total, r.Succeeded, r.Failed)
	}
	return fmt.Sprintf("Processed %d/%d accounts", r.Processed, r.Total)
}

// DetailsText joins the kept detail lines, newest last.
func (r Report) DetailsText() string {
	if len(r.Details) == 0 {
		return "No details available."
	}
	return strings.Join(r.Details, "\n")
}

func successDetail(username, detail string) string {
	return fmt.Sprintf("%s: succeeded - %s", username, detail)
}

func failureDetail(username string, attempts int, detail string) string {
	return fmt.Sprintf("%s: failed after %d attempts - %s", username, attempts, detail)
}
