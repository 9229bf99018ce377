package shelf

import (
	"time"

	"github.com/mrlokans/bookshelf/internal/entities"
)

// ApplyStartReread appends a new open interval and moves the entry to reading.
// FinishedAt from the previous completion is kept.
//
// The entry must be completed and must not already have an open interval.
func ApplyStartReread(entry entities.ShelfEntry, now time.Time) (entities.ShelfEntry, error) {
	if entry.Status != entities.StatusCompleted {
		return entry, ErrInvalidState
	}
	if openInterval(entry.ReReadLogs) >= 0 {
		return entry, ErrRereadInProgress
	}

	logs := make([]entities.ReadInterval, 0, len(entry.ReReadLogs)+1)
	logs = append(logs, entry.ReReadLogs...)
	logs = append(logs, entities.ReadInterval{Start: now})

	entry.ReReadLogs = logs
	entry.Status = entities.StatusReading
	return entry, nil
}

// ApplyCompleteReread closes the first open interval in log order and marks
// the entry completed. FinishedAt is always refreshed here.
func ApplyCompleteReread(entry entities.ShelfEntry, now time.Time) (entities.ShelfEntry, error) {
	idx := openInterval(entry.ReReadLogs)
	if idx < 0 {
		return entry, ErrNoActiveReread
	}

	logs := make([]entities.ReadInterval, len(entry.ReReadLogs))
	copy(logs, entry.ReReadLogs)
	end := now
	logs[idx].End = &end

	finished := now
	entry.ReReadLogs = logs
	entry.Status = entities.StatusCompleted
	entry.FinishedAt = &finished
	return entry, nil
}

func openInterval(logs []entities.ReadInterval) int {
	for i, r := range logs {
		if r.Open() {
			return i
		}
	}
	return -1
}

// RereadView is one re-read pass prepared for display.
type RereadView struct {
	Pass       int        `json:"pass"`
	Start      time.Time  `json:"start"`
	End        *time.Time `json:"end"`
	InProgress bool       `json:"in_progress"`
	Label      string     `json:"label"`
}

const dateLayout = "Jan 2, 2006"

// DescribeRereads pairs start and end of every pass in log order.
func DescribeRereads(logs []entities.ReadInterval) []RereadView {
	views := make([]RereadView, 0, len(logs))
	for i, r := range logs {
		view := RereadView{
			Pass:       i + 1,
			Start:      r.Start,
			End:        r.End,
			InProgress: r.Open(),
		}
		if r.Open() {
			view.Label = r.Start.Format(dateLayout) + " - in progress"
		} else {
			view.Label = r.Start.Format(dateLayout) + " - " + r.End.Format(dateLayout)
		}
		views = append(views, view)
	}
	return views
}
