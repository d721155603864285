package store

import (
	"duty-planner/internal/calendar"
	"duty-planner/internal/model"
)

// Duties is the "today" view.
type Duties struct {
	Day       calendar.Day
	Tasks     []TaskItem
	Recurring []RecurringItem
}

func (d Duties) Len() int { return len(d.Tasks) + len(d.Recurring) }

// AgendaDay groups the tasks of one calendar date.
type AgendaDay struct {
	Day   calendar.Day
	Tasks []TaskItem
}

type Stats struct {
	Total     int
	Waiting   int
	Completed int
	PastDue   int
	Archived  int
}

// Today returns the unfinished tasks dated today and the recurring tasks not
// yet completed today.
func (s *Store) Today() Duties {
	day := s.zone.Today(s.clock.Now())
	return Duties{
		Day:       day,
		Tasks:     TodayTasks(s.Tasks(), day),
		Recurring: OpenRecurring(s.Recurring(), day),
	}
}

func (s *Store) Overdue() []TaskItem {
	return OverdueTasks(s.Tasks(), s.zone.Today(s.clock.Now()))
}

func (s *Store) OverdueCount() int {
	return len(s.Overdue())
}

func (s *Store) Upcoming() []AgendaDay {
	return Agenda(s.Tasks(), s.zone)
}

func (s *Store) Stats() Stats {
	var st Stats
	for _, item := range s.Tasks() {
		st.Total++
		if item.Task.IsArchived {
			st.Archived++
		}
		switch item.Task.Status {
		case model.StatusWaiting:
			st.Waiting++
		case model.StatusCompleted:
			st.Completed++
		case model.StatusPastDue:
			st.PastDue++
		}
	}
	return st
}

func TodayTasks(items []TaskItem, day calendar.Day) []TaskItem {
	var out []TaskItem
	for _, item := range items {
		t := item.Task
		if t.IsArchived || t.Status == model.StatusCompleted {
			continue
		}
		if day.Contains(t.CreatedAt) {
			out = append(out, item)
		}
	}
	sortTasks(out)
	return out
}

// OverdueTasks lists waiting tasks dated before day that were not archived.
func OverdueTasks(items []TaskItem, day calendar.Day) []TaskItem {
	start := day.Start()
	var out []TaskItem
	for _, item := range items {
		t := item.Task
		if t.IsArchived || t.Status != model.StatusWaiting {
			continue
		}
		if t.CreatedAt.Before(start) {
			out = append(out, item)
		}
	}
	sortTasks(out)
	return out
}

// DoneOn reports whether a recurring task was completed during day.
func DoneOn(task model.RecurringTask, day calendar.Day) bool {
	return task.LastCompletedAt != nil && day.Contains(*task.LastCompletedAt)
}

func OpenRecurring(items []RecurringItem, day calendar.Day) []RecurringItem {
	var out []RecurringItem
	for _, item := range items {
		if !DoneOn(item.Task, day) {
			out = append(out, item)
		}
	}
	sortRecurring(out)
	return out
}

// Agenda groups non-archived tasks by the zone's calendar date, oldest first.
func Agenda(items []TaskItem, zone calendar.Zone) []AgendaDay {
	sorted := make([]TaskItem, 0, len(items))
	for _, item := range items {
		if !item.Task.IsArchived {
			sorted = append(sorted, item)
		}
	}
	sortTasks(sorted)

	var out []AgendaDay
	for _, item := range sorted {
		day := zone.DayOf(item.Task.CreatedAt)
		if n := len(out); n > 0 && out[n-1].Day.Equal(day) {
			out[n-1].Tasks = append(out[n-1].Tasks, item)
			continue
		}
		out = append(out, AgendaDay{Day: day, Tasks: []TaskItem{item}})
	}
	return out
}
