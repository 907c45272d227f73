package cleaning

import (
	"sort"
	"time"
)

// =============================================================================
// AGENDA - Planner view of jobs per calendar day
// =============================================================================

type AgendaInput struct {
	Jobs      []Job
	Units     []Unit
	Buildings []Building
	Employees []Employee
	Location  *time.Location
}

// AgendaEntry is a job with its display names resolved.
type AgendaEntry struct {
	Job           Job
	UnitName      string
	BuildingName  string
	EmployeeNames []string
}

type AgendaDay struct {
	Date    time.Time
	Entries []AgendaEntry
}

type Agenda struct {
	View  View
	Range DateRange
	Days  []AgendaDay
}

// BuildAgenda lays out every day of the view around anchor, each with the
// jobs scheduled that day (any status) ordered by time.
func BuildAgenda(in AgendaInput, view View, anchor time.Time) (Agenda, error) {
	loc := mustLocation(in.Location)
	window, err := view.Window(anchor.In(loc))
	if err != nil {
		return Agenda{}, err
	}
	if view == "" {
		view = ViewDay
	}

	dir := newDirectory(in.Units, in.Buildings, nil, in.Employees)
	byDay := make(map[string][]AgendaEntry)
	for _, job := range in.Jobs {
		local := job.Date.In(loc)
		if !window.Contains(local) {
			continue
		}
		key := dayKey(local)
		byDay[key] = append(byDay[key], dir.agendaEntry(job))
	}

	agenda := Agenda{View: view, Range: window}
	for _, day := range window.Days() {
		entries := byDay[dayKey(day)]
		if entries == nil {
			entries = []AgendaEntry{}
		}
		sortEntries(entries)
		agenda.Days = append(agenda.Days, AgendaDay{Date: day, Entries: entries})
	}
	return agenda, nil
}

func (d directory) agendaEntry(job Job) AgendaEntry {
	entry := AgendaEntry{
		Job:           job,
		UnitName:      NotApplicable,
		BuildingName:  NotApplicable,
		EmployeeNames: d.employeeNames(job.AssignedTeam),
	}
	if u, ok := d.unit(job.UnitID); ok {
		entry.UnitName = u.NameIdentifier
	}
	if b, ok := d.buildingOf(job.UnitID); ok {
		entry.BuildingName = b.Name
	}
	return entry
}

func sortEntries(entries []AgendaEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Job.Date.Before(entries[j].Job.Date)
	})
}
