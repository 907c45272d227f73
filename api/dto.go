/*
dto.go - Request and response shapes of the API

PURPOSE:
  Entities, jobs and settings are served with their own json tags; the
  types here cover what differs on the wire:
  - Job requests take dates as strings (RFC 3339 or YYYY-MM-DD)
  - Report and dashboard money and hours are decimal strings with two
    places, productivity is "80%" or "N/A"
  - Agenda entries flatten the job with its resolved names

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request / *Body: Request body types from clients
  - *Response: Wrappers

SEE ALSO:
  - handlers.go, jobs.go, reports.go: Use these types
  - cleaning/types.go: Entity json tags
*/
package api

import (
	"github.com/alexisbanda/operations-management-system/cleaning"
	"github.com/shopspring/decimal"
)

// ErrorResponse is the body of every non-2xx answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// USERS
// =============================================================================

type UserRoleDTO struct {
	ID    string        `json:"id"`
	Email string        `json:"email,omitempty"`
	Role  cleaning.Role `json:"role"`
}

type SaveUserRequest struct {
	Email string        `json:"email"`
	Role  cleaning.Role `json:"role"`
}

// =============================================================================
// JOBS
// =============================================================================

// JobRequestBody is the POST /api/jobs body.
type JobRequestBody struct {
	UnitID            string              `json:"unit_id"`
	JobDate           string              `json:"job_date"`
	Status            cleaning.JobStatus  `json:"status"`
	AssignedTeam      []string            `json:"assigned_team"`
	TeamIDs           []string            `json:"team_ids"`
	ActualHours       *float64            `json:"actual_hours"`
	InvoicedPrice     *float64            `json:"invoiced_price"`
	Notes             string              `json:"notes"`
	Recurrence        cleaning.Recurrence `json:"recurrence"`
	RecurrenceEndDate string              `json:"recurrence_end_date"`
}

// JobPatchBody is the PATCH /api/jobs/{id} body. job_date is read as a
// string and parsed by the handler; the other keys decode straight into
// the embedded patch.
type JobPatchBody struct {
	cleaning.JobPatch
	Date cleaning.Opt[string] `json:"job_date"`
}

type ScheduleResponse struct {
	Count int            `json:"count"`
	Jobs  []cleaning.Job `json:"jobs"`
}

type EstimateDTO struct {
	UnitID         string  `json:"unit_id"`
	EstimatedHours float64 `json:"estimated_hours"`
}

// =============================================================================
// AGENDA
// =============================================================================

type AgendaEntryDTO struct {
	cleaning.Job
	UnitName      string   `json:"unit_name"`
	BuildingName  string   `json:"building_name"`
	EmployeeNames []string `json:"employee_names"`
}

type AgendaDayDTO struct {
	Date string           `json:"date"`
	Jobs []AgendaEntryDTO `json:"jobs"`
}

type AgendaDTO struct {
	View  cleaning.View  `json:"view"`
	Start string         `json:"start"`
	End   string         `json:"end"`
	Days  []AgendaDayDTO `json:"days"`
}

func toAgendaEntries(entries []cleaning.AgendaEntry) []AgendaEntryDTO {
	out := make([]AgendaEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = AgendaEntryDTO{
			Job:           e.Job,
			UnitName:      e.UnitName,
			BuildingName:  e.BuildingName,
			EmployeeNames: e.EmployeeNames,
		}
	}
	return out
}

func toAgendaDTO(a cleaning.Agenda) AgendaDTO {
	days := make([]AgendaDayDTO, len(a.Days))
	for i, d := range a.Days {
		days[i] = AgendaDayDTO{Date: d.Date.Format(cleaning.DateLayout), Jobs: toAgendaEntries(d.Entries)}
	}
	return AgendaDTO{
		View:  a.View,
		Start: a.Range.Start.Format(cleaning.DateLayout),
		End:   a.Range.End.Format(cleaning.DateLayout),
		Days:  days,
	}
}

// =============================================================================
// REPORTS
// =============================================================================

type ReportRowDTO struct {
	Key            string `json:"key,omitempty"`
	Name           string `json:"name"`
	Date           string `json:"date,omitempty"`
	UnitName       string `json:"unit_name,omitempty"`
	BuildingName   string `json:"building_name,omitempty"`
	ClientName     string `json:"client_name,omitempty"`
	JobCount       int    `json:"job_count"`
	Revenue        string `json:"revenue"`
	Cost           string `json:"cost"`
	Profit         string `json:"profit"`
	EstimatedHours string `json:"estimated_hours"`
	ActualHours    string `json:"actual_hours"`
	Productivity   string `json:"productivity"`
}

type ReportDTO struct {
	GroupBy      cleaning.GroupBy `json:"group_by"`
	RangeApplied bool             `json:"range_applied"`
	Rows         []ReportRowDTO   `json:"rows"`
}

func amount(d decimal.Decimal) string { return d.StringFixed(2) }

func toReportDTO(report cleaning.Report) ReportDTO {
	rows := make([]ReportRowDTO, len(report.Rows))
	for i, row := range report.Rows {
		dto := ReportRowDTO{
			Key:            row.Key,
			Name:           row.Name,
			UnitName:       row.UnitName,
			BuildingName:   row.BuildingName,
			ClientName:     row.ClientName,
			JobCount:       row.JobCount,
			Revenue:        amount(row.Revenue),
			Cost:           amount(row.Cost),
			Profit:         amount(row.Profit),
			EstimatedHours: amount(row.EstimatedHours),
			ActualHours:    amount(row.ActualHours),
			Productivity:   row.Productivity.String(),
		}
		if !row.Date.IsZero() {
			dto.Date = row.Date.Format(cleaning.DateLayout)
		}
		rows[i] = dto
	}
	return ReportDTO{GroupBy: report.GroupBy, RangeApplied: report.RangeApplied, Rows: rows}
}

// =============================================================================
// DASHBOARD
// =============================================================================

type ChartPointDTO struct {
	JobID   string `json:"job_id"`
	Date    string `json:"date"`
	Label   string `json:"label"`
	Revenue string `json:"revenue"`
	Cost    string `json:"cost"`
	Profit  string `json:"profit"`
}

type DashboardDTO struct {
	TotalRevenue        string           `json:"total_revenue"`
	TotalCost           string           `json:"total_cost"`
	TotalProfit         string           `json:"total_profit"`
	UpcomingJobs        int              `json:"upcoming_jobs"`
	MonthlyProductivity string           `json:"monthly_productivity"`
	EmployeeHourlyCost  string           `json:"employee_hourly_cost"`
	Today               []AgendaEntryDTO `json:"today"`
	RecentCompleted     []ChartPointDTO  `json:"recent_completed"`
}

func toDashboardDTO(d cleaning.Dashboard) DashboardDTO {
	chart := make([]ChartPointDTO, len(d.RecentCompleted))
	for i, p := range d.RecentCompleted {
		chart[i] = ChartPointDTO{
			JobID:   p.JobID,
			Date:    p.Date.Format(cleaning.DateLayout),
			Label:   p.Label,
			Revenue: amount(p.Revenue),
			Cost:    amount(p.Cost),
			Profit:  amount(p.Profit),
		}
	}
	return DashboardDTO{
		TotalRevenue:        amount(d.TotalRevenue),
		TotalCost:           amount(d.TotalCost),
		TotalProfit:         amount(d.TotalProfit),
		UpcomingJobs:        d.UpcomingJobs,
		MonthlyProductivity: d.MonthlyProductivity.String(),
		EmployeeHourlyCost:  amount(d.EmployeeHourlyCost),
		Today:               toAgendaEntries(d.Today),
		RecentCompleted:     chart,
	}
}

// =============================================================================
// SEED
// =============================================================================

type SeedRequest struct {
	// Reset drops every document before seeding.
	Reset bool `json:"reset"`
}

type SeedResponse struct {
	Documents int  `json:"documents"`
	Reset     bool `json:"reset"`
}
