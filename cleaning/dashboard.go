package cleaning

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DASHBOARD - KPI summary
// =============================================================================

// RecentChartSize is how many completed jobs the dashboard chart shows.
const RecentChartSize = 10

type DashboardInput struct {
	Jobs      []Job
	Units     []Unit
	Buildings []Building
	Clients   []Client
	Employees []Employee
	Config    SystemConfig
	Location  *time.Location
}

// ChartPoint is one completed job in the revenue/cost chart.
type ChartPoint struct {
	JobID   string
	Date    time.Time
	Label   string
	Revenue decimal.Decimal
	Cost    decimal.Decimal
	Profit  decimal.Decimal
}

type Dashboard struct {
	TotalRevenue decimal.Decimal
	TotalCost    decimal.Decimal
	TotalProfit  decimal.Decimal
	// UpcomingJobs counts scheduled jobs dated now or later.
	UpcomingJobs int
	// MonthlyProductivity covers completed jobs of the last month, as a
	// ratio of summed estimated to summed actual hours.
	MonthlyProductivity Productivity
	EmployeeHourlyCost  decimal.Decimal
	Today               []AgendaEntry
	RecentCompleted     []ChartPoint
}

// Summarize computes the dashboard as of now.
func Summarize(in DashboardInput, now time.Time) Dashboard {
	loc := mustLocation(in.Location)
	dir := newDirectory(in.Units, in.Buildings, in.Clients, in.Employees)
	hourly := decimal.NewFromFloat(in.Config.EmployeeHourlyCost)

	d := Dashboard{
		TotalRevenue:       decimal.Zero,
		TotalCost:          decimal.Zero,
		TotalProfit:        decimal.Zero,
		EmployeeHourlyCost: hourly,
		Today:              []AgendaEntry{},
		RecentCompleted:    []ChartPoint{},
	}

	monthAgo := now.AddDate(0, -1, 0)
	monthEst, monthAct := decimal.Zero, decimal.Zero
	var completed []enrichedJob

	for _, job := range in.Jobs {
		switch job.Status {
		case StatusCompleted:
			e := dir.enrich(job, hourly)
			completed = append(completed, e)
			d.TotalRevenue = d.TotalRevenue.Add(e.revenue)
			d.TotalCost = d.TotalCost.Add(e.cost)
			if !job.Date.Before(monthAgo) && !job.Date.After(now) {
				monthEst = monthEst.Add(e.estimated)
				monthAct = monthAct.Add(e.actual)
			}
		case StatusScheduled:
			if !job.Date.Before(now) {
				d.UpcomingJobs++
			}
		}
		if SameDay(job.Date, now, loc) {
			d.Today = append(d.Today, dir.agendaEntry(job))
		}
	}
	d.TotalProfit = d.TotalRevenue.Sub(d.TotalCost)
	d.MonthlyProductivity = productivityOf(monthEst, monthAct)
	sortEntries(d.Today)

	sort.SliceStable(completed, func(i, j int) bool {
		return completed[i].job.Date.Before(completed[j].job.Date)
	})
	if len(completed) > RecentChartSize {
		completed = completed[len(completed)-RecentChartSize:]
	}
	for _, e := range completed {
		d.RecentCompleted = append(d.RecentCompleted, ChartPoint{
			JobID:   e.job.ID,
			Date:    e.job.Date,
			Label:   e.unitName,
			Revenue: e.revenue,
			Cost:    e.cost,
			Profit:  e.profit(),
		})
	}
	return d
}
