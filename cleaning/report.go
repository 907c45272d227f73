/*
report.go - Financial and productivity reporting over completed jobs

PURPOSE:
  Pure aggregation pipeline. Given the job, unit, building and client
  collections plus the configuration, produces display-ready rows for one
  of three views.

PIPELINE:
  1. Filter   status == completed; optional inclusive day window. A window
              whose start is after its end is ignored (all completed jobs).
  2. Enrich   job -> unit -> building -> first client, in clients order,
              listed in building.client_ids. Unresolved names are "N/A".
              revenue = invoiced_price ?? unit.fixed_price ?? 0
              cost    = (actual_hours ?? 0) * employee_hourly_cost
              profit  = revenue - cost
  3. Group    service:  one row per job, date descending
              client:   per client id, profit descending
              building: per building id, profit descending
              Jobs whose client/building is unresolved are left out of
              the grouped views. All sorts are stable.
  4. Derive   productivity
              service: estimated / actual * 100           (actual > 0)
              groups:  sum(estimated) / sum(actual) * 100 (sum > 0)
              A group's productivity is a ratio of sums, never an
              average of per-job ratios.

INVARIANTS:
  - No writes, no clock, no mutation of the input slices.
  - Same input (including order) gives the same output.

SEE ALSO:
  - dashboard.go: KPI summary built on the same enrichment
  - api/reports.go: HTTP + spreadsheet rendering
*/
package cleaning

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// NotApplicable labels unresolved names and undefined productivity.
const NotApplicable = "N/A"

var hundred = decimal.NewFromInt(100)

// =============================================================================
// TYPES
// =============================================================================

type GroupBy string

const (
	GroupByService  GroupBy = "service"
	GroupByClient   GroupBy = "client"
	GroupByBuilding GroupBy = "building"
)

func (g GroupBy) Valid() bool {
	return g == GroupByService || g == GroupByClient || g == GroupByBuilding
}

// Productivity is a percentage that may be undefined (no actual hours).
type Productivity struct {
	Percent decimal.Decimal
	Valid   bool
}

func productivityOf(estimated, actual decimal.Decimal) Productivity {
	if !actual.IsPositive() {
		return Productivity{}
	}
	return Productivity{Percent: estimated.Div(actual).Mul(hundred), Valid: true}
}

// String renders the whole-number percentage, e.g. "80%", or "N/A".
func (p Productivity) String() string {
	if !p.Valid {
		return NotApplicable
	}
	return p.Percent.StringFixed(0) + "%"
}

// ReportInput is everything Aggregate reads.
type ReportInput struct {
	Jobs      []Job
	Units     []Unit
	Buildings []Building
	Clients   []Client
	Config    SystemConfig
	Range     *DateRange
	GroupBy   GroupBy
}

// ReportRow is one line of a report. Date, UnitName, BuildingName and
// ClientName are only set in the service view; Name holds the unit name
// (service) or the group's name (client, building).
type ReportRow struct {
	Key            string
	Name           string
	Date           time.Time
	UnitName       string
	BuildingName   string
	ClientName     string
	JobCount       int
	Revenue        decimal.Decimal
	Cost           decimal.Decimal
	Profit         decimal.Decimal
	EstimatedHours decimal.Decimal
	ActualHours    decimal.Decimal
	Productivity   Productivity
}

type Report struct {
	GroupBy GroupBy
	// RangeApplied is false when no range was given or it was ignored.
	RangeApplied bool
	Rows         []ReportRow
}

// =============================================================================
// DIRECTORY - Read-time joins with placeholder fallback
// =============================================================================

type directory struct {
	units     map[string]Unit
	buildings map[string]Building
	clients   []Client
	employees map[string]Employee
}

func newDirectory(units []Unit, buildings []Building, clients []Client, employees []Employee) directory {
	d := directory{
		units:     make(map[string]Unit, len(units)),
		buildings: make(map[string]Building, len(buildings)),
		clients:   clients,
		employees: make(map[string]Employee, len(employees)),
	}
	for _, u := range units {
		d.units[u.ID] = u
	}
	for _, b := range buildings {
		d.buildings[b.ID] = b
	}
	for _, e := range employees {
		d.employees[e.ID] = e
	}
	return d
}

func (d directory) unit(id string) (Unit, bool) {
	u, ok := d.units[id]
	return u, ok
}

func (d directory) buildingOf(unitID string) (Building, bool) {
	u, ok := d.units[unitID]
	if !ok {
		return Building{}, false
	}
	b, ok := d.buildings[u.BuildingID]
	return b, ok
}

// clientOf returns the first client, in clients order, associated with b.
func (d directory) clientOf(b Building) (Client, bool) {
	if len(b.ClientIDs) == 0 {
		return Client{}, false
	}
	for _, c := range d.clients {
		if b.HasClient(c.ID) {
			return c, true
		}
	}
	return Client{}, false
}

func (d directory) employeeNames(ids []string) []string {
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if e, ok := d.employees[id]; ok {
			names = append(names, e.Name)
		} else {
			names = append(names, NotApplicable)
		}
	}
	return names
}

// =============================================================================
// ENRICHMENT
// =============================================================================

type enrichedJob struct {
	job          Job
	unitName     string
	buildingID   string
	buildingName string
	clientID     string
	clientName   string
	revenue      decimal.Decimal
	cost         decimal.Decimal
	estimated    decimal.Decimal
	actual       decimal.Decimal
}

func (e enrichedJob) profit() decimal.Decimal { return e.revenue.Sub(e.cost) }

func (d directory) enrich(job Job, hourlyCost decimal.Decimal) enrichedJob {
	e := enrichedJob{
		job:          job,
		unitName:     NotApplicable,
		buildingName: NotApplicable,
		clientName:   NotApplicable,
		revenue:      decimal.Zero,
		estimated:    decimal.NewFromFloat(job.EstimatedHours),
		actual:       decimal.Zero,
	}

	unit, hasUnit := d.unit(job.UnitID)
	if hasUnit {
		e.unitName = unit.NameIdentifier
		if b, ok := d.buildingOf(job.UnitID); ok {
			e.buildingID = b.ID
			e.buildingName = b.Name
			if c, ok := d.clientOf(b); ok {
				e.clientID = c.ID
				e.clientName = c.Name
			}
		}
	}

	switch {
	case job.InvoicedPrice != nil:
		e.revenue = decimal.NewFromFloat(*job.InvoicedPrice)
	case hasUnit:
		e.revenue = decimal.NewFromFloat(unit.FixedPrice)
	}
	if job.ActualHours != nil {
		e.actual = decimal.NewFromFloat(*job.ActualHours)
	}
	e.cost = e.actual.Mul(hourlyCost)
	return e
}

// completedJobs returns the completed jobs inside r (when r is usable),
// preserving input order, and whether the range was applied.
func completedJobs(jobs []Job, r *DateRange) ([]Job, bool) {
	applyRange := r != nil && r.Valid()
	out := make([]Job, 0, len(jobs))
	for _, j := range jobs {
		if j.Status != StatusCompleted {
			continue
		}
		if applyRange && !r.Contains(j.Date) {
			continue
		}
		out = append(out, j)
	}
	return out, applyRange
}

// =============================================================================
// AGGREGATE
// =============================================================================

// Aggregate builds the report for in.GroupBy. An unknown GroupBy is treated
// as the service view.
func Aggregate(in ReportInput) Report {
	jobs, applied := completedJobs(in.Jobs, in.Range)
	dir := newDirectory(in.Units, in.Buildings, in.Clients, nil)
	hourly := decimal.NewFromFloat(in.Config.EmployeeHourlyCost)

	enriched := make([]enrichedJob, len(jobs))
	for i, j := range jobs {
		enriched[i] = dir.enrich(j, hourly)
	}

	report := Report{GroupBy: in.GroupBy, RangeApplied: applied}
	switch in.GroupBy {
	case GroupByClient:
		report.Rows = groupRows(enriched, func(e enrichedJob) (string, string) { return e.clientID, e.clientName })
	case GroupByBuilding:
		report.Rows = groupRows(enriched, func(e enrichedJob) (string, string) { return e.buildingID, e.buildingName })
	default:
		report.GroupBy = GroupByService
		report.Rows = serviceRows(enriched)
	}
	return report
}

func serviceRows(enriched []enrichedJob) []ReportRow {
	rows := make([]ReportRow, len(enriched))
	for i, e := range enriched {
		rows[i] = ReportRow{
			Key:            e.job.ID,
			Name:           e.unitName,
			Date:           e.job.Date,
			UnitName:       e.unitName,
			BuildingName:   e.buildingName,
			ClientName:     e.clientName,
			JobCount:       1,
			Revenue:        e.revenue,
			Cost:           e.cost,
			Profit:         e.profit(),
			EstimatedHours: e.estimated,
			ActualHours:    e.actual,
			Productivity:   productivityOf(e.estimated, e.actual),
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.After(rows[j].Date)
	})
	return rows
}

// groupRows accumulates per key in first-appearance order, then sorts by
// profit. Jobs with an empty key are dropped.
func groupRows(enriched []enrichedJob, keyOf func(enrichedJob) (id, name string)) []ReportRow {
	index := make(map[string]int)
	var rows []ReportRow
	for _, e := range enriched {
		id, name := keyOf(e)
		if id == "" {
			continue
		}
		i, ok := index[id]
		if !ok {
			i = len(rows)
			index[id] = i
			rows = append(rows, ReportRow{
				Key:            id,
				Name:           name,
				Revenue:        decimal.Zero,
				Cost:           decimal.Zero,
				EstimatedHours: decimal.Zero,
				ActualHours:    decimal.Zero,
			})
		}
		row := &rows[i]
		row.JobCount++
		row.Revenue = row.Revenue.Add(e.revenue)
		row.Cost = row.Cost.Add(e.cost)
		row.EstimatedHours = row.EstimatedHours.Add(e.estimated)
		row.ActualHours = row.ActualHours.Add(e.actual)
	}

	for i := range rows {
		rows[i].Profit = rows[i].Revenue.Sub(rows[i].Cost)
		rows[i].Productivity = productivityOf(rows[i].EstimatedHours, rows[i].ActualHours)
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Profit.GreaterThan(rows[j].Profit)
	})
	if rows == nil {
		rows = []ReportRow{}
	}
	return rows
}
