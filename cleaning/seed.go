package cleaning

import (
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
)

// =============================================================================
// SAMPLE DATA
// =============================================================================

// SampleWrites returns a small demo data set as one batch: two clients,
// two buildings, three units, four employees, two teams and a handful of
// jobs around today. Every document has a fixed id and is written with
// Set, so seeding twice overwrites instead of duplicating.
//
// Job estimates are computed from cfg like any created job.
func SampleWrites(cfg SystemConfig, today time.Time) []docstore.Write {
	clients := []Client{
		{ID: "c1", Name: "Acme Property Group", ContactInfo: "Laura Vega", Phone: "+593 2 555 0101", Email: "ops@acme.example"},
		{ID: "c2", Name: "Northwind Residences", ContactInfo: "Tomas Reyes", Phone: "+593 2 555 0202", Email: "admin@northwind.example"},
	}
	buildings := []Building{
		{ID: "b1", Name: "Harbor View Tower", Address: "Av. Amazonas 1200", ClientIDs: []string{"c1"}, AccessCode: "4410"},
		{ID: "b2", Name: "Parkside Lofts", Address: "Calle Larrea 35", ClientIDs: []string{"c2", "c1"}},
	}
	units := []Unit{
		{ID: "u1", NameIdentifier: "Apt 101", BuildingID: "b1", SquareMeters: 85, RoomCount: 3, BathroomCount: 2, FloorType: "wood", HasLargeWindows: true, FixedPrice: 120},
		{ID: "u2", NameIdentifier: "Penthouse", BuildingID: "b1", SquareMeters: 210, RoomCount: 5, BathroomCount: 3, FloorType: "marble", HasLargeWindows: true, FixedPrice: 320},
		{ID: "u3", NameIdentifier: "Loft 4B", BuildingID: "b2", SquareMeters: 60, RoomCount: 2, BathroomCount: 1, FloorType: "tile", FixedPrice: 90},
	}
	employees := []Employee{
		{ID: "e1", Name: "Maria Torres"},
		{ID: "e2", Name: "Jorge Paredes"},
		{ID: "e3", Name: "Lucia Mendez"},
		{ID: "e4", Name: "Pedro Salazar"},
	}
	teams := []Team{
		{ID: "t1", Name: "Morning crew", EmployeeIDs: []string{"e1", "e2"}},
		{ID: "t2", Name: "Deep clean", EmployeeIDs: []string{"e3", "e4"}},
	}

	day := StartOfDay(today)
	at := func(offsetDays, hour int) time.Time {
		return day.AddDate(0, 0, offsetDays).Add(time.Duration(hour) * time.Hour)
	}
	hours := func(v float64) *float64 { return &v }
	unitByID := make(map[string]Unit, len(units))
	for _, u := range units {
		unitByID[u.ID] = u
	}
	job := func(id, unitID string, date time.Time, status JobStatus, team []string) Job {
		return Job{
			ID:             id,
			UnitID:         unitID,
			Date:           date,
			Status:         status,
			EstimatedHours: Estimate(unitByID[unitID], cfg),
			AssignedTeam:   team,
			Recurrence:     RecurrenceNone,
		}
	}

	jobs := []Job{
		job("j1", "u1", at(-3, 9), StatusCompleted, []string{"e1", "e2"}),
		job("j2", "u3", at(-1, 14), StatusCompleted, []string{"e3"}),
		job("j3", "u2", at(0, 10), StatusScheduled, []string{"e3", "e4"}),
		job("j4", "u3", at(0, 15), StatusScheduled, []string{"e1"}),
		job("j5", "u1", at(1, 9), StatusScheduled, []string{"e1", "e2"}),
		job("j6", "u2", at(2, 8), StatusCanceled, []string{"e4"}),
	}
	jobs[0].ActualHours = hours(3)
	jobs[0].InvoicedPrice = hours(135)
	jobs[1].ActualHours = hours(1.5)
	jobs[1].Notes = "Client asked for balcony glass too"

	var writes []docstore.Write
	for _, c := range clients {
		writes = append(writes, docstore.SetWrite(string(KindClients), c.ID, c.fields()))
	}
	for _, b := range buildings {
		writes = append(writes, docstore.SetWrite(string(KindBuildings), b.ID, b.fields()))
	}
	for _, u := range units {
		writes = append(writes, docstore.SetWrite(string(KindUnits), u.ID, u.fields()))
	}
	for _, e := range employees {
		writes = append(writes, docstore.SetWrite(string(KindEmployees), e.ID, e.fields()))
	}
	for _, t := range teams {
		writes = append(writes, docstore.SetWrite(string(KindTeams), t.ID, t.fields()))
	}
	for _, j := range jobs {
		writes = append(writes, docstore.SetWrite(CollectionJobs, j.ID, j.fields()))
	}
	return writes
}
