/*
types.go - Entities of the cleaning operations domain

PURPOSE:
  Plain data types for everything stored in the document store. The
  `doc` tags name the document keys (shared with the JSON API), the
  `validate` tags hold intra-entity rules checked on add and update.

ENTITIES:
  Client       Customer; linked to buildings via Building.ClientIDs
  Building     Groups units; many-to-many with clients
  Unit         Cleanable space; input of the estimation formula
  Employee     Minimal identity referenced by jobs and teams
  Team         Named employee set (at least two members)
  SystemConfig Singleton rates used by estimation and reporting
  Job          Scheduled cleaning of one unit
  Profile      Role-bearing user record keyed by identity subject

REFERENCES:
  References are plain ids and may dangle. Joins substitute "N/A" at read
  time; nothing here enforces referential integrity.

SEE ALSO:
  - codec.go: Document <-> struct conversion
  - repository.go: Generic CRUD over the entity kinds
  - jobs.go: Job adapter
*/
package cleaning

import (
	"time"

	"github.com/alexisbanda/operations-management-system/docstore"
)

// =============================================================================
// ENUMERATIONS
// =============================================================================

type Role string

const (
	RoleAdmin      Role = "admin"
	RoleSupervisor Role = "supervisor"
	RoleWorker     Role = "worker"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSupervisor || r == RoleWorker
}

// JobStatus has no enforced transitions; any value may replace any other.
type JobStatus string

const (
	StatusScheduled JobStatus = "scheduled"
	StatusCompleted JobStatus = "completed"
	StatusCanceled  JobStatus = "canceled"
)

func (s JobStatus) Valid() bool {
	return s == StatusScheduled || s == StatusCompleted || s == StatusCanceled
}

// Recurrence is the repeat rule of a job request.
type Recurrence string

const (
	RecurrenceNone     Recurrence = "none"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
)

func (r Recurrence) Valid() bool {
	switch r {
	case "", RecurrenceNone, RecurrenceDaily, RecurrenceWeekly, RecurrenceBiweekly, RecurrenceMonthly:
		return true
	}
	return false
}

// IsRecurring reports whether r produces more than a single job.
func (r Recurrence) IsRecurring() bool {
	return r != "" && r != RecurrenceNone
}

// =============================================================================
// COLLECTIONS
// =============================================================================

const (
	CollectionJobs     = "jobs"
	CollectionSettings = "settings"
	CollectionUsers    = "users"

	// SettingsDocID is the fixed key of the SystemConfig document.
	SettingsDocID = "main"
)

// =============================================================================
// REFERENCE ENTITIES
// =============================================================================

type Client struct {
	ID          string `json:"id" doc:"id"`
	Name        string `json:"name" doc:"name" validate:"required"`
	ContactInfo string `json:"contact_info" doc:"contact_info"`
	Phone       string `json:"phone" doc:"phone"`
	Email       string `json:"email" doc:"email" validate:"omitempty,email"`
}

func (c Client) fields() docstore.Fields {
	return docstore.Fields{
		"name":         c.Name,
		"contact_info": c.ContactInfo,
		"phone":        c.Phone,
		"email":        c.Email,
	}
}

func (c *Client) setID(id string) { c.ID = id }

type Building struct {
	ID         string   `json:"id" doc:"id"`
	Name       string   `json:"name" doc:"name" validate:"required"`
	Address    string   `json:"address" doc:"address"`
	ClientIDs  []string `json:"client_ids" doc:"client_ids"`
	AccessCode string   `json:"access_code" doc:"access_code"`
}

func (b Building) fields() docstore.Fields {
	return docstore.Fields{
		"name":        b.Name,
		"address":     b.Address,
		"client_ids":  nonNil(b.ClientIDs),
		"access_code": b.AccessCode,
	}
}

func (b *Building) setID(id string) { b.ID = id }

// HasClient reports whether clientID is associated with the building.
func (b Building) HasClient(clientID string) bool {
	for _, id := range b.ClientIDs {
		if id == clientID {
			return true
		}
	}
	return false
}

type Unit struct {
	ID              string  `json:"id" doc:"id"`
	NameIdentifier  string  `json:"name_identifier" doc:"name_identifier" validate:"required"`
	BuildingID      string  `json:"building_id" doc:"building_id" validate:"required"`
	SquareMeters    float64 `json:"square_meters" doc:"square_meters" validate:"gte=0"`
	RoomCount       int     `json:"room_count" doc:"room_count" validate:"gte=0"`
	BathroomCount   int     `json:"bathroom_count" doc:"bathroom_count" validate:"gte=0"`
	FloorType       string  `json:"floor_type" doc:"floor_type"`
	HasLargeWindows bool    `json:"has_large_windows" doc:"has_large_windows"`
	FixedPrice      float64 `json:"fixed_price" doc:"fixed_price" validate:"gte=0"`
	AccessCode      string  `json:"access_code" doc:"access_code"`
}

func (u Unit) fields() docstore.Fields {
	return docstore.Fields{
		"name_identifier":   u.NameIdentifier,
		"building_id":       u.BuildingID,
		"square_meters":     u.SquareMeters,
		"room_count":        u.RoomCount,
		"bathroom_count":    u.BathroomCount,
		"floor_type":        u.FloorType,
		"has_large_windows": u.HasLargeWindows,
		"fixed_price":       u.FixedPrice,
		"access_code":       u.AccessCode,
	}
}

func (u *Unit) setID(id string) { u.ID = id }

type Employee struct {
	ID   string `json:"id" doc:"id"`
	Name string `json:"name" doc:"name" validate:"required"`
}

func (e Employee) fields() docstore.Fields {
	return docstore.Fields{"name": e.Name}
}

func (e *Employee) setID(id string) { e.ID = id }

// Team is a selection shortcut. Jobs never store a team reference; the
// members are expanded into Job.AssignedTeam at assignment time.
type Team struct {
	ID          string   `json:"id" doc:"id"`
	Name        string   `json:"name" doc:"name" validate:"required"`
	EmployeeIDs []string `json:"employee_ids" doc:"employee_ids" validate:"min=2,unique"`
}

func (t Team) fields() docstore.Fields {
	return docstore.Fields{
		"name":         t.Name,
		"employee_ids": nonNil(t.EmployeeIDs),
	}
}

func (t *Team) setID(id string) { t.ID = id }

// =============================================================================
// CONFIGURATION
// =============================================================================

// SystemConfig holds the estimation rates and the labor cost rate.
type SystemConfig struct {
	MinutesPerSqMeter  float64 `json:"minutes_per_sq_meter" doc:"minutes_per_sq_meter" validate:"gte=0"`
	MinutesPerRoom     float64 `json:"minutes_per_room" doc:"minutes_per_room" validate:"gte=0"`
	MinutesPerBathroom float64 `json:"minutes_per_bathroom" doc:"minutes_per_bathroom" validate:"gte=0"`
	MinutesForWindows  float64 `json:"minutes_for_windows" doc:"minutes_for_windows" validate:"gte=0"`
	EmployeeHourlyCost float64 `json:"employee_hourly_cost" doc:"employee_hourly_cost" validate:"gte=0"`
}

// DefaultConfig is used whenever no settings document has been saved.
func DefaultConfig() SystemConfig {
	return SystemConfig{
		MinutesPerSqMeter:  0.5,
		MinutesPerRoom:     15,
		MinutesPerBathroom: 25,
		MinutesForWindows:  30,
		EmployeeHourlyCost: 20,
	}
}

func (c SystemConfig) fields() docstore.Fields {
	return docstore.Fields{
		"minutes_per_sq_meter": c.MinutesPerSqMeter,
		"minutes_per_room":     c.MinutesPerRoom,
		"minutes_per_bathroom": c.MinutesPerBathroom,
		"minutes_for_windows":  c.MinutesForWindows,
		"employee_hourly_cost": c.EmployeeHourlyCost,
	}
}

// =============================================================================
// JOBS
// =============================================================================

// Job is one scheduled cleaning of a unit.
//
// EstimatedHours is written once at creation and never recomputed.
// Recurring jobs carry RecurrenceEndDate and a RecurrenceGroupID shared by
// the whole series; one-off jobs carry neither.
type Job struct {
	ID                string     `json:"id" doc:"id"`
	UnitID            string     `json:"unit_id" doc:"unit_id"`
	Date              time.Time  `json:"job_date" doc:"job_date"`
	Status            JobStatus  `json:"status" doc:"status"`
	EstimatedHours    float64    `json:"estimated_hours" doc:"estimated_hours"`
	ActualHours       *float64   `json:"actual_hours,omitempty" doc:"actual_hours"`
	InvoicedPrice     *float64   `json:"invoiced_price,omitempty" doc:"invoiced_price"`
	AssignedTeam      []string   `json:"assigned_team" doc:"assigned_team"`
	Notes             string     `json:"notes,omitempty" doc:"notes"`
	Recurrence        Recurrence `json:"recurrence" doc:"recurrence"`
	RecurrenceEndDate *time.Time `json:"recurrence_end_date,omitempty" doc:"recurrence_end_date"`
	RecurrenceGroupID string     `json:"recurrence_group_id,omitempty" doc:"recurrence_group_id"`
}

func (j Job) fields() docstore.Fields {
	f := docstore.Fields{
		"unit_id":         j.UnitID,
		"job_date":        docstore.NewTimestamp(j.Date),
		"status":          string(j.Status),
		"estimated_hours": j.EstimatedHours,
		"assigned_team":   nonNil(j.AssignedTeam),
		"recurrence":      string(j.Recurrence),
	}
	if j.ActualHours != nil {
		f["actual_hours"] = *j.ActualHours
	}
	if j.InvoicedPrice != nil {
		f["invoiced_price"] = *j.InvoicedPrice
	}
	if j.Notes != "" {
		f["notes"] = j.Notes
	}
	if j.RecurrenceEndDate != nil {
		f["recurrence_end_date"] = docstore.NewTimestamp(*j.RecurrenceEndDate)
	}
	if j.RecurrenceGroupID != "" {
		f["recurrence_group_id"] = j.RecurrenceGroupID
	}
	return f
}

// =============================================================================
// PROFILES
// =============================================================================

// Profile is stored in the users collection under the identity subject.
type Profile struct {
	Subject string `json:"id" doc:"id"`
	Email   string `json:"email" doc:"email"`
	Role    Role   `json:"role" doc:"role"`
}

func (p Profile) fields() docstore.Fields {
	return docstore.Fields{"email": p.Email, "role": string(p.Role)}
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return append([]string(nil), ids...)
}
