package models

import (
	"time"
)

// RoleName enumerates the RBAC roles.
type RoleName string

const (
	RoleAdmin   RoleName = "admin"
	RoleManager RoleName = "manager"
	RoleForeman RoleName = "foreman"
	RoleWorker  RoleName = "worker"
	RoleClient  RoleName = "client"
)

// User represents an authenticated account.
type User struct {
	ID        string `gorm:"type:uuid;primaryKey"`
	Email     string `gorm:"uniqueIndex"`
	Password  string
	Name      string
	Role      RoleName `gorm:"type:varchar(16)"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobStatus tracks a job through its commercial lifecycle.
type JobStatus string

const (
	JobBidding   JobStatus = "bidding"
	JobActive    JobStatus = "active"
	JobOnHold    JobStatus = "on-hold"
	JobCompleted JobStatus = "completed"
)

// Job is a construction project with a physical site. Latitude,
// longitude and the fence radius define the geofence used for
// location-verified time tracking.
type Job struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	Name          string `gorm:"index"`
	ClientName    string
	Address       string    `gorm:"type:text"`
	Status        JobStatus `gorm:"type:varchar(16)"`
	Latitude      float64
	Longitude     float64
	FenceRadiusM  float64
	StartDate     *time.Time
	EndDate       *time.Time
	ContractValue float64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Employee is a crew member available for scheduling and time tracking.
type Employee struct {
	ID         string `gorm:"type:uuid;primaryKey"`
	Name       string `gorm:"index"`
	Trade      string `gorm:"type:varchar(32)"`
	Phone      string
	Email      string
	HourlyRate float64
	Active     bool `gorm:"index"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Document is a key/value row holding one serialized JSON document.
// The crew schedule list is stored wholesale under a fixed key.
type Document struct {
	Key       string `gorm:"primaryKey;type:varchar(128)"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

// TimeEntry records one clock-in/clock-out pair, optionally verified
// against the job geofence. An entry punched outside the fence is kept
// but flagged for payroll review.
type TimeEntry struct {
	ID            string `gorm:"type:uuid;primaryKey"`
	EmployeeID    string `gorm:"type:uuid;index"`
	JobID         string `gorm:"type:uuid;index"`
	ClockIn       time.Time
	ClockOut      *time.Time
	ClockInLat    *float64
	ClockInLng    *float64
	ClockOutLat   *float64
	ClockOutLng   *float64
	FenceVerified bool
	Flagged       bool `gorm:"index"`
	Note          string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// DeliveryStatus tracks supplier deliveries.
type DeliveryStatus string

const (
	DeliveryOrdered   DeliveryStatus = "ordered"
	DeliveryInTransit DeliveryStatus = "in-transit"
	DeliveryReceived  DeliveryStatus = "received"
	DeliveryRejected  DeliveryStatus = "rejected"
)

// Delivery is a supplier delivery expected at a job site.
type Delivery struct {
	ID           string `gorm:"type:uuid;primaryKey"`
	JobID        string `gorm:"type:uuid;index"`
	Supplier     string
	Material     string
	Quantity     float64
	Unit         string         `gorm:"type:varchar(16)"`
	Status       DeliveryStatus `gorm:"type:varchar(16)"`
	ExpectedDate *time.Time
	ReceivedAt   *time.Time
	PhotoKey     string
	Notes        string `gorm:"type:text"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IncidentSeverity grades safety incidents.
type IncidentSeverity string

const (
	IncidentMinor    IncidentSeverity = "minor"
	IncidentSerious  IncidentSeverity = "serious"
	IncidentCritical IncidentSeverity = "critical"
)

// Incident is a safety incident reported at a job site.
type Incident struct {
	ID          string `gorm:"type:uuid;primaryKey"`
	JobID       string `gorm:"type:uuid;index"`
	ReportedBy  string `gorm:"type:uuid"`
	Severity    IncidentSeverity `gorm:"type:varchar(16);index"`
	Description string           `gorm:"type:text"`
	OccurredAt  time.Time
	PhotoKey    string
	Resolved    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
