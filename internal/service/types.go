package service

import "time"

// Tenant is one configured tenant namespace.
type Tenant struct {
	ID     string
	Name   string
	Region string
}

// Account is a tenant candidate returned by the accounts listing.
type Account struct {
	ID     string
	Name   string
	Region string
}

// Task is one enriched work item.
type Task struct {
	ID          string
	Name        string
	Status      string
	DueBy       string
	CreatedAt   string
	TaskType    string
	ProjectName string
	WordCount   int
}

// Snapshot is the immutable aggregated view of one tenant's tasks produced
// by one poll cycle.
type Snapshot struct {
	Tenant        Tenant
	TotalTasks    int
	TasksByStatus map[string]int
	OverdueCount  int
	TotalWords    int
	Tasks         []Task

	// NextDue is the earliest future due date among open tasks; zero when
	// there is none.
	NextDue time.Time

	// Upcoming holds the open tasks due within the next 48 hours.
	Upcoming []Task

	Timestamp time.Time
}

// Notification describes a newly observed task.
type Notification struct {
	TenantID    string
	TenantName  string
	TaskID      string
	TaskName    string
	Status      string
	DueBy       string
	ProjectName string
	TaskType    string
	WordCount   int
}
