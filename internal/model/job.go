package model

import "time"

// Job is a project that owns cost ledger rows
type Job struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(64)"`
	Name       string    `json:"name" gorm:"type:varchar(255)"`
	Address    string    `json:"address" gorm:"type:varchar(255);not null"`
	FolderName string    `json:"folder_name" gorm:"type:varchar(255)"`
	Active     bool      `json:"active" gorm:"index"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName specifies the table name for Job
func (Job) TableName() string {
	return "jobs"
}

// Folder returns the human-readable archive folder for the job
func (j Job) Folder() string {
	if j.FolderName != "" {
		return j.FolderName
	}
	if j.Address != "" {
		return j.Address
	}
	return j.ID
}

// Employee is a staff member who may send receipts in
type Employee struct {
	ID        string `json:"id" gorm:"primaryKey;type:varchar(64)"`
	FirstName string `json:"first_name" gorm:"type:varchar(100);not null"`
	LastName  string `json:"last_name" gorm:"type:varchar(100)"`
	Email     string `json:"email" gorm:"type:varchar(255);index"`
}

// TableName specifies the table name for Employee
func (Employee) TableName() string {
	return "employees"
}
