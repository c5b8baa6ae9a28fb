package domain

import "time"

// StaffRecord is a member accepted by the superuser.
type StaffRecord struct {
	Identity  Identity  `json:"identity"`
	Alias     string    `json:"alias"`
	Role      Role      `json:"role"`
	Phone     string    `json:"phone,omitempty"`
	FileID    string    `json:"file_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BlacklistRecord is a rejected applicant.
type BlacklistRecord struct {
	Identity  Identity  `json:"identity"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
}

// Decision is the reviewer's verdict on an application.
type Decision string

const (
	DecisionAccepted Decision = "accepted"
	DecisionRejected Decision = "rejected"
)
