// Package models holds the admin roster types.
package models

import (
	id "studentreg/pkg/domain"
	dErrors "studentreg/pkg/domain-errors"
)

// Status is the admin decision recorded for a student.
type Status string

const (
	StatusPending  Status = "Pending"
	StatusApproved Status = "Approved"
	StatusRejected Status = "Rejected"
)

// Statuses lists the selectable statuses in display order.
var Statuses = []Status{StatusPending, StatusApproved, StatusRejected}

// ParseStatus accepts exactly one of Statuses.
func ParseStatus(s string) (Status, error) {
	for _, st := range Statuses {
		if string(st) == s {
			return st, nil
		}
	}
	return "", dErrors.New(dErrors.CodeValidation, "status must be one of Pending, Approved, Rejected")
}

// Student is one roster row.
type Student struct {
	ID        id.StudentID `json:"id"`
	Name      string       `json:"name"`
	Email     string       `json:"email"`
	Phone     string       `json:"phone"`
	College   string       `json:"college"`
	Degree    string       `json:"degree"`
	Year      int          `json:"year"`
	BirthDate string       `json:"birth_date"`
	Status    Status       `json:"status"`
}
