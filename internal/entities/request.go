package entities

import "time"

type RequestType string

const (
	RequestTypeCheckout RequestType = "checkout"
	RequestTypeReturn   RequestType = "return"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusApproved RequestStatus = "approved"
	RequestStatusDenied   RequestStatus = "denied"
)

// Request is a pending or decided checkout/return ask. Only one pending
// request may exist per (requester, book, type).
type Request struct {
	ID        uint          `gorm:"primaryKey" json:"id"`
	Type      RequestType   `gorm:"size:20;not null;index:idx_requests_key" json:"type"`
	Requester string        `gorm:"size:100;not null;index:idx_requests_key" json:"requester"`
	BookID    uint          `gorm:"not null;index:idx_requests_key" json:"book_id"`
	Status    RequestStatus `gorm:"size:20;not null;index" json:"status"`
	Note      string        `gorm:"size:255" json:"note,omitempty"`
	DecidedBy string        `gorm:"size:100" json:"decided_by,omitempty"`
	DecidedAt *time.Time    `json:"decided_at,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
}

func (Request) TableName() string {
	return "requests"
}

func (r *Request) IsPending() bool {
	return r.Status == RequestStatusPending
}

func (r *Request) Approve(by string, at time.Time) {
	r.decide(RequestStatusApproved, by, at, "")
}

func (r *Request) Deny(by string, at time.Time, note string) {
	r.decide(RequestStatusDenied, by, at, note)
}

func (r *Request) decide(status RequestStatus, by string, at time.Time, note string) {
	r.Status = status
	r.DecidedBy = by
	r.DecidedAt = &at
	if note != "" {
		r.Note = note
	}
}
