package entities

import (
	"errors"
	"time"
)

var ErrNoCopiesAvailable = errors.New("no copies available")

type Book struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	Title           string    `gorm:"index;size:512;not null" json:"title"`
	Author          string    `gorm:"index;size:256;not null" json:"author"`
	ISBN            string    `gorm:"index;size:20" json:"isbn,omitempty"`
	TotalCopies     int       `gorm:"not null" json:"total_copies"`
	AvailableCopies int       `gorm:"not null" json:"available_copies"`
	TimesBorrowed   int       `gorm:"not null;default:0" json:"times_borrowed"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

func (Book) TableName() string {
	return "books"
}

// NewBook returns a catalog entry with every copy on the shelf.
// Negative copy counts are clamped to zero.
func NewBook(title, author, isbn string, copies int) Book {
	if copies < 0 {
		copies = 0
	}
	return Book{
		Title:           title,
		Author:          author,
		ISBN:            isbn,
		TotalCopies:     copies,
		AvailableCopies: copies,
	}
}

func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// CheckOut takes one copy off the shelf and counts the borrow.
func (b *Book) CheckOut() error {
	if b.AvailableCopies <= 0 {
		return ErrNoCopiesAvailable
	}
	b.AvailableCopies--
	b.TimesBorrowed++
	return nil
}

// CheckIn puts one copy back, never exceeding the total.
func (b *Book) CheckIn() {
	if b.AvailableCopies < b.TotalCopies {
		b.AvailableCopies++
	}
}
