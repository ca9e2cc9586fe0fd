package demo

import (
	"context"
	"testing"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/docstore"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

func TestSeed_PopulatesEmptyCatalog(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	created, err := Seed(ctx, store)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	if created != 3 {
		t.Fatalf("Expected 3 books, got %d", created)
	}

	var books []entities.Book
	_ = store.View(ctx, func(tx circulation.Tx) error {
		books, err = tx.ListBooks()
		return err
	})
	if len(books) != 3 {
		t.Fatalf("Expected 3 stored books, got %d", len(books))
	}
	if books[0].Title != "Harry Potter" || books[0].TotalCopies != 3 || books[0].AvailableCopies != 3 {
		t.Errorf("Unexpected first book: %+v", books[0])
	}
	if books[1].TotalCopies != 2 || books[2].TotalCopies != 2 {
		t.Errorf("Unexpected copy counts: %d, %d", books[1].TotalCopies, books[2].TotalCopies)
	}
}

func TestSeed_LeavesExistingCatalogAlone(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemory()

	if _, err := Seed(ctx, store); err != nil {
		t.Fatalf("first Seed() error = %v", err)
	}
	created, err := Seed(ctx, store)
	if err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if created != 0 {
		t.Errorf("Expected no books on second run, got %d", created)
	}
}
