package demo

import (
	"context"
	"log"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

// Catalog is the sample collection a fresh installation starts with.
var Catalog = []entities.Book{
	entities.NewBook("Harry Potter", "J.K. Rowling", "9780439708180", 3),
	entities.NewBook("1984", "George Orwell", "9780451524935", 2),
	entities.NewBook("To Kill a Mockingbird", "Harper Lee", "9780060935467", 2),
}

// Seed adds Catalog when the store has no books and returns how many
// books it created. A non-empty catalog is left alone.
func Seed(ctx context.Context, store circulation.Store) (int, error) {
	created := 0
	err := store.Update(ctx, func(tx circulation.Tx) error {
		existing, err := tx.ListBooks()
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}
		for _, b := range Catalog {
			book := b
			if err := tx.CreateBook(&book); err != nil {
				return err
			}
			created++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if created > 0 {
		log.Printf("Demo: seeded %d books", created)
	}
	return created, nil
}
