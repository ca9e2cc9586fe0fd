package cli

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/checkoutdesk/internal/circulation"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entities"
	"github.com/mrlokans/checkoutdesk/internal/entrypoint"
)

// systemLibrarian is the actor for catalog changes made from the command line.
var systemLibrarian = circulation.Actor{Username: "cli", Role: entities.UserRoleLibrarian}

type AddBookCommand struct {
	Title   string
	Author  string
	ISBN    string
	Copies  int
	Storage storageFlags

	Config config.Config
	Out    io.Writer
}

func NewAddBookCommand(cfg *config.Config) *AddBookCommand {
	return &AddBookCommand{Config: *cfg}
}

func (cmd *AddBookCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("add-book", flag.ExitOnError)

	fs.StringVar(&cmd.Title, "title", "", "Book title (required)")
	fs.StringVar(&cmd.Author, "author", "", "Book author (required)")
	fs.StringVar(&cmd.ISBN, "isbn", "", "Optional ISBN")
	fs.IntVar(&cmd.Copies, "copies", 1, "Number of copies")
	cmd.Storage.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s add-book [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Add a book to the catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s add-book -title \"Dune\" -author \"Frank Herbert\" -copies 2\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Title == "" || cmd.Author == "" {
		fs.Usage()
		return fmt.Errorf("title and author are required")
	}

	return nil
}

func (cmd *AddBookCommand) Run() error {
	backend, err := cmd.Storage.open(cmd.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	engine := entrypoint.NewEngine(backend.Store, cmd.Config.Circulation)
	book, err := engine.AddBook(context.Background(), systemLibrarian, cmd.Title, cmd.Author, cmd.ISBN, cmd.Copies)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout(cmd.Out), "Added book #%d: %q by %s (%d copies)\n", book.ID, book.Title, book.Author, book.TotalCopies)
	return nil
}
