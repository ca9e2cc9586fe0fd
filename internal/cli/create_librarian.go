package cli

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/mrlokans/checkoutdesk/internal/auth"
	"github.com/mrlokans/checkoutdesk/internal/config"
	"github.com/mrlokans/checkoutdesk/internal/entities"
)

type CreateLibrarianCommand struct {
	Username string
	Password string
	Email    string
	Storage  storageFlags

	Config config.Config
	Out    io.Writer
	// ReadPassword prompts for a password when -password is not given.
	ReadPassword func(prompt string) (string, error)
}

func NewCreateLibrarianCommand(cfg *config.Config) *CreateLibrarianCommand {
	return &CreateLibrarianCommand{Config: *cfg, ReadPassword: promptPassword}
}

func (cmd *CreateLibrarianCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("create-librarian", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Librarian username (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (prompted when omitted)")
	fs.StringVar(&cmd.Email, "email", "", "Optional email address")
	cmd.Storage.register(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-librarian [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a librarian account.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s create-librarian -username admin\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s create-librarian -username admin -driver json -db ./library.json\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if strings.TrimSpace(cmd.Username) == "" {
		fs.Usage()
		return fmt.Errorf("username is required")
	}

	return nil
}

func (cmd *CreateLibrarianCommand) Run() error {
	out := stdout(cmd.Out)

	password := cmd.Password
	if password == "" {
		var err error
		if password, err = cmd.ReadPassword("Password: "); err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		confirm, err := cmd.ReadPassword("Confirm password: ")
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		if confirm != password {
			return fmt.Errorf("passwords do not match")
		}
	}

	backend, err := cmd.Storage.open(cmd.Config.Database)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer backend.Close()

	service := auth.NewService(backend.Store, cmd.Config.Auth)
	account, err := service.CreateAccount(context.Background(), cmd.Username, password, cmd.Email, entities.UserRoleLibrarian)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Created librarian %q\n", account.Username)
	return nil
}

// promptPassword reads without echo from a terminal, or a line from a pipe.
func promptPassword(prompt string) (string, error) {
	fmt.Fprint(os.Stderr, prompt)
	fd := int(syscall.Stdin)
	if !term.IsTerminal(fd) {
		line, err := bufio.NewReader(os.Stdin).ReadString('\n')
		if err != nil && line == "" {
			return "", err
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	bytePassword, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}
	return string(bytePassword), nil
}
