// Command accounts creates and removes user accounts directly in the database.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/isdelr/expense-tracker-be/internal/apperr"
	"github.com/isdelr/expense-tracker-be/internal/database"
	"github.com/isdelr/expense-tracker-be/internal/services"
	"golang.org/x/term"
)

const usage = "Usage: accounts <add|delete> [flags]"

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	if len(args) == 0 {
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("missing command")
	}

	switch args[0] {
	case "add":
		return runAdd(ctx, args[1:], stdin, stdout, stderr)
	case "delete":
		return runDelete(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		fmt.Fprintln(stdout, usage)
		return flag.ErrHelp
	default:
		fmt.Fprintln(stderr, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

func defaultDBPath() string {
	if path := os.Getenv("DATABASE_PATH"); path != "" {
		return path
	}
	return "./expenses.db"
}

func openServices(dbPath string) (*services.UserService, func(), error) {
	db, err := database.New(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	events := services.NewEventService(db, nil)
	return services.NewUserService(db, events), func() { db.Close() }, nil
}

func runAdd(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("add", flag.ContinueOnError)
	fs.SetOutput(stderr)

	name := fs.String("name", "", "Display name")
	email := fs.String("email", "", "Email address")
	passwordFlag := fs.String("password", "", "Password (optional, will prompt if omitted)")
	dbPath := fs.String("db", defaultDBPath(), "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *name == "" || *email == "" {
		fmt.Fprintln(stdout, "Usage: accounts add -name <name> -email <email> [-password <password>] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: name, email")
	}

	password := *passwordFlag
	if password == "" {
		fmt.Fprint(stdout, "Password: ")
		var err error
		password, err = readPassword(stdin)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Fprintln(stdout) // Print newline after password input
	}

	users, closeDB, err := openServices(*dbPath)
	if err != nil {
		return err
	}
	defer closeDB()

	user, err := users.Register(ctx, services.RegisterInput{Name: *name, Email: *email, Password: password})
	if err != nil {
		if apperr.Is(err, apperr.KindConflict) {
			return fmt.Errorf("user %s already exists", *email)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s created successfully with ID %d\n", user.Email, user.ID)
	return nil
}

func runDelete(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "Email address of the account to delete")
	dbPath := fs.String("db", defaultDBPath(), "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprintln(stdout, "Usage: accounts delete -email <email> [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	users, closeDB, err := openServices(*dbPath)
	if err != nil {
		return err
	}
	defer closeDB()

	user, err := users.GetUserByEmail(ctx, *email)
	if err != nil {
		if apperr.Is(err, apperr.KindNotFound) {
			return fmt.Errorf("user %s not found", *email)
		}
		return fmt.Errorf("failed to look up user: %w", err)
	}
	if err := users.DeleteUser(ctx, user.ID); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	fmt.Fprintf(stdout, "User %s deleted along with their expenses\n", user.Email)
	return nil
}

func readPassword(stdin io.Reader) (string, error) {
	// Check if stdin is a terminal
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		bytePassword, err := term.ReadPassword(int(f.Fd()))
		if err != nil {
			return "", err
		}
		return string(bytePassword), nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return strings.TrimRight(scanner.Text(), "\r"), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
