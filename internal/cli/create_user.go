package cli

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mrlokans/goodreads/internal/apperr"
	"github.com/mrlokans/goodreads/internal/auth"
	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database/users"
)

// CreateUserCommand adds an account from the command line. With -staff the
// account may edit books.
type CreateUserCommand struct {
	Username  string
	FirstName string
	LastName  string
	Email     string
	Password  string
	Staff     bool
	Database  databaseFlags

	// BcryptCost is taken from the environment configuration.
	BcryptCost int

	In  io.Reader
	Out io.Writer
}

func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{In: os.Stdin, Out: os.Stdout}
}

func (cmd *CreateUserCommand) ParseFlags(args []string, defaults *config.Config) error {
	fs := flag.NewFlagSet("create-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.StringVar(&cmd.FirstName, "first-name", "", "First name")
	fs.StringVar(&cmd.LastName, "last-name", "", "Last name")
	fs.StringVar(&cmd.Email, "email", "", "Email address")
	fs.StringVar(&cmd.Password, "password", "", "Password (read from stdin when omitted)")
	fs.BoolVar(&cmd.Staff, "staff", false, "Grant staff rights (book editing)")
	cmd.Database.register(fs, defaults.Database)
	cmd.BcryptCost = defaults.Auth.BcryptCost

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s create-user -username <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Create a user account. Staff accounts may edit the book catalog.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  echo \"$ADMIN_PASSWORD\" | %s create-user -username admin -email admin@example.com -staff\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	return nil
}

func (cmd *CreateUserCommand) Run() error {
	password := cmd.Password
	if password == "" {
		fmt.Fprint(cmd.Out, "Password: ")
		line, err := bufio.NewReader(cmd.In).ReadString('\n')
		if err != nil && err != io.EOF {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = strings.TrimRight(line, "\r\n")
		fmt.Fprintln(cmd.Out)
	}

	db, err := cmd.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	service := auth.NewService(users.NewRepository(db.DB), config.Auth{BcryptCost: cmd.BcryptCost})
	user, err := service.CreateUser(auth.RegistrationInput{
		Username:  cmd.Username,
		FirstName: cmd.FirstName,
		LastName:  cmd.LastName,
		Email:     cmd.Email,
		Password:  password,
	}, cmd.Staff)
	if err != nil {
		if verr, ok := apperr.AsValidation(err); ok {
			return fmt.Errorf("invalid user: %s", strings.TrimPrefix(verr.Error(), "validation failed: "))
		}
		return err
	}

	role := "user"
	if user.IsStaff {
		role = "staff user"
	}
	fmt.Fprintf(cmd.Out, "Created %s %q (id %d)\n", role, user.Username, user.ID)
	return nil
}
