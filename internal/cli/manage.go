package cli

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database/books"
	"github.com/mrlokans/goodreads/internal/database/users"
	"github.com/mrlokans/goodreads/internal/media"
)

// DeactivateUserCommand disables an account so it can no longer log in.
// Its reviews stay visible. -activate reverses it.
type DeactivateUserCommand struct {
	Username string
	Activate bool
	Database databaseFlags

	Out io.Writer
}

func NewDeactivateUserCommand() *DeactivateUserCommand {
	return &DeactivateUserCommand{Out: os.Stdout}
}

func (cmd *DeactivateUserCommand) ParseFlags(args []string, defaults *config.Config) error {
	fs := flag.NewFlagSet("deactivate-user", flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username (required)")
	fs.BoolVar(&cmd.Activate, "activate", false, "Re-enable the account instead")
	cmd.Database.register(fs, defaults.Database)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s deactivate-user -username <name> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Username == "" {
		return fmt.Errorf("required flag -username not provided")
	}
	return nil
}

func (cmd *DeactivateUserCommand) Run() error {
	db, err := cmd.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := users.NewRepository(db.DB)
	user, err := repo.GetUserByUsername(cmd.Username)
	if err != nil {
		return err
	}
	if err := repo.SetActive(user.ID, cmd.Activate); err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	state := "Deactivated"
	if cmd.Activate {
		state = "Activated"
	}
	fmt.Fprintf(cmd.Out, "%s user %q\n", state, user.Username)
	return nil
}

// DeleteBookCommand removes a book with its reviews and cover image.
type DeleteBookCommand struct {
	BookID   uint
	MediaDir string
	Database databaseFlags

	Out io.Writer
}

func NewDeleteBookCommand() *DeleteBookCommand {
	return &DeleteBookCommand{Out: os.Stdout}
}

func (cmd *DeleteBookCommand) ParseFlags(args []string, defaults *config.Config) error {
	fs := flag.NewFlagSet("delete-book", flag.ExitOnError)

	id := fs.Uint("id", 0, "Book ID (required)")
	fs.StringVar(&cmd.MediaDir, "media", defaults.Media.Dir, "Media directory for book images")
	cmd.Database.register(fs, defaults.Database)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s delete-book -id <book id> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if *id == 0 {
		return fmt.Errorf("required flag -id not provided")
	}
	cmd.BookID = *id
	return nil
}

func (cmd *DeleteBookCommand) Run() error {
	db, err := cmd.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	repo := books.NewRepository(db.DB)
	book, err := repo.GetBookByID(cmd.BookID)
	if err != nil {
		return err
	}
	if err := repo.DeleteBook(book.ID); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if book.Image != "" {
		store, err := media.NewStore(config.Media{Dir: cmd.MediaDir})
		if err == nil {
			err = store.Remove(book.Image)
		}
		if err != nil {
			fmt.Fprintf(cmd.Out, "Warning: could not remove image %s: %v\n", book.Image, err)
		}
	}

	fmt.Fprintf(cmd.Out, "Deleted book %q (id %d, %d reviews)\n", book.Title, book.ID, len(book.Reviews))
	return nil
}
