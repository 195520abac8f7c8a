package cli

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/mrlokans/goodreads/internal/config"
	"github.com/mrlokans/goodreads/internal/database/books"
	"github.com/mrlokans/goodreads/internal/entities"
	"github.com/mrlokans/goodreads/internal/media"
	"github.com/mrlokans/goodreads/internal/services"
)

// CatalogAuthor is one author entry of an import file.
type CatalogAuthor struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// CatalogBook is one book entry of an import file. Image is a local file
// path, resolved relative to the import file.
type CatalogBook struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	ISBN        string          `json:"isbn"`
	Image       string          `json:"image,omitempty"`
	Authors     []CatalogAuthor `json:"authors"`
}

// ParseCatalog reads a JSON array of books.
func ParseCatalog(r io.Reader) ([]CatalogBook, error) {
	var catalog []CatalogBook
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&catalog); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	return catalog, nil
}

// ImportBooksCommand loads a JSON catalog of books and their authors. Books
// whose ISBN is already present are skipped.
type ImportBooksCommand struct {
	CatalogPath string
	MediaDir    string
	Database    databaseFlags
	Verbose     bool
	DryRun      bool

	Out io.Writer
}

func NewImportBooksCommand() *ImportBooksCommand {
	return &ImportBooksCommand{Out: os.Stdout}
}

func (cmd *ImportBooksCommand) ParseFlags(args []string, defaults *config.Config) error {
	fs := flag.NewFlagSet("import-books", flag.ExitOnError)

	fs.StringVar(&cmd.CatalogPath, "file", "", "Path to the JSON catalog (required)")
	fs.StringVar(&cmd.MediaDir, "media", defaults.Media.Dir, "Media directory for book images")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Enable verbose logging")
	fs.BoolVar(&cmd.DryRun, "dry-run", false, "Show what would be imported without making changes")
	cmd.Database.register(fs, defaults.Database)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s import-books -file <catalog.json> [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Import books and their authors from a JSON array such as:\n\n")
		fmt.Fprintf(os.Stderr, "  [{\"title\": \"Dune\", \"description\": \"...\", \"isbn\": \"9780441172719\",\n")
		fmt.Fprintf(os.Stderr, "    \"image\": \"covers/dune.jpg\",\n")
		fmt.Fprintf(os.Stderr, "    \"authors\": [{\"first_name\": \"Frank\", \"last_name\": \"Herbert\"}]}]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.CatalogPath == "" {
		return fmt.Errorf("required flag -file not provided")
	}
	return nil
}

func (cmd *ImportBooksCommand) Run() error {
	fmt.Fprintln(cmd.Out, "Book Import")
	fmt.Fprintln(cmd.Out, "===========")

	if cmd.DryRun {
		fmt.Fprintln(cmd.Out, "DRY RUN MODE - No changes will be made")
	}

	file, err := os.Open(cmd.CatalogPath)
	if err != nil {
		return fmt.Errorf("failed to open catalog: %w", err)
	}
	defer file.Close()

	catalog, err := ParseCatalog(file)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.Out, "Found %d books in %s\n", len(catalog), cmd.CatalogPath)

	if cmd.DryRun {
		for i, entry := range catalog {
			fmt.Fprintf(cmd.Out, "%d. %q (%s, %d authors)\n", i+1, entry.Title, entry.ISBN, len(entry.Authors))
		}
		fmt.Fprintln(cmd.Out, "\nDry run complete. Use without -dry-run to import.")
		return nil
	}

	db, err := cmd.Database.open()
	if err != nil {
		return err
	}
	defer db.Close()

	store, err := media.NewStore(config.Media{Dir: cmd.MediaDir})
	if err != nil {
		return fmt.Errorf("failed to open media directory: %w", err)
	}
	bookService := services.NewBookService(books.NewRepository(db.DB), nil)
	baseDir := filepath.Dir(cmd.CatalogPath)

	var created, skipped int
	var importErrors []string
	for _, entry := range catalog {
		book := &entities.Book{
			Title:       entry.Title,
			Description: entry.Description,
			ISBN:        entry.ISBN,
		}
		var image string
		if entry.Image != "" {
			image, err = cmd.saveImage(store, baseDir, entry.Image)
			if err != nil {
				importErrors = append(importErrors, fmt.Sprintf("%q: %v", entry.Title, err))
				continue
			}
			book.Image = image
		}

		authors := make([]entities.Author, 0, len(entry.Authors))
		for _, a := range entry.Authors {
			authors = append(authors, entities.Author{FirstName: a.FirstName, LastName: a.LastName})
		}

		isNew, err := bookService.CreateBook(book, authors)
		if (err != nil || !isNew) && image != "" {
			_ = store.Remove(image)
		}
		if err != nil {
			importErrors = append(importErrors, fmt.Sprintf("%q: %v", entry.Title, err))
			continue
		}
		if !isNew {
			skipped++
			if cmd.Verbose {
				fmt.Fprintf(cmd.Out, "  [SKIP] %q already exists (ISBN %s)\n", entry.Title, entry.ISBN)
			}
			continue
		}
		created++
		if cmd.Verbose {
			fmt.Fprintf(cmd.Out, "  [OK] %q (id %d)\n", book.Title, book.ID)
		}
	}

	fmt.Fprintln(cmd.Out, "\n=== Import Summary ===")
	fmt.Fprintf(cmd.Out, "Books created: %d\n", created)
	fmt.Fprintf(cmd.Out, "Already present: %d\n", skipped)

	if len(importErrors) > 0 {
		fmt.Fprintf(cmd.Out, "\n%d errors occurred:\n", len(importErrors))
		for _, msg := range importErrors {
			fmt.Fprintf(cmd.Out, "  [ERROR] %s\n", msg)
		}
		return fmt.Errorf("%d of %d books failed to import", len(importErrors), len(catalog))
	}
	return nil
}

func (cmd *ImportBooksCommand) saveImage(store *media.Store, baseDir, path string) (string, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(baseDir, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()
	return store.Save("image", media.BookImages, f)
}
