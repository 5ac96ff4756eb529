package library

import (
	"context"
	"strings"

	"github.com/doug-martin/goqu/v9"
)

// BookFilter narrows a book listing. The zero value lists every active copy.
type BookFilter struct {
	// Search is matched case-insensitively as a substring of title, author,
	// ISBN and book code.
	Search          string
	AvailableOnly   bool
	IncludeInactive bool
}

const bookColumns = `id,book_code,isbn,title,author,publisher,publication_year,category,
	shelf_location,copy_number,price,added_at,available,active`

// InsertBook stores b and sets its ID.
func (s *Store) InsertBook(ctx context.Context, b *Book) error {
	id, err := s.insert(ctx, `INSERT INTO books(book_code,isbn,title,author,publisher,publication_year,
		category,shelf_location,copy_number,price,added_at,available,active,search_text)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		b.Code, b.ISBN, b.Title, b.Author, b.Publisher, b.PublicationYear,
		b.Category, b.ShelfLocation, b.CopyNumber, b.Price, stamp(b.AddedAt), b.Available, b.Active,
		bookSearchText(b))
	if err != nil {
		return err
	}
	b.ID = id
	return nil
}

// GetBook fetches one copy by ID.
func (s *Store) GetBook(ctx context.Context, id int64) (*Book, error) {
	var b Book
	if err := s.get(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE id=?`, id); err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	return &b, nil
}

// GetBookByCode fetches one copy by its book code.
func (s *Store) GetBookByCode(ctx context.Context, code string) (*Book, error) {
	var b Book
	if err := s.get(ctx, &b, `SELECT `+bookColumns+` FROM books WHERE book_code=?`, strings.TrimSpace(code)); err != nil {
		return nil, notFound(err, ErrBookNotFound)
	}
	return &b, nil
}

// CountCopies counts every copy ever recorded for isbn, active or not.
func (s *Store) CountCopies(ctx context.Context, isbn string) (int, error) {
	return s.count(ctx, `SELECT COUNT(*) FROM books WHERE isbn=?`, isbn)
}

// UpdateBookDetails rewrites the descriptive columns of b.
func (s *Store) UpdateBookDetails(ctx context.Context, b *Book) error {
	return s.exec(ctx, ErrBookNotFound, `UPDATE books SET title=?,author=?,publisher=?,publication_year=?,
		category=?,shelf_location=?,price=?,search_text=? WHERE id=?`,
		b.Title, b.Author, b.Publisher, b.PublicationYear, b.Category, b.ShelfLocation, b.Price,
		bookSearchText(b), b.ID)
}

func bookSearchText(b *Book) string {
	return searchText(b.Title, b.Author, b.ISBN, b.Code)
}

// SetBookAvailable flips the availability flag.
func (s *Store) SetBookAvailable(ctx context.Context, id int64, available bool) error {
	return s.exec(ctx, ErrBookNotFound, `UPDATE books SET available=? WHERE id=?`, available, id)
}

// SetBookActive soft-deletes (or restores) a copy.
func (s *Store) SetBookActive(ctx context.Context, id int64, active bool) error {
	return s.exec(ctx, ErrBookNotFound, `UPDATE books SET active=? WHERE id=?`, active, id)
}

// ListBooks returns the copies matching f ordered by title and copy number.
func (s *Store) ListBooks(ctx context.Context, f BookFilter) ([]*Book, error) {
	ds := dialect.From("books").
		Select(goqu.L(bookColumns)).
		Order(goqu.C("title").Asc(), goqu.C("copy_number").Asc())

	if !f.IncludeInactive {
		ds = ds.Where(goqu.C("active").Eq(1))
	}
	if f.AvailableOnly {
		ds = ds.Where(goqu.C("available").Eq(1))
	}
	if term := strings.TrimSpace(f.Search); term != "" {
		ds = ds.Where(likeFolded(term))
	}

	books := []*Book{}
	if err := s.selectAll(ctx, &books, ds); err != nil {
		return nil, err
	}
	return books, nil
}

// escapeLike escapes the LIKE wildcards in a user-supplied term.
func escapeLike(term string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(term)
}

// likeEscaped matches col against pattern.
func likeEscaped(col, pattern string) goqu.Expression {
	return goqu.L(`? LIKE ? ESCAPE '\'`, goqu.I(col), pattern)
}
