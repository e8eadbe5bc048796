package inkpot

import "errors"

var ErrPageNotFound = errors.New("page not found")

// Page describes one slice of a newest-first listing.
type Page struct {
	Number   int
	NumPages int
	Total    int
}

// NewPage validates number against total items. The first page always exists,
// even for an empty listing.
func NewPage(number int, total int) (Page, error) {
	numPages := (total + PostsPerPage - 1) / PostsPerPage
	if numPages == 0 {
		numPages = 1
	}
	if number < 1 || number > numPages {
		return Page{}, ErrPageNotFound
	}
	return Page{Number: number, NumPages: numPages, Total: total}, nil
}

func (p Page) Offset() int {
	return (p.Number - 1) * PostsPerPage
}

func (p Page) Limit() int {
	return PostsPerPage
}

func (p Page) HasNext() bool {
	return p.Number < p.NumPages
}

func (p Page) HasPrevious() bool {
	return p.Number > 1
}
