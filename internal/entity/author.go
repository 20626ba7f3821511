package entity

import "strings"

// Author is a document author as read from the TEI header.
type Author struct {
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Email     *string `json:"email,omitempty"`
}

// NewAuthor builds an Author; email may be empty.
func NewAuthor(first, last, email string) Author {
	a := Author{FirstName: strings.TrimSpace(first), LastName: strings.TrimSpace(last)}
	if e := strings.TrimSpace(email); e != "" {
		a.Email = &e
	}
	return a
}

// FullName is "First Last", skipping empty parts.
func (a Author) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}
