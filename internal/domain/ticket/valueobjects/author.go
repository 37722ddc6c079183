package valueobjects

import "fmt"

// Author identifies who wrote a ticket message.
type Author string

const (
	AuthorUser    Author = "usuario"
	AuthorSupport Author = "suporte"
	AuthorSystem  Author = "sistema"
)

func (a Author) String() string {
	return string(a)
}

func (a Author) IsValid() bool {
	switch a {
	case AuthorUser, AuthorSupport, AuthorSystem:
		return true
	}
	return false
}

func (a Author) IsSupport() bool {
	return a == AuthorSupport
}

func NewAuthor(s string) (Author, error) {
	a := Author(s)
	if !a.IsValid() {
		return "", fmt.Errorf("invalid message author: %s", s)
	}
	return a, nil
}
