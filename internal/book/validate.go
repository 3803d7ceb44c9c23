package book

import (
	"errors"
	"fmt"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

const (
	maxTitleLen  = 255
	maxAuthorLen = 255
	minISBNLen   = 10
	maxISBNLen   = 20
)

var notBlank = validation.By(func(value interface{}) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errors.New("must not be blank")
	}
	return nil
})

// Validate checks the field constraints of a book before it reaches storage.
// Length bounds count runes.
func (in Input) Validate() error {
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, notBlank, validation.RuneLength(1, maxTitleLen)),
		validation.Field(&in.Author, validation.RuneLength(0, maxAuthorLen)),
		validation.Field(&in.ISBN, validation.RuneLength(minISBNLen, maxISBNLen)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func validateTitle(field, title string) error {
	if strings.TrimSpace(title) == "" {
		return fmt.Errorf("%w: %s must not be blank", ErrInvalidInput, field)
	}
	if err := validation.Validate(title, validation.RuneLength(1, maxTitleLen)); err != nil {
		return fmt.Errorf("%w: %s %v", ErrInvalidInput, field, err)
	}
	return nil
}
