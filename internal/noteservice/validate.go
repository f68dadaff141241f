package noteservice

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/recall/internal/apperr"
)

// Input limits.
const (
	MaxTitleRunes = 500
	MaxBodyBytes  = 100_000
	MaxMatchCount = 50
)

var errBlank = errors.New("must not be blank")

func notBlank(value any) error {
	s, _ := value.(string)
	if strings.TrimSpace(s) == "" {
		return errBlank
	}
	return nil
}

type noteInput struct {
	Title string
	Body  string
}

func validateNote(title, body string) error {
	in := noteInput{Title: title, Body: body}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Title, validation.RuneLength(0, MaxTitleRunes)),
		validation.Field(&in.Body, validation.Length(0, MaxBodyBytes)),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalidInput, err)
	}
	if strings.TrimSpace(title) == "" && strings.TrimSpace(body) == "" {
		return apperr.Wrap(apperr.ErrInvalidInput, errors.New("title or body: "+errBlank.Error()))
	}
	return nil
}

type searchInput struct {
	Query     string
	Threshold float64
	Count     int
}

func validateSearch(query string, threshold float64, count int) error {
	in := searchInput{Query: query, Threshold: threshold, Count: count}
	err := validation.ValidateStruct(&in,
		validation.Field(&in.Query, validation.By(notBlank)),
		validation.Field(&in.Threshold, validation.Min(-1.0), validation.Max(1.0)),
		validation.Field(&in.Count, validation.Required, validation.Min(1), validation.Max(MaxMatchCount)),
	)
	if err != nil {
		return apperr.Wrap(apperr.ErrInvalidInput, err)
	}
	return nil
}
