package cms

import (
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/siratop/sistema-clinica/internal/platform/apperr"
	"github.com/siratop/sistema-clinica/internal/platform/web"
)

type Overlay string

const (
	OverlayLight  Overlay = "light"
	OverlayMedium Overlay = "medium"
	OverlayDark   Overlay = "dark"
)

var Overlays = []Overlay{OverlayLight, OverlayMedium, OverlayDark}

func (o Overlay) Valid() bool {
	return o == OverlayLight || o == OverlayMedium || o == OverlayDark
}

// Slide is a home page carousel item.
type Slide struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Subtitle  string    `db:"subtitle" json:"subtitle,omitempty"`
	ImageKey  string    `db:"image_key" json:"image_key"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	Active    bool      `db:"active" json:"active"`
	Overlay   Overlay   `db:"overlay" json:"overlay"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ImageURL is the public path of the slide image.
func (s *Slide) ImageURL() string {
	return "/media/" + s.ImageKey
}

type FAQ struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Question  string    `db:"question" json:"question"`
	Answer    string    `db:"answer" json:"answer"`
	SortOrder int       `db:"sort_order" json:"sort_order"`
	Active    bool      `db:"active" json:"active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Announcement is the single site-wide notice.
type Announcement struct {
	Title     string    `db:"title" json:"title"`
	Message   string    `db:"message" json:"message"`
	Active    bool      `db:"active" json:"active"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PublicContent is everything the home page shows from the CMS.
type PublicContent struct {
	Slides       []*Slide      `json:"slides"`
	FAQs         []*FAQ        `json:"faqs"`
	Announcement *Announcement `json:"announcement,omitempty"`
}

type SlideForm struct {
	Title     string       `form:"title" json:"title"`
	Subtitle  string       `form:"subtitle" json:"subtitle"`
	SortOrder string       `form:"sort_order" json:"sort_order"`
	Active    web.Checkbox `form:"active" json:"active"`
	Overlay   string       `form:"overlay" json:"overlay"`
}

type FAQForm struct {
	Question  string       `form:"question" json:"question"`
	Answer    string       `form:"answer" json:"answer"`
	SortOrder string       `form:"sort_order" json:"sort_order"`
	Active    web.Checkbox `form:"active" json:"active"`
}

type AnnouncementForm struct {
	Title   string       `form:"title" json:"title"`
	Message string       `form:"message" json:"message"`
	Active  web.Checkbox `form:"active" json:"active"`
}

func sortOrder(v *apperr.ValidationError, raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		v.Add("sort_order", "enter a whole number")
	}
	return n
}

func required(v *apperr.ValidationError, field, value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.Add(field, "required")
	case max > 0 && len([]rune(value)) > max:
		v.Add(field, "too long")
	}
	return value
}

// apply validates f onto s, leaving the image untouched.
func (f SlideForm) apply(s *Slide) error {
	v := apperr.NewValidation()
	s.Title = required(v, "title", f.Title, 100)
	s.Subtitle = strings.TrimSpace(f.Subtitle)
	if len([]rune(s.Subtitle)) > 200 {
		v.Add("subtitle", "too long")
	}
	s.SortOrder = sortOrder(v, f.SortOrder)
	s.Active = bool(f.Active)
	s.Overlay = Overlay(strings.TrimSpace(f.Overlay))
	if s.Overlay == "" {
		s.Overlay = OverlayMedium
	}
	if !s.Overlay.Valid() {
		v.Add("overlay", "select light, medium or dark")
	}
	return v.Err()
}

func (f FAQForm) apply(q *FAQ) error {
	v := apperr.NewValidation()
	q.Question = required(v, "question", f.Question, 255)
	q.Answer = required(v, "answer", f.Answer, 0)
	q.SortOrder = sortOrder(v, f.SortOrder)
	q.Active = bool(f.Active)
	return v.Err()
}

func (f AnnouncementForm) build() (*Announcement, error) {
	v := apperr.NewValidation()
	a := &Announcement{
		Title:   required(v, "title", f.Title, 150),
		Message: required(v, "message", f.Message, 0),
		Active:  bool(f.Active),
	}
	return a, v.Err()
}

func slideForm(s *Slide) SlideForm {
	return SlideForm{
		Title: s.Title, Subtitle: s.Subtitle, SortOrder: strconv.Itoa(s.SortOrder),
		Active: web.Checkbox(s.Active), Overlay: string(s.Overlay),
	}
}

func faqForm(q *FAQ) FAQForm {
	return FAQForm{Question: q.Question, Answer: q.Answer, SortOrder: strconv.Itoa(q.SortOrder), Active: web.Checkbox(q.Active)}
}
