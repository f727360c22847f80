package entities

import (
	"errors"
	"time"
)

// Slide is one extracted text chunk of a courseware document.
type Slide struct {
	SlideID int    `json:"slide_id" bson:"slide_id"`
	Title   string `json:"title,omitempty" bson:"title"`
	Content string `json:"content" bson:"content"`
	Notes   string `json:"notes,omitempty" bson:"notes"`
}

// NarrationText joins title, content, and notes into the text that is
// synthesized for the slide.
func (s Slide) NarrationText() string {
	text := s.Content
	if s.Title != "" {
		text = s.Title + ".\n" + text
	}
	if s.Notes != "" {
		text = text + "\n\n" + s.Notes
	}
	return text
}

// Courseware is an uploaded slide deck plus its extracted text.
type Courseware struct {
	ID               string    `json:"id" bson:"id"`
	Name             string    `json:"name" bson:"name"`
	OriginalFilename string    `json:"original_filename" bson:"original_filename"`
	Path             string    `json:"path" bson:"path"`
	Size             int64     `json:"size" bson:"size"`
	Slides           []Slide   `json:"slides,omitempty" bson:"slides"`
	CreatedAt        time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" bson:"updated_at"`
}

func (c *Courseware) Validate() error {
	if c.Name == "" {
		return errors.New("courseware name is required")
	}
	if c.Path == "" {
		return errors.New("courseware path is required")
	}
	return nil
}
