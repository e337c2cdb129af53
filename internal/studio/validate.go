package studio

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/go-playground/validator/v10"

	"luminousdeep/pkg/models"
)

var (
	ErrInvalidInput     = errors.New("invalid input")
	ErrSlugTaken        = errors.New("slug already exists")
	ErrDuplicateEpisode = errors.New("season and episode already used in this series")
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

var validate *validator.Validate

func init() {
	validate = validator.New()
	_ = validate.RegisterValidation("slug", func(fl validator.FieldLevel) bool {
		return slugPattern.MatchString(fl.Field().String())
	})
	// enum tags defer to the model parsers so validation and parsing
	// accept exactly the same spellings
	_ = validate.RegisterValidation("stratum", func(fl validator.FieldLevel) bool {
		_, err := models.ParseStratum(fl.Field().String())
		return err == nil
	})
	_ = validate.RegisterValidation("series_status", func(fl validator.FieldLevel) bool {
		_, err := models.ParseSeriesStatus(fl.Field().String())
		return err == nil
	})
}

// check runs struct validation and folds failures into ErrInvalidInput
// with a field-level message.
func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%w: %s failed %s", ErrInvalidInput, fe.Field(), fe.Tag())
	}
	return fmt.Errorf("%w: %v", ErrInvalidInput, err)
}

type SignalInput struct {
	Slug         string  `json:"slug" validate:"required,max=120,slug"`
	Season       int     `json:"season" validate:"gte=0"`
	Episode      int     `json:"episode" validate:"gte=0"`
	Stratum      string  `json:"stratum" validate:"omitempty,stratum"`
	Title        string  `json:"title" validate:"required,max=200"`
	Content      string  `json:"content"`
	CoverImage   string  `json:"cover_image" validate:"omitempty,max=500"`
	SummaryShort string  `json:"summary_short" validate:"omitempty,max=500"`
	SummaryLong  string  `json:"summary_long"`
	AmbientAudio string  `json:"ambient_audio" validate:"omitempty,max=500"`
	IsLocked     bool    `json:"is_locked"`
	GlitchPoint  *int    `json:"glitch_point" validate:"omitempty,gte=0"`
	SeriesID     *string `json:"series_id"`
	ReleaseDate  int64   `json:"release_date" validate:"gte=0"`
}

type SeriesInput struct {
	Slug        string `json:"slug" validate:"required,max=120,slug"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description"`
	CoverImage  string `json:"cover_image" validate:"omitempty,max=500"`
	Status      string `json:"status" validate:"omitempty,series_status"`
}

type CanonInput struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content" validate:"required"`
}

type EntitlementInput struct {
	Source string `json:"source" validate:"omitempty,max=50"`
}

type VoiceInput struct {
	Character string `json:"character" validate:"omitempty,max=100"`
	Prompt    string `json:"prompt" validate:"required,max=4000"`
}
