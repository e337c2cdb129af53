// Package voice speaks as a story character, grounded in locked canon.
// Text generation itself is an external collaborator behind Generator.
package voice

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"luminousdeep/pkg/logging"
	"luminousdeep/pkg/models"
)

var (
	ErrNoGenerator   = errors.New("voice generator not configured")
	ErrEmptyPrompt   = errors.New("prompt is required")
	ErrEmptyResponse = errors.New("generator returned no text")
)

// Generator turns a system context and a prompt into text.
type Generator interface {
	Generate(ctx context.Context, system, prompt string) (string, error)
}

type CanonSource interface {
	ListLocked(ctx context.Context) ([]models.CanonEntry, error)
}

type Service struct {
	Canon  CanonSource
	Gen    Generator
	logger *slog.Logger
}

func NewService(canon CanonSource, gen Generator, logger *slog.Logger) *Service {
	return &Service{Canon: canon, Gen: gen, logger: logging.Component(logger, "voice")}
}

// SystemPrompt frames the character with every canon entry, in the order
// given. Unlocked entries are skipped.
func SystemPrompt(character string, entries []models.CanonEntry) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s, a character of the Luminous Deep.\n", character)
	b.WriteString("Stay consistent with the following world canon.\n")
	for _, e := range entries {
		if !e.IsCanon() {
			continue
		}
		fmt.Fprintf(&b, "\n## %s (v%d)\n%s\n", e.Title, e.Version, e.Content)
	}
	return b.String()
}

func (s *Service) Speak(ctx context.Context, character, prompt string) (string, error) {
	if s.Gen == nil {
		return "", ErrNoGenerator
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", ErrEmptyPrompt
	}
	character = strings.TrimSpace(character)
	if character == "" {
		character = "the Narrator"
	}

	entries, err := s.Canon.ListLocked(ctx)
	if err != nil {
		return "", err
	}

	out, err := s.Gen.Generate(ctx, SystemPrompt(character, entries), prompt)
	if err != nil {
		s.logger.Error("generate failed", "character", character, "error", err)
		return "", fmt.Errorf("generate voice: %w", err)
	}
	if strings.TrimSpace(out) == "" {
		return "", ErrEmptyResponse
	}
	s.logger.Debug("voice generated", "character", character, "canon_entries", len(entries))
	return out, nil
}
