package gate

import (
	"context"

	"luminousdeep/internal/metrics"
	"luminousdeep/pkg/models"
)

// State is attached to a signal that was served cut short.
type State struct {
	Locked   bool   `json:"locked"`
	Withheld int    `json:"withheld"`
	Filler   string `json:"filler,omitempty"`
}

type AccessChecker interface {
	HasAccess(ctx context.Context, userID string) (bool, error)
}

// Policy redacts locked signals before they leave the server. Readers with
// an entitlement receive the full body.
type Policy struct {
	Access      AccessChecker
	FillerLimit int
}

func NewPolicy(access AccessChecker, fillerLimit int) *Policy {
	return &Policy{Access: access, FillerLimit: fillerLimit}
}

// Apply rewrites sig.Content in place when the reader may not see all of
// it, and returns the gate state; nil means the body is complete.
func (p *Policy) Apply(ctx context.Context, userID string, sig *models.Signal) (*State, error) {
	cut := Render(sig.Content, sig.IsLocked, sig.GlitchPoint)
	if !cut.Truncated() {
		return nil, nil
	}

	if p.Access != nil && userID != "" {
		ok, err := p.Access.HasAccess(ctx, userID)
		if err != nil {
			return nil, err
		}
		if ok {
			return nil, nil
		}
	}

	sig.Content = cut.Safe
	metrics.GateRedaction()
	return &State{
		Locked:   true,
		Withheld: cut.Withheld,
		Filler:   Filler(cut.Withheld, p.FillerLimit),
	}, nil
}
