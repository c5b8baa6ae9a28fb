// Package rollback stores the undo point of a conversation inside its fields.
//
// A point is the prompt last shown to an identity together with the state it
// was shown from. It is serialized as a versioned JSON envelope and encoded
// with unpadded base64url so it survives any string-typed backend:
//
//	{"v":1,"prompt":{"text":"...","markup":{...}},"state":"applicant:role_selection"}
package rollback

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/staffgate/pkg/domain"
	"github.com/aretw0/staffgate/pkg/session"
)

// Version is the envelope version written by Encode.
const Version = 1

// ErrUnsupportedVersion is returned when a stored point carries an unknown envelope version.
var ErrUnsupportedVersion = errors.New("unsupported rollback version")

// ErrMalformed is returned when a stored point cannot be decoded.
var ErrMalformed = errors.New("malformed rollback point")

type envelope struct {
	V      int           `json:"v"`
	Prompt domain.Prompt `json:"prompt"`
	State  domain.State  `json:"state"`
}

// Encode serializes a rollback point.
func Encode(p domain.RollbackPoint) (string, error) {
	if p.State == domain.StateNone || !p.State.Valid() {
		return "", fmt.Errorf("encode rollback: invalid state %q", p.State)
	}
	raw, err := json.Marshal(envelope{V: Version, Prompt: p.Prompt, State: p.State})
	if err != nil {
		return "", fmt.Errorf("encode rollback: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// Decode parses a value produced by Encode.
func Decode(s string) (domain.RollbackPoint, error) {
	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return domain.RollbackPoint{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.RollbackPoint{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if env.V != Version {
		return domain.RollbackPoint{}, fmt.Errorf("%w: %d", ErrUnsupportedVersion, env.V)
	}
	if env.State == domain.StateNone || !env.State.Valid() {
		return domain.RollbackPoint{}, fmt.Errorf("%w: unknown state %q", ErrMalformed, env.State)
	}
	return domain.RollbackPoint{Prompt: env.Prompt, State: env.State}, nil
}

// Codec reads and writes rollback points through the conversation manager.
type Codec struct {
	sessions *session.Manager
}

// NewCodec returns a codec bound to sessions.
func NewCodec(sessions *session.Manager) *Codec {
	return &Codec{sessions: sessions}
}

// Push overwrites the rollback point of id.
func (c *Codec) Push(ctx context.Context, id domain.Identity, prompt domain.Prompt, state domain.State) error {
	enc, err := Encode(domain.RollbackPoint{Prompt: prompt, State: state})
	if err != nil {
		return err
	}
	return c.sessions.MergeData(ctx, id, domain.Fields{Rollback: enc})
}

// Pop returns the rollback point of id. ok is false when none was pushed.
// The point stays stored: going back twice lands on the same step.
func (c *Codec) Pop(ctx context.Context, id domain.Identity) (domain.RollbackPoint, bool, error) {
	fields, err := c.sessions.GetData(ctx, id)
	if err != nil {
		return domain.RollbackPoint{}, false, err
	}
	return Peek(fields)
}

// Peek decodes the rollback point carried by fields.
func Peek(fields domain.Fields) (domain.RollbackPoint, bool, error) {
	if fields.Rollback == "" {
		return domain.RollbackPoint{}, false, nil
	}
	p, err := Decode(fields.Rollback)
	if err != nil {
		return domain.RollbackPoint{}, false, err
	}
	return p, true, nil
}
