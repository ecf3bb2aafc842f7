package block

import (
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/mezonai/starledger/jsonx"
)

// Kind tags which variant a Body holds.
type Kind string

const (
	KindText  Kind = "text"
	KindOwned Kind = "owned"
)

const (
	MaxStoryBytes = 500
	MaxStoryWords = 250
)

var ErrInvalidBody = errors.New("invalid block body")

// Star is the content registered by an owner. Story holds raw bytes and is
// hex encoded on the wire.
type Star struct {
	RA            string `json:"ra"`
	Dec           string `json:"dec"`
	Magnitude     string `json:"mag,omitempty"`
	Constellation string `json:"cen,omitempty"`
	Story         []byte `json:"-"`
}

type starJSON struct {
	RA            string `json:"ra"`
	Dec           string `json:"dec"`
	Magnitude     string `json:"mag,omitempty"`
	Constellation string `json:"cen,omitempty"`
	Story         string `json:"story"`
}

func (s Star) MarshalJSON() ([]byte, error) {
	return jsonx.Marshal(starJSON{
		RA:            s.RA,
		Dec:           s.Dec,
		Magnitude:     s.Magnitude,
		Constellation: s.Constellation,
		Story:         hex.EncodeToString(s.Story),
	})
}

func (s *Star) UnmarshalJSON(data []byte) error {
	var raw starJSON
	if err := jsonx.Unmarshal(data, &raw); err != nil {
		return err
	}
	story, err := hex.DecodeString(raw.Story)
	if err != nil {
		return fmt.Errorf("decode star story: %w", err)
	}
	if len(story) == 0 {
		story = nil
	}
	*s = Star{
		RA:            raw.RA,
		Dec:           raw.Dec,
		Magnitude:     raw.Magnitude,
		Constellation: raw.Constellation,
		Story:         story,
	}
	return nil
}

// StoryDecoded returns the story as display text.
func (s Star) StoryDecoded() string {
	return string(s.Story)
}

// Body is either free text or content attributed to an owner address.
type Body struct {
	Kind  Kind   `json:"kind"`
	Text  string `json:"text,omitempty"`
	Owner string `json:"owner,omitempty"`
	Star  *Star  `json:"star,omitempty"`
}

func FreeText(text string) Body {
	return Body{Kind: KindText, Text: text}
}

func OwnedContent(owner string, star Star) Body {
	return Body{Kind: KindOwned, Owner: owner, Star: &star}
}

func (b Body) IsOwned() bool {
	return b.Kind == KindOwned
}

// Validate checks the shape of a body submitted for append.
func (b Body) Validate() error {
	switch b.Kind {
	case KindText:
		if b.Text == "" {
			return fmt.Errorf("%w: text must not be empty", ErrInvalidBody)
		}
		return nil
	case KindOwned:
		if b.Owner == "" {
			return fmt.Errorf("%w: owner address is required", ErrInvalidBody)
		}
		if b.Star == nil {
			return fmt.Errorf("%w: star is required", ErrInvalidBody)
		}
		if b.Star.RA == "" || b.Star.Dec == "" {
			return fmt.Errorf("%w: star ra and dec are required", ErrInvalidBody)
		}
		if len(b.Star.Story) > MaxStoryBytes {
			return fmt.Errorf("%w: story exceeds %d bytes", ErrInvalidBody, MaxStoryBytes)
		}
		if len(strings.Fields(string(b.Star.Story))) > MaxStoryWords {
			return fmt.Errorf("%w: story exceeds %d words", ErrInvalidBody, MaxStoryWords)
		}
		return nil
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidBody, b.Kind)
	}
}
