package batch

import (
	"errors"
	"fmt"
	"strings"
)

type Mode string

const (
	ModeSingle Mode = "single-url"
	ModeAll    Mode = "all"
	ModeRange  Mode = "id-range"
)

var ErrInvalidSelection = errors.New("invalid selection")

// Selection picks the novels of one run. Exactly one mode is active; the
// other fields only matter for their own mode.
type Selection struct {
	Mode     Mode   `json:"mode" binding:"required"`
	NovelURL string `json:"novel_url,omitempty"`
	StartID  int64  `json:"start_id,omitempty"`
	EndID    int64  `json:"end_id,omitempty"`
}

func (s Selection) Validate() error {
	switch s.Mode {
	case ModeSingle:
		if strings.TrimSpace(s.NovelURL) == "" {
			return fmt.Errorf("%w: %s needs a novel url", ErrInvalidSelection, s.Mode)
		}
	case ModeAll:
	case ModeRange:
		if s.StartID <= 0 || s.EndID <= 0 {
			return fmt.Errorf("%w: %s needs positive start and end ids", ErrInvalidSelection, s.Mode)
		}
		if s.StartID > s.EndID {
			return fmt.Errorf("%w: start id %d is after end id %d", ErrInvalidSelection, s.StartID, s.EndID)
		}
	default:
		return fmt.Errorf("%w: unknown mode %q", ErrInvalidSelection, s.Mode)
	}
	return nil
}

func (s Selection) String() string {
	switch s.Mode {
	case ModeSingle:
		return fmt.Sprintf("%s %s", s.Mode, s.NovelURL)
	case ModeRange:
		return fmt.Sprintf("%s %d-%d", s.Mode, s.StartID, s.EndID)
	default:
		return string(s.Mode)
	}
}
