package order

import (
	"cmp"
	"fmt"
	"strings"

	"github.com/skirmishkit/turnengine/internal/core/roster"
)

type compareFunc func(a, b roster.Participant) int

func byID(a, b roster.Participant) int {
	return strings.Compare(string(a.ID), string(b.ID))
}

func byRegistration(a, b roster.Participant) int {
	if c := cmp.Compare(a.Seq, b.Seq); c != 0 {
		return c
	}
	return byID(a, b)
}

func comparator(rule TieBreak, custom TieBreaker) (compareFunc, error) {
	if custom != nil {
		return func(a, b roster.Participant) int {
			if c := custom.Compare(a, b); c != 0 {
				return c
			}
			return byID(a, b)
		}, nil
	}
	switch rule {
	case TieBreakID:
		return byID, nil
	case TieBreakRegistration:
		return byRegistration, nil
	}
	return nil, fmt.Errorf("%w: %d", ErrUnknownTieBreak, int(rule))
}
