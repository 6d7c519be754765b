package services

import (
	"errors"
	"fmt"

	"sublet_monitor/identity"
)

// ErrTransientEmptyResult marks a fetch that returned no rows while state says
// the sheet had listings before. Usually a publishing hiccup, not a real wipe.
var ErrTransientEmptyResult = errors.New("transient empty result")

type GuardState int

const (
	GuardNormal GuardState = iota
	GuardAborted
)

func (s GuardState) String() string {
	if s == GuardAborted {
		return "ABORTED"
	}
	return "NORMAL"
}

// Guard decides whether a run may proceed past the fetch.
type Guard struct {
	MinSeen int
}

func NewGuard(minSeen int) Guard {
	if minSeen < 1 {
		minSeen = 1
	}
	return Guard{MinSeen: minSeen}
}

// Check aborts when the fetch produced zero rows but at least MinSeen
// fingerprints are already known. An empty sheet on a first run is normal.
func (g Guard) Check(totalRows int, seen identity.SeenSet) (GuardState, error) {
	min := g.MinSeen
	if min < 1 {
		min = 1
	}
	if totalRows == 0 && seen.Len() >= min {
		return GuardAborted, fmt.Errorf("%w: 0 rows fetched, %d fingerprints on record", ErrTransientEmptyResult, seen.Len())
	}
	return GuardNormal, nil
}
