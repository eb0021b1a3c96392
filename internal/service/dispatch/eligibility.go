package dispatch

import (
	"sync"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

// SkipSet holds the rides a driver declined during one session. It belongs to
// that session only: it is never shared between drivers and never stored.
type SkipSet struct {
	mu  sync.RWMutex
	ids map[string]struct{}
}

func NewSkipSet(ids ...string) *SkipSet {
	s := &SkipSet{ids: make(map[string]struct{}, len(ids))}
	for _, id := range ids {
		if id != "" {
			s.ids[id] = struct{}{}
		}
	}
	return s
}

// Add returns false when id was already skipped.
func (s *SkipSet) Add(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[id]; ok {
		return false
	}
	s.ids[id] = struct{}{}
	return true
}

// Contains is safe on a nil set.
func (s *SkipSet) Contains(id string) bool {
	if s == nil {
		return false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.ids[id]
	return ok
}

func (s *SkipSet) Len() int {
	if s == nil {
		return 0
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.ids)
}

// Eligible decides whether driver may see and accept ride:
// SEARCHING, same city, untargeted or targeted at this driver, and not skipped.
func Eligible(ride *models.RideRequest, driver *models.User, exclude *SkipSet) bool {
	return ride.Status == types.StatusSearching &&
		ride.City == driver.City &&
		ride.Targets(driver.ID) &&
		!exclude.Contains(ride.ID)
}
