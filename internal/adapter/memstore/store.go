// Package memstore is an in-memory implementation of the ride core's
// persistence ports. Transactions are serialized; writes are staged and
// applied all at once on commit, after which the change feeds fire.
package memstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/pkg/broadcast"
)

var ErrDuplicateRide = errors.New("ride already exists")

type Store struct {
	mu     sync.Mutex
	rides  map[string]models.RideRequest
	users  map[uuid.UUID]models.User
	events []models.RideEvent

	rideFeed *broadcast.Hub[models.RideRequest]
	userFeed *broadcast.Hub[models.User]

	hookMu      sync.Mutex
	failCommits int
	failErr     error

	now func() time.Time
}

func New() *Store {
	return &Store{
		rides:    make(map[string]models.RideRequest),
		users:    make(map[uuid.UUID]models.User),
		rideFeed: broadcast.New[models.RideRequest](),
		userFeed: broadcast.New[models.User](),
		now:      time.Now,
	}
}

func (s *Store) Rides() *RideRepo   { return &RideRepo{s: s} }
func (s *Store) Users() *UserRepo   { return &UserRepo{s: s} }
func (s *Store) Events() *EventRepo { return &EventRepo{s: s} }

// SubscribeRides streams every committed ride write, in commit order.
func (s *Store) SubscribeRides(ctx context.Context) <-chan models.RideRequest {
	return s.rideFeed.Subscribe(ctx)
}

// SubscribeUsers streams every committed user write, in commit order.
func (s *Store) SubscribeUsers(ctx context.Context) <-chan models.User {
	return s.userFeed.Subscribe(ctx)
}

// FailCommits makes the next n commits fail with err after fn has run,
// discarding every staged write.
func (s *Store) FailCommits(n int, err error) {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	s.failCommits = n
	s.failErr = err
}

func (s *Store) Close() {
	s.rideFeed.Close()
	s.userFeed.Close()
}

type txKey struct{}

type txn struct {
	rides     map[string]models.RideRequest
	rideOrder []string
	users     map[uuid.UUID]models.User
	userOrder []uuid.UUID
	events    []models.RideEvent
}

func newTxn() *txn {
	return &txn{
		rides: make(map[string]models.RideRequest),
		users: make(map[uuid.UUID]models.User),
	}
}

// Do runs fn as one serialized transaction. A ctx that already carries a
// transaction joins it.
func (s *Store) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*txn); ok {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newTxn()
	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	if err := s.commitHook(); err != nil {
		return err
	}
	s.apply(tx)
	return nil
}

func (s *Store) commitHook() error {
	s.hookMu.Lock()
	defer s.hookMu.Unlock()
	if s.failCommits == 0 {
		return nil
	}
	s.failCommits--
	return s.failErr
}

// apply must be called with s.mu held.
func (s *Store) apply(tx *txn) {
	for _, id := range tx.rideOrder {
		s.rides[id] = tx.rides[id]
	}
	for _, id := range tx.userOrder {
		s.users[id] = tx.users[id]
	}
	s.events = append(s.events, tx.events...)

	for _, id := range tx.rideOrder {
		s.rideFeed.Publish(tx.rides[id].Clone())
	}
	for _, id := range tx.userOrder {
		s.userFeed.Publish(tx.users[id].Clone())
	}
}

// view runs a read-only fn, inside the caller's transaction when there is one.
func (s *Store) view(ctx context.Context, fn func(tx *txn)) {
	if tx, ok := ctx.Value(txKey{}).(*txn); ok {
		fn(tx)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(nil)
}

// write runs fn inside the caller's transaction, or in a single-statement one.
func (s *Store) write(ctx context.Context, fn func(tx *txn) error) error {
	return s.Do(ctx, func(ctx context.Context) error {
		return fn(ctx.Value(txKey{}).(*txn))
	})
}

// ride returns the newest visible version: staged first, then committed.
func (s *Store) ride(tx *txn, id string) (models.RideRequest, bool) {
	if tx != nil {
		if r, ok := tx.rides[id]; ok {
			return r, true
		}
	}
	r, ok := s.rides[id]
	return r, ok
}

func (s *Store) user(tx *txn, id uuid.UUID) (models.User, bool) {
	if tx != nil {
		if u, ok := tx.users[id]; ok {
			return u, true
		}
	}
	u, ok := s.users[id]
	return u, ok
}

func (tx *txn) stageRide(r models.RideRequest) {
	if _, ok := tx.rides[r.ID]; !ok {
		tx.rideOrder = append(tx.rideOrder, r.ID)
	}
	tx.rides[r.ID] = r
}

func (tx *txn) stageUser(u models.User) {
	if _, ok := tx.users[u.ID]; !ok {
		tx.userOrder = append(tx.userOrder, u.ID)
	}
	tx.users[u.ID] = u
}
