package admin

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
	"github.com/Temutjin2k/ladies-drive/pkg/logger"
	wrap "github.com/Temutjin2k/ladies-drive/pkg/logger/wrapper"
	"github.com/Temutjin2k/ladies-drive/pkg/trm"
)

const activityCapacity = 100

type AdminService struct {
	rides  RideRepo
	users  UserRepo
	tokens TokenIssuer
	trm    trm.TxManager
	now    func() time.Time
	l      logger.Logger

	mu       sync.Mutex
	activity []models.Activity
}

func NewAdminService(rides RideRepo, users UserRepo, tokens TokenIssuer, tm trm.TxManager, l logger.Logger) *AdminService {
	return &AdminService{
		rides:  rides,
		users:  users,
		tokens: tokens,
		trm:    tm,
		now:    time.Now,
		l:      l,
	}
}

// GetOverview summarizes rides per status, drivers per availability and the
// revenue of completed rides.
func (s *AdminService) GetOverview(ctx context.Context) (*models.Overview, error) {
	stats, err := s.rides.Stats(ctx)
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to get ride stats: %w", err))
	}

	drivers, err := s.users.List(ctx, models.UserFilter{Role: types.RoleDriver})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list drivers: %w", err))
	}
	distribution := map[types.Availability]int{
		types.AvailabilityAvailable: 0,
		types.AvailabilityBusy:      0,
		types.AvailabilityOffline:   0,
	}
	for _, d := range drivers {
		distribution[d.Availability]++
	}

	overview := &models.Overview{
		Timestamp:          s.now().UTC(),
		RidesByStatus:      stats.ByStatus,
		DriverDistribution: distribution,
		Metrics: models.OverviewMetrics{
			SearchingRides:   stats.ByStatus[types.StatusSearching],
			AvailableDrivers: distribution[types.AvailabilityAvailable],
			BusyDrivers:      distribution[types.AvailabilityBusy],
			CompletedRevenue: stats.CompletedRevenue,
		},
	}
	for _, st := range types.ActiveRideStatuses {
		overview.Metrics.ActiveRides += stats.ByStatus[st]
	}

	finished := stats.ByStatus[types.StatusCompleted] + stats.ByStatus[types.StatusCancelled]
	if finished > 0 {
		rate := float64(stats.ByStatus[types.StatusCancelled]) / float64(finished)
		overview.Metrics.CancellationRate = math.Round(rate*1000) / 1000
	}

	return overview, nil
}

// GetActiveRides lists the rides currently assigned to a driver, oldest first.
func (s *AdminService) GetActiveRides(ctx context.Context, filters models.Filters) ([]models.RideRequest, error) {
	rides, err := s.rides.List(ctx, models.RideFilter{
		Statuses: types.ActiveRideStatuses,
		Limit:    filters.Limit(),
		Offset:   filters.Offset(),
	})
	if err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to list active rides: %w", err))
	}
	return rides, nil
}

func (s *AdminService) ListDrivers(ctx context.Context, filter models.UserFilter, filters models.Filters) ([]models.User, models.Metadata, error) {
	filter.Role = types.RoleDriver
	return s.listUsers(ctx, filter, filters)
}

func (s *AdminService) ListPassengers(ctx context.Context, city string, filters models.Filters) ([]models.User, models.Metadata, error) {
	return s.listUsers(ctx, models.UserFilter{Role: types.RolePassenger, City: city}, filters)
}

func (s *AdminService) listUsers(ctx context.Context, filter models.UserFilter, filters models.Filters) ([]models.User, models.Metadata, error) {
	total, err := s.users.Count(ctx, filter)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("failed to count users: %w", err))
	}

	filter.Limit, filter.Offset = filters.Limit(), filters.Offset()
	users, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, models.Metadata{}, wrap.Error(ctx, fmt.Errorf("failed to list users: %w", err))
	}
	if users == nil {
		users = []models.User{}
	}

	return users, models.CalculateMetadata(total, filters.Page, filters.PageSize), nil
}

type CreateUserInput struct {
	Role   types.UserRole
	Name   string
	Phone  string
	City   string
	Avatar string
}

// CreateUser provisions a passenger, driver or admin account. Accounts
// normally come from the identity provider; this is the operator path.
func (s *AdminService) CreateUser(ctx context.Context, in CreateUserInput) (*models.User, error) {
	ctx = wrap.WithAction(ctx, "create_user")

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: name is required", types.ErrInvalidInput))
	}
	if !in.Role.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown role %q", types.ErrInvalidInput, in.Role))
	}

	u := models.NewUser(uuid.New(), in.Role, in.Name)
	u.Phone = in.Phone
	u.City = strings.TrimSpace(in.City)
	u.Avatar = in.Avatar

	if err := s.users.Create(ctx, u); err != nil {
		return nil, wrap.Error(ctx, fmt.Errorf("failed to create user: %w", err))
	}

	s.l.Info(wrap.WithUserID(ctx, u.ID.String()), "user created", "role", u.Role)
	return u, nil
}

// SetVerification records the document review outcome for a driver.
func (s *AdminService) SetVerification(ctx context.Context, driverID uuid.UUID, status types.Verification) (*models.User, error) {
	ctx = wrap.WithAction(wrap.WithDriverID(ctx, driverID.String()), types.ActionSetVerification)

	if !status.IsValid() {
		return nil, wrap.Error(ctx, fmt.Errorf("%w: unknown verification status %q", types.ErrInvalidInput, status))
	}

	var driver *models.User
	err := trm.DoRetryable(ctx, s.trm, trm.DefaultRetryPolicy, func(ctx context.Context) error {
		d, err := s.users.Get(ctx, driverID)
		if err != nil {
			return err
		}
		if !d.IsDriver() {
			return fmt.Errorf("%w: not a driver", types.ErrInvalidInput)
		}
		d.Verification = status
		if err := s.users.Update(ctx, d); err != nil {
			return fmt.Errorf("failed to update driver: %w", err)
		}
		driver = d
		return nil
	})
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}

	s.l.Info(ctx, "driver verification changed", "verification", status)
	return driver, nil
}

func (s *AdminService) IssueToken(ctx context.Context, userID uuid.UUID) (*models.IssuedToken, error) {
	ctx = wrap.WithAction(wrap.WithUserID(ctx, userID.String()), types.ActionIssueToken)

	token, err := s.tokens.IssueFor(ctx, userID)
	if err != nil {
		return nil, wrap.Error(ctx, err)
	}
	s.l.Info(ctx, "access token issued")
	return token, nil
}
