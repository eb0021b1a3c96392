package ride

import (
	"fmt"
	"math"

	"github.com/Temutjin2k/ladies-drive/internal/domain/models"
	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

const (
	averageSpeedKmh = 30

	baseFare   = 7.5
	ratePerKm  = 2.5
	ratePerMin = 0.4
)

// calculateDuration returns whole minutes at the average city speed.
func calculateDuration(distanceKm float64) int {
	if distanceKm <= 0 {
		return 0
	}
	return int(math.Ceil(distanceKm / averageSpeedKmh * 60))
}

// calculateFare is base + per-km + per-minute, scaled by the service class.
func calculateFare(class types.ServiceClass, distanceKm float64, durationMin int) float64 {
	fare := baseFare + distanceKm*ratePerKm + float64(durationMin)*ratePerMin
	return math.Round(fare*class.Multiplier()*100) / 100
}

// Quote estimates the fare between two points. It is informational only: the
// price stored on a ride is the one supplied when it is requested.
func (s *Service) Quote(pickup, destination models.GeoPoint, class types.ServiceClass) (*models.Quote, error) {
	if !pickup.Valid() || !destination.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", types.ErrInvalidInput)
	}
	if class == "" {
		class = types.ClassRegular
	}
	if !class.IsValid() {
		return nil, fmt.Errorf("%w: unknown service class %q", types.ErrInvalidInput, class)
	}

	distance := pickup.DistanceKm(destination)
	duration := calculateDuration(distance)

	return &models.Quote{
		Class:       class,
		DistanceKm:  math.Round(distance*100) / 100,
		DurationMin: duration,
		Price:       calculateFare(class, distance, duration),
	}, nil
}
