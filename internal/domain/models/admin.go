package models

import (
	"time"

	"github.com/Temutjin2k/ladies-drive/internal/domain/types"
)

type Overview struct {
	Timestamp          time.Time                  `json:"timestamp"`
	RidesByStatus      map[types.RideStatus]int   `json:"rides_by_status"`
	DriverDistribution map[types.Availability]int `json:"driver_distribution"`
	Metrics            OverviewMetrics            `json:"metrics"`
}

type OverviewMetrics struct {
	ActiveRides      int     `json:"active_rides"`
	SearchingRides   int     `json:"searching_rides"`
	AvailableDrivers int     `json:"available_drivers"`
	BusyDrivers      int     `json:"busy_drivers"`
	CompletedRevenue float64 `json:"completed_revenue"`
	CancellationRate float64 `json:"cancellation_rate"`
}

// Activity is one ride status change observed on the broker.
type Activity struct {
	RideID     string           `json:"ride_id"`
	Status     types.RideStatus `json:"status"`
	City       string           `json:"city"`
	Price      float64          `json:"price"`
	OccurredAt time.Time        `json:"occurred_at"`
}
