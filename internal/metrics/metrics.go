package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Booking engine counters. Registered on the default registry and exposed
// via /metrics.

var (
	BookingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studiobook_bookings_total",
		Help: "Booking state transitions by resulting status.",
	}, []string{"status"})

	WaitlistPromotionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiobook_waitlist_promotions_total",
		Help: "Waitlisted bookings promoted to confirmed.",
	})

	CreditDebitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiobook_credit_debits_total",
		Help: "Credits debited by bookings, promotions and drop-ins.",
	})

	CreditRefundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiobook_credit_refunds_total",
		Help: "Credits refunded by cancellations and drop-in removals.",
	})

	InsufficientCreditsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "studiobook_insufficient_credits_total",
		Help: "Booking attempts rejected for lack of credits.",
	})

	DropInsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "studiobook_drop_ins_total",
		Help: "Drop-in attendance records by action.",
	}, []string{"action"})
)
