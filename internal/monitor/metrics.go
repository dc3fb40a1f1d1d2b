package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SitesProcessed tracks sites that completed a full pipeline pass.
	SitesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticewatch_sites_processed_total",
		Help: "The total number of sites processed successfully.",
	})
	// SitesFailed tracks sites aborted by a fetch or parse error.
	SitesFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticewatch_sites_failed_total",
		Help: "The total number of sites aborted by an error.",
	})
	// NewItems tracks announcement rows classified as new.
	NewItems = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticewatch_new_items_total",
		Help: "The total number of new announcements discovered.",
	})
	// DeliveryFailures tracks notifications that could not be delivered.
	DeliveryFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "noticewatch_delivery_failures_total",
		Help: "The total number of failed notification deliveries.",
	})
)
