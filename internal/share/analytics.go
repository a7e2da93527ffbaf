package share

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rohits-web03/sharegate/internal/models"
)

const (
	// RecentActivityLimit caps the activity feed in a report.
	RecentActivityLimit = 20
	dailyWindow         = 7 * 24 * time.Hour
)

type Summary struct {
	TotalViews      int   `json:"totalViews"`
	TotalDownloads  int   `json:"totalDownloads"`
	BlockedAttempts int   `json:"blockedAttempts"`
	UniqueViewers   int   `json:"uniqueViewers"`
	DownloadCount   int   `json:"downloadCount"`
	MaxDownloads    *int  `json:"maxDownloads"`
	Recipients      int64 `json:"recipients"`
}

type Activity struct {
	ID        uuid.UUID          `json:"id"`
	Event     models.AccessEvent `json:"event"`
	IP        string             `json:"ip"`
	Country   *string            `json:"country"`
	UserAgent *string            `json:"userAgent"`
	Allowed   bool               `json:"allowed"`
	CreatedAt time.Time          `json:"createdAt"`
}

// Report is the analytics view of one transfer.
type Report struct {
	TransferID     string         `json:"transferId"`
	Summary        Summary        `json:"summary"`
	ViewsByCountry map[string]int `json:"viewsByCountry"`
	DailyViews     map[string]int `json:"dailyViews"`
	RecentActivity []Activity     `json:"recentActivity"`
}

// ComputeAnalytics derives a report from a transfer's access logs. It is
// recomputed on every read; nothing is materialized.
//
// Unique viewers are distinct non-empty IP strings, so every "unknown"
// entry collapses into one viewer. Daily buckets use each entry's own
// timestamp location and only cover the last seven days before now.
func ComputeAnalytics(transferID string, logs []models.AccessLog, now time.Time) Report {
	sorted := make([]models.AccessLog, len(logs))
	copy(sorted, logs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.After(sorted[j].CreatedAt)
	})

	report := Report{
		TransferID:     transferID,
		ViewsByCountry: map[string]int{},
		DailyViews:     map[string]int{},
		RecentActivity: make([]Activity, 0, min(len(sorted), RecentActivityLimit)),
	}

	ips := make(map[string]struct{})
	since := now.Add(-dailyWindow)

	for i, log := range sorted {
		switch log.Event {
		case models.AccessEventView:
			report.Summary.TotalViews++
		case models.AccessEventDownload:
			report.Summary.TotalDownloads++
		case models.AccessEventBlocked:
			report.Summary.BlockedAttempts++
		}

		if log.IP != "" {
			ips[log.IP] = struct{}{}
		}

		if log.Country != nil && *log.Country != "" {
			report.ViewsByCountry[*log.Country]++
		}

		if log.CreatedAt.After(since) {
			report.DailyViews[log.CreatedAt.Format(time.DateOnly)]++
		}

		if i < RecentActivityLimit {
			report.RecentActivity = append(report.RecentActivity, Activity{
				ID:        log.ID,
				Event:     log.Event,
				IP:        log.IP,
				Country:   log.Country,
				UserAgent: log.UserAgent,
				Allowed:   log.Allowed,
				CreatedAt: log.CreatedAt,
			})
		}
	}

	report.Summary.UniqueViewers = len(ips)
	return report
}
