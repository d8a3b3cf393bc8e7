package database

import (
	"log"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/chorushq/chorus/internal/models"
)

// SeedDevData populates the database with development test data.
// Idempotent: skips if data already exists.
func SeedDevData(db *gorm.DB) error {
	// Check if seed data already exists
	var existing int64
	if err := db.Model(&models.FeedbackRecord{}).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		log.Println("Seed data already exists, skipping")
		return nil
	}

	now := time.Now().UTC().Truncate(time.Second)

	// A processed batch from github plus the summary that covered it, so the
	// read endpoints have data immediately.
	records := []models.FeedbackRecord{
		{
			Source:    "github",
			Content:   "Issue #101: Export fails on large projects\n\nExporting more than 500 rows times out.",
			Metadata:  datatypes.JSON(`{"type":"issue","issue_number":"101","author":"al"}`),
			Processed: true,
			CreatedAt: now.Add(-30 * time.Hour),
		},
		{
			Source:    "github",
			Content:   "Issue #102: Dark mode resets on restart\n\nTheme preference is not persisted.",
			Metadata:  datatypes.JSON(`{"type":"issue","issue_number":"102","author":"mira"}`),
			Processed: true,
			CreatedAt: now.Add(-28 * time.Hour),
		},
		{
			Source:    "discord",
			Content:   "The new dashboard is really fast, nice work",
			Metadata:  datatypes.JSON(`{"type":"message","author":"sana"}`),
			CreatedAt: now.Add(-5 * time.Hour),
		},
		{
			Source:    "email",
			Content:   "Subject: Sync keeps failing\n\nIt stops at 90% every time I sync a large library.",
			Metadata:  datatypes.JSON(`{"type":"email","author":"pat@example.com"}`),
			CreatedAt: now.Add(-3 * time.Hour),
		},
		{
			Source:    "zendesk",
			Content:   "Ticket #4821: Cannot log in\n\nPassword reset email never arrives.",
			Metadata:  datatypes.JSON(`{"type":"ticket","ticket_id":"4821","author":"lee@example.com"}`),
			CreatedAt: now.Add(-time.Hour),
		},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			return err
		}
	}

	summary := models.SourceSummary{
		Source:         "github",
		SummaryText:    "Two issues reported: export timeouts on large projects and dark mode preference not persisting across restarts. Both are regressions from the latest release.",
		DateRangeStart: now.Add(-30 * time.Hour),
		DateRangeEnd:   now.Add(-28 * time.Hour),
		FeedbackCount:  2,
		CreatedAt:      now.Add(-27 * time.Hour),
	}
	if err := db.Create(&summary).Error; err != nil {
		return err
	}

	aggregated := models.AggregatedSummary{
		SummaryText:        "GitHub feedback this week centers on two release regressions (export timeouts, lost theme preference). Other channels are quiet.",
		DateRangeStart:     now.Add(-7 * 24 * time.Hour),
		DateRangeEnd:       now.Add(-26 * time.Hour),
		SourceCount:        1,
		TotalFeedbackCount: 2,
		CreatedAt:          now.Add(-26 * time.Hour),
	}
	if err := db.Create(&aggregated).Error; err != nil {
		return err
	}

	log.Println("Seeded dev data: 5 feedback records, 1 source summary, 1 aggregated summary")
	return nil
}
