// Package testhelpers provides shared fixtures for package tests: an isolated
// in-memory SQLite database with the full schema, and seed builders that fill
// sensible defaults for leads, artisans, offerings, subscriptions and the
// active matching configuration.
package testhelpers

import (
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite" // pure-Go SQLite (no CGO)
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/lead-dispatch/internal/domain"
)

// NewDB opens a fresh shared-cache in-memory database and migrates every
// model. The pool is capped at one connection so concurrent tests serialize
// on it; code under test must use the transaction handle inside a tx.
func NewDB(t testing.TB) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("db.DB(): %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	if err := db.AutoMigrate(domain.Models()...); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// F returns a pointer to v.
func F(v float64) *float64 { return &v }

// S returns a pointer to v.
func S(v string) *string { return &v }

// T returns a pointer to v.
func T(v time.Time) *time.Time { return &v }

// Paris and nearby points used across tests.
var (
	ParisLat, ParisLng           = 48.8566, 2.3522
	VersaillesLat, VersaillesLng = 48.8049, 2.1204 // ~18 km from Paris
	LyonLat, LyonLng             = 45.7640, 4.8357 // ~392 km from Paris
)

// CreateLead inserts l, defaulting ID, status and urgency.
func CreateLead(t testing.TB, db *gorm.DB, l domain.Lead) domain.Lead {
	t.Helper()
	if l.ID == "" {
		l.ID = uuid.NewString()
	}
	if l.Status == "" {
		l.Status = domain.LeadNew
	}
	if l.Urgency == "" {
		l.Urgency = domain.UrgencyMedium
	}
	if err := db.Create(&l).Error; err != nil {
		t.Fatalf("create lead: %v", err)
	}
	return l
}

// CreateArtisan inserts an active artisan built from a. Use Deactivate to
// flip the flag afterwards, since a zero Active is replaced by the column
// default.
func CreateArtisan(t testing.TB, db *gorm.DB, a domain.Artisan) domain.Artisan {
	t.Helper()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	a.Active = true
	if err := db.Create(&a).Error; err != nil {
		t.Fatalf("create artisan: %v", err)
	}
	return a
}

// Deactivate marks the artisan inactive.
func Deactivate(t testing.TB, db *gorm.DB, id string) {
	t.Helper()
	if err := db.Model(&domain.Artisan{}).Where("id = ?", id).Update("active", false).Error; err != nil {
		t.Fatalf("deactivate artisan: %v", err)
	}
}

// CreateOffering registers artisanID for serviceID with an optional radius.
func CreateOffering(t testing.TB, db *gorm.DB, artisanID, serviceID string, radiusKm *float64) domain.ArtisanService {
	t.Helper()
	o := domain.ArtisanService{ID: uuid.NewString(), ArtisanID: artisanID, ServiceID: serviceID, RadiusKm: radiusKm}
	if err := db.Create(&o).Error; err != nil {
		t.Fatalf("create offering: %v", err)
	}
	return o
}

// CreateSubscription inserts an active subscription started yesterday.
func CreateSubscription(t testing.TB, db *gorm.DB, artisanID string, monthlyQuota int) domain.Subscription {
	t.Helper()
	s := domain.Subscription{
		ID:               uuid.NewString(),
		ArtisanID:        artisanID,
		PlanCode:         "pro",
		Status:           domain.SubscriptionActive,
		MonthlyLeadQuota: monthlyQuota,
		StartsAt:         time.Now().UTC().Add(-24 * time.Hour),
	}
	if err := db.Create(&s).Error; err != nil {
		t.Fatalf("create subscription: %v", err)
	}
	return s
}

// CreateConfig inserts c as the active configuration. Zero numeric fields
// fall back to the column defaults (3 per lead, 50 km, default weights).
func CreateConfig(t testing.TB, db *gorm.DB, c domain.MatchingConfig) domain.MatchingConfig {
	t.Helper()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	if c.Strategy == "" {
		c.Strategy = domain.StrategyScored
	}
	c.IsActive = true
	if err := db.Create(&c).Error; err != nil {
		t.Fatalf("create config: %v", err)
	}
	var out domain.MatchingConfig
	if err := db.First(&out, "id = ?", c.ID).Error; err != nil {
		t.Fatalf("reload config: %v", err)
	}
	return out
}

// SetReserved forces the ledger counter for (artisanID, month).
func SetReserved(t testing.TB, db *gorm.DB, artisanID, month string, reserved int) {
	t.Helper()
	e := domain.CapacityLedgerEntry{ArtisanID: artisanID, Month: month, Reserved: reserved, UpdatedAt: time.Now().UTC()}
	if err := db.Save(&e).Error; err != nil {
		t.Fatalf("set reserved: %v", err)
	}
}
