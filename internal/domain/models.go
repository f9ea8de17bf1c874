// Package domain defines the persistence models for leads, artisans, their
// service offerings, subscriptions, capacity ledger rows, assignments and
// merge links. These types are mapped with GORM and form the core data layer
// of the lead dispatch service.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Lead represents an inbound service request to be matched to artisans.
// Leads are created by the intake surface; the allocation engine only moves
// them from "new" to "distributed".
//
// Fields:
//   - ID: UUID primary key (char(36)).
//   - ServiceID: optional reference to the requested service.
//   - ServiceName: optional free-text service label (used for specialty matching).
//   - Latitude / Longitude: optional geographic point; both must be set to count.
//   - Department / PostalCode: administrative location of the request.
//   - Urgency: low|medium|high|emergency.
//   - Status: new|distributed|fulfilled|expired|canceled.
//   - DistributedAt: set when the first allocation succeeded.
type Lead struct {
	ID            string     `json:"id"             gorm:"type:char(36);primaryKey"`
	ServiceID     *string    `json:"service_id,omitempty"   gorm:"type:char(36);index"`
	ServiceName   string     `json:"service_name"   gorm:"type:varchar(255);not null;default:''"`
	Latitude      *float64   `json:"latitude,omitempty"`
	Longitude     *float64   `json:"longitude,omitempty"`
	Department    string     `json:"department"     gorm:"type:varchar(8);not null;default:'';index"`
	PostalCode    string     `json:"postal_code"    gorm:"type:varchar(16);not null;default:''"`
	Urgency       Urgency    `json:"urgency"        gorm:"type:varchar(16);not null;default:'medium'"`
	Status        LeadStatus `json:"status"         gorm:"type:varchar(16);not null;default:'new';index"`
	DistributedAt *time.Time `json:"distributed_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Lead.
func (Lead) TableName() string { return "leads" }

// Point returns the lead location when both coordinates are known.
func (l Lead) Point() (Point, bool) { return pointOf(l.Latitude, l.Longitude) }

// Artisan is a provider that can receive leads. Only active, non-deleted and
// non-merged artisans are eligible candidates.
//
// MergedInto is a back-reference to the record that superseded this one; the
// check constraint forbids an artisan from referencing itself.
type Artisan struct {
	ID          string         `json:"id"           gorm:"type:char(36);primaryKey"`
	Name        string         `json:"name"         gorm:"type:varchar(255);not null;default:''"`
	Active      bool           `json:"active"       gorm:"not null;default:true;index"`
	Latitude    *float64       `json:"latitude,omitempty"`
	Longitude   *float64       `json:"longitude,omitempty"`
	Department  string         `json:"department"   gorm:"type:varchar(8);not null;default:'';index"`
	Specialty   string         `json:"specialty"    gorm:"type:varchar(255);not null;default:''"`
	Rating      float64        `json:"rating"       gorm:"not null;default:0"`
	ReviewCount int            `json:"review_count" gorm:"not null;default:0"`
	VerifiedAt  *time.Time     `json:"verified_at,omitempty"`
	ClaimedAt   *time.Time     `json:"claimed_at,omitempty"`
	MergedInto  *string        `json:"merged_into,omitempty"  gorm:"type:char(36);index;check:chk_artisans_not_self_merged,merged_into IS NULL OR merged_into <> id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `json:"-"            gorm:"index"`
}

// TableName returns the database table name for Artisan.
func (Artisan) TableName() string { return "artisans" }

// Point returns the artisan location when both coordinates are known.
func (a Artisan) Point() (Point, bool) { return pointOf(a.Latitude, a.Longitude) }

// Verified reports whether the artisan passed verification.
func (a Artisan) Verified() bool { return a.VerifiedAt != nil }

// Claimed reports whether the artisan profile was claimed by its owner.
func (a Artisan) Claimed() bool { return a.ClaimedAt != nil }

// ArtisanService is an explicit (artisan, service) offering. Its RadiusKm
// overrides the configured geo radius for matching when present.
type ArtisanService struct {
	ID        string           `json:"id"         gorm:"type:char(36);primaryKey"`
	ArtisanID string           `json:"artisan_id" gorm:"type:char(36);not null;uniqueIndex:ux_artisan_service,priority:1"`
	ServiceID string           `json:"service_id" gorm:"type:char(36);not null;uniqueIndex:ux_artisan_service,priority:2;index"`
	RadiusKm  *float64         `json:"radius_km,omitempty"`
	PriceMin  *decimal.Decimal `json:"price_min,omitempty" gorm:"type:decimal(12,2)"`
	PriceMax  *decimal.Decimal `json:"price_max,omitempty" gorm:"type:decimal(12,2)"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// TableName returns the database table name for ArtisanService.
func (ArtisanService) TableName() string { return "artisan_services" }

// MatchingConfig is the tunable record consumed by the candidate filter and
// the scorer. Exactly one row is expected to carry IsActive=true; the most
// recently updated active row wins otherwise.
type MatchingConfig struct {
	ID                    string         `json:"id"                       gorm:"type:char(36);primaryKey"`
	IsActive              bool           `json:"is_active"                gorm:"not null;default:false;index"`
	Strategy              Strategy       `json:"matching_strategy"        gorm:"column:matching_strategy;type:varchar(32);not null;default:'scored'"`
	MaxArtisansPerLead    int            `json:"max_artisans_per_lead"    gorm:"not null;default:3"`
	GeoRadiusKm           float64        `json:"geo_radius_km"            gorm:"not null;default:50"`
	RequireSameDepartment bool           `json:"require_same_department"  gorm:"not null;default:false"`
	RequireSpecialtyMatch bool           `json:"require_specialty_match"  gorm:"not null;default:false"`
	SpecialtyMatchMode    string         `json:"specialty_match_mode"     gorm:"type:varchar(16);not null;default:'substring'"`
	WeightRating          int            `json:"weight_rating"            gorm:"not null;default:30"`
	WeightReviews         int            `json:"weight_reviews"           gorm:"not null;default:20"`
	WeightVerified        int            `json:"weight_verified"          gorm:"not null;default:15"`
	WeightProximity       int            `json:"weight_proximity"         gorm:"not null;default:25"`
	WeightResponseRate    int            `json:"weight_response_rate"     gorm:"not null;default:10"`
	DailyQuotaDefault     int            `json:"daily_quota_default"      gorm:"not null;default:0"`
	MonthlyQuotaDefault   int            `json:"monthly_quota_default"    gorm:"not null;default:0"`
	CooldownMinutes       int            `json:"cooldown_minutes"         gorm:"not null;default:0"`
	ExpiryHours           int            `json:"expiry_hours"             gorm:"not null;default:48"`
	MinRating             float64        `json:"min_rating"               gorm:"not null;default:0"`
	RequireVerifiedUrgent bool           `json:"require_verified_urgent"  gorm:"not null;default:false"`
	PreferClaimed         bool           `json:"prefer_claimed"           gorm:"not null;default:false"`
	UrgencyMultipliers    datatypes.JSON `json:"urgency_multipliers,omitempty"`
	CreatedAt             time.Time      `json:"created_at"`
	UpdatedAt             time.Time      `json:"updated_at"`
}

// TableName returns the database table name for MatchingConfig.
func (MatchingConfig) TableName() string { return "matching_configs" }

// Subscription is an artisan's plan. MonthlyLeadQuota bounds how many leads
// can be reserved per calendar month while the subscription is active.
type Subscription struct {
	ID               string     `json:"id"                 gorm:"type:char(36);primaryKey"`
	ArtisanID        string     `json:"artisan_id"         gorm:"type:char(36);not null;index"`
	PlanCode         string     `json:"plan_code"          gorm:"type:varchar(64);not null;default:''"`
	Status           string     `json:"status"             gorm:"type:varchar(16);not null;default:'active';index"`
	MonthlyLeadQuota int        `json:"monthly_lead_quota" gorm:"not null;default:0"`
	StartsAt         time.Time  `json:"starts_at"`
	EndsAt           *time.Time `json:"ends_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// TableName returns the database table name for Subscription.
func (Subscription) TableName() string { return "subscriptions" }

// SubscriptionActive is the status value of a live subscription.
const SubscriptionActive = "active"

// CapacityLedgerEntry holds the per-artisan, per-month counters. Rows are
// created lazily on the first reservation of the month.
//
// Invariant: Reserved >= 0 (enforced by a check constraint as well).
type CapacityLedgerEntry struct {
	ArtisanID string    `json:"artisan_id" gorm:"type:char(36);primaryKey"`
	Month     string    `json:"month"      gorm:"type:char(7);primaryKey"`
	Reserved  int       `json:"reserved"   gorm:"not null;default:0;check:chk_ledger_reserved_non_negative,reserved >= 0"`
	Consumed  int       `json:"consumed"   gorm:"not null;default:0"`
	Released  int       `json:"released"   gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for CapacityLedgerEntry.
func (CapacityLedgerEntry) TableName() string { return "capacity_ledger" }

// LeadAssignment is one delivered (lead, artisan) match. The pair is unique,
// and Month records which ledger row the reservation was charged to.
type LeadAssignment struct {
	ID          string           `json:"id"          gorm:"type:char(36);primaryKey"`
	LeadID      string           `json:"lead_id"     gorm:"type:char(36);not null;uniqueIndex:ux_assignment_lead_artisan,priority:1;index:idx_assignment_lead_rank,priority:1"`
	ArtisanID   string           `json:"artisan_id"  gorm:"type:char(36);not null;uniqueIndex:ux_assignment_lead_artisan,priority:2;index"`
	Score       float64          `json:"score"       gorm:"not null;default:0"`
	DistanceKm  *float64         `json:"distance_km,omitempty"`
	Rank        int              `json:"rank"        gorm:"not null;default:0;index:idx_assignment_lead_rank,priority:2"`
	Status      AssignmentStatus `json:"status"      gorm:"type:varchar(16);not null;default:'pending';index"`
	Month       string           `json:"month"       gorm:"type:char(7);not null"`
	ReservedAt  time.Time        `json:"reserved_at" gorm:"index"`
	ViewedAt    *time.Time       `json:"viewed_at,omitempty"`
	RespondedAt *time.Time       `json:"responded_at,omitempty"`
	ConsumedAt  *time.Time       `json:"consumed_at,omitempty"`
	ReleasedAt  *time.Time       `json:"released_at,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Lead Lead `json:"-" gorm:"foreignKey:LeadID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE"`
}

// TableName returns the database table name for LeadAssignment.
func (LeadAssignment) TableName() string { return "lead_assignments" }

// MergeLink records that OldID was superseded by NewID. Links form a chain.
type MergeLink struct {
	OldID     string    `json:"old_id"     gorm:"type:char(36);primaryKey;check:chk_merge_links_not_self,old_id <> new_id"`
	NewID     string    `json:"new_id"     gorm:"type:char(36);not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName returns the database table name for MergeLink.
func (MergeLink) TableName() string { return "artisan_merge_links" }

// Models lists every persisted type in migration order.
func Models() []any {
	return []any{
		&Lead{},
		&Artisan{},
		&ArtisanService{},
		&MatchingConfig{},
		&Subscription{},
		&CapacityLedgerEntry{},
		&LeadAssignment{},
		&MergeLink{},
	}
}
