package httpapi

import (
	"gorm.io/gorm"

	"github.com/tbourn/lead-dispatch/internal/config"
	"github.com/tbourn/lead-dispatch/internal/services"
)

// Services is the allocation engine assembled over one database handle.
type Services struct {
	Configs     *services.ConfigStore
	Identity    *services.IdentityResolver
	Ledger      *services.CapacityLedger
	Allocator   *services.Allocator
	Assignments *services.AssignmentService
}

// NewServices builds the engine. locker guards per-lead allocation; pub may
// be nil when no event transport is configured.
func NewServices(db *gorm.DB, eng config.EngineConfig, locker services.LeadLocker, pub services.AssignmentPublisher) *Services {
	configs := services.NewConfigStore(db, eng.ConfigCacheTTL)
	identity := &services.IdentityResolver{DB: db, MaxDepth: eng.MergeMaxDepth}

	retries := eng.ReserveRetries
	if retries == 0 {
		retries = -1 // ledger treats 0 as its default
	}
	ledger := &services.CapacityLedger{DB: db, Retries: retries}

	return &Services{
		Configs:  configs,
		Identity: identity,
		Ledger:   ledger,
		Allocator: &services.Allocator{
			DB:        db,
			Configs:   configs,
			Locker:    locker,
			Filter:    &services.CandidateFilter{Resolver: identity},
			Ledger:    ledger,
			Publisher: pub,
		},
		Assignments: &services.AssignmentService{DB: db, Ledger: ledger, Configs: configs},
	}
}
