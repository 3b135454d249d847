// Package app wires the domain services to their persistence backends.
package app

import (
	"github.com/astrovia/backend/internal/app/services/consultations"
	"github.com/astrovia/backend/internal/app/services/credits"
	"github.com/astrovia/backend/internal/app/services/deletion"
	"github.com/astrovia/backend/internal/app/services/profiles"
	pushsvc "github.com/astrovia/backend/internal/app/services/push"
	supportsvc "github.com/astrovia/backend/internal/app/services/support"
	"github.com/astrovia/backend/internal/app/storage"
	"github.com/astrovia/backend/internal/app/storage/memory"
	"github.com/astrovia/backend/internal/cache"
	"github.com/astrovia/backend/internal/metrics"
	"github.com/astrovia/backend/pkg/logger"
)

// Stores encapsulates persistence dependencies. Nil stores default to a
// shared in-memory implementation.
type Stores struct {
	Profiles      storage.ProfileStore
	Consultations storage.ConsultationStore
	Credits       storage.CreditStore
	Push          storage.PushStore
	Support       storage.SupportStore
	Files         storage.FileStore
	Identity      storage.IdentityStore
}

// Options carries optional cross-cutting dependencies.
type Options struct {
	Cache   *cache.Cache
	Metrics *metrics.Metrics
	Buckets []string
}

// Application ties the domain services together.
type Application struct {
	log *logger.Logger

	Credits       *credits.Service
	Push          *pushsvc.Service
	Deletion      *deletion.Service
	Consultations *consultations.Service
	Profiles      *profiles.Service
	Support       *supportsvc.Service
}

// New builds a fully initialised application with the provided stores.
func New(stores Stores, opts Options, log *logger.Logger) (*Application, error) {
	if log == nil {
		log = logger.NewDefault("app")
	}

	mem := memory.New()
	if stores.Profiles == nil {
		stores.Profiles = mem
	}
	if stores.Consultations == nil {
		stores.Consultations = mem
	}
	if stores.Credits == nil {
		stores.Credits = mem
	}
	if stores.Push == nil {
		stores.Push = mem
	}
	if stores.Support == nil {
		stores.Support = mem
	}
	if stores.Files == nil {
		stores.Files = mem
	}
	if stores.Identity == nil {
		stores.Identity = mem
	}

	buckets := opts.Buckets
	if len(buckets) == 0 {
		buckets = []string{"user-avatars", "advisor-avatars"}
	}

	creditService := credits.New(stores.Credits, log.Named("credits"))
	if opts.Cache != nil {
		creditService.WithCache(opts.Cache)
	}
	if opts.Metrics != nil {
		creditService.WithMetrics(opts.Metrics)
	}

	deletionService := deletion.New(deletion.Stores{
		Profiles:      stores.Profiles,
		Consultations: stores.Consultations,
		Credits:       stores.Credits,
		Push:          stores.Push,
		Support:       stores.Support,
		Files:         stores.Files,
		Identity:      stores.Identity,
	}, buckets, log.Named("deletion"))
	if opts.Metrics != nil {
		deletionService.WithMetrics(opts.Metrics)
	}

	return &Application{
		log:           log,
		Credits:       creditService,
		Push:          pushsvc.New(stores.Push, log.Named("push")),
		Deletion:      deletionService,
		Consultations: consultations.New(stores.Consultations, log.Named("consultations")),
		Profiles:      profiles.New(stores.Profiles, log.Named("profiles")),
		Support:       supportsvc.New(stores.Support, log.Named("support")),
	}, nil
}
