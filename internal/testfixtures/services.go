package testfixtures

import (
	"log/slog"
	"time"

	"github.com/example/lodging-scheduler/internal/application"
	"github.com/example/lodging-scheduler/internal/civil"
	"github.com/example/lodging-scheduler/internal/events"
	"github.com/example/lodging-scheduler/internal/idempotency"
	"github.com/example/lodging-scheduler/internal/lock"
	"github.com/example/lodging-scheduler/internal/persistence"
)

// ServiceFactory assists tests with constructing application services using
// deterministic identifiers and clocks. Every booking service it builds
// shares one Locker and one event Recorder.
type ServiceFactory struct {
	Clock       *Clock
	IDGenerator *IDGenerator
	Locker      lock.Locker
	Events      *events.Recorder
	Idempotency idempotency.Store
	Location    *time.Location
	Opening     civil.Clock
	Logger      *slog.Logger
}

// ServiceFactoryOption configures a ServiceFactory instance.
type ServiceFactoryOption func(*ServiceFactory)

// NewServiceFactory constructs a ServiceFactory with defaults.
func NewServiceFactory(opts ...ServiceFactoryOption) *ServiceFactory {
	factory := &ServiceFactory{
		Clock:       NewClock(time.Time{}),
		IDGenerator: NewIDGenerator("id"),
		Locker:      lock.NewKeyedMutex(),
		Events:      &events.Recorder{},
		Location:    time.UTC,
	}
	for _, opt := range opts {
		opt(factory)
	}
	if factory.Clock == nil {
		factory.Clock = NewClock(time.Time{})
	}
	if factory.IDGenerator == nil {
		factory.IDGenerator = NewIDGenerator("id")
	}
	if factory.Idempotency == nil {
		factory.Idempotency = idempotency.NewMemoryStore(time.Hour, 0, factory.Clock.NowFunc())
	}
	return factory
}

// WithClock overrides the clock used by the factory.
func WithClock(clock *Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Clock = clock
	}
}

// WithIDGenerator overrides the identifier generator used by the factory.
func WithIDGenerator(generator *IDGenerator) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.IDGenerator = generator
	}
}

// WithLocation sets the property time zone.
func WithLocation(loc *time.Location) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Location = loc
	}
}

// WithOpening sets the earliest suggested hourly start.
func WithOpening(opening civil.Clock) ServiceFactoryOption {
	return func(factory *ServiceFactory) {
		factory.Opening = opening
	}
}

// BookingDeps returns the dependencies shared by the booking services.
func (f *ServiceFactory) BookingDeps(store persistence.Store) application.BookingDeps {
	return application.BookingDeps{
		Store:       store,
		Locker:      f.Locker,
		Publisher:   f.Events,
		Idempotency: f.Idempotency,
		Now:         f.Clock.NowFunc(),
		IDGenerator: f.IDGenerator.NextFunc(),
		Location:    f.Location,
		Opening:     f.Opening,
		Logger:      f.Logger,
	}
}

// NewReservationService builds a reservation service over store.
func (f *ServiceFactory) NewReservationService(store persistence.Store) *application.ReservationService {
	return application.NewReservationService(f.BookingDeps(store))
}

// NewStayService builds a stay service over store.
func (f *ServiceFactory) NewStayService(store persistence.Store) *application.StayService {
	return application.NewStayService(f.BookingDeps(store))
}

// NewOccupancyService builds an occupancy service over store.
func (f *ServiceFactory) NewOccupancyService(store persistence.Store) *application.OccupancyService {
	return application.NewOccupancyService(f.BookingDeps(store))
}

// NewRoomService builds a room service over rooms.
func (f *ServiceFactory) NewRoomService(rooms persistence.RoomRepository) *application.RoomService {
	return application.NewRoomServiceWithLogger(rooms, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger)
}

// NewAccountService builds an account service with cheap password hashing.
func (f *ServiceFactory) NewAccountService(accounts persistence.AccountRepository) *application.AccountService {
	return application.NewAccountService(accounts, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), f.Logger).
		WithHashParams(FastHashParams)
}

// NewAuthService builds an auth service issuing sequential tokens.
func (f *ServiceFactory) NewAuthService(accounts persistence.AccountRepository, sessions persistence.SessionRepository, ttl time.Duration) *application.AuthService {
	return application.NewAuthServiceWithLogger(accounts, sessions, nil, f.IDGenerator.NextFunc(), f.Clock.NowFunc(), ttl, f.Logger)
}

// FastHashParams keeps argon2id cheap enough for tests.
var FastHashParams = application.Argon2idParams{
	Memory:      1024,
	Iterations:  1,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}
