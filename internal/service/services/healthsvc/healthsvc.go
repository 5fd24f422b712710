package healthsvc

import (
	"context"
	"fmt"
	"time"
)

// pinger is the reachability slice of the order store adapter.
type pinger interface {
	PingStore(ctx context.Context) error
	PingBlob(ctx context.Context) error
}

// Report is one point-in-time health snapshot.
type Report struct {
	StoreOK  bool          `json:"storeOk"`
	BlobOK   bool          `json:"blobOk"`
	StoreErr string        `json:"storeErr,omitempty"`
	BlobErr  string        `json:"blobErr,omitempty"`
	Uptime   time.Duration `json:"uptime"`
}

// Healthy reports whether every dependency answered.
func (r Report) Healthy() bool {
	return r.StoreOK && r.BlobOK
}

// Service probes the external dependencies for the health endpoint and
// the admin health command.
type Service struct {
	pinger  pinger
	started time.Time
	now     func() time.Time
}

// option is a function that configures the Service.
type option func(*Service)

// MustNewService creates a new health Service.
func MustNewService(opts ...option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	if s.pinger == nil {
		panic("healthsvc: pinger is required")
	}
	if s.started.IsZero() {
		s.started = s.now()
	}

	return s
}

// WithPinger sets the dependency prober for the Service.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPinger(p pinger) option {
	return func(s *Service) { s.pinger = p }
}

// WithClock overrides the time source, for tests.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *Service) { s.now = now }
}

// Check probes the record store and the blob store. Probe failures are
// reported, not returned; the report itself always succeeds.
func (s *Service) Check(ctx context.Context) Report {
	r := Report{
		StoreOK: true,
		BlobOK:  true,
		Uptime:  s.now().Sub(s.started).Truncate(time.Second),
	}

	if err := s.pinger.PingStore(ctx); err != nil {
		r.StoreOK = false
		r.StoreErr = err.Error()
	}
	if err := s.pinger.PingBlob(ctx); err != nil {
		r.BlobOK = false
		r.BlobErr = err.Error()
	}

	return r
}

// Render formats a report for the admin health command.
func (s *Service) Render(r Report) string {
	mark := func(ok bool) string {
		if ok {
			return "✅"
		}

		return "❌"
	}

	return fmt.Sprintf("System health\n%s Record store\n%s Blob storage\nUptime: %s",
		mark(r.StoreOK), mark(r.BlobOK), r.Uptime)
}
