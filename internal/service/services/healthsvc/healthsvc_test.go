package healthsvc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakePinger struct {
	storeErr error
	blobErr  error
}

func (f *fakePinger) PingStore(context.Context) error { return f.storeErr }
func (f *fakePinger) PingBlob(context.Context) error  { return f.blobErr }

func TestCheck_AllHealthy(t *testing.T) {
	svc := MustNewService(WithPinger(&fakePinger{}))

	r := svc.Check(context.Background())

	assert.True(t, r.Healthy())
	assert.Empty(t, r.StoreErr)
	assert.Empty(t, r.BlobErr)
}

func TestCheck_ReportsFailures(t *testing.T) {
	svc := MustNewService(WithPinger(&fakePinger{
		storeErr: errors.New("connection refused"),
		blobErr:  errors.New("bucket missing"),
	}))

	r := svc.Check(context.Background())

	assert.False(t, r.Healthy())
	assert.Equal(t, "connection refused", r.StoreErr)
	assert.Equal(t, "bucket missing", r.BlobErr)
}

func TestCheck_Uptime(t *testing.T) {
	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	current := base
	svc := MustNewService(
		WithPinger(&fakePinger{}),
		WithClock(func() time.Time { return current }),
	)

	current = base.Add(90 * time.Second)
	r := svc.Check(context.Background())

	assert.Equal(t, 90*time.Second, r.Uptime)
}

func TestRender(t *testing.T) {
	svc := MustNewService(WithPinger(&fakePinger{}))

	out := svc.Render(Report{StoreOK: true, BlobOK: false, Uptime: time.Minute})

	assert.Contains(t, out, "✅ Record store")
	assert.Contains(t, out, "❌ Blob storage")
	assert.Contains(t, out, "1m0s")
}
