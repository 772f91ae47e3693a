package lockout

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"iaset/internal/platform/logger"
)

type LockoutSuite struct {
	suite.Suite
	store   *MemoryStore
	service *Service
}

func TestLockoutSuite(t *testing.T) {
	suite.Run(t, new(LockoutSuite))
}

func (s *LockoutSuite) SetupTest() {
	s.store = NewMemoryStore()
	s.service = NewService(s.store, logger.New())
}

func (s *LockoutSuite) TestLockoutPolicy() {
	ctx := context.Background()

	s.Run("fresh identifier is not locked", func() {
		s.False(s.service.Locked(ctx, "joao@email.com"))
	})

	s.Run("locks after max failures", func() {
		for i := 0; i < MaxFailures; i++ {
			s.False(s.service.Locked(ctx, "maria@email.com"))
			s.service.RecordFailure(ctx, "maria@email.com")
		}
		s.True(s.service.Locked(ctx, "maria@email.com"))
	})

	s.Run("success clears the counter", func() {
		for i := 0; i < MaxFailures; i++ {
			s.service.RecordFailure(ctx, "ana@email.com")
		}
		s.True(s.service.Locked(ctx, "ana@email.com"))

		s.service.RecordSuccess(ctx, "ana@email.com")
		s.False(s.service.Locked(ctx, "ana@email.com"))
	})
}

func (s *LockoutSuite) TestWindowExpiry() {
	ctx := context.Background()

	base := time.Now()
	s.store.now = func() time.Time { return base }

	for i := 0; i < MaxFailures; i++ {
		s.service.RecordFailure(ctx, "pedro@email.com")
	}
	s.True(s.service.Locked(ctx, "pedro@email.com"))

	s.store.now = func() time.Time { return base.Add(Window + time.Second) }
	s.False(s.service.Locked(ctx, "pedro@email.com"), "counter must reset after the window")
}
