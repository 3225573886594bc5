//go:build integration

package revocation_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"btoflow/internal/account/store/revocation"
	"btoflow/pkg/testutil/containers"
)

type RedisTRLSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	trl   *revocation.RedisTRL
	ctx   context.Context
}

func TestRedisTRLSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisTRLSuite))
}

func (s *RedisTRLSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.trl = revocation.NewRedisTRL(s.redis.Client)
	s.ctx = context.Background()
}

func (s *RedisTRLSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *RedisTRLSuite) TestRevokeAndCheck() {
	revoked, err := s.trl.IsRevoked(s.ctx, "jti-1")
	s.Require().NoError(err)
	s.False(revoked)

	s.Require().NoError(s.trl.RevokeToken(s.ctx, "jti-1", time.Minute))

	revoked, err = s.trl.IsRevoked(s.ctx, "jti-1")
	s.Require().NoError(err)
	s.True(revoked)

	revoked, err = s.trl.IsRevoked(s.ctx, "jti-2")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisTRLSuite) TestRevocationExpires() {
	s.Require().NoError(s.trl.RevokeToken(s.ctx, "jti-short", 500*time.Millisecond))

	revoked, err := s.trl.IsRevoked(s.ctx, "jti-short")
	s.Require().NoError(err)
	s.True(revoked)

	time.Sleep(time.Second)

	revoked, err = s.trl.IsRevoked(s.ctx, "jti-short")
	s.Require().NoError(err)
	s.False(revoked)
}

func (s *RedisTRLSuite) TestEmptyJTIIsNoop() {
	s.Require().NoError(s.trl.RevokeToken(s.ctx, "", time.Minute))

	revoked, err := s.trl.IsRevoked(s.ctx, "")
	s.Require().NoError(err)
	s.False(revoked)
}
