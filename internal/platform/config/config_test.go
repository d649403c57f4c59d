package config

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type ConfigSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigSuite))
}

func (s *ConfigSuite) validConfig() Config {
	return Config{
		Addr:            ":8080",
		Environment:     EnvDevelopment,
		JWTSigningKey:   strings.Repeat("k", 32),
		Issuer:          "elizaos-platform",
		Audience:        "elizaos-users",
		AccessTokenTTL:  24 * time.Hour,
		RefreshTokenTTL: 7 * 24 * time.Hour,
		SweepInterval:   time.Minute,
	}
}

func (s *ConfigSuite) TestSigningKeyLength() {
	s.Run("32 byte key passes", func() {
		cfg := s.validConfig()
		s.NoError(cfg.Validate())
	})

	s.Run("16 byte key fails at validation, not first use", func() {
		cfg := s.validConfig()
		cfg.JWTSigningKey = strings.Repeat("k", 16)
		err := cfg.Validate()
		s.Error(err)
		s.Contains(err.Error(), "JWT_SIGNING_KEY")
	})

	s.Run("missing key fails", func() {
		cfg := s.validConfig()
		cfg.JWTSigningKey = ""
		s.Error(cfg.Validate())
	})
}

func (s *ConfigSuite) TestDevTokenGate() {
	s.Run("dev tokens allowed in development", func() {
		cfg := s.validConfig()
		cfg.AllowDevTokens = true
		s.NoError(cfg.Validate())
	})

	s.Run("dev tokens rejected in production", func() {
		cfg := s.validConfig()
		cfg.Environment = EnvProduction
		cfg.AllowDevTokens = true
		err := cfg.Validate()
		s.Error(err)
		s.Contains(err.Error(), "ALLOW_DEV_TOKENS")
	})
}

func (s *ConfigSuite) TestTTLs() {
	s.Run("refresh TTL shorter than access TTL fails", func() {
		cfg := s.validConfig()
		cfg.RefreshTokenTTL = time.Hour
		s.Error(cfg.Validate())
	})

	s.Run("non-positive TTL fails", func() {
		cfg := s.validConfig()
		cfg.AccessTokenTTL = 0
		s.Error(cfg.Validate())
	})
}

func (s *ConfigSuite) TestEnvironment() {
	cfg := s.validConfig()
	cfg.Environment = "staging"
	s.Error(cfg.Validate())
}
