package service

import (
	"fmt"
	"log/slog"

	"vipclub/internal/domain"
	"vipclub/internal/models"
	"vipclub/internal/repository"
)

// MaxTokenBatch caps one generation request.
const MaxTokenBatch = 10000

type TokenService struct {
	tokens *repository.TokenRepository
	audit  *repository.AuditRepository
	log    *slog.Logger
}

func NewTokenService(tokens *repository.TokenRepository, audit *repository.AuditRepository, logger *slog.Logger) *TokenService {
	return &TokenService{tokens: tokens, audit: audit, log: logger}
}

// Generate adds n fresh codes to the pool and returns them.
func (s *TokenService) Generate(actorID string, n int) ([]string, error) {
	if n <= 0 || n > MaxTokenBatch {
		return nil, fmt.Errorf("count must be between 1 and %d", MaxTokenBatch)
	}
	seen := make(map[string]struct{}, n)
	codes := make([]string, 0, n)
	for len(codes) < n {
		c, err := domain.NewTokenCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		codes = append(codes, c)
	}
	inserted, err := s.tokens.CreateBatch(codes)
	if err != nil {
		return nil, err
	}
	if inserted < int64(len(codes)) {
		s.log.Warn("[Tokens] some generated codes already existed", "requested", len(codes), "inserted", inserted)
	}
	_ = s.audit.Create(&models.AuditLog{
		UserID:   optionalString(actorID),
		Action:   domain.AuditTokensGenerated,
		Resource: "vip_token",
		Metadata: fmt.Sprintf(`{"count":%d}`, inserted),
	})
	s.log.Info("[Tokens] generated", "count", inserted, "by", actorID)
	return codes, nil
}

func (s *TokenService) Stats() (*repository.TokenStats, error) {
	return s.tokens.Stats()
}
