// Package service implements the milestone tracks and referral codes.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"driverportal/internal/earnings"
	"driverportal/internal/milestone"
	"driverportal/pkg/platform/sentinel"
)

const (
	codePrefix  = "VAAM-"
	codeLength  = 6
	codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// Collisions on a 36^6 space are rare; retry a few times before giving
	// up.
	codeAttempts = 5
)

// Track tiers, lowest first.
var (
	rideTiers     = []float64{10, 50, 100, 500}
	distanceTiers = []float64{100, 500, 1000, 5000}
	referralTiers = []float64{1, 5, 10}
)

// StatsSource supplies the ride totals the tracks are computed from. The
// earnings service satisfies it.
type StatsSource interface {
	Summary(ctx context.Context, driverID string) (earnings.Summary, error)
}

// CodeStore persists referral codes.
type CodeStore interface {
	Create(ctx context.Context, code milestone.ReferralCode) error
	FindByDriver(ctx context.Context, driverID string) (milestone.ReferralCode, error)
	IncrementUses(ctx context.Context, code string) error
}

// Service computes milestone tracks and manages referral codes.
type Service struct {
	stats  StatsSource
	codes  CodeStore
	logger *slog.Logger
	now    func() time.Time
}

func New(stats StatsSource, codes CodeStore, logger *slog.Logger) *Service {
	return &Service{stats: stats, codes: codes, logger: logger, now: time.Now}
}

// Milestones returns every track tier with the driver's progress against it.
func (s *Service) Milestones(ctx context.Context, driverID string) ([]milestone.Milestone, error) {
	summary, err := s.stats.Summary(ctx, driverID)
	if err != nil {
		return nil, fmt.Errorf("load ride stats: %w", err)
	}

	referrals := 0
	code, err := s.codes.FindByDriver(ctx, driverID)
	if err == nil {
		referrals = code.Uses
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("load referral code: %w", err)
	}

	var tracks []milestone.Milestone
	tracks = appendTrack(tracks, milestone.TrackRides, "rides completed", rideTiers, float64(summary.TotalRides))
	tracks = appendTrack(tracks, milestone.TrackDistance, "miles driven", distanceTiers, summary.TotalDistanceMiles)
	tracks = appendTrack(tracks, milestone.TrackReferrals, "drivers referred", referralTiers, float64(referrals))
	return tracks, nil
}

// ReferralCode returns the driver's code, minting one on first request.
func (s *Service) ReferralCode(ctx context.Context, driverID string) (milestone.ReferralCode, error) {
	code, err := s.codes.FindByDriver(ctx, driverID)
	if err == nil {
		return code, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return milestone.ReferralCode{}, fmt.Errorf("find referral code: %w", err)
	}

	for attempt := 0; attempt < codeAttempts; attempt++ {
		code = milestone.ReferralCode{
			DriverID:  driverID,
			Code:      codePrefix + randomCode(),
			CreatedAt: s.now(),
		}
		err = s.codes.Create(ctx, code)
		if err == nil {
			s.logger.InfoContext(ctx, "referral code minted", "driver_id", driverID)
			return code, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return milestone.ReferralCode{}, fmt.Errorf("create referral code: %w", err)
		}
		// A concurrent request may have minted the driver's code already.
		if existing, findErr := s.codes.FindByDriver(ctx, driverID); findErr == nil {
			return existing, nil
		}
	}
	return milestone.ReferralCode{}, fmt.Errorf("create referral code: %w", err)
}

// RecordReferral credits a use of the given code. Unknown codes are ignored,
// sign-up must not fail on a mistyped referral.
func (s *Service) RecordReferral(ctx context.Context, code string) {
	if code == "" {
		return
	}
	if err := s.codes.IncrementUses(ctx, code); err != nil && !errors.Is(err, sentinel.ErrNotFound) {
		s.logger.WarnContext(ctx, "referral credit failed", "error", err)
	}
}

func appendTrack(tracks []milestone.Milestone, kind milestone.TrackKind, name string, tiers []float64, progress float64) []milestone.Milestone {
	for _, target := range tiers {
		tracks = append(tracks, milestone.Milestone{
			Track:    kind,
			Name:     fmt.Sprintf("%g %s", target, name),
			Target:   target,
			Progress: progress,
			Achieved: progress >= target,
		})
	}
	return tracks
}

func randomCode() string {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf)
}
