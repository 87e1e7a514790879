package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Analysis caches a backend analysis result for a track. Beats are
// stored as the raw JSON array returned by the service.
type Analysis struct {
	ID        string `gorm:"primarykey"`
	CreatedAt time.Time
	UpdatedAt time.Time

	TrackID string `gorm:"index;not null;default:''"`

	Tempo            float64 `gorm:"not null;default:0"`
	Key              string  `gorm:"not null;default:''"`
	Scale            string  `gorm:"not null;default:''"`
	Energy           float64 `gorm:"not null;default:0"`
	SpectralCentroid float64 `gorm:"not null;default:0"`
	Beats            string  `gorm:"not null;default:''"`
	Raw              string  `gorm:"not null;default:''"`
}

func (s *Store) GetAnalysis(ctx context.Context, id string) (*Analysis, error) {
	var v Analysis
	if err := s.db.First(&v, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Analysis %s: %w", id, err)
	}
	return &v, nil
}

// TrackAnalysis returns the most recent analysis for a track.
func (s *Store) TrackAnalysis(ctx context.Context, trackID string) (*Analysis, error) {
	var v Analysis
	q := s.db.Where("track_id = ?", trackID).Order("created_at desc")
	if err := q.First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("storage: failed to get Analysis for track %s: %w", trackID, err)
	}
	return &v, nil
}

func (s *Store) SetAnalysis(ctx context.Context, v *Analysis) error {
	if err := s.db.Save(v).Error; err != nil {
		return fmt.Errorf("storage: failed to set Analysis %s: %w", v.ID, err)
	}
	return nil
}

func (s *Store) DeleteAnalysis(ctx context.Context, id string) error {
	if err := s.db.Delete(&Analysis{ID: id}, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("storage: failed to delete Analysis %s: %w", id, err)
	}
	return nil
}
