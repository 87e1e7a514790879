package storage

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New("sqlite", ":memory:", false)
	if err != nil {
		t.Fatalf("New() err = %v; want nil", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("Start() err = %v; want nil", err)
	}
	if err := s.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() err = %v; want nil", err)
	}
	return s
}

func TestTrackRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	track := &Track{
		ID:   ulid.Make().String(),
		Name: "demo.mp3",
		Ref:  "demo-ref",
		Size: 1024,
	}
	if err := s.SetTrack(ctx, track); err != nil {
		t.Fatalf("SetTrack() err = %v; want nil", err)
	}
	got, err := s.GetTrack(ctx, track.ID)
	if err != nil {
		t.Fatalf("GetTrack() err = %v; want nil", err)
	}
	if got.Name != "demo.mp3" || got.Size != 1024 {
		t.Errorf("GetTrack() = %+v; want name demo.mp3 size 1024", got)
	}

	if err := s.DeleteTrack(ctx, track.ID); err != nil {
		t.Fatalf("DeleteTrack() err = %v; want nil", err)
	}
	if _, err := s.GetTrack(ctx, track.ID); err != ErrNotFound {
		t.Fatalf("GetTrack() after delete err = %v; want %v", err, ErrNotFound)
	}

	// Deleting an unknown id is a no-op
	if err := s.DeleteTrack(ctx, "missing"); err != nil {
		t.Fatalf("DeleteTrack(missing) err = %v; want nil", err)
	}
}

func TestListTracks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Same name twice on purpose, records stay independent
	for i := 0; i < 3; i++ {
		track := &Track{
			ID:   ulid.Make().String(),
			Name: "demo.mp3",
		}
		if err := s.SetTrack(ctx, track); err != nil {
			t.Fatalf("SetTrack() err = %v; want nil", err)
		}
	}
	got, err := s.ListTracks(ctx, 1, 10, "id asc")
	if err != nil {
		t.Fatalf("ListTracks() err = %v; want nil", err)
	}
	if len(got) != 3 {
		t.Fatalf("ListTracks() = %d tracks; want 3", len(got))
	}
	seen := map[string]bool{}
	for _, tr := range got {
		if seen[tr.ID] {
			t.Errorf("duplicate track id %s", tr.ID)
		}
		seen[tr.ID] = true
	}
}

func TestSettingValue(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	// Unknown settings read back as empty, not as an error
	got, err := s.SettingValue(ctx, SettingEngineHost)
	if err != nil {
		t.Fatalf("SettingValue() err = %v; want nil", err)
	}
	if got != "" {
		t.Fatalf("SettingValue() = %q; want empty", got)
	}

	if err := s.SetSetting(ctx, &Setting{ID: SettingEngineHost, Value: "http://example.com"}); err != nil {
		t.Fatalf("SetSetting() err = %v; want nil", err)
	}
	got, err = s.SettingValue(ctx, SettingEngineHost)
	if err != nil {
		t.Fatalf("SettingValue() err = %v; want nil", err)
	}
	if got != "http://example.com" {
		t.Fatalf("SettingValue() = %q; want http://example.com", got)
	}

	if err := s.DeleteSetting(ctx, SettingEngineHost); err != nil {
		t.Fatalf("DeleteSetting() err = %v; want nil", err)
	}
	if got, err := s.SettingValue(ctx, SettingEngineHost); err != nil || got != "" {
		t.Fatalf("SettingValue() after delete = %q, %v; want empty and nil", got, err)
	}
}

func TestTrackAnalysis(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	trackID := ulid.Make().String()
	old := &Analysis{
		ID:        ulid.Make().String(),
		CreatedAt: time.Now().Add(-time.Hour),
		TrackID:   trackID,
		Tempo:     100,
	}
	if err := s.SetAnalysis(ctx, old); err != nil {
		t.Fatalf("SetAnalysis() err = %v; want nil", err)
	}
	latest := &Analysis{
		ID:      ulid.Make().String(),
		TrackID: trackID,
		Tempo:   128.5,
		Key:     "C",
		Scale:   "Major",
	}
	if err := s.SetAnalysis(ctx, latest); err != nil {
		t.Fatalf("SetAnalysis() err = %v; want nil", err)
	}

	got, err := s.TrackAnalysis(ctx, trackID)
	if err != nil {
		t.Fatalf("TrackAnalysis() err = %v; want nil", err)
	}
	if got.ID != latest.ID {
		t.Errorf("TrackAnalysis() = %s; want latest %s", got.ID, latest.ID)
	}
	if _, err := s.TrackAnalysis(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("TrackAnalysis(missing) err = %v; want %v", err, ErrNotFound)
	}
}
