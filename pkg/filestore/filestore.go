package filestore

import (
	"context"
	"fmt"
	"strings"

	"github.com/igolaizola/sonetra/pkg/filestore/local"
	"github.com/igolaizola/sonetra/pkg/filestore/s3"
)

type fs interface {
	Upload(ctx context.Context, path, name string) error
	Download(ctx context.Context, path, name string) error
	Delete(ctx context.Context, name string) error
}

type Store struct {
	fs fs
}

// SetAudio stores the audio payload of a track. The stored name keeps
// the original extension so content types survive the round trip.
func (s *Store) SetAudio(ctx context.Context, path, ref string) error {
	return s.fs.Upload(ctx, path, ref)
}

func (s *Store) GetAudio(ctx context.Context, path, ref string) error {
	return s.fs.Download(ctx, path, ref)
}

func (s *Store) DeleteAudio(ctx context.Context, ref string) error {
	return s.fs.Delete(ctx, ref)
}

func (s *Store) SetWave(ctx context.Context, path, id string) error {
	return s.fs.Upload(ctx, path, Wave(id))
}

func (s *Store) GetWave(ctx context.Context, path, id string) error {
	return s.fs.Download(ctx, path, Wave(id))
}

func New(typ, conn string, debug bool) (*Store, error) {
	var fs fs
	switch typ {
	case "s3":
		split := strings.Split(conn, "@")
		if len(split) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 connection string %q", conn)
		}
		auth := strings.Split(split[0], ":")
		if len(auth) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 auth string %q", conn)
		}
		key := auth[0]
		secret := auth[1]
		loc := strings.Split(split[1], ".")
		if len(loc) != 2 {
			return nil, fmt.Errorf("filestore: invalid s3 location string %q", conn)
		}
		bucket := loc[0]
		region := loc[1]
		candidate, err := s3.New(key, secret, region, bucket, debug)
		if err != nil {
			return nil, fmt.Errorf("filestore: %w", err)
		}
		fs = candidate
	case "local":
		fs = local.New(conn, debug)
	default:
		return nil, fmt.Errorf("filestore: unknown file storage type %q", typ)
	}
	return &Store{fs: fs}, nil
}

// Ref builds the stored name for a track payload.
func Ref(id, ext string) string {
	return id + ext
}

// Wave builds the stored name for a waveform image.
func Wave(id string) string {
	return id + "-wave.jpg"
}
