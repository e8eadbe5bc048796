package inkpot

import (
	"context"
	"errors"
	"io"
)

const (
	DefaultProfileImage  = "default.png"
	ProfilePicsNamespace = "profile_pics"

	// Longest allowed side of a stored profile image, in pixels.
	MaxProfileImageSide = 300
)

var (
	ErrProfileMissing = errors.New("profile missing")
	ErrInvalidImage   = errors.New("invalid image")
)

type Profile struct {
	Id     int64
	UserId UserId
	// Image is a name relative to the media root, e.g. "profile_pics/<uuid>.png".
	Image string
}

type ImageStore interface {
	// Save stores an upload under namespace and returns its name.
	// Returns ErrInvalidImage when r does not hold a supported image.
	Save(ctx context.Context, namespace string, r io.Reader) (string, error)

	// Normalize downscales the named image in place when either side
	// exceeds MaxProfileImageSide.
	Normalize(ctx context.Context, name string) error

	// Remove deletes the named image. A missing image is not an error.
	Remove(ctx context.Context, name string) error
}
