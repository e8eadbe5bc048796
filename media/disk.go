package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"
	"os"
	"path"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/inkpot/inkpot"
	"github.com/sirupsen/logrus"
)

var extensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
}

// MaxImagePixels caps width*height of images the store will decode.
const MaxImagePixels = 89_478_485

// checkImage reads only the image header and rejects unknown formats and
// images too large to decode.
func checkImage(r io.Reader) (image.Config, string, error) {
	cfg, format, err := image.DecodeConfig(r)
	if err != nil {
		return image.Config{}, "", inkpot.ErrInvalidImage
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxImagePixels {
		return image.Config{}, "", inkpot.ErrInvalidImage
	}
	return cfg, format, nil
}

// fitSize scales width and height so that the longer side equals side,
// rounding the shorter one to the nearest pixel.
func fitSize(width, height, side int) (int, int) {
	longest := width
	if height > longest {
		longest = height
	}
	scale := func(v int) int {
		scaled := int(math.Round(float64(v) * float64(side) / float64(longest)))
		if scaled < 1 {
			return 1
		}
		return scaled
	}
	return scale(width), scale(height)
}

// DiskStore keeps uploaded images below Root. Names handed out are slash
// separated and relative to Root, so they can be served under a URL prefix.
type DiskStore struct {
	Root string
}

var _ inkpot.ImageStore = (*DiskStore)(nil)

func NewDiskStore(root string) (*DiskStore, error) {
	s := &DiskStore{Root: root}
	if err := os.MkdirAll(filepath.Join(root, inkpot.ProfilePicsNamespace), 0o755); err != nil {
		return nil, fmt.Errorf("create media dirs: %w", err)
	}
	if err := s.EnsureDefault(); err != nil {
		return nil, err
	}
	return s, nil
}

// Path resolves name to a file below Root. Names escaping Root are clamped to it.
func (s *DiskStore) Path(name string) string {
	return filepath.Join(s.Root, filepath.FromSlash(path.Clean("/"+name)))
}

func (s *DiskStore) Save(ctx context.Context, namespace string, r io.Reader) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	_, format, err := checkImage(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	if _, _, err := image.Decode(bytes.NewReader(data)); err != nil {
		return "", inkpot.ErrInvalidImage
	}
	ext, ok := extensions[format]
	if !ok {
		return "", inkpot.ErrInvalidImage
	}

	name := path.Join(namespace, uuid.New().String()+ext)
	p := s.Path(name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", fmt.Errorf("create namespace dir: %w", err)
	}
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", fmt.Errorf("write image: %w", err)
	}
	logrus.
		WithField("name", name).
		WithField("size", len(data)).
		Debugln("Stored image.")
	return name, nil
}

func (s *DiskStore) Normalize(ctx context.Context, name string) error {
	p := s.Path(name)
	f, err := os.Open(p)
	if err != nil {
		return fmt.Errorf("open image: %w", err)
	}
	cfg, _, err := checkImage(f)
	f.Close()
	if err != nil {
		// stored files passed Save already, so this is not the uploader's fault
		return fmt.Errorf("stored image %s is unreadable or too large", name)
	}
	if cfg.Width <= inkpot.MaxProfileImageSide && cfg.Height <= inkpot.MaxProfileImageSide {
		return nil
	}

	img, err := imaging.Open(p)
	if err != nil {
		return fmt.Errorf("decode image: %w", err)
	}
	width, height := fitSize(cfg.Width, cfg.Height, inkpot.MaxProfileImageSide)
	resized := imaging.Resize(img, width, height, imaging.Lanczos)
	if err := imaging.Save(resized, p); err != nil {
		return fmt.Errorf("save resized image: %w", err)
	}
	logrus.
		WithField("name", name).
		WithField("from", image.Pt(cfg.Width, cfg.Height)).
		WithField("to", resized.Bounds().Size()).
		Debugln("Downscaled image.")
	return nil
}

func (s *DiskStore) Remove(ctx context.Context, name string) error {
	if err := os.Remove(s.Path(name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove image: %w", err)
	}
	return nil
}

// EnsureDefault writes the placeholder every new profile points to.
func (s *DiskStore) EnsureDefault() error {
	p := s.Path(inkpot.DefaultProfileImage)
	_, err := os.Stat(p)
	if err == nil {
		return nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("stat default image: %w", err)
	}

	side := inkpot.MaxProfileImageSide
	placeholder := imaging.New(side, side, color.NRGBA{R: 0xd9, G: 0xd9, B: 0xd9, A: 0xff})
	if err := imaging.Save(placeholder, p); err != nil {
		return fmt.Errorf("save default image: %w", err)
	}
	return nil
}
