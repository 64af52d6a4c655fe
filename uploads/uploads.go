// CLAUDE:SUMMARY MinIO/S3 file storage for uploaded certificates and photos: key layout, upload with type/size checks, durable public locators.
// Package uploads stores uploaded files in an S3-compatible bucket and
// maps object keys to their public locators.
//
// Keys follow the layout <prefix>/<uuid><ext>:
//
//	certificados/experiencia/  work experience certificates
//	certificados/cursos/       course certificates
//	certificados/logros/       recognition certificates
//	garage/                    marketplace listing files
//	perfil/                    profile photos
package uploads

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"

	mclient "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hazyhaar/hojadevida/attachment"
	"github.com/hazyhaar/hojadevida/cv"
	"github.com/hazyhaar/hojadevida/idgen"
	"github.com/hazyhaar/hojadevida/netguard"
)

// ErrInvalidFile is returned for an empty, oversized or disallowed upload.
var ErrInvalidFile = errors.New("uploads: invalid file")

// ProfilePhoto is the pseudo-section of profile photo uploads.
const ProfilePhoto cv.Section = "profile"

var prefixes = map[cv.Section]string{
	cv.SectionExperience:   "certificados/experiencia",
	cv.SectionCourses:      "certificados/cursos",
	cv.SectionRecognitions: "certificados/logros",
	cv.SectionMarketplace:  "garage",
	ProfilePhoto:           "perfil",
}

// AllowedTypes lists the accepted upload content types.
var AllowedTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// Config configures the bucket connection. Endpoint is host:port or a
// URL; an https scheme turns TLS on. An empty Region is looked up from
// the server.
type Config struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`

	// PublicBaseURL prefixes keys to build locators, e.g. a CDN in front
	// of the bucket. Empty = path-style URL on the endpoint.
	PublicBaseURL string `yaml:"public_base_url"`

	// MaxSize caps one upload in bytes. Default 10 MiB.
	MaxSize int64 `yaml:"max_size"`
}

// Store uploads files and resolves their locators.
type Store struct {
	cfg    Config
	client *mclient.Client
	base   string
	newID  idgen.Generator
}

var _ attachment.FileURLs = (*Store)(nil)

// New connects to the endpoint and checks that the bucket exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	s, err := newStore(cfg)
	if err != nil {
		return nil, err
	}
	exists, err := s.client.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("uploads: bucket check: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("uploads: bucket %q does not exist", cfg.Bucket)
	}
	return s, nil
}

// newStore builds the client without any network call.
func newStore(cfg Config) (*Store, error) {
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = 10 << 20
	}
	endpoint, secure, err := splitEndpoint(cfg.Endpoint)
	if err != nil {
		return nil, err
	}

	client, err := mclient.New(endpoint, &mclient.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("uploads: client: %w", err)
	}

	base := strings.TrimRight(cfg.PublicBaseURL, "/")
	if base == "" {
		scheme := "http"
		if secure {
			scheme = "https"
		}
		base = scheme + "://" + endpoint + "/" + cfg.Bucket
	}
	return &Store{cfg: cfg, client: client, base: base, newID: idgen.ObjectKey}, nil
}

// splitEndpoint accepts host:port or a URL. Only a value with "://" is
// parsed as a URL: url.Parse reads "minio:9000" as scheme "minio".
func splitEndpoint(raw string) (host string, secure bool, err error) {
	if !strings.Contains(raw, "://") {
		return strings.TrimRight(raw, "/"), false, nil
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false, fmt.Errorf("uploads: bad endpoint %q", raw)
	}
	switch u.Scheme {
	case "http":
	case "https":
		secure = true
	default:
		return "", false, fmt.Errorf("uploads: endpoint scheme %q", u.Scheme)
	}
	return u.Host, secure, nil
}

// FileURL returns the durable public locator of key. No network I/O.
func (s *Store) FileURL(key string) string {
	return s.base + "/" + strings.TrimLeft(key, "/")
}

// Key builds a fresh object key for a file uploaded to section.
func (s *Store) Key(section cv.Section, filename string) (string, error) {
	prefix, ok := prefixes[section]
	if !ok {
		return "", fmt.Errorf("%w: section %q takes no upload", ErrInvalidFile, section)
	}
	return path.Join(prefix, s.newID()+netguard.SafeExt(filename)), nil
}

// Put stores r (size bytes, or -1 when unknown) under a new key for
// section and returns the key.
func (s *Store) Put(ctx context.Context, section cv.Section, filename, contentType string, r io.Reader, size int64) (string, error) {
	if !AllowedTypes[contentType] {
		return "", fmt.Errorf("%w: content type %q", ErrInvalidFile, contentType)
	}
	if size == 0 || size > s.cfg.MaxSize {
		return "", fmt.Errorf("%w: size %d", ErrInvalidFile, size)
	}
	key, err := s.Key(section, filename)
	if err != nil {
		return "", err
	}
	if size < 0 {
		r = io.LimitReader(r, s.cfg.MaxSize)
	}
	_, err = s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, mclient.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", fmt.Errorf("uploads: put %s: %w", key, err)
	}
	return key, nil
}

// Remove deletes key. Missing objects are not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.client.RemoveObject(ctx, s.cfg.Bucket, key, mclient.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("uploads: remove %s: %w", key, err)
	}
	return nil
}
