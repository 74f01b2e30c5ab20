package source

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	drive "google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"bondsim/internal/yield"
)

// Kinds accepted by New.
const (
	KindFile  = "file"
	KindDrive = "drive"
	KindURL   = "url"
)

// DriveDownloadURL is the public download link for a shared Drive file.
const DriveDownloadURL = "https://drive.google.com/uc?export=download&id="

type Config struct {
	Kind        string
	Path        string
	DriveFileID string
	URL         string
	APIKey      string
}

// New builds the Source selected by cfg.Kind.
func New(cfg Config) (yield.Source, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case KindFile, "":
		if cfg.Path == "" {
			return nil, errors.New("file source requires a path")
		}
		return &File{Path: cfg.Path}, nil
	case KindDrive:
		if cfg.DriveFileID == "" {
			return nil, errors.New("drive source requires a file id")
		}
		return &Drive{FileID: cfg.DriveFileID, APIKey: cfg.APIKey}, nil
	case KindURL:
		if cfg.URL == "" {
			return nil, errors.New("url source requires a url")
		}
		return &URL{URL: cfg.URL}, nil
	default:
		return nil, fmt.Errorf("unknown yield source %q", cfg.Kind)
	}
}

// File reads a workbook from the local filesystem.
type File struct {
	Path string
}

func (s *File) Load(ctx context.Context) ([]yield.Observation, error) {
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", s.Path, err)
	}
	defer f.Close()
	return Parse(f)
}

// URL downloads a workbook over HTTP.
type URL struct {
	URL    string
	Client *http.Client
}

func (s *URL) Load(ctx context.Context) ([]yield.Observation, error) {
	client := s.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", s.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download %s: unexpected status %d", s.URL, resp.StatusCode)
	}
	return Parse(resp.Body)
}

// Drive downloads a workbook through the Drive API. Without an API key the
// request is anonymous, which works for publicly shared files.
type Drive struct {
	FileID string
	APIKey string

	// Options are appended to the client options; tests use them to point
	// the client at a fake endpoint.
	Options []option.ClientOption
}

func (s *Drive) Load(ctx context.Context) ([]yield.Observation, error) {
	opts := []option.ClientOption{option.WithScopes(drive.DriveReadonlyScope)}
	if s.APIKey != "" {
		opts = append(opts, option.WithAPIKey(s.APIKey))
	} else {
		opts = append(opts, option.WithoutAuthentication())
	}
	opts = append(opts, s.Options...)

	svc, err := drive.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create drive service: %w", err)
	}

	resp, err := svc.Files.Get(s.FileID).Context(ctx).Download()
	if err != nil {
		return nil, fmt.Errorf("download drive file %s: %w", s.FileID, err)
	}
	defer resp.Body.Close()

	slog.InfoContext(ctx, "Downloaded historical yields from Drive",
		"component", "yield",
		"file_id", s.FileID,
		"content_length", resp.ContentLength)
	return Parse(resp.Body)
}
