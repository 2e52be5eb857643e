package sitebuilder

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/adampresley/imagegallery/pkg/models"
	"github.com/adampresley/imagegallery/pkg/services"
)

type SiteBuilderer interface {
	Build(ctx context.Context) (BuildResult, error)
}

/*
PageHandlerFunc returns the handler that renders the gallery page from
the given image source.
*/
type PageHandlerFunc func(imageService services.ImageServicer) http.Handler

type SiteBuilderConfig struct {
	BuildID      string
	ImageService services.ImageServicer
	OutputDir    string
	PageHandler  PageHandlerFunc
	StaticFS     fs.FS
}

type SiteBuilder struct {
	buildID      string
	imageService services.ImageServicer
	outputDir    string
	pageHandler  PageHandlerFunc
	staticFS     fs.FS
}

type BuildResult struct {
	BuildID   string
	NumImages int
	OutputDir string
	Elapsed   time.Duration
}

func NewSiteBuilder(config SiteBuilderConfig) SiteBuilder {
	return SiteBuilder{
		buildID:      config.BuildID,
		imageService: config.ImageService,
		outputDir:    config.OutputDir,
		pageHandler:  config.PageHandler,
		staticFS:     config.StaticFS,
	}
}

/*
Build fetches the images once, renders the gallery page from that
snapshot, checks the result and writes the site to the output
directory. Nothing is written when the fetch or the render fails.
*/
func (b SiteBuilder) Build(ctx context.Context) (BuildResult, error) {
	var (
		err    error
		images []models.Image
		page   []byte
	)

	start := time.Now()
	result := BuildResult{
		BuildID:   b.buildID,
		OutputDir: b.outputDir,
	}

	l := slog.With("buildID", b.buildID, "outputDir", b.outputDir)
	l.Info("starting site build...")

	if images, err = b.imageService.GetAll(ctx); err != nil {
		return result, fmt.Errorf("error fetching images for build: %w", err)
	}

	l.Info("fetched images", "numImages", len(images))

	if page, err = b.renderPage(ctx, images); err != nil {
		return result, err
	}

	if err = verifyDocument(page, images); err != nil {
		return result, fmt.Errorf("rendered page failed verification: %w", err)
	}

	if err = b.writeSite(page); err != nil {
		return result, err
	}

	result.NumImages = len(images)
	result.Elapsed = time.Since(start)

	l.Info("site build finished", "numImages", result.NumImages, "elapsed", result.Elapsed)
	return result, nil
}

func (b SiteBuilder) renderPage(ctx context.Context, images []models.Image) ([]byte, error) {
	var (
		err     error
		request *http.Request
	)

	if request, err = http.NewRequestWithContext(ctx, http.MethodGet, "/", nil); err != nil {
		return nil, fmt.Errorf("error creating page request: %w", err)
	}

	w := newPageRecorder()
	handler := b.pageHandler(services.NewSnapshotImageService(images))
	handler.ServeHTTP(w, request)

	if w.status >= http.StatusBadRequest {
		return nil, fmt.Errorf("error rendering page, status %d: %s", w.status, bytes.TrimSpace(w.body.Bytes()))
	}

	if w.body.Len() == 0 {
		return nil, fmt.Errorf("error rendering page: empty response")
	}

	return w.body.Bytes(), nil
}

/*
writeSite assembles the site in a staging directory next to the output
directory and swaps it into place, so a failed write leaves the previous
build untouched.
*/
func (b SiteBuilder) writeSite(page []byte) error {
	var (
		err     error
		staging string
	)

	outputDir := filepath.Clean(b.outputDir)
	parent := filepath.Dir(outputDir)

	if err = os.MkdirAll(parent, 0o755); err != nil {
		return fmt.Errorf("error creating parent of output directory '%s': %w", outputDir, err)
	}

	if staging, err = os.MkdirTemp(parent, "."+filepath.Base(outputDir)+"-staging-*"); err != nil {
		return fmt.Errorf("error creating staging directory for '%s': %w", outputDir, err)
	}

	defer os.RemoveAll(staging)

	if err = os.Chmod(staging, 0o755); err != nil {
		return fmt.Errorf("error setting permissions on staging directory '%s': %w", staging, err)
	}

	if err = os.WriteFile(filepath.Join(staging, "index.html"), page, 0o644); err != nil {
		return fmt.Errorf("error writing index.html: %w", err)
	}

	if b.staticFS != nil {
		if err = copyStatic(b.staticFS, filepath.Join(staging, "static")); err != nil {
			return err
		}
	}

	return replaceDir(staging, outputDir)
}

func replaceDir(src, dest string) error {
	var (
		err      error
		previous string
	)

	if _, err = os.Stat(dest); err == nil {
		previous = fmt.Sprintf("%s.previous-%d", dest, time.Now().UnixNano())

		if err = os.Rename(dest, previous); err != nil {
			return fmt.Errorf("error moving previous build '%s' aside: %w", dest, err)
		}
	} else if !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error checking output directory '%s': %w", dest, err)
	}

	if err = os.Rename(src, dest); err != nil {
		if previous != "" {
			_ = os.Rename(previous, dest)
		}

		return fmt.Errorf("error moving new build into '%s': %w", dest, err)
	}

	if previous != "" {
		if err = os.RemoveAll(previous); err != nil {
			slog.Warn("could not remove previous build", "dir", previous, "error", err)
		}
	}

	return nil
}

func copyStatic(staticFS fs.FS, dest string) error {
	return fs.WalkDir(staticFS, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("error walking static assets at '%s': %w", p, err)
		}

		target := filepath.Join(dest, filepath.FromSlash(p))

		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}

		b, err := fs.ReadFile(staticFS, p)

		if err != nil {
			return fmt.Errorf("error reading static asset '%s': %w", p, err)
		}

		if err = os.WriteFile(target, b, 0o644); err != nil {
			return fmt.Errorf("error writing static asset '%s': %w", target, err)
		}

		return nil
	})
}

type pageRecorder struct {
	header http.Header
	body   bytes.Buffer
	status int
}

func newPageRecorder() *pageRecorder {
	return &pageRecorder{
		header: http.Header{},
	}
}

func (r *pageRecorder) Header() http.Header {
	return r.header
}

func (r *pageRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}

	return r.body.Write(b)
}

func (r *pageRecorder) WriteHeader(status int) {
	if r.status == 0 {
		r.status = status
	}
}
