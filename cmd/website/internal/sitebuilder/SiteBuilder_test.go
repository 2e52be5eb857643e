package sitebuilder

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/adampresley/imagegallery/pkg/models"
	"github.com/adampresley/imagegallery/pkg/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeImageService struct {
	images []models.Image
	err    error
	calls  int
}

func (f *fakeImageService) GetAll(ctx context.Context) ([]models.Image, error) {
	f.calls++
	return f.images, f.err
}

/*
gridHandler renders a minimal page with one grid item per image, the
way the gallery template does.
*/
func gridHandler(imageService services.ImageServicer) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		images, err := imageService.GetAll(r.Context())

		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		b := strings.Builder{}
		b.WriteString(`<!DOCTYPE html><html><body><div class="gallery-grid">`)

		for _, img := range images {
			fmt.Fprintf(&b, `<a class="gallery-item" data-image-id="%d" href="%s"><img src="%s"><h3>%s</h3></a>`, img.ID, img.ImageSrc, img.ImageSrc, img.Title)
		}

		b.WriteString(`</div></body></html>`)
		_, _ = w.Write([]byte(b.String()))
	})
}

/*
unreadableFS lists its files but fails to read any of them.
*/
type unreadableFS struct {
	fstest.MapFS
}

func (f unreadableFS) ReadFile(name string) ([]byte, error) {
	return nil, &fs.PathError{Op: "read", Path: name, Err: fs.ErrPermission}
}

func testStaticFS() fstest.MapFS {
	return fstest.MapFS{
		"css/gallery.css": &fstest.MapFile{Data: []byte(".gallery-grid{}")},
		"js/gallery.js":   &fstest.MapFile{Data: []byte("export {}")},
	}
}

func TestSiteBuilder_Build(t *testing.T) {
	outputDir := t.TempDir()

	imageService := &fakeImageService{
		images: []models.Image{
			{ID: 1, ImageSrc: "https://cdn.example.com/1.jpg", Title: "One"},
			{ID: 2, ImageSrc: "https://cdn.example.com/2.jpg", Title: "Two"},
			{ID: 5, ImageSrc: "https://cdn.example.com/5.jpg", Title: "Five"},
		},
	}

	builder := NewSiteBuilder(SiteBuilderConfig{
		BuildID:      "abc",
		ImageService: imageService,
		OutputDir:    outputDir,
		PageHandler:  gridHandler,
		StaticFS:     testStaticFS(),
	})

	result, err := builder.Build(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, imageService.calls)
	assert.Equal(t, "abc", result.BuildID)
	assert.Equal(t, 3, result.NumImages)
	assert.Equal(t, outputDir, result.OutputDir)

	index, err := os.ReadFile(filepath.Join(outputDir, "index.html"))
	require.NoError(t, err)
	assert.Contains(t, string(index), `data-image-id="5"`)

	css, err := os.ReadFile(filepath.Join(outputDir, "static", "css", "gallery.css"))
	require.NoError(t, err)
	assert.Equal(t, ".gallery-grid{}", string(css))

	_, err = os.Stat(filepath.Join(outputDir, "static", "js", "gallery.js"))
	assert.NoError(t, err)
}

func TestSiteBuilder_BuildEmptyTable(t *testing.T) {
	outputDir := t.TempDir()

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{images: []models.Image{}},
		OutputDir:    outputDir,
		PageHandler:  gridHandler,
	})

	result, err := builder.Build(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, result.NumImages)

	_, err = os.Stat(filepath.Join(outputDir, "index.html"))
	assert.NoError(t, err)
}

func TestSiteBuilder_BuildFetchFailure(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "dist")

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{err: fmt.Errorf("dial tcp: %w", services.ErrNetwork)},
		OutputDir:    outputDir,
		PageHandler:  gridHandler,
		StaticFS:     testStaticFS(),
	})

	_, err := builder.Build(context.Background())
	assert.ErrorIs(t, err, services.ErrNetwork)

	_, statErr := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(statErr), "nothing should be written when the fetch fails")
}

func TestSiteBuilder_BuildRenderFailure(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "dist")

	failing := func(imageService services.ImageServicer) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "template exploded", http.StatusInternalServerError)
		})
	}

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{images: []models.Image{{ID: 1}}},
		OutputDir:    outputDir,
		PageHandler:  failing,
	})

	_, err := builder.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "template exploded")

	_, statErr := os.Stat(outputDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestSiteBuilder_BuildMissingItems(t *testing.T) {
	outputDir := filepath.Join(t.TempDir(), "dist")

	dropsOne := func(imageService services.ImageServicer) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`<html><body><div class="gallery-grid"><a data-image-id="1"></a></div></body></html>`))
		})
	}

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{images: []models.Image{{ID: 1}, {ID: 2}}},
		OutputDir:    outputDir,
		PageHandler:  dropsOne,
	})

	_, err := builder.Build(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "expected 2 grid items, found 1")
}

func TestSiteBuilder_BuildReplacesPreviousStatic(t *testing.T) {
	outputDir := t.TempDir()
	oldAsset := filepath.Join(outputDir, "static", "js", "old.js")

	require.NoError(t, os.MkdirAll(filepath.Dir(oldAsset), 0o755))
	require.NoError(t, os.WriteFile(oldAsset, []byte("old"), 0o644))

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{images: []models.Image{}},
		OutputDir:    outputDir,
		PageHandler:  gridHandler,
		StaticFS:     testStaticFS(),
	})

	_, err := builder.Build(context.Background())
	require.NoError(t, err)

	_, err = os.Stat(oldAsset)
	assert.True(t, os.IsNotExist(err))
}

func TestSiteBuilder_BuildKeepsPreviousOutputOnWriteFailure(t *testing.T) {
	parent := t.TempDir()
	outputDir := filepath.Join(parent, "dist")
	oldIndex := filepath.Join(outputDir, "index.html")
	oldAsset := filepath.Join(outputDir, "static", "js", "old.js")

	require.NoError(t, os.MkdirAll(filepath.Dir(oldAsset), 0o755))
	require.NoError(t, os.WriteFile(oldIndex, []byte("previous build"), 0o644))
	require.NoError(t, os.WriteFile(oldAsset, []byte("old"), 0o644))

	builder := NewSiteBuilder(SiteBuilderConfig{
		ImageService: &fakeImageService{images: []models.Image{{ID: 1, ImageSrc: "https://cdn.example.com/1.jpg"}}},
		OutputDir:    outputDir,
		PageHandler:  gridHandler,
		StaticFS:     unreadableFS{MapFS: testStaticFS()},
	})

	_, err := builder.Build(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrPermission)

	index, err := os.ReadFile(oldIndex)
	require.NoError(t, err)
	assert.Equal(t, "previous build", string(index))

	_, err = os.Stat(oldAsset)
	assert.NoError(t, err)

	entries, err := os.ReadDir(parent)
	require.NoError(t, err)

	if assert.Len(t, entries, 1, "staging directories should be cleaned up") {
		assert.Equal(t, "dist", entries[0].Name())
	}
}

func TestVerifyDocument(t *testing.T) {
	images := []models.Image{{ID: 3}, {ID: 1}, {ID: 2}}

	tests := []struct {
		name    string
		page    string
		wantErr string
	}{
		{
			name: "matching order",
			page: `<div class="gallery-grid"><a data-image-id="3"></a><a data-image-id="1"></a><a data-image-id="2"></a></div>`,
		},
		{
			name:    "wrong order",
			page:    `<div class="gallery-grid"><a data-image-id="1"></a><a data-image-id="3"></a><a data-image-id="2"></a></div>`,
			wantErr: "out of order",
		},
		{
			name:    "duplicate item",
			page:    `<div class="gallery-grid"><a data-image-id="3"></a><a data-image-id="1"></a><a data-image-id="2"></a><a data-image-id="2"></a></div>`,
			wantErr: "expected 3 grid items, found 4",
		},
		{
			name:    "empty grid",
			page:    `<div class="gallery-grid"></div>`,
			wantErr: "expected 3 grid items, found 0",
		},
		{
			name:    "no grid",
			page:    "\n\n\n",
			wantErr: "has no gallery-grid element",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := verifyDocument([]byte(tt.page), images)

			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}

	assert.NoError(t, verifyDocument([]byte(`<div class="page"><div class="gallery-grid wide"></div></div>`), nil))
	assert.Error(t, verifyDocument([]byte("\n\n\n\n\n"), nil))
}
