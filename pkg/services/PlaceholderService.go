package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/adampresley/imagegallery/pkg/models"
	"github.com/alitto/pond/v2"
	"github.com/nfnt/resize"
)

type PlaceholderServicer interface {
	Generate(ctx context.Context, images []models.Image) map[int]template.URL
}

type PlaceholderServiceConfig struct {
	HttpClient *http.Client
	MaxSize    uint
	MaxWorkers int
}

/*
PlaceholderService builds the tiny images shown under each photo while
the full image loads. Every photo is downloaded once and shrunk to a
few pixels on its longest edge.
*/
type PlaceholderService struct {
	httpClient *http.Client
	maxSize    uint
	maxWorkers int
}

func NewPlaceholderService(config PlaceholderServiceConfig) PlaceholderService {
	if config.HttpClient == nil {
		config.HttpClient = &http.Client{Timeout: 20 * time.Second}
	}

	if config.MaxSize == 0 {
		config.MaxSize = 16
	}

	if config.MaxWorkers <= 0 {
		config.MaxWorkers = 8
	}

	return PlaceholderService{
		httpClient: config.HttpClient,
		maxSize:    config.MaxSize,
		maxWorkers: config.MaxWorkers,
	}
}

/*
Generate returns a data URI per image ID. Images that cannot be fetched
or decoded are left out of the map.
*/
func (s PlaceholderService) Generate(ctx context.Context, images []models.Image) map[int]template.URL {
	results := make([]template.URL, len(images))
	pool := pond.NewPool(s.maxWorkers, pond.WithContext(ctx))

	slog.Info("generating placeholders...", "numImages", len(images), "workers", s.maxWorkers)

	for index, img := range images {
		pool.Submit(func() {
			placeholder, err := s.placeholderFor(ctx, img.ImageSrc)

			if err != nil {
				slog.Warn("skipping placeholder", "imageID", img.ID, "src", img.ImageSrc, "error", err)
				return
			}

			results[index] = placeholder
		})
	}

	_ = pool.Stop().Wait()

	placeholders := make(map[int]template.URL, len(images))

	for index, img := range images {
		if results[index] != "" {
			placeholders[img.ID] = results[index]
		}
	}

	slog.Info("placeholders finished", "generated", len(placeholders), "numImages", len(images))
	return placeholders
}

func (s PlaceholderService) placeholderFor(ctx context.Context, src string) (template.URL, error) {
	var (
		err      error
		img      image.Image
		buf      bytes.Buffer
		request  *http.Request
		response *http.Response
	)

	if request, err = http.NewRequestWithContext(ctx, http.MethodGet, src, nil); err != nil {
		return "", fmt.Errorf("error building request for '%s': %w", src, err)
	}

	if response, err = s.httpClient.Do(request); err != nil {
		return "", fmt.Errorf("error downloading image from '%s': %w", src, err)
	}

	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		return "", fmt.Errorf("error downloading image from '%s', status: %s", src, response.Status)
	}

	if img, err = s.resizeReader(response.Body); err != nil {
		return "", err
	}

	if err = jpeg.Encode(&buf, img, &jpeg.Options{Quality: 40}); err != nil {
		return "", fmt.Errorf("error encoding placeholder: %w", err)
	}

	return template.URL("data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

func (s PlaceholderService) resizeReader(r io.Reader) (image.Image, error) {
	var (
		err error
		img image.Image
	)

	if img, _, err = image.Decode(r); err != nil {
		return nil, fmt.Errorf("error decoding image: %w", err)
	}

	return fitWithin(img, s.maxSize), nil
}

/*
fitWithin scales img so its longest edge is maxSize, keeping the aspect
ratio. Neither edge drops below one pixel.
*/
func fitWithin(img image.Image, maxSize uint) image.Image {
	bounds := img.Bounds()
	width := uint(bounds.Dx())
	height := uint(bounds.Dy())

	var newWidth, newHeight uint

	if width > height {
		newWidth = maxSize
		newHeight = uint(float64(height) * (float64(maxSize) / float64(width)))
	} else {
		newHeight = maxSize
		newWidth = uint(float64(width) * (float64(maxSize) / float64(height)))
	}

	newWidth = max(newWidth, 1)
	newHeight = max(newHeight, 1)

	return resize.Resize(newWidth, newHeight, img, resize.Lanczos3)
}
