package services

import (
	"context"
	"slices"

	"github.com/adampresley/imagegallery/pkg/models"
)

/*
SnapshotImageService serves a fixed set of records that were already
fetched. The site build renders through it so the page contains exactly
what was fetched, once.
*/
type SnapshotImageService struct {
	images []models.Image
}

func NewSnapshotImageService(images []models.Image) SnapshotImageService {
	return SnapshotImageService{
		images: slices.Clone(images),
	}
}

func (s SnapshotImageService) GetAll(ctx context.Context) ([]models.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if s.images == nil {
		return []models.Image{}, nil
	}

	return slices.Clone(s.images), nil
}
