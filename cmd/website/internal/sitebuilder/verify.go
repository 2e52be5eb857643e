package sitebuilder

import (
	"bytes"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/adampresley/imagegallery/pkg/models"
	"golang.org/x/net/html"
)

const (
	imageIDAttr = "data-image-id"
	gridClass   = "gallery-grid"
)

/*
verifyDocument checks that the page holds the gallery grid with exactly
one grid item per image, in the same order the images were fetched.
*/
func verifyDocument(page []byte, images []models.Image) error {
	var (
		err  error
		root *html.Node
	)

	if root, err = html.Parse(bytes.NewReader(page)); err != nil {
		return fmt.Errorf("error parsing rendered page: %w", err)
	}

	if !hasGalleryGrid(root) {
		return fmt.Errorf("rendered page has no %s element", gridClass)
	}

	got := renderedImageIDs(root)
	expected := make([]string, 0, len(images))

	for _, img := range images {
		expected = append(expected, strconv.Itoa(img.ID))
	}

	if len(got) != len(expected) {
		return fmt.Errorf("expected %d grid items, found %d", len(expected), len(got))
	}

	if !slices.Equal(got, expected) {
		return fmt.Errorf("grid items out of order: expected %v, found %v", expected, got)
	}

	return nil
}

func renderedImageIDs(root *html.Node) []string {
	result := []string{}

	for n := range root.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}

		for _, attr := range n.Attr {
			if attr.Key == imageIDAttr {
				result = append(result, attr.Val)
			}
		}
	}

	return result
}

func hasGalleryGrid(root *html.Node) bool {
	for n := range root.Descendants() {
		if n.Type != html.ElementNode {
			continue
		}

		for _, attr := range n.Attr {
			if attr.Key == "class" && slices.Contains(strings.Fields(attr.Val), gridClass) {
				return true
			}
		}
	}

	return false
}
