package viewmodels

import (
	"html/template"

	"github.com/adampresley/imagegallery/pkg/models"
)

const (
	DefaultCopyLabel   = "Copy"
	DefaultCopiedLabel = "Copied!"
)

type GalleryPage struct {
	BaseViewModel

	SiteTitle string
	BuildID   string
	Images    []GalleryImage
	Share     ShareDialog
}

type GalleryImage struct {
	ID          int
	Src         string
	Title       string
	Keywords    string
	Placeholder template.URL
}

/*
ShareDialog holds what the share dialog needs. The page script copies
URL to the clipboard when the dialog opens and puts CopyLabel back on
the copy button whenever the dialog closes.
*/
type ShareDialog struct {
	URL         string
	Title       string
	Text        string
	CopyLabel   string
	CopiedLabel string
}

func NewShareDialog(url, title, text string) ShareDialog {
	return ShareDialog{
		URL:         url,
		Title:       title,
		Text:        text,
		CopyLabel:   DefaultCopyLabel,
		CopiedLabel: DefaultCopiedLabel,
	}
}

/*
NewGalleryImages returns one grid item per record, in record order.
placeholders may be nil.
*/
func NewGalleryImages(images []models.Image, placeholders map[int]template.URL) []GalleryImage {
	result := make([]GalleryImage, 0, len(images))

	for _, img := range images {
		result = append(result, GalleryImage{
			ID:          img.ID,
			Src:         img.ImageSrc,
			Title:       img.Title,
			Keywords:    img.Keywords,
			Placeholder: placeholders[img.ID],
		})
	}

	return result
}
