package home

import (
	"html/template"
	"log/slog"
	"net/http"

	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/imagegallery/cmd/website/internal/viewmodels"
	"github.com/adampresley/imagegallery/pkg/models"
	"github.com/adampresley/imagegallery/pkg/services"
)

type HomeHandlers interface {
	HomePage(w http.ResponseWriter, r *http.Request)
}

type HomeControllerConfig struct {
	BuildID            string
	ImageService       services.ImageServicer
	PlaceholderService services.PlaceholderServicer
	Renderer           rendering.TemplateRenderer
	Share              viewmodels.ShareDialog
	SiteTitle          string
}

type HomeController struct {
	buildID            string
	imageService       services.ImageServicer
	placeholderService services.PlaceholderServicer
	renderer           rendering.TemplateRenderer
	share              viewmodels.ShareDialog
	siteTitle          string
}

func NewHomeController(config HomeControllerConfig) HomeController {
	return HomeController{
		buildID:            config.BuildID,
		imageService:       config.ImageService,
		placeholderService: config.PlaceholderService,
		renderer:           config.Renderer,
		share:              config.Share,
		siteTitle:          config.SiteTitle,
	}
}

/*
GET /
*/
func (c HomeController) HomePage(w http.ResponseWriter, r *http.Request) {
	var (
		err          error
		images       []models.Image
		placeholders map[int]template.URL
	)

	pageName := "pages/home"
	viewData := c.newHomePage(httphelpers.IsHtmx(r))

	if images, err = c.imageService.GetAll(r.Context()); err != nil {
		slog.Error("error fetching gallery images", "error", err)
		viewData.IsError = true
		viewData.Message = "There was a problem getting the photos for this page."

		c.render(w, pageName, viewData)
		return
	}

	if c.placeholderService != nil {
		placeholders = c.placeholderService.Generate(r.Context(), images)
	}

	viewData.Images = viewmodels.NewGalleryImages(images, placeholders)
	c.render(w, pageName, viewData)
}

/*
render writes the page. When the renderer fails before writing anything
the response becomes a 500 so a site build stops on it.
*/
func (c HomeController) render(w http.ResponseWriter, pageName string, viewData viewmodels.GalleryPage) {
	if err := c.renderer.Render(pageName, viewData, w); err != nil {
		slog.Error("error rendering page", "page", pageName, "error", err)
		http.Error(w, "There was a problem rendering this page.", http.StatusInternalServerError)
	}
}

func (c HomeController) newHomePage(isHtmx bool) viewmodels.GalleryPage {
	return viewmodels.GalleryPage{
		BaseViewModel: viewmodels.BaseViewModel{
			Message: "",
			IsHtmx:  isHtmx,
			JavascriptIncludes: []rendering.JavascriptInclude{
				{Type: "module", Src: "static/js/gallery.js?v=" + c.buildID},
			},
		},
		SiteTitle: c.siteTitle,
		BuildID:   c.buildID,
		Images:    []viewmodels.GalleryImage{},
		Share:     c.share,
	}
}
