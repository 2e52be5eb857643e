package main

import (
	"context"
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adampresley/adamgokit/awsconfig"
	"github.com/adampresley/adamgokit/httphelpers"
	"github.com/adampresley/adamgokit/mux"
	"github.com/adampresley/adamgokit/rendering"
	"github.com/adampresley/adamgokit/retrier"
	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/imagegallery/cmd/website/internal/configuration"
	"github.com/adampresley/imagegallery/cmd/website/internal/home"
	"github.com/adampresley/imagegallery/cmd/website/internal/sitebuilder"
	"github.com/adampresley/imagegallery/cmd/website/internal/viewmodels"
	"github.com/adampresley/imagegallery/pkg/services"
	"github.com/google/uuid"
)

var (
	Version string = "development"
	appName string = "imagegallery"

	//go:embed app
	appFS embed.FS

	config configuration.Config

	/* Services */
	imageService       services.ImageServicer
	placeholderService services.PlaceholderServicer
	publishService     services.PublishServicer
	renderer           rendering.TemplateRenderer
	siteBuilder        sitebuilder.SiteBuilderer

	/* Controllers */
	homeController home.HomeHandlers
)

func main() {
	var (
		err error
	)

	config = configuration.LoadConfig()
	setupLogger(&config, Version)

	buildID := uuid.NewString()

	slog.Info("configuration loaded",
		slog.String("app", appName),
		slog.String("version", Version),
		slog.String("buildID", buildID),
		slog.String("loglevel", config.LogLevel),
		slog.Bool("build", config.Build),
		slog.String("host", config.Host),
		slog.String("supabaseUrl", config.SupabaseURL),
		slog.String("imagesTable", config.ImagesTable),
		slog.String("outputDir", config.OutputDir),
		slog.String("awsBucket", config.AwsBucket),
	)

	slog.Debug("setting up...")

	/*
	 * Setup services
	 */
	imageService = services.NewImageService(services.ImageServiceConfig{
		BaseURL:    config.SupabaseURL,
		ServiceKey: config.SupabaseServiceKey,
		Table:      config.ImagesTable,
		Timeout:    time.Duration(config.FetchTimeoutSeconds) * time.Second,
	})

	renderer, err = rendering.NewGoTemplateRenderer(rendering.GoTemplateRendererConfig{
		TemplateDir:       "app",
		TemplateExtension: ".html",
		TemplateFS:        appFS,
		PagesDir:          "pages",
	})

	if err != nil {
		panic(err)
	}

	share := viewmodels.NewShareDialog(config.ShareURL, config.ShareTitle, config.ShareText)

	if config.Build {
		runBuild(buildID, share)
		return
	}

	/*
	 * Setup controllers
	 */
	homeController = home.NewHomeController(home.HomeControllerConfig{
		BuildID:      buildID,
		ImageService: imageService,
		Renderer:     renderer,
		Share:        share,
		SiteTitle:    config.SiteTitle,
	})

	/*
	 * Setup router and http server
	 */
	slog.Debug("setting up routes...")

	requestLogger := newRequestLoggingMiddleware([]string{"/static", "/heartbeat"})

	routes := []mux.Route{
		{Path: "GET /heartbeat", HandlerFunc: heartbeat},
		{Path: "GET /", HandlerFunc: homeController.HomePage, Middlewares: []mux.MiddlewareFunc{requestLogger}},
	}

	routerConfig := mux.RouterConfig{
		Address:              config.Host,
		Debug:                Version == "development",
		ServeStaticContent:   true,
		StaticContentRootDir: "app",
		StaticContentPrefix:  "/static/",
		StaticFS:             appFS,
		HttpWriteTimeout:     60,
	}

	m := mux.SetupRouter(routerConfig, routes)
	httpServer, quit := mux.SetupServer(routerConfig, m)

	/*
	 * Wait for graceful shutdown
	 */
	slog.Info("server started")

	<-quit

	mux.Shutdown(httpServer)
	slog.Info("server stopped")
}

func heartbeat(w http.ResponseWriter, r *http.Request) {
	httphelpers.TextOK(w, "OK")
}

/*
runBuild writes the static site and, when a bucket is configured,
publishes it. Any failure exits with a non-zero status.
*/
func runBuild(buildID string, share viewmodels.ShareDialog) {
	var (
		err      error
		staticFS fs.FS
		result   sitebuilder.BuildResult
	)

	if staticFS, err = fs.Sub(appFS, "app/static"); err != nil {
		panic(err)
	}

	if config.Placeholders {
		placeholderService = services.NewPlaceholderService(services.PlaceholderServiceConfig{
			MaxSize:    uint(max(config.PlaceholderSize, 1)),
			MaxWorkers: config.PlaceholderWorkers,
		})
	}

	siteBuilder = sitebuilder.NewSiteBuilder(sitebuilder.SiteBuilderConfig{
		BuildID:      buildID,
		ImageService: imageService,
		OutputDir:    config.OutputDir,
		StaticFS:     staticFS,
		PageHandler: func(snapshot services.ImageServicer) http.Handler {
			controller := home.NewHomeController(home.HomeControllerConfig{
				BuildID:            buildID,
				ImageService:       snapshot,
				PlaceholderService: placeholderService,
				Renderer:           renderer,
				Share:              share,
				SiteTitle:          config.SiteTitle,
			})

			return http.HandlerFunc(controller.HomePage)
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if result, err = siteBuilder.Build(ctx); err != nil {
		slog.Error("site build failed", "error", err)
		stop()
		os.Exit(1)
	}

	if config.AwsBucket == "" {
		slog.Info("no bucket configured. skipping publish", "outputDir", result.OutputDir)
		return
	}

	publishService = services.NewPublishService(services.PublishServiceConfig{
		Bucket:   config.AwsBucket,
		Prefix:   config.PublishPrefix,
		Region:   config.AwsRegion,
		S3Client: newS3Client(),
	})

	if err = publishService.Publish(result.OutputDir); err != nil {
		slog.Error("publishing site failed", "error", err, "bucket", config.AwsBucket)
		stop()
		os.Exit(1)
	}
}

func newS3Client() s3.S3Client {
	var (
		err error
	)

	awsConfig := &awsconfig.Config{
		Endpoint:        config.AwsEndpointUrl,
		Region:          config.AwsRegion,
		AccessKeyID:     config.AwsAccessKeyId,
		SecretAccessKey: config.AwsSecretAccessKey,
	}

	retrier.Retry(func() error {
		if err = awsConfig.Load(); err != nil {
			slog.Error("failed to load AWS config. trying again", "error", err)
			return err
		}

		return nil
	})

	if err != nil {
		panic(err)
	}

	s3Client, err := s3.NewClient(awsConfig)

	if err != nil {
		panic(err)
	}

	return s3Client
}
