package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/adampresley/imagegallery/pkg/models"
	postgrest "github.com/supabase-community/postgrest-go"
)

var (
	ErrNetwork = fmt.Errorf("image store unreachable")
	ErrAuth    = fmt.Errorf("image store rejected credentials")
	ErrQuery   = fmt.Errorf("image store query failed")
)

const restPath = "/rest/v1"

type ImageServicer interface {
	GetAll(ctx context.Context) ([]models.Image, error)
}

type ImageServiceConfig struct {
	BaseURL    string
	ServiceKey string
	Table      string
	Schema     string
	Timeout    time.Duration
	Transport  http.RoundTripper
}

type ImageService struct {
	baseURL    string
	serviceKey string
	table      string
	schema     string
	timeout    time.Duration
	transport  http.RoundTripper
}

func NewImageService(config ImageServiceConfig) ImageService {
	if config.Table == "" {
		config.Table = "images"
	}

	if config.Schema == "" {
		config.Schema = "public"
	}

	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}

	if config.Transport == nil {
		config.Transport = http.DefaultTransport
	}

	return ImageService{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		serviceKey: config.ServiceKey,
		table:      config.Table,
		schema:     config.Schema,
		timeout:    config.Timeout,
		transport:  config.Transport,
	}
}

/*
GetAll returns every row of the images table ordered by id, ascending.
There are no retries. A failure is classified as ErrNetwork, ErrAuth,
or ErrQuery.
*/
func (s ImageService) GetAll(ctx context.Context) ([]models.Image, error) {
	var (
		err    error
		result []models.Image
	)

	if s.serviceKey == "" {
		return nil, fmt.Errorf("%w: service key is not configured", ErrAuth)
	}

	if err = s.validateBaseURL(); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	client := postgrest.NewClient(s.baseURL+restPath, s.schema, map[string]string{
		"apikey":        s.serviceKey,
		"Authorization": "Bearer " + s.serviceKey,
	})

	if client.ClientError != nil {
		return nil, fmt.Errorf("%w: %s", ErrNetwork, client.ClientError.Error())
	}

	/*
	 * postgrest-go builds its requests without a context, so the
	 * transport attaches ours and translates HTTP statuses.
	 */
	client.Transport.Parent = &storeTransport{ctx: ctx, next: s.transport}

	_, err = client.
		From(s.table).
		Select("*", "", false).
		Order("id", &postgrest.OrderOpts{Ascending: true}).
		ExecuteTo(&result)

	if err != nil {
		return nil, fmt.Errorf("error querying table '%s': %w", s.table, classifyStoreError(ctx, err))
	}

	if result == nil {
		result = []models.Image{}
	}

	return result, nil
}

func (s ImageService) validateBaseURL() error {
	if s.baseURL == "" {
		return fmt.Errorf("%w: endpoint URL is not configured", ErrNetwork)
	}

	u, err := url.Parse(s.baseURL)

	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("%w: invalid endpoint URL '%s'", ErrNetwork, s.baseURL)
	}

	return nil
}

func classifyStoreError(ctx context.Context, err error) error {
	var (
		urlErr *url.Error
	)

	if errors.Is(err, ErrAuth) || errors.Is(err, ErrNetwork) {
		return err
	}

	if ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	if errors.As(err, &urlErr) {
		return fmt.Errorf("%w: %w", ErrNetwork, err)
	}

	return fmt.Errorf("%w: %w", ErrQuery, err)
}

type storeTransport struct {
	ctx  context.Context
	next http.RoundTripper
}

func (t *storeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req.WithContext(t.ctx))

	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, fmt.Errorf("%w: %s", ErrAuth, drainStatus(resp))

	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return nil, fmt.Errorf("%w: %s", ErrNetwork, drainStatus(resp))
	}

	return resp, nil
}

func drainStatus(resp *http.Response) string {
	defer resp.Body.Close()

	b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	body := strings.TrimSpace(string(b))

	if body == "" {
		return resp.Status
	}

	return fmt.Sprintf("%s: %s", resp.Status, body)
}
