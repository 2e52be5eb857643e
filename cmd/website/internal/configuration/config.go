package configuration

import "github.com/adampresley/configinator"

type Config struct {
	AwsEndpointUrl      string `flag:"awsep" env:"AWS_ENDPOINT_URL" default:"" description:"AWS endpoint URL. Leave empty for AWS itself"`
	AwsRegion           string `flag:"awsregion" env:"AWS_REGION" default:"us-east-1" description:"AWS region"`
	AwsAccessKeyId      string `flag:"awsaccesskeyid" env:"AWS_ACCESS_KEY_ID" default:"" description:"AWS access key ID"`
	AwsSecretAccessKey  string `flag:"awssecretaccesskey" env:"AWS_SECRET_ACCESS_KEY" default:"" description:"AWS secret access key"`
	AwsBucket           string `flag:"awsbucket" env:"AWS_BUCKET" default:"" description:"S3 bucket to publish the built site to. Publishing is skipped when empty"`
	Build               bool   `flag:"build" env:"BUILD" default:"false" description:"Build the static site and exit instead of starting the preview server"`
	FetchTimeoutSeconds int    `flag:"fetchtimeout" env:"FETCH_TIMEOUT_SECONDS" default:"30" description:"Seconds to wait for the image table query"`
	Host                string `flag:"host" env:"HOST" default:"localhost:8080" description:"The address and port to bind the HTTP server to"`
	ImagesTable         string `flag:"table" env:"IMAGES_TABLE" default:"images" description:"Table holding the gallery images"`
	LegacySupabaseURL   string `flag:"nextpublicsupabaseurl" env:"NEXT_PUBLIC_SUPABASE_URL" default:"" description:"Base URL of the hosted image table project. Used when SUPABASE_URL is not set"`
	LogLevel            string `flag:"loglevel" env:"LOG_LEVEL" default:"debug" description:"The log level to use. Valid values are 'debug', 'info', 'warn', and 'error'"`
	OutputDir           string `flag:"out" env:"OUTPUT_DIR" default:"./dist" description:"Directory the static site is written to"`
	Placeholders        bool   `flag:"placeholders" env:"PLACEHOLDERS" default:"true" description:"Generate blurred placeholder images during the build"`
	PlaceholderSize     int    `flag:"placeholdersize" env:"PLACEHOLDER_SIZE" default:"16" description:"Longest edge, in pixels, of a placeholder image"`
	PlaceholderWorkers  int    `flag:"placeholderworkers" env:"PLACEHOLDER_WORKERS" default:"8" description:"Maximum number of concurrent placeholder downloads"`
	PublishPrefix       string `flag:"publishprefix" env:"PUBLISH_PREFIX" default:"" description:"Key prefix inside the bucket for the published site"`
	ShareText           string `flag:"sharetext" env:"SHARE_TEXT" default:"Web developer and/or graphic designer 👨‍💻️" description:"Text passed to the native share sheet"`
	ShareTitle          string `flag:"sharetitle" env:"SHARE_TITLE" default:"Chandler Zhu" description:"Title passed to the native share sheet"`
	ShareURL            string `flag:"shareurl" env:"SHARE_URL" default:"https://image-gallery-gray.vercel.app/" description:"Canonical URL copied by the share dialog"`
	SiteTitle           string `flag:"sitetitle" env:"SITE_TITLE" default:"Chandler" description:"Heading shown above the gallery"`
	SupabaseServiceKey  string `flag:"supabasekey" env:"SUPABASE_SERVICE_ROLE_KEY" default:"" description:"Service key for the hosted image table"`
	SupabaseURL         string `flag:"supabaseurl" env:"SUPABASE_URL" default:"" description:"Base URL of the hosted image table project"`
}

func LoadConfig() Config {
	config := Config{}
	configinator.Behold(&config)
	applyFallbacks(&config)
	return config
}

func applyFallbacks(config *Config) {
	if config.SupabaseURL == "" {
		config.SupabaseURL = config.LegacySupabaseURL
	}
}
