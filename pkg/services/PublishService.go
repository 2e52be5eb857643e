package services

import (
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"mime"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/adampresley/adamgokit/s3"
	"github.com/adampresley/adamgokit/s3/createbucketoptions"
	"github.com/adampresley/adamgokit/s3/listoptions"
	"github.com/adampresley/adamgokit/s3/putoptions"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

const maxDeleteBatch = 1000

type PublishServicer interface {
	Publish(outputDir string) error
}

type PublishServiceConfig struct {
	Bucket   string
	Prefix   string
	Region   string
	S3Client s3.S3Client
}

/*
PublishService copies a built site into a bucket and removes whatever
the previous build left under the same prefix. Without a prefix the
site shares the bucket root with other data, so nothing is removed.
*/
type PublishService struct {
	bucket   string
	prefix   string
	region   string
	s3Client s3.S3Client
}

func NewPublishService(config PublishServiceConfig) PublishService {
	return PublishService{
		bucket:   config.Bucket,
		prefix:   strings.Trim(config.Prefix, "/"),
		region:   config.Region,
		s3Client: config.S3Client,
	}
}

func (s PublishService) Publish(outputDir string) error {
	var (
		err       error
		files     []string
		existing  s3.ListResponse
		published = map[string]struct{}{}
	)

	l := slog.With("bucket", s.bucket, "prefix", s.prefix, "outputDir", outputDir)

	if err = s.ensureBucketExists(); err != nil {
		return err
	}

	if files, err = listSiteFiles(outputDir); err != nil {
		return err
	}

	l.Info("publishing site...", "numFiles", len(files))

	for _, rel := range files {
		key := objectKey(s.prefix, rel)

		if err = s.upload(filepath.Join(outputDir, filepath.FromSlash(rel)), key); err != nil {
			return err
		}

		published[key] = struct{}{}
	}

	if s.prefix == "" {
		l.Warn("no publish prefix set. skipping removal of objects from previous builds")
		l.Info("site published", "uploaded", len(published), "removed", 0)
		return nil
	}

	existing, err = s.s3Client.List(
		s.bucket,
		s.prefix,
		listoptions.WithGetAll(),
		listoptions.WithFilter(func(obj types.Object) bool {
			return isUnderPrefix(s.prefix, aws.ToString(obj.Key))
		}),
	)

	if err != nil {
		return fmt.Errorf("error listing published objects in '%s': %w", s.bucket, err)
	}

	stale := staleKeys(existing.Objects, published)

	for batch := range slices.Chunk(stale, maxDeleteBatch) {
		l.Info("removing objects from previous build", "numObjects", len(batch))

		if _, err = s.s3Client.Delete(s.bucket, batch); err != nil {
			return fmt.Errorf("error removing stale objects from '%s': %w", s.bucket, err)
		}
	}

	l.Info("site published", "uploaded", len(published), "removed", len(stale))
	return nil
}

func (s PublishService) ensureBucketExists() error {
	var (
		err    error
		exists bool
	)

	if exists, err = s.s3Client.BucketExists(s.bucket); err != nil {
		return fmt.Errorf("error ensuring bucket '%s' exists: %w", s.bucket, err)
	}

	if exists {
		return nil
	}

	slog.Info("creating bucket", "bucketName", s.bucket)

	if err = s.s3Client.CreateBucket(s.bucket, createbucketoptions.WithRegion(s.region)); err != nil {
		return fmt.Errorf("error creating bucket '%s': %w", s.bucket, err)
	}

	return nil
}

func (s PublishService) upload(fileName, key string) error {
	var (
		err error
		f   *os.File
	)

	if f, err = os.Open(fileName); err != nil {
		return fmt.Errorf("error opening '%s' for upload: %w", fileName, err)
	}

	defer f.Close()

	stream, err := s.s3Client.PutStream(s.bucket, key, putoptions.WithContentType(contentTypeFor(key)))

	if err != nil {
		return fmt.Errorf("error setting up upload stream for '%s': %w", key, err)
	}

	if _, err = io.Copy(stream.Writer, f); err != nil {
		_ = stream.Writer.Close()
		return fmt.Errorf("error uploading '%s': %w", key, err)
	}

	if err = stream.Writer.Close(); err != nil {
		return fmt.Errorf("error closing upload stream for '%s': %w", key, err)
	}

	if _, err = stream.Wait(); err != nil {
		return fmt.Errorf("error waiting for upload of '%s': %w", key, err)
	}

	slog.Debug("uploaded", "key", key)
	return nil
}

/*
listSiteFiles returns every regular file under dir as a slash separated
path relative to dir, sorted.
*/
func listSiteFiles(dir string) ([]string, error) {
	result := []string{}

	err := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(dir, p)

		if err != nil {
			return err
		}

		result = append(result, filepath.ToSlash(rel))
		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("error listing site files in '%s': %w", dir, err)
	}

	slices.Sort(result)
	return result, nil
}

func objectKey(prefix, rel string) string {
	if prefix == "" {
		return path.Clean(rel)
	}

	return path.Join(prefix, rel)
}

func isUnderPrefix(prefix, key string) bool {
	if prefix == "" {
		return false
	}

	return strings.HasPrefix(key, prefix+"/")
}

func staleKeys(existing []s3.Object, published map[string]struct{}) []string {
	result := []string{}

	for _, obj := range existing {
		if _, ok := published[obj.Key]; !ok {
			result = append(result, obj.Key)
		}
	}

	slices.Sort(result)
	return result
}

func contentTypeFor(key string) string {
	if contentType := mime.TypeByExtension(path.Ext(key)); contentType != "" {
		return contentType
	}

	return "application/octet-stream"
}
