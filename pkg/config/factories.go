package config

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/aws/retry"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/mitchellh/mapstructure"

	"github.com/marmos91/wwwserver/internal/logger"
	promMetrics "github.com/marmos91/wwwserver/pkg/metrics/prometheus"
	"github.com/marmos91/wwwserver/pkg/store/confstore"
	confBadger "github.com/marmos91/wwwserver/pkg/store/confstore/badger"
	confIni "github.com/marmos91/wwwserver/pkg/store/confstore/ini"
	confMemory "github.com/marmos91/wwwserver/pkg/store/confstore/memory"
	"github.com/marmos91/wwwserver/pkg/store/medium"
	mediumFs "github.com/marmos91/wwwserver/pkg/store/medium/fs"
	mediumMemory "github.com/marmos91/wwwserver/pkg/store/medium/memory"
	mediumS3 "github.com/marmos91/wwwserver/pkg/store/medium/s3"
)

// CreateSiteStore creates the site configuration store based on configuration.
//
// Supported types:
//   - "ini": Uses pkg/store/confstore/ini (INI file read line by line)
//   - "memory": Uses pkg/store/confstore/memory (sections from the config file)
//   - "badger": Uses pkg/store/confstore/badger (BadgerDB, optionally seeded
//     from an INI file)
//
// lineBuffer is the adapter's scratch buffer size. INI files are checked up
// front so that no line is too long to be read during a request.
func CreateSiteStore(ctx context.Context, cfg *SiteConfig, lineBuffer int) (confstore.Store, error) {
	switch cfg.Type {
	case "ini":
		return createINISiteStore(ctx, cfg.INI, lineBuffer)
	case "memory":
		return createMemorySiteStore(ctx, cfg.Memory)
	case "badger":
		return createBadgerSiteStore(ctx, cfg.Badger)
	default:
		return nil, fmt.Errorf("unknown site store type: %q (supported: ini, memory, badger)", cfg.Type)
	}
}

// createINISiteStore opens and checks an INI site file.
func createINISiteStore(ctx context.Context, options map[string]any, lineBuffer int) (confstore.Store, error) {
	type INISiteStoreConfig struct {
		Path string `mapstructure:"path"`
	}

	var storeCfg INISiteStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode ini site store config: %w", err)
	}

	if storeCfg.Path == "" {
		return nil, fmt.Errorf("ini site store: path is required")
	}

	store, err := confIni.New(storeCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create ini site store: %w", err)
	}

	if err := store.Validate(ctx, make([]byte, lineBuffer)); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("invalid site file %s: %w", storeCfg.Path, err)
	}

	logger.Info("INI site store initialized: path=%s", storeCfg.Path)
	return store, nil
}

// createMemorySiteStore builds an in-memory store from the sections listed
// in the configuration file.
func createMemorySiteStore(ctx context.Context, options map[string]any) (confstore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemorySection struct {
		Name   string            `mapstructure:"name"`
		Values map[string]string `mapstructure:"values"`
	}
	type MemorySiteStoreConfig struct {
		Sections []MemorySection `mapstructure:"sections"`
	}

	var storeCfg MemorySiteStoreConfig
	if err := mapstructure.WeakDecode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory site store config: %w", err)
	}

	sections := make(map[string]map[string]string, len(storeCfg.Sections))
	for i, section := range storeCfg.Sections {
		if section.Name == "" {
			return nil, fmt.Errorf("memory site store: sections[%d]: name is required", i)
		}
		if _, dup := sections[section.Name]; dup {
			return nil, fmt.Errorf("memory site store: duplicate section %q", section.Name)
		}
		values := section.Values
		if values == nil {
			values = map[string]string{}
		}
		sections[section.Name] = values
	}

	logger.Info("Memory site store initialized: %d sections", len(sections))
	return confMemory.New(sections), nil
}

// createBadgerSiteStore opens a BadgerDB site store, importing an INI file
// into it when import_path is set.
func createBadgerSiteStore(ctx context.Context, options map[string]any) (confstore.Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type BadgerSiteStoreConfig struct {
		DBPath     string `mapstructure:"db_path"`
		ImportPath string `mapstructure:"import_path"`
	}

	var storeCfg BadgerSiteStoreConfig
	if err := mapstructure.Decode(options, &storeCfg); err != nil {
		return nil, fmt.Errorf("failed to decode badger site store config: %w", err)
	}

	if storeCfg.DBPath == "" {
		return nil, fmt.Errorf("badger site store: db_path is required")
	}

	store, err := confBadger.New(ctx, confBadger.Config{DBPath: storeCfg.DBPath})
	if err != nil {
		return nil, fmt.Errorf("failed to create badger site store: %w", err)
	}

	if storeCfg.ImportPath != "" {
		f, err := os.Open(storeCfg.ImportPath)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to open site import file: %w", err)
		}
		n, err := store.Import(ctx, f)
		_ = f.Close()
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to import %s: %w", storeCfg.ImportPath, err)
		}
		logger.Info("Imported %d site settings from %s", n, storeCfg.ImportPath)
	}

	logger.Info("Badger site store initialized: db_path=%s", storeCfg.DBPath)
	return store, nil
}

// CreateMedium creates the storage medium based on configuration.
//
// Supported types:
//   - "filesystem": Uses pkg/store/medium/fs (a local directory)
//   - "memory": Uses pkg/store/medium/memory (files from the config file)
//   - "s3": Uses pkg/store/medium/s3 (Amazon S3 or compatible storage)
func CreateMedium(ctx context.Context, cfg *MediumConfig) (medium.Medium, error) {
	switch cfg.Type {
	case "filesystem":
		return createFilesystemMedium(ctx, cfg.Filesystem)
	case "memory":
		return createMemoryMedium(ctx, cfg.Memory)
	case "s3":
		return createS3Medium(ctx, cfg.S3)
	default:
		return nil, fmt.Errorf("unknown medium type: %q (supported: filesystem, memory, s3)", cfg.Type)
	}
}

// createFilesystemMedium creates a filesystem-based medium.
func createFilesystemMedium(ctx context.Context, options map[string]any) (medium.Medium, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type FilesystemMediumConfig struct {
		Path string `mapstructure:"path"`
	}

	var mediumCfg FilesystemMediumConfig
	if err := mapstructure.Decode(options, &mediumCfg); err != nil {
		return nil, fmt.Errorf("failed to decode filesystem medium config: %w", err)
	}

	if mediumCfg.Path == "" {
		return nil, fmt.Errorf("filesystem medium: path is required")
	}

	m, err := mediumFs.New(mediumCfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem medium: %w", err)
	}

	logger.Info("Filesystem medium initialized: root=%s", m.Root())
	return m, nil
}

// createMemoryMedium builds an in-memory tree from the files listed in the
// configuration file.
func createMemoryMedium(ctx context.Context, options map[string]any) (medium.Medium, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type MemoryFile struct {
		Path    string `mapstructure:"path"`
		Content string `mapstructure:"content"`
	}
	type MemoryMediumConfig struct {
		Files       []MemoryFile `mapstructure:"files"`
		Directories []string     `mapstructure:"directories"`
	}

	var mediumCfg MemoryMediumConfig
	if err := mapstructure.Decode(options, &mediumCfg); err != nil {
		return nil, fmt.Errorf("failed to decode memory medium config: %w", err)
	}

	m := mediumMemory.New()
	for _, dir := range mediumCfg.Directories {
		m.Mkdir(dir)
	}
	for i, f := range mediumCfg.Files {
		if f.Path == "" {
			return nil, fmt.Errorf("memory medium: files[%d]: path is required", i)
		}
		m.WriteFile(f.Path, []byte(f.Content))
	}

	logger.Info("Memory medium initialized: %d files", len(mediumCfg.Files))
	return m, nil
}

// createS3Medium creates an S3-based medium.
func createS3Medium(ctx context.Context, options map[string]any) (medium.Medium, error) {
	type S3MediumConfig struct {
		Region          string `mapstructure:"region"`
		Bucket          string `mapstructure:"bucket"`
		KeyPrefix       string `mapstructure:"key_prefix"`
		Endpoint        string `mapstructure:"endpoint"`
		AccessKeyID     string `mapstructure:"access_key_id"`
		SecretAccessKey string `mapstructure:"secret_access_key"`
		MaxRetries      int    `mapstructure:"max_retries"`
	}

	var mediumCfg S3MediumConfig
	if err := mapstructure.WeakDecode(options, &mediumCfg); err != nil {
		return nil, fmt.Errorf("failed to decode S3 medium config: %w", err)
	}

	if mediumCfg.Bucket == "" {
		return nil, fmt.Errorf("S3 medium: bucket is required")
	}

	if mediumCfg.Region == "" {
		return nil, fmt.Errorf("S3 medium: region is required")
	}

	// ========================================================================
	// Step 1: Build AWS Config
	// ========================================================================

	var configOptions []func(*awsConfig.LoadOptions) error

	configOptions = append(configOptions, awsConfig.WithRegion(mediumCfg.Region))

	// Set custom endpoint if provided (for MinIO, Localstack, etc.)
	if mediumCfg.Endpoint != "" {
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		customResolver := aws.EndpointResolverWithOptionsFunc(
			func(service, region string, options ...interface{}) (aws.Endpoint, error) {
				//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
				return aws.Endpoint{
					URL:               mediumCfg.Endpoint,
					HostnameImmutable: true,
					Source:            aws.EndpointSourceCustom,
				}, nil
			},
		)
		//nolint:staticcheck // TODO: migrate to BaseEndpoint when AWS SDK v2 stabilizes the new API
		configOptions = append(configOptions, awsConfig.WithEndpointResolverWithOptions(customResolver))
	}

	// Set credentials if provided, otherwise use default credential chain
	if mediumCfg.AccessKeyID != "" && mediumCfg.SecretAccessKey != "" {
		credProvider := credentials.NewStaticCredentialsProvider(
			mediumCfg.AccessKeyID,
			mediumCfg.SecretAccessKey,
			"", // session token (empty for static credentials)
		)
		configOptions = append(configOptions, awsConfig.WithCredentialsProvider(credProvider))
	}

	maxRetries := mediumCfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = 10
	}
	configOptions = append(configOptions, awsConfig.WithRetryer(func() aws.Retryer {
		return retry.NewStandard(func(o *retry.StandardOptions) {
			o.MaxAttempts = maxRetries
		})
	}))

	cfg, err := awsConfig.LoadDefaultConfig(ctx, configOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	// ========================================================================
	// Step 2: Create S3 Client
	// ========================================================================

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		// Force path-style addressing for compatibility with MinIO/Localstack
		if mediumCfg.Endpoint != "" {
			o.UsePathStyle = true
		}
	})

	// ========================================================================
	// Step 3: Create S3 Medium
	// ========================================================================

	m, err := mediumS3.New(mediumS3.Config{
		Client:    client,
		Bucket:    mediumCfg.Bucket,
		KeyPrefix: mediumCfg.KeyPrefix,
		Metrics:   promMetrics.NewS3Metrics(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create S3 medium: %w", err)
	}

	logger.Info("S3 medium initialized: bucket=%s, region=%s, prefix=%s",
		mediumCfg.Bucket, mediumCfg.Region, mediumCfg.KeyPrefix)

	return m, nil
}

// CloseStores closes the site store and medium and joins their errors.
func CloseStores(site confstore.Store, files medium.Medium) error {
	var errs []error
	if site != nil {
		errs = append(errs, site.Close())
	}
	if files != nil {
		errs = append(errs, files.Close())
	}
	return errors.Join(errs...)
}
