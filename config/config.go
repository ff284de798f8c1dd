package config

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"runtime"
	"strings"
	"time"

	"datapub/version"
)

type Config struct {
	DataDir          string            `json:"data_dir"`
	Repo             string            `json:"repo"`
	Private          bool              `json:"private"`
	Endpoint         string            `json:"endpoint"`
	TokenEnv         string            `json:"token_env"`
	FileExtension    string            `json:"file_extension"`
	IncludePatterns  []string          `json:"include_patterns"`
	ExcludePatterns  []string          `json:"exclude_patterns"`
	ManifestName     string            `json:"manifest_name"`
	CategoryPreview  int               `json:"category_preview"`
	DigestAlgorithm  string            `json:"digest_algorithm"`
	ReadMode         string            `json:"read_mode"`
	MmapMinSize      int64             `json:"mmap_min_size"`
	ConcurrencyLevel int               `json:"concurrency_level"`
	NiceLevel        string            `json:"nice_level"`
	MaxIOPerSecond   int               `json:"max_io_per_second"`
	UploadRetries    int               `json:"upload_retries"`
	UploadTimeout    time.Duration     `json:"upload_timeout"`
	APITimeout       time.Duration     `json:"api_timeout"`
	DryRun           bool              `json:"dry_run"`
	LogLevel         string            `json:"log_level"`
	ConfigFile       string            `json:"config_file"`
	OtelEndpoint     string            `json:"otel_endpoint"`
	OtelFromEnv      bool              `json:"otel_from_env"`
	OtelHeaders      map[string]string `json:"otel_headers"`
	OtelServiceName  string            `json:"otel_service_name"`
	OtelTimeout      time.Duration     `json:"otel_timeout"`
	OtelExportPaths  bool              `json:"otel_export_paths"`
	ConcurrencySet   bool              `json:"-"`
}

func Defaults() *Config {
	return &Config{
		DataDir:          "datasets",
		Repo:             "",
		Private:          true,
		Endpoint:         "https://huggingface.co",
		TokenEnv:         "HF_TOKEN",
		FileExtension:    ".jsonl",
		IncludePatterns:  []string{},
		ExcludePatterns:  []string{},
		ManifestName:     "README.md",
		CategoryPreview:  20,
		DigestAlgorithm:  "sha256",
		ReadMode:         "auto",
		MmapMinSize:      128 * 1024,
		ConcurrencyLevel: runtime.NumCPU(),
		NiceLevel:        "medium",
		MaxIOPerSecond:   0,
		UploadRetries:    4,
		UploadTimeout:    2 * time.Minute,
		APITimeout:       15 * time.Second,
		DryRun:           false,
		LogLevel:         "info",
		OtelEndpoint:     "",
		OtelFromEnv:      false,
		OtelHeaders:      map[string]string{},
		OtelServiceName:  "datapub",
		OtelTimeout:      5 * time.Second,
		OtelExportPaths:  false,
	}
}

func LoadConfig() (*Config, error) {
	cfg := Defaults()

	private := flag.Bool("private", cfg.Private, fmt.Sprintf("Create the collection as private (default: %t).", cfg.Private))
	endpoint := flag.String("endpoint", cfg.Endpoint, fmt.Sprintf("Dataset hub endpoint (default: %s).", cfg.Endpoint))
	tokenEnv := flag.String("token-env", cfg.TokenEnv, fmt.Sprintf("Environment variable holding the access token (default: %s).", cfg.TokenEnv))
	extension := flag.String("extension", cfg.FileExtension, fmt.Sprintf("Record file extension to publish (default: %s).", cfg.FileExtension))
	includes := flag.String("include", "", "Comma-separated list of include patterns (default: none).")
	excludes := flag.String("exclude", "", "Comma-separated list of exclude patterns (default: none).")
	manifestName := flag.String("manifest-name", cfg.ManifestName, fmt.Sprintf("Destination name of the generated manifest (default: %s).", cfg.ManifestName))
	categoryPreview := flag.Int("category-preview", cfg.CategoryPreview, fmt.Sprintf("Maximum category labels listed in the manifest (default: %d).", cfg.CategoryPreview))
	digest := flag.String("digest", cfg.DigestAlgorithm, fmt.Sprintf("Per-file digest algorithm: sha256, xxh64, blake3, or none (default: %s).", cfg.DigestAlgorithm))
	readMode := flag.String("read-mode", cfg.ReadMode, fmt.Sprintf("Content read mode: auto, stream, or mmap (default: %s).", cfg.ReadMode))
	mmapMinSize := flag.Int64("mmap-min-size", cfg.MmapMinSize, fmt.Sprintf("Minimum file size in bytes for the mmap read path (default: %d).", cfg.MmapMinSize))
	concurrency := flag.Int("concurrency", cfg.ConcurrencyLevel, fmt.Sprintf("Aggregation concurrency level (default: %d).", cfg.ConcurrencyLevel))
	nice := flag.String("nice", cfg.NiceLevel, fmt.Sprintf("Nice level: high, medium, or low (default: %s).", cfg.NiceLevel))
	maxIO := flag.Int("max-io-per-second", cfg.MaxIOPerSecond, fmt.Sprintf("Maximum file operations per second, 0 for unlimited (default: %d).", cfg.MaxIOPerSecond))
	uploadRetries := flag.Int("upload-retries", cfg.UploadRetries, fmt.Sprintf("Retry attempts per upload before giving up (default: %d).", cfg.UploadRetries))
	uploadTimeout := flag.Duration("upload-timeout", cfg.UploadTimeout, "Timeout for a single upload request (default: 2m).")
	apiTimeout := flag.Duration("api-timeout", cfg.APITimeout, "Timeout for identity and collection API requests (default: 15s).")
	dryRun := flag.Bool("dry-run", cfg.DryRun, "Validate credentials and aggregate statistics without uploading (default: false).")
	logLevel := flag.String("log-level", cfg.LogLevel, fmt.Sprintf("Log level: debug, info, warn, error, fatal, or panic (default: %s).", cfg.LogLevel))
	configFile := flag.String("config", "", "Path to JSON configuration file (default: none).")
	otelEndpoint := flag.String("otel-endpoint", cfg.OtelEndpoint, "OTLP/HTTP logs endpoint for run events (default: none).")
	otelFromEnv := flag.Bool("otel-from-env", cfg.OtelFromEnv, "Allow OTEL endpoint fallback from OTEL environment variables (default: false).")
	otelHeaders := flag.String("otel-headers", "", "Comma-separated OTEL headers (key=value) for export (default: none).")
	otelServiceName := flag.String("otel-service-name", cfg.OtelServiceName, fmt.Sprintf("OTEL service name for export (default: %s).", cfg.OtelServiceName))
	otelTimeout := flag.Duration("otel-timeout", cfg.OtelTimeout, "OTEL export timeout (default: 5s).")
	otelExportPaths := flag.Bool("otel-export-paths", cfg.OtelExportPaths, "Include absolute local paths in OTEL payloads (default: false).")
	showVersion := flag.Bool("version", false, "Print version and exit")

	flag.Usage = displayHelp
	flag.Parse()

	if *showVersion {
		fmt.Printf("datapub version %s\n", version.Version)
		os.Exit(0)
	}

	if *configFile != "" {
		cfg.ConfigFile = *configFile
		if err := cfg.loadFromFile(cfg.ConfigFile); err != nil {
			return nil, err
		}
	}

	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "private":
			cfg.Private = *private
		case "endpoint":
			cfg.Endpoint = strings.TrimSpace(*endpoint)
		case "token-env":
			cfg.TokenEnv = strings.TrimSpace(*tokenEnv)
		case "extension":
			cfg.FileExtension = strings.TrimSpace(*extension)
		case "include":
			cfg.IncludePatterns = parseCommaSeparated(*includes)
		case "exclude":
			cfg.ExcludePatterns = parseCommaSeparated(*excludes)
		case "manifest-name":
			cfg.ManifestName = strings.TrimSpace(*manifestName)
		case "category-preview":
			cfg.CategoryPreview = *categoryPreview
		case "digest":
			cfg.DigestAlgorithm = strings.ToLower(strings.TrimSpace(*digest))
		case "read-mode":
			cfg.ReadMode = strings.ToLower(strings.TrimSpace(*readMode))
		case "mmap-min-size":
			cfg.MmapMinSize = *mmapMinSize
		case "concurrency":
			cfg.ConcurrencyLevel = *concurrency
			cfg.ConcurrencySet = true
		case "nice":
			cfg.NiceLevel = *nice
		case "max-io-per-second":
			cfg.MaxIOPerSecond = *maxIO
		case "upload-retries":
			cfg.UploadRetries = *uploadRetries
		case "upload-timeout":
			cfg.UploadTimeout = *uploadTimeout
		case "api-timeout":
			cfg.APITimeout = *apiTimeout
		case "dry-run":
			cfg.DryRun = *dryRun
		case "log-level":
			cfg.LogLevel = *logLevel
		case "otel-endpoint":
			cfg.OtelEndpoint = strings.TrimSpace(*otelEndpoint)
		case "otel-from-env":
			cfg.OtelFromEnv = *otelFromEnv
		case "otel-headers":
			cfg.OtelHeaders = parseHeaders(*otelHeaders)
		case "otel-service-name":
			cfg.OtelServiceName = strings.TrimSpace(*otelServiceName)
		case "otel-timeout":
			cfg.OtelTimeout = *otelTimeout
		case "otel-export-paths":
			cfg.OtelExportPaths = *otelExportPaths
		}
	})

	// Positional arguments: data directory and destination collection.
	args := flag.Args()
	if len(args) >= 1 && strings.TrimSpace(args[0]) != "" {
		cfg.DataDir = strings.TrimSpace(args[0])
	}
	if len(args) >= 2 && strings.TrimSpace(args[1]) != "" {
		cfg.Repo = strings.TrimSpace(args[1])
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func displayHelp() {
	fmt.Println("datapub - Dataset Publication Pipeline")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  datapub [options] [data-dir] [owner/collection]")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  datapub ./wiki-datasets acme/wikidump")
	fmt.Println("  datapub -dry-run ./wiki-datasets")
	fmt.Println("  datapub -private=false -concurrency 8 ./datasets acme/corpus")
}

func (cfg *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read config file: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	if _, ok := raw["concurrency_level"]; ok {
		cfg.ConcurrencySet = true
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("invalid config file format: %v", err)
	}
	return nil
}

func (cfg *Config) validate() error {
	cfg.FileExtension = strings.ToLower(strings.TrimSpace(cfg.FileExtension))
	cfg.DigestAlgorithm = strings.ToLower(strings.TrimSpace(cfg.DigestAlgorithm))
	cfg.ReadMode = strings.ToLower(strings.TrimSpace(cfg.ReadMode))
	if cfg.ReadMode == "" {
		cfg.ReadMode = "auto"
	}
	if cfg.ManifestName == "" {
		cfg.ManifestName = "README.md"
	}

	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("data directory must be specified")
	}
	if cfg.Repo != "" && strings.Count(cfg.Repo, "/") > 1 {
		return fmt.Errorf("invalid collection name: %s (expected owner/name)", cfg.Repo)
	}
	if !strings.HasPrefix(cfg.FileExtension, ".") {
		return fmt.Errorf("invalid record file extension: %s", cfg.FileExtension)
	}
	if !strings.HasPrefix(cfg.Endpoint, "http://") && !strings.HasPrefix(cfg.Endpoint, "https://") {
		return fmt.Errorf("endpoint must include scheme (http or https)")
	}
	if cfg.CategoryPreview <= 0 {
		return fmt.Errorf("category-preview must be positive")
	}
	switch cfg.DigestAlgorithm {
	case "sha256", "xxh64", "blake3", "none":
	default:
		return fmt.Errorf("invalid digest algorithm: %s", cfg.DigestAlgorithm)
	}
	if cfg.ReadMode != "auto" && cfg.ReadMode != "stream" && cfg.ReadMode != "mmap" {
		return fmt.Errorf("invalid read-mode value: %s", cfg.ReadMode)
	}
	if cfg.MmapMinSize < 0 {
		return fmt.Errorf("mmap-min-size must be zero or positive")
	}
	if cfg.ConcurrencyLevel <= 0 {
		return fmt.Errorf("concurrency level must be positive")
	}
	if cfg.NiceLevel != "high" && cfg.NiceLevel != "medium" && cfg.NiceLevel != "low" {
		return fmt.Errorf("invalid nice level: %s", cfg.NiceLevel)
	}
	if cfg.MaxIOPerSecond < 0 {
		return fmt.Errorf("max-io-per-second must be zero or positive")
	}
	if cfg.UploadRetries < 0 {
		return fmt.Errorf("upload-retries must be zero or positive")
	}
	if cfg.UploadTimeout <= 0 {
		return fmt.Errorf("upload-timeout must be positive")
	}
	if cfg.APITimeout <= 0 {
		return fmt.Errorf("api-timeout must be positive")
	}
	if cfg.OtelTimeout < 0 {
		return fmt.Errorf("otel-timeout must be zero or positive")
	}
	if cfg.OtelEndpoint != "" {
		if !strings.HasPrefix(cfg.OtelEndpoint, "http://") && !strings.HasPrefix(cfg.OtelEndpoint, "https://") {
			return fmt.Errorf("otel-endpoint must include scheme (http or https)")
		}
	}
	if cfg.LogLevel != "debug" && cfg.LogLevel != "info" && cfg.LogLevel != "warn" &&
		cfg.LogLevel != "error" && cfg.LogLevel != "fatal" && cfg.LogLevel != "panic" {
		return fmt.Errorf("invalid log level: %s", cfg.LogLevel)
	}
	return nil
}

func parseCommaSeparated(input string) []string {
	if input == "" {
		return []string{}
	}
	items := strings.Split(input, ",")
	for i, item := range items {
		items[i] = strings.TrimSpace(item)
	}
	return items
}

func parseHeaders(input string) map[string]string {
	headers := make(map[string]string)
	if input == "" {
		return headers
	}
	for _, item := range strings.Split(input, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		parts := strings.SplitN(item, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key := strings.TrimSpace(parts[0])
		if key == "" {
			continue
		}
		headers[key] = strings.TrimSpace(parts[1])
	}
	return headers
}
