package config

import (
	_ "embed"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/face-station/internal/constants"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Paths     PathsConfig     `yaml:"paths"`
	Capture   CaptureConfig   `yaml:"capture"`
	Recognize RecognizeConfig `yaml:"recognize"`
	Detector  DetectorConfig  `yaml:"detector"`
	Web       WebConfig       `yaml:"web"`
	Log       LogConfig       `yaml:"log"`
}

type PathsConfig struct {
	DataDir  string `yaml:"data_dir"`  // sample store root
	ModelDir string `yaml:"model_dir"` // trained model artifacts
}

type CaptureConfig struct {
	Target        int     `yaml:"target"` // samples per session, clamped to 40..60
	Mode          string  `yaml:"mode"`   // auto or manual
	MinFaceSize   int     `yaml:"min_face_size"`
	BlurThreshold float64 `yaml:"blur_threshold"`
	MinPixelDiff  float64 `yaml:"min_pixel_diff"`
}

type RecognizeConfig struct {
	Threshold float64 `yaml:"threshold"` // max distance still accepted as a match
}

type DetectorConfig struct {
	URL string `yaml:"url"` // face detection API, e.g. http://localhost:8000
}

type WebConfig struct {
	Port int `yaml:"port"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace, debug, info, warn, error
	Format string `yaml:"format"` // text or json
}

// envStr reads an environment variable, falling back to the default when
// unset or empty.
func envStr(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a positive float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

// Load builds the configuration from the embedded defaults with
// FACE_STATION_* environment overrides applied on top.
func Load() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in
		// practice.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}

	cfg.Paths.DataDir = envStr("FACE_STATION_DATA_DIR", cfg.Paths.DataDir)
	cfg.Paths.ModelDir = envStr("FACE_STATION_MODEL_DIR", cfg.Paths.ModelDir)

	cfg.Capture.Target = envInt("FACE_STATION_CAPTURE_TARGET", cfg.Capture.Target)
	cfg.Capture.Mode = envStr("FACE_STATION_CAPTURE_MODE", cfg.Capture.Mode)
	cfg.Capture.MinFaceSize = envInt("FACE_STATION_MIN_FACE_SIZE", cfg.Capture.MinFaceSize)
	cfg.Capture.BlurThreshold = envFloat("FACE_STATION_BLUR_THRESHOLD", cfg.Capture.BlurThreshold)
	cfg.Capture.MinPixelDiff = envFloat("FACE_STATION_MIN_PIXEL_DIFF", cfg.Capture.MinPixelDiff)

	cfg.Recognize.Threshold = envFloat("FACE_STATION_THRESHOLD", cfg.Recognize.Threshold)
	cfg.Detector.URL = envStr("FACE_STATION_DETECTOR_URL", cfg.Detector.URL)
	cfg.Web.Port = envInt("FACE_STATION_PORT", cfg.Web.Port)
	cfg.Log.Level = envStr("FACE_STATION_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envStr("FACE_STATION_LOG_FORMAT", cfg.Log.Format)

	cfg.Capture.Target = ClampTarget(cfg.Capture.Target)

	return &cfg
}

// ClampTarget bounds a session target to the supported range. Every input
// that sets a target (env, defaults, CLI flags) goes through this, keeping
// sessions inside the range where one session gives a person enough
// nearest-neighbor coverage without bloating the index.
func ClampTarget(target int) int {
	return min(max(target, constants.MinSessionTarget), constants.MaxSessionTarget)
}
