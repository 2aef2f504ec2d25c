package config

import (
	"fmt"
	"net/url"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Backend.BaseURL == "" {
		issues = append(issues, ValidationIssue{
			Path:    "backend.baseUrl",
			Message: "base URL is required",
		})
	} else if u, err := url.Parse(cfg.Backend.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		issues = append(issues, ValidationIssue{
			Path:    "backend.baseUrl",
			Message: fmt.Sprintf("must be an absolute URL, got %q", cfg.Backend.BaseURL),
		})
	}

	if cfg.Backend.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "backend.timeoutSeconds",
			Message: fmt.Sprintf("must be non-negative, got %d", cfg.Backend.TimeoutSeconds),
		})
	}

	required := map[string]int{
		"missions.requiredSeconds.readCaseStudy": cfg.Missions.RequiredSeconds.ReadCaseStudy,
		"missions.requiredSeconds.viewProcess":   cfg.Missions.RequiredSeconds.ViewProcess,
		"missions.requiredSeconds.vapiCall":      cfg.Missions.RequiredSeconds.VapiCall,
	}
	for path, secs := range required {
		if secs <= 0 {
			issues = append(issues, ValidationIssue{
				Path:    path,
				Message: fmt.Sprintf("must be positive, got %d", secs),
			})
		}
	}

	if cfg.Track.FeedURL != "" {
		u, err := url.Parse(cfg.Track.FeedURL)
		if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
			issues = append(issues, ValidationIssue{
				Path:    "track.feedUrl",
				Message: fmt.Sprintf("must be a ws:// or wss:// URL, got %q", cfg.Track.FeedURL),
			})
		}
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	return issues
}
