package config

import "fmt"

// Tool names known to the registry.
const (
	ToolCalendly       = "calendly"
	ToolGoogleCalendar = "google_calendar"
	ToolGoogleMeet     = "google_meet"
	ToolGmail          = "gmail"
	ToolGoogleDrive    = "google_drive"
)

// AllTools lists every integration the server registers, in registration order.
var AllTools = []string{ToolCalendly, ToolGoogleCalendar, ToolGoogleMeet, ToolGmail, ToolGoogleDrive}

// ValidationReport summarizes which integrations have enough configuration to start.
type ValidationReport struct {
	Valid           bool     `json:"valid"`
	ConfiguredTools []string `json:"configured_tools"`
	MissingTools    []string `json:"missing_tools"`
	TotalTools      int      `json:"total_tools"`
	Warnings        []string `json:"warnings"`
}

// ConfiguredTools returns the tools whose required settings are present.
// It only inspects configuration; it does not contact any provider.
func (s *Settings) ConfiguredTools() []string {
	var configured []string

	if s.calendlyConfigured() {
		configured = append(configured, ToolCalendly)
	}

	googleReady := s.HasGoogleClientSecrets() && fileExists(s.GoogleTokenPath)
	if googleReady {
		configured = append(configured, ToolGoogleCalendar, ToolGoogleMeet)
	}
	if googleReady || (s.GmailEmail != "" && s.GmailAppPassword != "") {
		configured = append(configured, ToolGmail)
	}
	if googleReady {
		configured = append(configured, ToolGoogleDrive)
	}

	return configured
}

func (s *Settings) calendlyConfigured() bool {
	if s.CalendlyAccessToken != "" {
		return true
	}
	return s.CalendlyClientID != "" && s.CalendlyClientSecret != "" && fileExists(s.CalendlyTokenPath)
}

// Validate builds a ValidationReport for the current settings.
func (s *Settings) Validate() ValidationReport {
	configured := s.ConfiguredTools()
	set := make(map[string]bool, len(configured))
	for _, name := range configured {
		set[name] = true
	}

	report := ValidationReport{
		Valid:           len(configured) > 0,
		ConfiguredTools: configured,
		TotalTools:      len(AllTools),
		MissingTools:    []string{},
		Warnings:        []string{},
	}
	if report.ConfiguredTools == nil {
		report.ConfiguredTools = []string{}
	}

	for _, name := range AllTools {
		if !set[name] {
			report.MissingTools = append(report.MissingTools, name)
		}
	}

	if !s.HasGoogleClientSecrets() {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Google credentials file not found: %s", s.GoogleCredentialsPath))
	} else if !fileExists(s.GoogleTokenPath) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("Google token file not found: %s (run `salesmcp authorize google` first)", s.GoogleTokenPath))
	}
	if s.CalendlyAccessToken != "" && s.CalendlyRefreshToken == "" {
		report.Warnings = append(report.Warnings,
			"Calendly refresh token not set: the access token cannot be renewed after it expires")
	}
	if s.RateLimit.Enabled && (s.RateLimit.Requests <= 0 || s.RateLimit.Window <= 0) {
		report.Warnings = append(report.Warnings, "rate limiting enabled with a non-positive limit; it will be ignored")
	}

	return report
}
