package narrative

import "health-report-workers/internal/common/config"

func configNarrative() config.NarrativeConfig {
	return config.NarrativeConfig{
		BaseURL:           "http://narrative.local/",
		Timeout:           120000,
		MaxRetries:        2,
		RequestsPerMinute: 30,
		Burst:             1,
	}
}
