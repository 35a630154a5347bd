package healing

import (
	"time"

	"github.com/xkilldash9x/synapse/internal/config"
)

func configPipeline() config.PipelineConfig {
	return config.PipelineConfig{
		MaxHealingAttempts: 2,
		AttemptTimeout:     45 * time.Second,
	}
}
