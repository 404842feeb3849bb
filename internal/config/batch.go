package config

import "time"

// BatchConfig holds the rate limit policy of the batch job processor.
// The defaults encode the generator's limit of 10 requests per minute.
type BatchConfig struct {
	ItemsPerBatch       int           `yaml:"items_per_batch" default:"10"`
	DelayBetweenBatches time.Duration `yaml:"delay_between_batches" default:"60s"`
}

// DefaultBatchConfig returns the default batch configuration
func DefaultBatchConfig() *BatchConfig {
	return &BatchConfig{
		ItemsPerBatch:       10,
		DelayBetweenBatches: time.Minute,
	}
}
