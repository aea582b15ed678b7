package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const configTemplate = `# Condor Screener Configuration

[screener]
# Days ahead of today to search for expirations
max_days = 30
# Liquidity filter
min_volume = 5
min_open_interest = 25
# Enumeration bounds: legs per side and candidates per expiration
max_legs_per_side = 50
max_candidates = 1000
# Acceptance thresholds
min_net_credit = 0.10
max_risk = 10.0
# Minimum probability of profit in percent
min_probability = 30.0
# Ranking: credit, probability, risk_reward
criteria = "credit"
limit = 10
# Volatility assumed when a sold leg has no implied volatility
volatility = 0.2
# Leg window: "first" (lowest strikes) or "spot" (centered on spot)
window = "first"
# Expirations processed concurrently
concurrency = 4

[provider]
# Market data provider: "polygon" or "file"
name = "polygon"
base_url = "https://api.polygon.io"
# Prefer the POLYGON_API_KEY environment variable or a .env file
api_key = ""
# Snapshot directory for the file provider
fixtures_dir = "testdata"
timeout = "15s"
max_retries = 3
page_size = 250
max_contracts = 3000
# Throttle for rate-limited plans (the free tier allows 5); 0 disables
requests_per_minute = 0
# Stop calling the provider after this many consecutive failures; 0 disables
breaker_threshold = 5
breaker_cooldown = "30s"

[output]
# Default output format: table, json, yaml
format = "table"
# Rows shown in the table
top_n = 5
color_enabled = true
# Export every screened condor to <data_dir>/<symbol>_iron_condors.csv
write_csv = true
data_dir = "data"

[history]
# Record each scan in a local SQLite database
enabled = true
path = ""

[server]
addr = ":8080"
read_timeout = "10s"
write_timeout = "60s"

[cache]
enabled = true
max_cost = 67108864
spot_ttl = "15s"
chain_ttl = "1m"
expirations_ttl = "10m"
earnings_ttl = "1h"

[logging]
# debug, info, warn, error
level = "info"
file = true
file_path = ""
`

func createTemplateConfig(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(configTemplate), 0644); err != nil {
		return fmt.Errorf("writing config template: %w", err)
	}

	return nil
}
