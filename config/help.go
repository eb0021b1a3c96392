package config

const HelpMessage = `Ladies Drive ride core.

Modes:
  ride-service        passenger flows and the ride lifecycle (default port 3000)
  driver-service      driver dispatch, availability and location (default port 3001)
  admin-service       back-office overview, verification and tokens (default port 3004)
  location-consumer   indexes the Kafka driver location stream into Redis

Run one of them with "serve --mode <mode>" (or MODE). "migrate" creates the
postgres schema.

Configuration is read from the YAML file given with --config, then from
environment variables (DATABASE_HOST, REDIS_ADDR, DISPATCH_SEARCH_TIMEOUT, ...),
then from built-in defaults. Environment variables always win over the file.

STORE_DRIVER=memory keeps every ride and user inside one process. Each mode
runs as its own process, so memory mode is for development of a single mode
only: a ride-service and a driver-service never see each other's rides.
Use postgres whenever more than one mode runs.
`
