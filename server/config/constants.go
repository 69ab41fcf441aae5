package config

// Network server constants.
// The HTTP port is selected to avoid common development ports like
// 8080, 3000, 5000 and the usual database ports.
const (
	// HTTP Server Port - REST API
	HTTP_SERVER_PORT = 2947

	// Default bind address
	DEFAULT_SERVER_ADDRESS = "0.0.0.0"

	// Localhost address for development
	LOCALHOST_ADDRESS = "127.0.0.1"
)

// Server enabled state constants
const (
	HTTP_SERVER_ENABLED = true
)

// Query paging limits. DistinctRows clamps caller-supplied paging into
// these bounds so a single request cannot drag the whole view across.
const (
	MIN_PAGE_LIMIT     = 1
	MAX_PAGE_LIMIT     = 10000
	DEFAULT_PAGE_LIMIT = 100
)

// Port validation constants
const (
	MIN_PORT = 1
	MAX_PORT = 65535
)

// IsValidPort checks if a port number is within valid range
func IsValidPort(port int) bool {
	return port >= MIN_PORT && port <= MAX_PORT
}
