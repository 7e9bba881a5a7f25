package airelay

// Default values applied by WithDefaults.
const (
	DefaultPort      = "3000"
	DefaultBodyLimit = "10MiB"
	DefaultCDN       = "https://cdnjs.cloudflare.com"
)

// DefaultConnectOrigins are extra connect-src origins allowed besides the
// provider endpoints.
var DefaultConnectOrigins = []string{"https://www.googleapis.com"}

// Config holds the non-secret settings of the relay server. Provider secrets
// are never read from the config file; they come from the environment only.
type Config struct {
	// Port is the TCP port to listen on.
	Port string `json:"port" yaml:"port"`
	// DocumentRoot is the directory served as the site. Empty means the
	// embedded default page.
	DocumentRoot string `json:"document_root,omitempty" yaml:"document_root,omitempty"`
	// BodyLimit caps the /api/ai request body, as a size string ("10MiB").
	BodyLimit string `json:"body_limit,omitempty" yaml:"body_limit,omitempty"`
	// Security configures the Content-Security-Policy for served pages.
	Security SecurityConfig `json:"security" yaml:"security"`
	// Log configures structured logging.
	Log LogConfig `json:"log" yaml:"log"`
}

// SecurityConfig lists the third-party origins the served page may use.
type SecurityConfig struct {
	// CDNOrigins are allowed in script-src and style-src for non-inline assets.
	CDNOrigins []string `json:"cdn_origins,omitempty" yaml:"cdn_origins,omitempty"`
	// ConnectOrigins are allowed in connect-src in addition to 'self' and the
	// provider endpoints.
	ConnectOrigins []string `json:"connect_origins,omitempty" yaml:"connect_origins,omitempty"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `json:"level,omitempty" yaml:"level,omitempty"`
	Format string `json:"format,omitempty" yaml:"format,omitempty"`
}
