package config

import "strings"

type Cors struct {
	file *File
}

var _ CorsConfig = Cors{}

type AllowedOrigins map[string]struct{}
type nullValue = struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

// GetAllowedOrigins reads ALLOWED_ORIGINS as a comma separated list; "*" allows any origin.
func (c Cors) GetAllowedOrigins() AllowedOrigins {
	origins := c.file.AllowedOrigins
	if raw := GetEnv("ALLOWED_ORIGINS", ""); raw != "" {
		origins = strings.Split(raw, ",")
	}
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000"}
	}

	allowed := AllowedOrigins{}
	for _, origin := range origins {
		if origin = strings.TrimSpace(origin); origin != "" {
			allowed[origin] = nullValue{}
		}
	}
	return allowed
}

func (Cors) GetAllowedMethods() string {
	return "GET, POST, OPTIONS"
}

func (Cors) GetAllowedHeaders() string {
	return "Content-Type, Authorization, X-Bot-Api-Key"
}
