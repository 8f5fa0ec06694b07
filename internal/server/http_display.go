package server

import "fmt"

// displayServerInfo shows server configuration information
func (s *Server) displayServerInfo() {
	s.displayEndpoints()
	s.displayAuthInfo()
	s.displayRequestLimitInfo()
	s.displayRateLimitInfo()
}

func (s *Server) displayEndpoints() {
	scheme := "http"
	if tlsModeEnabled(s.TLSConfig) {
		scheme = "https"
	}
	fmt.Printf("Available endpoints (%s):\n", scheme)
	fmt.Println("  GET    /health                   - Health check")
	fmt.Println("  GET    /stats                    - Server statistics")
	fmt.Println("  POST   /sessions                 - Create a form session")
	fmt.Println("  GET    /sessions/{id}            - Show a session")
	fmt.Println("  DELETE /sessions/{id}            - Delete a session")
	fmt.Println("  PATCH  /sessions/{id}/fields     - Update form fields")
	fmt.Println("  POST   /sessions/{id}/preview    - Preview the resume (?format=json|text|markdown|html)")
	fmt.Println("  GET    /sessions/{id}/export     - Download the resume as PDF")
	fmt.Println("  POST   /sessions/{id}/import     - Load fields from an exported PDF")
	fmt.Println("  POST   /sessions/{id}/suggest    - AI suggestions")
	fmt.Println("  POST   /sessions/{id}/score      - ATS score")
	fmt.Println("  POST   /sessions/{id}/models     - List available models")
}

func (s *Server) displayAuthInfo() {
	if len(s.APIKeys) > 0 {
		fmt.Printf("API authentication: ENABLED (%d keys configured)\n", len(s.APIKeys))
		fmt.Println("Include 'X-API-Key: <your-key>' header in requests to /sessions")
	} else {
		fmt.Println("API authentication: DISABLED (no API keys configured)")
		fmt.Println("WARNING: API endpoints are publicly accessible!")
	}
}

func (s *Server) displayRequestLimitInfo() {
	if s.MaxRequestSize > 0 {
		fmt.Printf("Request size limit: %d bytes (%.1f MB)\n", s.MaxRequestSize, float64(s.MaxRequestSize)/(1024*1024))
	} else {
		fmt.Println("Request size limit: DISABLED")
	}
}

func (s *Server) displayRateLimitInfo() {
	if s.RateLimit != nil && s.RateLimit.Enabled {
		fmt.Printf("Rate limiting: ENABLED (%d requests/min, burst: %d)\n",
			s.RateLimit.RequestsPerMin, s.RateLimit.BurstCapacity)
		if s.RateLimit.ByAPIKey {
			fmt.Println("  - Per API key rate limiting enabled")
		}
		if s.RateLimit.ByIP {
			fmt.Println("  - Per IP address rate limiting enabled")
		}
	} else {
		fmt.Println("Rate limiting: DISABLED")
	}
}
