package apiserver

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1alpha1").Subrouter()

	// Health
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	// Chat
	api.HandleFunc("/chat", s.handleChat).Methods("POST")

	// Memory
	api.HandleFunc("/memory", s.handleListMemory).Methods("GET")
	api.HandleFunc("/memory", s.handleClearMemory).Methods("DELETE")
	api.HandleFunc("/memory/stats", s.handleMemoryStats).Methods("GET")
	api.HandleFunc("/memory/category/{category}", s.handleMemoryByCategory).Methods("GET")

	// Tools
	api.HandleFunc("/tools", s.handleListTools).Methods("GET")
}
