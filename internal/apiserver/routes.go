package apiserver

// registerRoutes wires every API endpoint to its handler.
func (s *Server) registerRoutes() {
	api := s.router.PathPrefix("/api/v1alpha1").Subrouter()

	// Health
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	// Profiles
	api.HandleFunc("/profiles", s.handleListProfiles).Methods("GET")
	api.HandleFunc("/profiles/{name}", s.handleGetProfile).Methods("GET")

	// CheckRuns - optionally scoped by ?profile=xxx
	api.HandleFunc("/checkruns", s.handleListCheckRuns).Methods("GET")
	api.HandleFunc("/checkruns/{name}", s.handleGetCheckRun).Methods("GET")
	api.HandleFunc("/checkruns", s.handleCreateCheckRun).Methods("POST")
}
