package metrics

// ResetBackend restores the no-op backend.
func ResetBackend() {
	mu.Lock()
	backend = nopBackend{}
	mu.Unlock()
}
