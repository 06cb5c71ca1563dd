package instance

import "testing"

func TestGetIDPrefersEnv(t *testing.T) {
	t.Setenv("ESTORE_WORKER_ID", " cron-1 ")
	if got := GetID(); got != "cron-1" {
		t.Fatalf("GetID() = %q, want cron-1", got)
	}
}

func TestGetIDFallsBack(t *testing.T) {
	t.Setenv("ESTORE_WORKER_ID", "")
	if got := GetID(); got == "" {
		t.Fatal("GetID() should never be empty")
	}
}
