package hub

import "testing"

func TestNewEnvCredentialsOrder(t *testing.T) {
	creds := NewEnvCredentials("MY_TOKEN")
	want := []string{"MY_TOKEN", "HF_TOKEN", "HUGGING_FACE_HUB_TOKEN"}
	if len(creds.Vars) != len(want) {
		t.Fatalf("unexpected vars: %v", creds.Vars)
	}
	for i, v := range want {
		if creds.Vars[i] != v {
			t.Fatalf("position %d: expected %s, got %s", i, v, creds.Vars[i])
		}
	}
}

func TestNewEnvCredentialsDeduplicates(t *testing.T) {
	creds := NewEnvCredentials("HF_TOKEN")
	if len(creds.Vars) != 2 {
		t.Fatalf("primary duplicating a fallback must be deduplicated: %v", creds.Vars)
	}
}

func TestEnvCredentialsLookup(t *testing.T) {
	t.Setenv("DATAPUB_TEST_TOKEN", "  secret  ")
	creds := NewEnvCredentials("DATAPUB_TEST_TOKEN")
	token, ok := creds.CurrentToken()
	if !ok || token != "secret" {
		t.Fatalf("expected trimmed token, got %q ok=%t", token, ok)
	}
}

func TestEnvCredentialsMissing(t *testing.T) {
	creds := EnvCredentials{Vars: []string{"DATAPUB_DEFINITELY_UNSET"}}
	if _, ok := creds.CurrentToken(); ok {
		t.Fatal("expected no token")
	}
}

func TestStaticCredentials(t *testing.T) {
	if token, ok := StaticCredentials("t").CurrentToken(); !ok || token != "t" {
		t.Fatalf("unexpected static token: %q ok=%t", token, ok)
	}
	if _, ok := StaticCredentials("").CurrentToken(); ok {
		t.Fatal("empty static credential must report absence")
	}
}
