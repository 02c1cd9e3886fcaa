package auth

import "testing"

const testPrivateKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

func TestNew_DerivesAddressFromPrivateKey(t *testing.T) {
	a, err := New(testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.Address().Hex() == "" {
		t.Fatal("Address() is empty")
	}
}

func TestNew_AcceptsHexPrefixedKey(t *testing.T) {
	a1, err := New(testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a2, err := New("0x"+testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() with 0x prefix error = %v", err)
	}
	if a1.Address() != a2.Address() {
		t.Fatalf("addresses differ between prefixed and unprefixed keys: %v != %v", a1.Address(), a2.Address())
	}
}

func TestHasCredentials_FalseUntilSet(t *testing.T) {
	a, err := New(testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if a.HasCredentials() {
		t.Fatal("HasCredentials() = true before SetCredentials")
	}
	a.SetCredentials(Credentials{APIKey: "k", Secret: "s", Passphrase: "p"})
	if !a.HasCredentials() {
		t.Fatal("HasCredentials() = false after SetCredentials with all fields set")
	}
}

func TestL1Headers_ProducesNonEmptySignature(t *testing.T) {
	a, err := New(testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	headers, err := a.L1Headers(1)
	if err != nil {
		t.Fatalf("L1Headers() error = %v", err)
	}
	if headers["X-Venue-Signature"] == "" {
		t.Fatal("L1Headers() produced an empty signature")
	}
	if headers["X-Venue-Address"] != a.Address().Hex() {
		t.Fatalf("X-Venue-Address = %q, want %q", headers["X-Venue-Address"], a.Address().Hex())
	}
}

func TestL2Headers_SignatureChangesWithBody(t *testing.T) {
	a, err := New(testPrivateKey, 137)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	a.SetCredentials(Credentials{APIKey: "k", Secret: "shared-secret", Passphrase: "p"})

	h1 := a.L2Headers("POST", "/orders", `{"a":1}`)
	h2 := a.L2Headers("POST", "/orders", `{"a":2}`)
	if h1["X-Venue-Signature"] == h2["X-Venue-Signature"] {
		t.Fatal("L2Headers produced identical signatures for different bodies")
	}
	if h1["X-Venue-Api-Key"] != "k" || h1["X-Venue-Passphrase"] != "p" {
		t.Fatalf("L2Headers credentials mismatch: %+v", h1)
	}
}
