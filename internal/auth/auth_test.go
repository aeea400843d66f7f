package auth

import (
	"testing"
	"time"
)

func TestSignAndVerifyToken(t *testing.T) {
	token, err := SignToken("secret", "streamer-1", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	subject, err := VerifyToken(token, "secret")
	if err != nil {
		t.Fatalf("VerifyToken: %v", err)
	}
	if subject != "streamer-1" {
		t.Fatalf("got subject %q want streamer-1", subject)
	}
}

func TestVerifyTokenRejectsWrongSecret(t *testing.T) {
	token, err := SignToken("secret", "streamer-1", time.Hour)
	if err != nil {
		t.Fatalf("SignToken: %v", err)
	}
	if _, err := VerifyToken(token, "wrong-secret"); err == nil {
		t.Fatal("expected verification to fail with the wrong secret")
	}
}

func TestSignTokenRejectsEmptySecret(t *testing.T) {
	if _, err := SignToken("", "streamer-1", time.Hour); err == nil {
		t.Fatal("expected an error for an empty signing secret")
	}
}

func TestAttachToURLAppendsQueryParam(t *testing.T) {
	got, err := AttachToURL("rtmp://host/live/key", "tok123")
	if err != nil {
		t.Fatalf("AttachToURL: %v", err)
	}
	want := "rtmp://host/live/key?auth=tok123"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestAttachToURLPreservesExistingQuery(t *testing.T) {
	got, err := AttachToURL("rtmp://host/live/key?region=eu", "tok123")
	if err != nil {
		t.Fatalf("AttachToURL: %v", err)
	}
	want := "rtmp://host/live/key?auth=tok123&region=eu"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}
