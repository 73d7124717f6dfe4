//go:build integration

// functions that are useful in integration tests

package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/information-sharing-networks/blockcerts-viewer/internal/blockcerts/testutil"
)

func newIssuer(t *testing.T) *testutil.Issuer {
	t.Helper()
	issuer, err := testutil.NewIssuer()
	if err != nil {
		t.Fatalf("failed to create issuer: %v", err)
	}
	return issuer
}

// pinIssuerKey writes the issuer public key to a new pinned keys directory and returns the directory
func pinIssuerKey(t *testing.T, issuer *testutil.Issuer) string {
	t.Helper()
	dir := t.TempDir()
	if err := issuer.PinKey(dir); err != nil {
		t.Fatalf("failed to pin issuer key: %v", err)
	}
	return dir
}

// issuerKeyServer publishes the issuer public key as a JWK set, the way an issuer hosts its jwksUrl
func issuerKeyServer(t *testing.T, issuer *testutil.Issuer) *httptest.Server {
	t.Helper()
	body, err := json.Marshal(map[string]any{"keys": []json.RawMessage{issuer.PublicJWK}})
	if err != nil {
		t.Fatal(err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// issueCertificate signs a mocknet certificate whose issuer profile is given
func issueCertificate(t *testing.T, issuer *testutil.Issuer, id string, profile map[string]any) []byte {
	t.Helper()
	doc, err := testutil.UnsignedCertificate(id, profile)
	if err != nil {
		t.Fatal(err)
	}
	docs, err := issuer.IssueMocknet(doc)
	if err != nil {
		t.Fatalf("failed to issue certificate: %v", err)
	}
	return docs[0]
}

// doRequest sends a request to the test server and returns the status code and body
func doRequest(t *testing.T, method, url string, body []byte) (int, []byte) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return resp.StatusCode, respBody
}

func decodeJSON[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("failed to decode response %s: %v", data, err)
	}
	return v
}
