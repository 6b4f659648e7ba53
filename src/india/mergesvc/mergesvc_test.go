package mergesvc_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/morfoh/xdelta3/src/india/mergesvc"
)

func TestProgressListAndOne(t *testing.T) {
	s := mergesvc.NewServer()
	s.Update("chain-a", mergesvc.Progress{RoundSize: 4, RoundDone: 1})

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress/chain-a")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var p mergesvc.Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if p.Chain != "chain-a" || p.RoundSize != 4 || p.RoundDone != 1 {
		t.Fatalf("unexpected progress: %+v", p)
	}
}

func TestProgressUnknownChainIs404(t *testing.T) {
	s := mergesvc.NewServer()

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress/nope")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestFinishRecordsError(t *testing.T) {
	s := mergesvc.NewServer()
	s.Update("chain-b", mergesvc.Progress{RoundSize: 2, RoundDone: 0})
	s.Finish("chain-b", errors.New("boom"))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/progress/chain-b")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()

	var p mergesvc.Progress
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if !p.Done || p.Err != "boom" {
		t.Fatalf("expected done=true err=boom, got %+v", p)
	}
}
