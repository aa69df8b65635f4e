package cmd

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/genfinafrica/genfin-chat/internal/api"
)

func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

func TestStatusCommandPrintsSummary(t *testing.T) {
	// Point HOME at a temp dir so no real config is read or written.
	t.Setenv("HOME", t.TempDir())

	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/farmer/7/status" {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]string{"message": "Farmer not found"})
			return
		}
		_ = json.NewEncoder(w).Encode(api.StatusSnapshot{
			FarmerID:     7,
			Name:         "Jane",
			SeasonNumber: 1,
			Stages: []api.Stage{
				{StageNumber: 1, StageName: "Stage 1: Soil Test", Status: api.StageUnlocked},
			},
		})
	}))
	defer backend.Close()
	t.Setenv("GENFIN_API_URL", backend.URL)

	out, err := executeCommand(rootCmd, "status", "7")
	if err != nil {
		t.Fatalf("status command error: %v", err)
	}
	if !strings.Contains(out, "Status for Jane (ID: 7)") {
		t.Errorf("expected summary header in output, got:\n%s", out)
	}
	if !strings.Contains(out, "Stage 1: Soil Test - UNLOCKED") {
		t.Errorf("expected stage line in output, got:\n%s", out)
	}
}

func TestStatusCommandRejectsBadID(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("GENFIN_API_URL", "http://127.0.0.1:0")

	_, err := executeCommand(rootCmd, "status", "abc")
	if err == nil || !strings.Contains(err.Error(), "positive number") {
		t.Fatalf("err = %v, want positive-number validation error", err)
	}
}
