package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestGetEnvironment(t *testing.T) {
	tests := []struct {
		name          string
		inputEnv      string
		expectedName  string
		expectedAddr  string
		expectedQCap  int
		expectDefault bool // If true, we expect the fallback (local) config
	}{
		{
			name:         "Get local environment",
			inputEnv:     "local",
			expectedName: "LOCAL",
			expectedAddr: "localhost:" + ServerPort,
			expectedQCap: 50,
		},
		{
			name:         "Get remote environment",
			inputEnv:     "remote",
			expectedName: "REMOTE",
			expectedAddr: "0.0.0.0:" + ServerPort,
			expectedQCap: 50,
		},
		{
			name:          "Get unknown environment (defaults to local)",
			inputEnv:      "unknown_env",
			expectedName:  "LOCAL",
			expectedAddr:  "localhost:" + ServerPort,
			expectedQCap:  50,
			expectDefault: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GetEnvironment(tt.inputEnv)

			if got.Name != tt.expectedName {
				t.Errorf("GetEnvironment(%q).Name = %q; want %q", tt.inputEnv, got.Name, tt.expectedName)
			}
			if got.ListenAddr != tt.expectedAddr {
				t.Errorf("GetEnvironment(%q).ListenAddr = %q; want %q", tt.inputEnv, got.ListenAddr, tt.expectedAddr)
			}
			if got.QueueCapacity != tt.expectedQCap {
				t.Errorf("GetEnvironment(%q).QueueCapacity = %d; want %d", tt.inputEnv, got.QueueCapacity, tt.expectedQCap)
			}
			if got.ReadTimeout == 0 {
				t.Errorf("GetEnvironment(%q).ReadTimeout is 0; expected non-zero duration", tt.inputEnv)
			}
			if got.MonitorInterval == 0 {
				t.Errorf("GetEnvironment(%q).MonitorInterval is 0; expected non-zero duration", tt.inputEnv)
			}

			if tt.expectDefault {
				localCfg := environments["local"]
				if got.Name != localCfg.Name {
					t.Errorf("GetEnvironment(%q) did not return local config as default", tt.inputEnv)
				}
			}
		})
	}
}

func TestEnvironment_LogPath(t *testing.T) {
	env := Environment{
		ServiceName: "TestService",
	}
	stateDir := "/var/lib"
	expected := filepath.Join(stateDir, "TestService", "TestService.log")

	got := env.LogPath(stateDir)
	if got != expected {
		t.Errorf("LogPath(%q) = %q; want %q", stateDir, got, expected)
	}
}

func TestLoadFileExpandsEnv(t *testing.T) {
	t.Setenv("STICKER_TEST_KEY", "sk-test-123")

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `speech:
  api_key: ${STICKER_TEST_KEY}
printing:
  default_printer: Canon_XK130
  monitor_printers:
    - Canon_XK130
`
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}

	f, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if f.Speech.APIKey != "sk-test-123" {
		t.Errorf("Speech.APIKey = %q; env expansion failed", f.Speech.APIKey)
	}
	if f.Printing.DefaultPrinter != "Canon_XK130" {
		t.Errorf("Printing.DefaultPrinter = %q", f.Printing.DefaultPrinter)
	}
	if len(f.Printing.MonitorPrinters) != 1 {
		t.Errorf("MonitorPrinters = %v", f.Printing.MonitorPrinters)
	}

	// Defaults fill the gaps.
	if f.Speech.Model != "whisper-1" {
		t.Errorf("Speech.Model default = %q", f.Speech.Model)
	}
	if f.ImageGen.Size != "1024x1024" {
		t.Errorf("ImageGen.Size default = %q", f.ImageGen.Size)
	}
}

func TestLoadFileMissing(t *testing.T) {
	if _, err := LoadFile("/nonexistent/config.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}
}
