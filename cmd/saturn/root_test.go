package main

import "testing"

func TestCommandsRegistered(t *testing.T) {
	want := map[string]bool{
		"version":  false,
		"analyze":  false,
		"validate": false,
	}
	for _, c := range rootCmd.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Errorf("command %q not registered on root", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	if versionCmd.Use != "version" {
		t.Errorf("versionCmd.Use = %q, want %q", versionCmd.Use, "version")
	}
	if versionCmd.Run == nil {
		t.Error("versionCmd.Run should not be nil")
	}
	if Version == "" {
		t.Error("Version should not be empty")
	}
}

func TestRootFlags(t *testing.T) {
	if f := rootCmd.PersistentFlags().Lookup("config"); f == nil {
		t.Error("missing --config flag")
	}
	if f := rootCmd.PersistentFlags().Lookup("log-level"); f == nil {
		t.Error("missing --log-level flag")
	}
}
